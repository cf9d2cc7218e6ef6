/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       Row types and enums for the durable store: sources,
             regulation events, history, laws, law updates,
             crawl runs, notifications, feedback.
Root Cause:  Sprint task T215 — Durable store data model.
Context:     The store exclusively owns these entities; the
             fetchers and analyzer only produce value objects
             that feed them.
Suitability: L3 — schema-shaped plain structs.
──────────────────────────────────────────────────────────────
*/

package store

import "time"

// Stage is the lifecycle position of a regulation.
type Stage string

const (
	StageProposed        Stage = "proposed"
	StageIntroduced      Stage = "introduced"
	StageCommitteeReview Stage = "committee_review"
	StagePassed          Stage = "passed"
	StageEnacted         Stage = "enacted"
	StageEffective       Stage = "effective"
	StageAmended         Stage = "amended"
	StageWithdrawn       Stage = "withdrawn"
	StageRejected        Stage = "rejected"
)

// Stages enumerates the allowed lifecycle values.
var Stages = []Stage{
	StageProposed, StageIntroduced, StageCommitteeReview, StagePassed,
	StageEnacted, StageEffective, StageAmended, StageWithdrawn, StageRejected,
}

// ValidStage reports whether s is in the allowed enum.
func ValidStage(s string) bool {
	for _, v := range Stages {
		if string(v) == s {
			return true
		}
	}
	return false
}

// AgeBrackets enumerates the allowed age_bracket values.
var AgeBrackets = []string{"13-15", "16-18", "both"}

// ValidAgeBracket reports whether b is in the allowed enum.
func ValidAgeBracket(b string) bool {
	for _, v := range AgeBrackets {
		if v == b {
			return true
		}
	}
	return false
}

// ChangeType classifies a history entry.
type ChangeType string

const (
	ChangeCreated       ChangeType = "created"
	ChangeUpdated       ChangeType = "updated"
	ChangeStatusChanged ChangeType = "status_changed"
	ChangeAmended       ChangeType = "amended"
	ChangeDeleted       ChangeType = "deleted"
	ChangeFeedback      ChangeType = "feedback"
)

// RunStatus is a crawl run's lifecycle state.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Source is a persisted crawl source.
type Source struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	URL                 string     `json:"url"`
	Type                string     `json:"type"`
	AuthorityType       string     `json:"authorityType"`
	Jurisdiction        string     `json:"jurisdiction"`
	JurisdictionCountry string     `json:"jurisdictionCountry"`
	JurisdictionState   string     `json:"jurisdictionState,omitempty"`
	ReliabilityTier     int        `json:"reliabilityTier"`
	LastCrawledAt       *time.Time `json:"lastCrawledAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// RegulationEvent is one observed publication or update about a regulatory
// item. List-valued fields are opaque JSON text; they are parsed only at the
// read boundary.
type RegulationEvent struct {
	ID                  string  `json:"id"`
	Title               string  `json:"title"`
	JurisdictionCountry string  `json:"jurisdictionCountry"`
	JurisdictionState   string  `json:"jurisdictionState,omitempty"`
	Stage               Stage   `json:"stage"`
	IsUnder16Applicable bool    `json:"isUnder16Applicable"`
	AgeBracket          string  `json:"ageBracket"`
	ImpactScore         int     `json:"impactScore"`
	LikelihoodScore     int     `json:"likelihoodScore"`
	ConfidenceScore     int     `json:"confidenceScore"`
	ChiliScore          int     `json:"chiliScore"`
	Summary             string  `json:"summary"`
	BusinessImpact      string  `json:"businessImpact"`
	RequiredSolutions   string  `json:"-"`
	AffectedProducts    string  `json:"-"`
	CompetitorResponses string  `json:"-"`
	RawText             string  `json:"rawText,omitempty"`
	SourceURLLink       string  `json:"sourceUrlLink"`
	EffectiveDate       *string `json:"effectiveDate"`
	PublishedDate       *string `json:"publishedDate"`
	SourceID            *int64  `json:"sourceId,omitempty"`
	CreatedAt           string  `json:"createdAt"`
	UpdatedAt           string  `json:"updatedAt"`
}

// EventHistoryEntry is one append-only change record for an event.
type EventHistoryEntry struct {
	ID            int64      `json:"id"`
	EventID       string     `json:"eventId"`
	ChangedAt     string     `json:"changedAt"`
	ChangedBy     string     `json:"changedBy"`
	ChangeType    ChangeType `json:"changeType"`
	FieldName     string     `json:"fieldName,omitempty"`
	PreviousValue string     `json:"previousValue,omitempty"`
	NewValue      string     `json:"newValue,omitempty"`
}

// Law is the canonical legal instrument one or more events refer to.
type Law struct {
	ID                          int64   `json:"id"`
	LawKey                      string  `json:"lawKey"`
	LawName                     string  `json:"lawName"`
	JurisdictionCountry         string  `json:"jurisdictionCountry"`
	JurisdictionState           string  `json:"jurisdictionState,omitempty"`
	LawType                     string  `json:"lawType"`
	Stage                       string  `json:"stage"`
	Status                      string  `json:"status"`
	FirstSeenAt                 string  `json:"firstSeenAt"`
	LastSeenAt                  string  `json:"lastSeenAt"`
	LatestEffectiveDate         *string `json:"latestEffectiveDate"`
	AggregateRiskMax            float64 `json:"aggregateRiskMax"`
	AggregateRiskRecentWeighted float64 `json:"aggregateRiskRecentWeighted"`
	AggregateRiskOverall        float64 `json:"aggregateRiskOverall"`
	SourceConfidence            float64 `json:"sourceConfidence"`
	CreatedAt                   string  `json:"createdAt"`
	UpdatedAt                   string  `json:"updatedAt"`
}

// LawUpdate mirrors one event's observable fields under its law.
type LawUpdate struct {
	ID              int64   `json:"id"`
	LawID           int64   `json:"lawId"`
	EventID         string  `json:"eventId"`
	Title           string  `json:"title"`
	Stage           string  `json:"stage"`
	Summary         string  `json:"summary"`
	BusinessImpact  string  `json:"businessImpact"`
	ImpactScore     int     `json:"impactScore"`
	LikelihoodScore int     `json:"likelihoodScore"`
	ConfidenceScore int     `json:"confidenceScore"`
	ChiliScore      int     `json:"chiliScore"`
	PublishedDate   *string `json:"publishedDate"`
	EffectiveDate   *string `json:"effectiveDate"`
	SourceURLLink   string  `json:"sourceUrlLink"`
	RawMetadata     string  `json:"rawMetadata,omitempty"`
	CreatedAt       string  `json:"createdAt"`
}

// CrawlRun is one crawl-run lifecycle row.
type CrawlRun struct {
	ID           int64     `json:"id"`
	StartedAt    string    `json:"startedAt"`
	CompletedAt  *string   `json:"completedAt"`
	Status       RunStatus `json:"status"`
	ItemsFound   int       `json:"itemsFound"`
	ItemsNew     int       `json:"itemsNew"`
	ItemsUpdated int       `json:"itemsUpdated"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

// Notification is an alert seeded for a high-risk event.
type Notification struct {
	ID        int64  `json:"id"`
	EventID   string `json:"eventId"`
	Severity  string `json:"severity"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	IsRead    bool   `json:"isRead"`
	CreatedAt string `json:"createdAt"`
}

// Feedback is an analyst note attached to an event.
type Feedback struct {
	ID        int64  `json:"id"`
	EventID   string `json:"eventId"`
	Author    string `json:"author"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"createdAt"`
}

// EventInput is the value object the analyzer/pipeline hands to UpsertEvent.
type EventInput struct {
	Title               string
	JurisdictionCountry string
	JurisdictionState   string
	Stage               string
	IsUnder16Applicable bool
	AgeBracket          string
	ImpactScore         int
	LikelihoodScore     int
	ConfidenceScore     int
	ChiliScore          int
	Summary             string
	BusinessImpact      string
	RequiredSolutions   string
	AffectedProducts    string
	CompetitorResponses string
	RawText             string
	SourceURLLink       string
	EffectiveDate       *string
	PublishedDate       *string
	SourceID            *int64
	ChangedBy           string
}
