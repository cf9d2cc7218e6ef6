/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L2
Logic:       Notification seeding for high-risk events after a
             crawl completes, plus the read/mark paths the alert
             layer consumes.
Root Cause:  Sprint task T219 — High-risk alerting feed.
Context:     Transport (email/webhook) is an external
             collaborator; this store only produces the rows.
Suitability: L2 — straightforward persistence.
──────────────────────────────────────────────────────────────
*/

package store

import (
	"context"
	"fmt"
)

// SeedHighRiskNotifications inserts one notification per event at or above
// minChili that does not already have one. Severity escalates to critical
// at chili 5. Returns the number seeded.
func (s *Store) SeedHighRiskNotifications(ctx context.Context, minChili int) (int, error) {
	if minChili <= 0 {
		minChili = 4
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.title, e.jurisdiction_country, e.chili_score, e.summary
		FROM regulation_events e
		WHERE e.chili_score >= ?
		  AND NOT EXISTS (SELECT 1 FROM notifications n WHERE n.event_id = e.id)
		ORDER BY e.chili_score DESC, e.updated_at DESC`, minChili)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	type pending struct {
		id, title, country, summary string
		chili                       int
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.title, &p.country, &p.chili, &p.summary); err != nil {
			return 0, err
		}
		todo = append(todo, p)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	seeded := 0
	for _, p := range todo {
		severity := "high"
		if p.chili >= 5 {
			severity = "critical"
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO notifications (event_id, severity, title, message, created_at)
			VALUES (?,?,?,?,?)`,
			p.id, severity,
			fmt.Sprintf("[%s] %s", p.country, p.title),
			p.summary, now())
		if err != nil {
			return seeded, fmt.Errorf("seed notification for %s: %w", p.id, err)
		}
		seeded++
	}
	return seeded, nil
}

// ListNotifications returns notifications newest first; unreadOnly filters
// to unread.
func (s *Store) ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT id, event_id, severity, title, message, is_read, created_at FROM notifications`
	if unreadOnly {
		q += ` WHERE is_read = 0`
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Notification
	for rows.Next() {
		var n Notification
		var read int
		if err := rows.Scan(&n.ID, &n.EventID, &n.Severity, &n.Title, &n.Message, &read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.IsRead = read != 0
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flips a notification to read. Returns the number of
// rows touched so callers can 404 on unknown ids.
func (s *Store) MarkNotificationRead(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
