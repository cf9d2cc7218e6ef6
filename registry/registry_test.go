package registry

import "testing"

func TestCatalogueIntegrity(t *testing.T) {
	names := map[string]bool{}
	for _, s := range All() {
		if s.Name == "" || s.URL == "" {
			t.Fatalf("source with empty name or url: %+v", s)
		}
		if names[s.Name] {
			t.Fatalf("duplicate source name %q", s.Name)
		}
		names[s.Name] = true
		if s.ReliabilityTier < 1 || s.ReliabilityTier > 5 {
			t.Fatalf("source %q has reliability tier %d out of range", s.Name, s.ReliabilityTier)
		}
		if s.JurisdictionCountry == "" {
			t.Fatalf("source %q has no jurisdiction country", s.Name)
		}
		switch s.Type {
		case TypeGovernmentPage, TypeRSSFeed, TypeNewsSearch, TypeLegalDatabase, TypeMicroblogSearch:
		default:
			t.Fatalf("source %q has unknown type %q", s.Name, s.Type)
		}
	}
}

func TestFilters(t *testing.T) {
	us := ByJurisdiction("United States")
	if len(us) == 0 {
		t.Fatal("expected United States sources")
	}
	for _, s := range us {
		if s.JurisdictionCountry != "United States" {
			t.Fatalf("filter leaked %q", s.JurisdictionCountry)
		}
	}

	official := MinReliability(5)
	for _, s := range official {
		if s.ReliabilityTier < 5 {
			t.Fatalf("filter leaked tier %d", s.ReliabilityTier)
		}
	}

	micro := ByType(TypeMicroblogSearch)
	if len(micro) == 0 {
		t.Fatal("expected microblog sources in the catalogue")
	}
	for _, s := range micro {
		if s.SearchKeywords == "" {
			t.Fatalf("microblog source %q needs a stored query", s.Name)
		}
	}
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0].Name = "mutated"
	if All()[0].Name == "mutated" {
		t.Fatal("All must not expose the backing catalogue")
	}
}
