package detect

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/raaihank/doc-sentinel/internal/document"
	"github.com/raaihank/doc-sentinel/internal/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func allCategories(t *testing.T) CategorySet {
	t.Helper()
	set, err := NewCategorySet([]string{"all"})
	if err != nil {
		t.Fatalf("Failed to build category set: %v", err)
	}
	return set
}

func categories(t *testing.T, names ...string) CategorySet {
	t.Helper()
	set, err := NewCategorySet(names)
	if err != nil {
		t.Fatalf("Failed to build category set: %v", err)
	}
	return set
}

// TestPatternMatcher tests the structured PII rules
func TestPatternMatcher(t *testing.T) {
	m := NewPatternMatcher(nil, testLogger())
	ctx := context.Background()

	t.Run("Dates", func(t *testing.T) {
		text := "Consultation du 12/03/1980, contrôle le 1.2.80."
		matches, err := m.Detect(ctx, text, categories(t, "date"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(matches) != 2 {
			t.Fatalf("Got %d matches, want 2", len(matches))
		}
		if got := text[matches[0].Span.Start:matches[0].Span.End]; got != "12/03/1980" {
			t.Errorf("First match = %q, want 12/03/1980", got)
		}
		if got := text[matches[1].Span.Start:matches[1].Span.End]; got != "1.2.80" {
			t.Errorf("Second match = %q, want 1.2.80", got)
		}
	})

	t.Run("PhoneLayouts", func(t *testing.T) {
		for _, text := range []string{
			"tel 0601020304",
			"tel 06 01 02 03 04",
			"tel +33 6 01 02 03 04",
			"tel 06.01.02.03.04",
		} {
			matches, err := m.Detect(ctx, text, categories(t, "phone"))
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if len(matches) != 1 {
				t.Errorf("%q: got %d phone matches, want 1", text, len(matches))
			}
		}
	})

	t.Run("Email", func(t *testing.T) {
		text := "Contact: jean.dupont@chu-lyon.fr pour le dossier."
		matches, err := m.Detect(ctx, text, categories(t, "email"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("Got %d matches, want 1", len(matches))
		}
		if got := text[matches[0].Span.Start:matches[0].Span.End]; got != "jean.dupont@chu-lyon.fr" {
			t.Errorf("Match = %q", got)
		}
	})

	t.Run("LongNumber", func(t *testing.T) {
		text := "Dossier 20240123456 ouvert, code 123 ignoré."
		matches, err := m.Detect(ctx, text, categories(t, "long_number"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("Got %d matches, want 1", len(matches))
		}
		if got := text[matches[0].Span.Start:matches[0].Span.End]; got != "20240123456" {
			t.Errorf("Match = %q", got)
		}
	})

	t.Run("SSN", func(t *testing.T) {
		text := "NIR 1 85 03 75 123 456 78 enregistré"
		matches, err := m.Detect(ctx, text, categories(t, "ssn"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("Got %d ssn matches, want 1", len(matches))
		}
	})

	t.Run("SpanRoundTrip", func(t *testing.T) {
		// Every reported span, sliced from the original text, must re-match
		// its rule's pattern exactly.
		text := "Patient né le 12/03/1980, tel 0601020304, mail a.b@c.fr, dossier 98765432."
		matches, err := m.Detect(ctx, text, allCategories(t))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(matches) == 0 {
			t.Fatal("No matches")
		}
		rules := make(map[document.Category]Rule)
		for _, r := range GetDefaultRules() {
			rules[r.Category] = r
		}
		for _, match := range matches {
			sliced := text[match.Span.Start:match.Span.End]
			rule, ok := rules[match.Category]
			if !ok {
				t.Fatalf("Match has unknown category %s", match.Category)
			}
			loc := rule.Pattern.FindStringIndex(sliced)
			if loc == nil || loc[0] != 0 || loc[1] != len(sliced) {
				t.Errorf("%s span %q does not round-trip", match.Category, sliced)
			}
		}
	})

	t.Run("DisabledCategory", func(t *testing.T) {
		matches, err := m.Detect(ctx, "tel 0601020304", categories(t, "date"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(matches) != 0 {
			t.Errorf("Disabled categories should yield no matches, got %d", len(matches))
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		text := "12/03/1980 0601020304 a.b@c.fr"
		first, _ := m.Detect(ctx, text, allCategories(t))
		for i := 0; i < 5; i++ {
			again, _ := m.Detect(ctx, text, allCategories(t))
			if len(again) != len(first) {
				t.Fatalf("Run %d: %d matches, want %d", i, len(again), len(first))
			}
			for j := range again {
				if *again[j].Span != *first[j].Span || again[j].Category != first[j].Category {
					t.Fatalf("Run %d: match %d differs", i, j)
				}
			}
		}
	})
}

// TestCustomLabels tests verbatim custom label matching
func TestCustomLabels(t *testing.T) {
	m := NewPatternMatcher([]string{"Dossier X-27", ""}, testLogger())

	matches, err := m.Detect(context.Background(), "Voir dossier x-27 en annexe.", allCategories(t))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	var custom []document.PIIMatch
	for _, match := range matches {
		if match.Category == document.CategoryCustomLabel {
			custom = append(custom, match)
		}
	}
	if len(custom) != 1 {
		t.Fatalf("Got %d custom matches, want 1 (case-insensitive)", len(custom))
	}
}

// TestCategorySet tests category selection parsing
func TestCategorySet(t *testing.T) {
	t.Run("All", func(t *testing.T) {
		set, err := NewCategorySet([]string{"all"})
		if err != nil {
			t.Fatalf("Failed: %v", err)
		}
		for _, c := range document.AllCategories() {
			if !set.Enabled(c) {
				t.Errorf("Category %s should be enabled", c)
			}
		}
	})

	t.Run("Subset", func(t *testing.T) {
		set, err := NewCategorySet([]string{"date", "phone"})
		if err != nil {
			t.Fatalf("Failed: %v", err)
		}
		if !set.Enabled(document.CategoryDate) || !set.Enabled(document.CategoryPhone) {
			t.Error("Selected categories should be enabled")
		}
		if set.Enabled(document.CategoryEmail) {
			t.Error("Unselected categories should be disabled")
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if _, err := NewCategorySet([]string{"bogus"}); err == nil {
			t.Error("Unknown category should be rejected")
		}
	})
}
