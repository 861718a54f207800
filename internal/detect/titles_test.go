package detect

import (
	"context"
	"strings"
	"testing"

	"github.com/raaihank/doc-sentinel/internal/document"
)

// TestTitleDetector tests the lexical trigger heuristics
func TestTitleDetector(t *testing.T) {
	d := NewTitleDetector(testLogger())
	ctx := context.Background()

	findCategory := func(matches []document.PIIMatch, c document.Category) []document.PIIMatch {
		var out []document.PIIMatch
		for _, m := range matches {
			if m.Category == c {
				out = append(out, m)
			}
		}
		return out
	}

	t.Run("PatientName", func(t *testing.T) {
		text := "Patient: Jean Dupont, né le 12/03/1980"
		matches, err := d.Detect(ctx, text, allCategories(t))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		names := findCategory(matches, document.CategoryPersonName)
		if len(names) != 1 {
			t.Fatalf("Got %d name matches, want 1", len(names))
		}
		got := text[names[0].Span.Start:names[0].Span.End]
		if !strings.Contains(got, "Jean Dupont") {
			t.Errorf("Name span %q should cover Jean Dupont", got)
		}
		if strings.Contains(got, "né") {
			t.Errorf("Name span %q should stop before lowercase words", got)
		}
	})

	t.Run("DoctorName", func(t *testing.T) {
		text := "Compte rendu du Docteur Marie Lefevre"
		matches, err := d.Detect(ctx, text, allCategories(t))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		names := findCategory(matches, document.CategoryPersonName)
		if len(names) != 1 {
			t.Fatalf("Got %d name matches, want 1", len(names))
		}
		got := text[names[0].Span.Start:names[0].Span.End]
		if !strings.Contains(got, "Marie Lefevre") {
			t.Errorf("Name span = %q", got)
		}
	})

	t.Run("Hospital", func(t *testing.T) {
		for _, tc := range []struct {
			text string
			want string
		}{
			{"Admis à l'hôpital, transféré au CHU Grenoble hier", "CHU Grenoble"},
			{"Suivi au Centre Hospitalier de Chambéry depuis mars", "Centre Hospitalier de Chambéry"},
		} {
			matches, err := d.Detect(ctx, tc.text, allCategories(t))
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			orgs := findCategory(matches, document.CategoryOrganization)
			if len(orgs) == 0 {
				t.Fatalf("%q: no organization match", tc.text)
			}
			covered := false
			for _, m := range orgs {
				if strings.Contains(tc.text[m.Span.Start:m.Span.End], tc.want) {
					covered = true
				}
			}
			if !covered {
				t.Errorf("%q: no organization span covers %q", tc.text, tc.want)
			}
		}
	})

	t.Run("Address", func(t *testing.T) {
		text := "Domicile: 12 rue des Lilas, 38000 Grenoble\nSuite du texte"
		matches, err := d.Detect(ctx, text, allCategories(t))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		locs := findCategory(matches, document.CategoryLocation)
		if len(locs) != 1 {
			t.Fatalf("Got %d location matches, want 1", len(locs))
		}
		got := text[locs[0].Span.Start:locs[0].Span.End]
		if got != "12 rue des Lilas, 38000 Grenoble" {
			t.Errorf("Address span = %q, want to end of line", got)
		}
	})

	t.Run("NoTrigger", func(t *testing.T) {
		matches, err := d.Detect(ctx, "Le traitement se poursuit sans changement.", allCategories(t))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(matches) != 0 {
			t.Errorf("Got %d matches on neutral text, want 0", len(matches))
		}
	})

	t.Run("PlaceholderNotRematched", func(t *testing.T) {
		// A second pass over already-redacted text must not flag the mask.
		matches, err := d.Detect(ctx, "Monsieur [REDACTED] est sorti.", allCategories(t))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if got := findCategory(matches, document.CategoryPersonName); len(got) != 0 {
			t.Errorf("Placeholder was re-matched as a name: %d matches", len(got))
		}
	})

	t.Run("DisabledCategory", func(t *testing.T) {
		matches, err := d.Detect(ctx, "Patient: Jean Dupont", categories(t, "date"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(matches) != 0 {
			t.Errorf("Disabled categories should yield no matches, got %d", len(matches))
		}
	})
}
