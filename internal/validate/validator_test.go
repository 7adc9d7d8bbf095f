// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

func newValidator(removeOutliers bool) *Validator {
	cfg := types.DefaultEngineConfig().Analysis
	cfg.EnableRatioOutlierRemoval = removeOutliers
	return New(cfg, zap.NewNop())
}

func sold(title string, price float64, end time.Time) types.ListingRecord {
	return types.ListingRecord{
		Title:      title,
		FinalPrice: price,
		Currency:   "SEK",
		EndDate:    end,
		IsSold:     true,
	}
}

// --- Applicability ---

func TestApplicable(t *testing.T) {
	tests := []struct {
		name  string
		broad bool
		count int
		want  bool
	}{
		{"specific strategy skipped", false, 10, false},
		{"broad strategy", true, 10, true},
		{"small broad set skipped", true, 3, false},
		{"small specific set skipped", false, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Applicable(tt.broad, tt.count); got != tt.want {
				t.Errorf("Applicable(%v, %d) = %v, want %v", tt.broad, tt.count, got, tt.want)
			}
		})
	}
}

// --- Price-ratio guard (advisory by default) ---

func TestRatioGuardDisabledByDefault(t *testing.T) {
	v := newValidator(false)
	now := time.Now()
	records := []types.ListingRecord{
		sold("stol 1950 tal A", 100, now),
		sold("stol 1950 tal B", 150, now),
		sold("stol 1950 tal C", 200, now),
		sold("stol 1950 tal lyx", 50000, now), // 500x the cheapest
	}

	got := v.Validate(records, "stol 1950-tal", true)
	if len(got) != 4 {
		t.Errorf("kept %d records, want all 4 (ratio removal is off by default)", len(got))
	}
}

func TestRatioGuardOptInRemoval(t *testing.T) {
	v := newValidator(true)
	now := time.Now()
	records := []types.ListingRecord{
		sold("stol 1950 tal A", 100, now),
		sold("stol 1950 tal B", 150, now),
		sold("stol 1950 tal C", 200, now),
		sold("stol 1950 tal lyx", 50000, now),
	}

	got := v.Validate(records, "stol 1950-tal", true)
	if len(got) != 3 {
		t.Fatalf("kept %d records, want 3 after opt-in removal", len(got))
	}
	for _, r := range got {
		if r.FinalPrice == 50000 {
			t.Error("outlier survived opt-in removal")
		}
	}
}

// --- Term-consistency guard ---

func TestTermConsistencyObjectSearch(t *testing.T) {
	v := newValidator(false)
	now := time.Now()
	records := []types.ListingRecord{
		sold("stol i trä, 1950-tal", 800, now),
		sold("stol 1950", 900, now),
		sold("vas i glas", 300, now), // no query term at all
		sold("matbord teak", 1200, now),
		sold("stol", 700, now), // one of three terms: below 50%
	}

	got := v.Validate(records, "stol trä 1950", true)

	want := map[string]bool{"stol i trä, 1950-tal": true, "stol 1950": true}
	if len(got) != 2 {
		t.Fatalf("kept %d records, want 2", len(got))
	}
	for _, r := range got {
		if !want[r.Title] {
			t.Errorf("unexpected survivor %q", r.Title)
		}
	}
}

func TestTermConsistencyDecadeNormalization(t *testing.T) {
	v := newValidator(false)
	now := time.Now()
	records := []types.ListingRecord{
		sold("fåtölj 1960-tal", 500, now),
		sold("fåtölj 1960 tal", 550, now),
		sold("fåtölj barock", 450, now),
		sold("skrivbord empire", 600, now),
	}

	got := v.Validate(records, "fåtölj 1960-tal", true)
	if len(got) != 2 {
		t.Fatalf("kept %d records, want the two 1960s chairs", len(got))
	}
}

func TestTermConsistencyNameSearch(t *testing.T) {
	v := newValidator(false)
	now := time.Now()
	records := []types.ListingRecord{
		{Title: "Bruno Mathsson fåtölj Pernilla", Description: "fåtölj i bok", FinalPrice: 9000, IsSold: true, EndDate: now},
		{Title: "Mathsson stol", FinalPrice: 2000, IsSold: true, EndDate: now},         // missing "bruno"
		{Title: "Bruno Liljefors olja", FinalPrice: 30000, IsSold: true, EndDate: now}, // missing "mathsson"
		{Title: "Bruno Mathsson bord", Description: "bord i björk", FinalPrice: 4000, IsSold: true, EndDate: now},
	}

	// "fåtölj" is vocabulary, "bruno"/"mathsson" are name-like.
	got := v.Validate(records, "bruno mathsson fåtölj", true)

	if len(got) != 1 {
		t.Fatalf("kept %d records, want 1", len(got))
	}
	if got[0].Title != "Bruno Mathsson fåtölj Pernilla" {
		t.Errorf("survivor = %q", got[0].Title)
	}
}

func TestSpecificStrategyUntouched(t *testing.T) {
	v := newValidator(false)
	now := time.Now()
	records := []types.ListingRecord{
		{Title: "Stol Lilla Åland", FinalPrice: 3000, IsSold: true, EndDate: now},
		{Title: "Pall i furu", FinalPrice: 900, IsSold: true, EndDate: now},
		{Title: "Bord i björk", FinalPrice: 4000, IsSold: true, EndDate: now},
		{Title: "Fåtölj i bok", FinalPrice: 9000, IsSold: true, EndDate: now},
	}

	// None of the titles repeats the name tokens, but an artist-anchored
	// strategy is trusted as-is.
	got := v.Validate(records, `"Carl Malmsten" stol`, false)
	if len(got) != 4 {
		t.Fatalf("kept %d records, want all 4", len(got))
	}
}

func TestTermConsistencyQuotedPhraseIsNameSearch(t *testing.T) {
	v := newValidator(false)
	now := time.Now()
	records := []types.ListingRecord{
		{Title: "Carl Malmsten stol Lilla Åland", FinalPrice: 3000, IsSold: true, EndDate: now},
		{Title: "stol furu allmoge", FinalPrice: 400, IsSold: true, EndDate: now},
		{Title: "Carl Larsson akvarell", FinalPrice: 80000, IsSold: true, EndDate: now},
		{Title: "Malmsten pall", FinalPrice: 900, IsSold: true, EndDate: now},
	}

	got := v.Validate(records, `"Carl Malmsten" stol`, true)
	if len(got) != 1 || got[0].Title != "Carl Malmsten stol Lilla Åland" {
		t.Fatalf("survivors = %v", titles(got))
	}
}

// --- Temporal clustering guard ---

func TestTemporalClusteringPrefersRecentSubset(t *testing.T) {
	v := newValidator(false)
	now := time.Now()
	records := []types.ListingRecord{
		sold("stol 1950 gammal A", 500, now.AddDate(-15, 0, 0)),
		sold("stol 1950 gammal B", 550, now.AddDate(-12, 0, 0)),
		sold("stol 1950 ny A", 800, now.AddDate(-1, 0, 0)),
		sold("stol 1950 ny B", 850, now.AddDate(-2, 0, 0)),
		sold("stol 1950 ny C", 900, now.AddDate(-3, 0, 0)),
	}

	got := v.Validate(records, "stol 1950", true)
	if len(got) != 3 {
		t.Fatalf("kept %d records, want the 3 recent ones", len(got))
	}
	for _, r := range got {
		if now.Sub(r.EndDate) > 5*365*24*time.Hour+24*time.Hour {
			t.Errorf("old record survived clustering: %q", r.Title)
		}
	}
}

func TestTemporalClusteringKeepsFullSetWhenRecentTooSmall(t *testing.T) {
	v := newValidator(false)
	now := time.Now()
	records := []types.ListingRecord{
		sold("stol 1950 A", 500, now.AddDate(-15, 0, 0)),
		sold("stol 1950 B", 550, now.AddDate(-12, 0, 0)),
		sold("stol 1950 C", 600, now.AddDate(-11, 0, 0)),
		sold("stol 1950 D", 800, now.AddDate(-1, 0, 0)),
		sold("stol 1950 E", 850, now.AddDate(-2, 0, 0)),
	}

	// Only two records inside the recent window: keep everything.
	got := v.Validate(records, "stol 1950", true)
	if len(got) != 5 {
		t.Errorf("kept %d records, want full set of 5", len(got))
	}
}

func TestTemporalClusteringNarrowSpanUntouched(t *testing.T) {
	v := newValidator(false)
	now := time.Now()
	var records []types.ListingRecord
	for i := 0; i < 6; i++ {
		records = append(records, sold("stol 1950", 500+float64(i)*10, now.AddDate(-i, 0, 0)))
	}

	got := v.Validate(records, "stol 1950", true)
	if len(got) != 6 {
		t.Errorf("kept %d records, want all 6 (span under a decade)", len(got))
	}
}

func titles(records []types.ListingRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title
	}
	return out
}
