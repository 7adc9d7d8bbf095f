// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate post-filters a result set for topical consistency and
// temporal clustering. It only runs on broad/generic queries; a specific
// artist search is trusted as-is. See docs/ARCHITECTURE § Result Validation.
package validate

import (
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

// minSurvivors is the record count below which filtering stops making the
// sample better instead of smaller.
const minSurvivors = 3

// objectVocabulary lists object, material and technique words that rule a
// token out as part of a person name. Kept as data so the name heuristic
// stays testable in isolation.
var objectVocabulary = map[string]bool{
	"stol": true, "bord": true, "skåp": true, "byrå": true, "fåtölj": true,
	"soffa": true, "lampa": true, "matta": true, "vas": true, "skål": true,
	"fat": true, "tavla": true, "spegel": true, "ljusstake": true,
	"olja": true, "duk": true, "akvarell": true, "litografi": true,
	"etsning": true, "skulptur": true, "silver": true, "guld": true,
	"mässing": true, "koppar": true, "tenn": true, "glas": true,
	"keramik": true, "porslin": true, "stengods": true, "trä": true,
	"mahogny": true, "teak": true, "björk": true, "ek": true,
	"ring": true, "halsband": true, "armband": true, "brosch": true,
	"armbandsur": true, "fickur": true, "synthesizer": true, "gitarr": true,
}

// Validator applies the post-search consistency guards.
type Validator struct {
	cfg types.AnalysisConfig
	log *zap.Logger
}

// New builds a Validator.
func New(cfg types.AnalysisConfig, log *zap.Logger) *Validator {
	return &Validator{cfg: cfg, log: log}
}

// Applicable reports whether validation should run at all: only broad
// strategies with more than three records are worth post-filtering. A
// strategy anchored on an artist, brand or model token is trusted as-is.
func Applicable(broadStrategy bool, recordCount int) bool {
	return broadStrategy && recordCount > minSurvivors
}

// Validate runs the guards in order: price-ratio (advisory), term
// consistency, temporal clustering. Guards are independent; a later guard
// never re-admits a record rejected by an earlier one. If the strategy is
// not broad or the set is small the records come back untouched.
func (v *Validator) Validate(records []types.ListingRecord, queryText string, broadStrategy bool) []types.ListingRecord {
	if !Applicable(broadStrategy, len(records)) {
		return records
	}

	records = v.priceRatioGuard(records, queryText)
	records = v.termConsistencyGuard(records, queryText)
	records = v.temporalClusteringGuard(records)
	return records
}

// priceRatioGuard computes the max/min confirmed-price ratio. The check is
// advisory: removal stays disabled unless explicitly configured on,
// because legitimate luxury items can trade at 100x the category norm.
func (v *Validator) priceRatioGuard(records []types.ListingRecord, queryText string) []types.ListingRecord {
	var min, max float64
	for _, r := range records {
		p, ok := r.SalePrice()
		if !ok {
			continue
		}
		if min == 0 || p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	if min == 0 {
		return records
	}

	ratio := max / min
	v.log.Debug("price ratio",
		zap.String("query", queryText),
		zap.Float64("ratio", ratio),
		zap.Float64("min", min),
		zap.Float64("max", max))

	if !v.cfg.EnableRatioOutlierRemoval || ratio <= 100 {
		return records
	}

	// Opt-in removal: drop confirmed sales above 10x the set minimum, but
	// never below the survivor floor.
	var kept []types.ListingRecord
	for _, r := range records {
		if p, ok := r.SalePrice(); ok && p > min*10 {
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) < minSurvivors {
		return records
	}
	return kept
}

// termConsistencyGuard checks each record's text against the query terms.
// Person-name queries demand every name token in the title; object queries
// demand half the significant terms somewhere in title or description.
func (v *Validator) termConsistencyGuard(records []types.ListingRecord, queryText string) []types.ListingRecord {
	terms := significantTerms(queryText)
	if len(terms) == 0 {
		return records
	}

	nameTokens := detectNameTokens(queryText, terms)

	var kept []types.ListingRecord
	for _, r := range records {
		title := normalizeText(r.Title)
		full := title + " " + normalizeText(r.Description)

		if len(nameTokens) > 0 {
			if !containsAll(title, nameTokens) {
				continue
			}
			// At least one remaining non-name term must also appear.
			rest := without(terms, nameTokens)
			if len(rest) > 0 && countContained(full, rest) == 0 {
				continue
			}
			kept = append(kept, r)
			continue
		}

		// Object/material search: 50% of significant terms must appear.
		if countContained(full, terms)*2 >= len(terms) {
			kept = append(kept, r)
		}
	}

	if len(kept) < len(records) {
		v.log.Debug("term consistency rejected records",
			zap.String("query", queryText),
			zap.Int("rejected", len(records)-len(kept)))
	}
	return kept
}

// temporalClusteringGuard prefers the most recent five years when the
// listing dates span more than a decade, provided enough dated records
// remain.
func (v *Validator) temporalClusteringGuard(records []types.ListingRecord) []types.ListingRecord {
	var dated []types.ListingRecord
	var oldest, newest time.Time
	for _, r := range records {
		if r.EndDate.IsZero() {
			continue
		}
		dated = append(dated, r)
		if oldest.IsZero() || r.EndDate.Before(oldest) {
			oldest = r.EndDate
		}
		if r.EndDate.After(newest) {
			newest = r.EndDate
		}
	}

	if len(dated) < 5 || newest.Sub(oldest) <= 10*365*24*time.Hour {
		return records
	}

	cutoff := newest.AddDate(-5, 0, 0)
	var recent []types.ListingRecord
	for _, r := range records {
		if !r.EndDate.IsZero() && !r.EndDate.Before(cutoff) {
			recent = append(recent, r)
		}
	}
	if len(recent) < minSurvivors {
		return records
	}

	v.log.Debug("temporal clustering narrowed sample",
		zap.Int("before", len(records)), zap.Int("after", len(recent)))
	return recent
}

// significantTerms splits the query into lowercase terms longer than two
// runes consisting of letters or a decade notation. Quote characters are
// stripped; "1960-tal" and "1960 tal" normalize identically.
func significantTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(normalizeText(query)) {
		if len([]rune(f)) <= 2 {
			continue
		}
		if isAlphabetic(f) || isDecade(f) {
			terms = append(terms, f)
		}
	}
	return terms
}

// detectNameTokens decides whether the query is a person-name search and
// returns the name tokens when it is. A quoted phrase wins outright; two
// co-occurring name-like tokens absent from the object vocabulary also
// qualify.
func detectNameTokens(rawQuery string, terms []string) []string {
	if start := strings.IndexByte(rawQuery, '"'); start >= 0 {
		if end := strings.IndexByte(rawQuery[start+1:], '"'); end > 0 {
			phrase := normalizeText(rawQuery[start+1 : start+1+end])
			tokens := strings.Fields(phrase)
			if len(tokens) > 0 {
				return tokens
			}
		}
	}

	var nameLike []string
	for _, t := range terms {
		if !objectVocabulary[t] && isAlphabetic(t) && !isDecade(t) {
			nameLike = append(nameLike, t)
		}
	}
	if len(nameLike) >= 2 {
		return nameLike
	}
	return nil
}

// normalizeText lowercases and applies decade normalization so
// "1960-tal" matches "1960 tal" and vice versa.
func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, `"`, " ")
	s = strings.ReplaceAll(s, "-tal", " tal")
	return strings.Join(strings.Fields(s), " ")
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// isDecade matches four-digit year tokens.
func isDecade(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsAll(text string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}

func countContained(text string, tokens []string) int {
	n := 0
	for _, t := range tokens {
		if strings.Contains(text, t) {
			n++
		}
	}
	return n
}

func without(terms, remove []string) []string {
	removed := make(map[string]bool, len(remove))
	for _, r := range remove {
		removed[r] = true
	}
	var rest []string
	for _, t := range terms {
		if !removed[t] {
			rest = append(rest, t)
		}
	}
	return rest
}
