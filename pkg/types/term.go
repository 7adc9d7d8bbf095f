// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the valuation engine:
// search terms and queries, marketplace listings, analysis results, and
// configuration. See docs/ARCHITECTURE § Data Structures.
package types

import "strings"

// TermKind classifies a search term. Classification is closed: every term
// carries exactly one kind, assigned when the term is created.
type TermKind string

const (
	KindArtist     TermKind = "artist"
	KindObjectType TermKind = "object_type"
	KindModel      TermKind = "model"
	KindReference  TermKind = "reference"
	KindMaterial   TermKind = "material"
	KindPeriod     TermKind = "period"
	KindMovement   TermKind = "movement"
	KindOrigin     TermKind = "origin"
	KindKeyword    TermKind = "keyword"
)

// Provenance records where a term (or a whole query) came from. The
// orchestrator treats user_selected queries as authoritative: they are
// never broadened, even on zero results.
type Provenance string

const (
	ProvenanceAIDetected   Provenance = "ai_detected"
	ProvenanceUserSelected Provenance = "user_selected"
	ProvenanceDerived      Provenance = "derived"
	ProvenanceFallback     Provenance = "fallback"
)

// QuerySource identifies how an authoritative query was installed.
type QuerySource string

const (
	SourceAIGenerated       QuerySource = "ai_generated"
	SourceEmergencyFallback QuerySource = "emergency_fallback"
	SourceUserSelection     QuerySource = "user_selection"
)

// SearchTerm is one candidate token of a marketplace query.
type SearchTerm struct {
	// Text is the term as typed into the query, unquoted.
	Text string `json:"text" yaml:"text"`

	// Kind classifies the term (artist, object_type, model, ...).
	Kind TermKind `json:"kind" yaml:"kind"`

	// Priority orders terms inside the assembled query string. Higher
	// priority sorts first. Artist and brand terms conventionally carry
	// priority >= 95.
	Priority int `json:"priority" yaml:"priority"`

	// Selected reports whether the term participates in the current query.
	Selected bool `json:"selected" yaml:"selected"`

	// Provenance records who put the term here.
	Provenance Provenance `json:"provenance" yaml:"provenance"`
}

// IsProtected reports whether the term is an AI-detected artist or brand
// term that must survive unrelated selection toggles. A term qualifies by
// explicit ai_detected provenance on an artist kind, or by carrying
// artist-level priority on an artist kind.
func (t SearchTerm) IsProtected() bool {
	if t.Kind != KindArtist {
		return false
	}
	return t.Provenance == ProvenanceAIDetected || t.Priority >= 95
}

// QuoteTerm wraps a multi-word term in exact-phrase quotes so the
// marketplace treats it as one unit. Already-quoted input is normalized
// (stripped then re-quoted) rather than double-quoted. Single-word terms
// are returned unchanged.
func QuoteTerm(text string) string {
	text = strings.Trim(strings.TrimSpace(text), `"`)
	if strings.ContainsRune(text, ' ') {
		return `"` + text + `"`
	}
	return text
}

// BuildQueryString assembles the query string from the selected terms in
// priority order (ties broken by selection order in the slice). Multi-word
// terms are phrase-quoted exactly once. The result is byte-stable: calling
// it twice on the same term set yields identical output.
func BuildQueryString(terms []SearchTerm) string {
	selected := make([]SearchTerm, 0, len(terms))
	for _, t := range terms {
		if t.Selected && strings.TrimSpace(t.Text) != "" {
			selected = append(selected, t)
		}
	}

	// Stable insertion-order sort keeps ties deterministic.
	for i := 1; i < len(selected); i++ {
		for j := i; j > 0 && selected[j].Priority > selected[j-1].Priority; j-- {
			selected[j], selected[j-1] = selected[j-1], selected[j]
		}
	}

	parts := make([]string, 0, len(selected))
	for _, t := range selected {
		parts = append(parts, QuoteTerm(t.Text))
	}
	return strings.Join(parts, " ")
}

// SearchStrategy is one entry in the progressive-fallback plan produced by
// the strategy builder. Strategies are immutable once built and consumed in
// descending weight order.
type SearchStrategy struct {
	// Query is the assembled query string, phrase-quoting included.
	Query string `json:"query" yaml:"query"`

	// Description names the combination for logs and reports
	// (e.g. "artist + object type").
	Description string `json:"description" yaml:"description"`

	// Weight in [0,1] orders strategies most-specific-first.
	Weight float64 `json:"weight" yaml:"weight"`

	// Broad marks a fallback combination that carries no artist, brand or
	// model token. Broad results get post-search validation and, on the
	// live side, a category-relevance title filter.
	Broad bool `json:"broad,omitempty" yaml:"broad,omitempty"`
}
