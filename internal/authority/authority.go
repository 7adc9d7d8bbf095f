// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package authority owns the single source of truth for "the current
// search query". Every consumer (historical analysis, live analysis, the
// interactive term UI) reads the same state and is notified synchronously
// on every update, so what the user sees is always what gets searched.
// See docs/ARCHITECTURE § Query Authority.
package authority

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

// Snapshot is an immutable view of the authoritative query handed to
// readers and subscribers.
type Snapshot struct {
	// Query is the assembled query string, phrase-quoting normalized.
	Query string

	// Terms is the full candidate list with selection state.
	Terms []types.SearchTerm

	// Source records how the query was installed.
	Source types.QuerySource

	// Provenance is the query-level authority: user_selected queries are
	// never broadened by the orchestrator.
	Provenance types.Provenance

	// Confidence is the generator's confidence, zero for user selections.
	Confidence float64
}

// Subscriber receives every state change, synchronously, before the
// mutating call returns.
type Subscriber func(Snapshot)

// Authority is the explicit, owned state object constructed once per
// cataloging session and passed by handle to each consumer. Mutation is
// serialized by the host's single-threaded event dispatch; the mutex only
// guards against incidental cross-goroutine reads.
type Authority struct {
	mu          sync.Mutex
	query       string
	terms       []types.SearchTerm
	source      types.QuerySource
	provenance  types.Provenance
	confidence  float64
	subscribers []Subscriber
	log         *zap.Logger
}

// New returns an empty Authority.
func New(log *zap.Logger) *Authority {
	return &Authority{log: log}
}

// Subscribe registers a synchronous observer of query changes.
func (a *Authority) Subscribe(fn Subscriber) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// SetFromGeneration installs a new authoritative query from the AI
// generator or the emergency heuristic fallback, replacing prior state.
func (a *Authority) SetFromGeneration(query string, terms []types.SearchTerm, source types.QuerySource, confidence float64) {
	a.mu.Lock()
	a.query = normalizeQuery(query)
	a.terms = cloneTerms(terms)
	a.source = source
	a.provenance = types.ProvenanceAIDetected
	if source == types.SourceEmergencyFallback {
		a.provenance = types.ProvenanceFallback
	}
	a.confidence = confidence
	snap := a.snapshotLocked()
	subs := a.subscribers
	a.mu.Unlock()

	a.log.Debug("authoritative query installed",
		zap.String("query", snap.Query), zap.String("source", string(source)))
	notify(subs, snap)
}

// UpdateUserSelection reconciles the candidate term list against the
// newly checked set. selectedTexts lists every term text the user now has
// checked; toggled names the single term whose checkbox the user actually
// clicked, or "" when unknown.
//
// Protected artist/brand terms that were selected and are merely absent
// from selectedTexts stay selected: an unrelated toggle must not silently
// drop them. An explicit toggle of the protected term itself is honored.
func (a *Authority) UpdateUserSelection(selectedTexts []string, toggled string) {
	a.mu.Lock()

	// Lowercasing is for matching only; a term's stored text keeps the
	// case the user typed.
	want := make(map[string]bool, len(selectedTexts))
	for _, s := range selectedTexts {
		if s = cleanTermText(s); s != "" {
			want[strings.ToLower(s)] = true
		}
	}
	toggledKey := strings.ToLower(cleanTermText(toggled))

	matched := make(map[string]bool, len(want))
	for i := range a.terms {
		t := &a.terms[i]
		key := strings.ToLower(t.Text)
		checked := want[key]
		if checked {
			matched[key] = true
		}

		switch {
		case checked:
			if !t.Selected || t.Provenance != types.ProvenanceAIDetected {
				t.Provenance = types.ProvenanceUserSelected
			}
			t.Selected = true
		case t.Selected && t.IsProtected() && key != toggledKey:
			// Keep the protected term; the user did not click it.
		default:
			t.Selected = false
		}
	}

	// Terms the user typed in that were never candidates join as keywords,
	// in input order and with their original text.
	for _, s := range selectedTexts {
		s = cleanTermText(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if matched[key] {
			continue
		}
		matched[key] = true
		a.terms = append(a.terms, types.SearchTerm{
			Text:       s,
			Kind:       types.KindKeyword,
			Priority:   50,
			Selected:   true,
			Provenance: types.ProvenanceUserSelected,
		})
	}

	a.query = types.BuildQueryString(a.terms)
	a.provenance = types.ProvenanceUserSelected
	a.source = types.SourceUserSelection
	a.confidence = 0

	snap := a.snapshotLocked()
	subs := a.subscribers
	a.mu.Unlock()

	a.log.Debug("user selection applied", zap.String("query", snap.Query))
	notify(subs, snap)
}

// Current returns the authoritative snapshot and whether one exists.
func (a *Authority) Current() (Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.query == "" {
		return Snapshot{}, false
	}
	return a.snapshotLocked(), true
}

// CurrentQuery returns the assembled query string, "" when none.
func (a *Authority) CurrentQuery() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.query
}

// CurrentTerms returns the selected terms in priority order.
func (a *Authority) CurrentTerms() []types.SearchTerm {
	a.mu.Lock()
	defer a.mu.Unlock()
	var sel []types.SearchTerm
	for _, t := range a.terms {
		if t.Selected {
			sel = append(sel, t)
		}
	}
	sort.SliceStable(sel, func(i, j int) bool { return sel[i].Priority > sel[j].Priority })
	return sel
}

// AvailableTerms returns the full candidate list for UI rendering.
func (a *Authority) AvailableTerms() []types.SearchTerm {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneTerms(a.terms)
}

// IsUserSelection reports whether the current query came from the user.
// The orchestrator never broadens user selections, even on zero results.
func (a *Authority) IsUserSelection() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.provenance == types.ProvenanceUserSelected
}

// Restore reinstalls a previously persisted snapshot without changing its
// provenance, notifying subscribers.
func (a *Authority) Restore(snap Snapshot) {
	a.mu.Lock()
	a.query = normalizeQuery(snap.Query)
	a.terms = cloneTerms(snap.Terms)
	a.source = snap.Source
	a.provenance = snap.Provenance
	a.confidence = snap.Confidence
	out := a.snapshotLocked()
	subs := a.subscribers
	a.mu.Unlock()
	notify(subs, out)
}

// Clear resets the session: no authoritative query exists afterwards.
func (a *Authority) Clear() {
	a.mu.Lock()
	a.query = ""
	a.terms = nil
	a.source = ""
	a.provenance = ""
	a.confidence = 0
	subs := a.subscribers
	a.mu.Unlock()
	notify(subs, Snapshot{})
}

func (a *Authority) snapshotLocked() Snapshot {
	return Snapshot{
		Query:      a.query,
		Terms:      cloneTerms(a.terms),
		Source:     a.source,
		Provenance: a.provenance,
		Confidence: a.confidence,
	}
}

func notify(subs []Subscriber, snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

func cloneTerms(terms []types.SearchTerm) []types.SearchTerm {
	if terms == nil {
		return nil
	}
	out := make([]types.SearchTerm, len(terms))
	copy(out, terms)
	return out
}

// cleanTermText trims whitespace and surrounding quotes from user input.
func cleanTermText(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
}

// normalizeQuery re-quotes every phrase exactly once. Double-quoted input
// from a sloppy generator is stripped and re-applied rather than kept.
func normalizeQuery(query string) string {
	for strings.Contains(query, `""`) {
		query = strings.ReplaceAll(query, `""`, `"`)
	}
	fields := splitQuoted(query)
	for i, f := range fields {
		fields[i] = types.QuoteTerm(f)
	}
	return strings.Join(fields, " ")
}

// splitQuoted splits a query into units, keeping quoted phrases together.
func splitQuoted(query string) []string {
	var units []string
	var current strings.Builder
	inQuote := false
	for _, r := range query {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				units = append(units, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		units = append(units, current.String())
	}
	return units
}
