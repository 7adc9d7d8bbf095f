// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package authority

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

// ParseErrorCode classifies why generated query metadata was rejected.
type ParseErrorCode string

const (
	// ErrMissingField means a required field (query, terms, term text) is
	// absent or empty.
	ErrMissingField ParseErrorCode = "missing_field"

	// ErrMalformedQuoting means phrase quotes in the query are unbalanced.
	ErrMalformedQuoting ParseErrorCode = "malformed_quoting"

	// ErrControlCharacters means the query or a term contains control
	// characters and cannot be sent to the marketplace.
	ErrControlCharacters ParseErrorCode = "control_characters"

	// ErrInvalidJSON means the payload did not decode at all.
	ErrInvalidJSON ParseErrorCode = "invalid_json"
)

// ParseError reports a structurally invalid generation payload. Callers
// switch on Code to decide between retrying generation and falling back to
// heuristic terms.
type ParseError struct {
	Code  ParseErrorCode
	Field string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse generated query: %s (%s): %s", e.Code, e.Field, e.Msg)
	}
	return fmt.Sprintf("parse generated query: %s: %s", e.Code, e.Msg)
}

// ParsedQuery is the validated output of the AI term generator, ready to
// install into the Authority.
type ParsedQuery struct {
	Query      string
	Terms      []types.SearchTerm
	Confidence float64
	Reasoning  string
}

// generatedPayload mirrors the JSON document the term generator emits.
type generatedPayload struct {
	Query      string          `json:"query"`
	Terms      []generatedTerm `json:"terms"`
	Confidence *float64        `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

type generatedTerm struct {
	Text        string `json:"text"`
	Kind        string `json:"kind"`
	Priority    int    `json:"priority"`
	PreSelected bool   `json:"pre_selected"`
}

// ParseGeneratedQuery decodes and validates the generator's JSON payload.
// Errors are *ParseError; unwrap with errors.As to branch on the code.
func ParseGeneratedQuery(raw []byte) (*ParsedQuery, error) {
	var payload generatedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ParseError{Code: ErrInvalidJSON, Msg: err.Error()}
	}

	query := strings.TrimSpace(payload.Query)
	if query == "" {
		return nil, &ParseError{Code: ErrMissingField, Field: "query", Msg: "empty query"}
	}
	if hasControl(query) {
		return nil, &ParseError{Code: ErrControlCharacters, Field: "query", Msg: "query contains control characters"}
	}
	if strings.Count(query, `"`)%2 != 0 {
		return nil, &ParseError{Code: ErrMalformedQuoting, Field: "query", Msg: "unbalanced phrase quotes"}
	}
	if len(payload.Terms) == 0 {
		return nil, &ParseError{Code: ErrMissingField, Field: "terms", Msg: "no terms"}
	}

	out := &ParsedQuery{
		Query:      normalizeQuery(query),
		Confidence: 0.5,
		Reasoning:  strings.TrimSpace(payload.Reasoning),
	}
	if payload.Confidence != nil {
		out.Confidence = clamp01(*payload.Confidence)
	}

	seen := make(map[string]bool, len(payload.Terms))
	for i, t := range payload.Terms {
		text := strings.TrimSpace(strings.Trim(strings.TrimSpace(t.Text), `"`))
		if text == "" {
			return nil, &ParseError{Code: ErrMissingField, Field: fmt.Sprintf("terms[%d].text", i), Msg: "empty term text"}
		}
		if hasControl(text) {
			return nil, &ParseError{Code: ErrControlCharacters, Field: fmt.Sprintf("terms[%d].text", i), Msg: "term contains control characters"}
		}
		key := strings.ToLower(text)
		if seen[key] {
			continue
		}
		seen[key] = true

		out.Terms = append(out.Terms, types.SearchTerm{
			Text:       text,
			Kind:       termKind(t.Kind),
			Priority:   clampPriority(t.Priority),
			Selected:   t.PreSelected,
			Provenance: types.ProvenanceAIDetected,
		})
	}

	return out, nil
}

// termKind maps the generator's kind label onto a known TermKind, defaulting
// unknown labels to keyword rather than rejecting the whole payload.
func termKind(label string) types.TermKind {
	switch types.TermKind(strings.ToLower(strings.TrimSpace(label))) {
	case types.KindArtist:
		return types.KindArtist
	case types.KindObjectType:
		return types.KindObjectType
	case types.KindModel:
		return types.KindModel
	case types.KindReference:
		return types.KindReference
	case types.KindMaterial:
		return types.KindMaterial
	case types.KindPeriod:
		return types.KindPeriod
	case types.KindMovement:
		return types.KindMovement
	case types.KindOrigin:
		return types.KindOrigin
	default:
		return types.KindKeyword
	}
}

func clampPriority(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func hasControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
