// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package termgen turns a partial item description into candidate search
// terms. The primary path asks a generative model for a structured term
// list; when the model is unavailable or returns garbage, the heuristic
// fallback assembles terms directly from the description fields. See
// docs/ARCHITECTURE § Term Generation.
package termgen

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/pdiddy/valuation-engine/internal/authority"
	"github.com/pdiddy/valuation-engine/pkg/types"
)

// Backend abstracts the generative AI API so tests can supply a mock.
// Implementations receive one item description and return the raw JSON
// payload described in ParseGeneratedQuery's contract.
type Backend interface {
	GenerateTerms(ctx context.Context, item types.ItemDescription) ([]byte, error)
}

// Generation is the outcome of a term-generation run, ready to install
// into the query authority.
type Generation struct {
	Query      string
	Terms      []types.SearchTerm
	Source     types.QuerySource
	Confidence float64
	Reasoning  string
}

// Generator produces term generations with retry and heuristic fallback.
type Generator struct {
	backend    Backend
	maxRetries int
	log        *zap.Logger
}

// NewGenerator returns a Generator. backend may be nil, in which case
// every generation takes the heuristic path.
func NewGenerator(backend Backend, maxRetries int, log *zap.Logger) *Generator {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &Generator{backend: backend, maxRetries: maxRetries, log: log}
}

// backoffBase controls the base duration for exponential backoff between
// generation attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Generate produces a term set for the item. Backend failures and invalid
// payloads are retried; after the retry budget is spent the heuristic
// fallback is used, so Generate only fails when the description itself is
// empty.
func (g *Generator) Generate(ctx context.Context, item types.ItemDescription) (*Generation, error) {
	if item.Empty() {
		return nil, errors.New("generate terms: empty item description")
	}

	if g.backend != nil {
		gen, err := g.generateAI(ctx, item)
		if err == nil {
			return gen, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.log.Warn("AI term generation failed, using heuristic fallback", zap.Error(err))
	}

	return heuristicGeneration(item), nil
}

func (g *Generator) generateAI(ctx context.Context, item types.ItemDescription) (*Generation, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		raw, err := g.backend.GenerateTerms(ctx, item)
		if err != nil {
			lastErr = err
			continue
		}

		parsed, err := authority.ParseGeneratedQuery(raw)
		if err != nil {
			g.log.Debug("rejecting generated payload", zap.Error(err))
			lastErr = err
			continue
		}

		return &Generation{
			Query:      parsed.Query,
			Terms:      parsed.Terms,
			Source:     types.SourceAIGenerated,
			Confidence: parsed.Confidence,
			Reasoning:  parsed.Reasoning,
		}, nil
	}
	return nil, fmt.Errorf("after %d retries: %w", g.maxRetries, lastErr)
}

// heuristicGeneration assembles terms directly from the description
// fields. Priorities mirror the generator's conventions so the downstream
// query ordering is identical either way.
func heuristicGeneration(item types.ItemDescription) *Generation {
	var terms []types.SearchTerm

	add := func(text string, kind types.TermKind, priority int, selected bool) {
		if text == "" {
			return
		}
		for _, t := range terms {
			if t.Text == text {
				return
			}
		}
		terms = append(terms, types.SearchTerm{
			Text:       text,
			Kind:       kind,
			Priority:   priority,
			Selected:   selected,
			Provenance: types.ProvenanceFallback,
		})
	}

	add(item.Artist, types.KindArtist, 100, true)
	add(item.ObjectType, types.KindObjectType, 80, true)
	add(item.Technique, types.KindMaterial, 60, false)
	add(item.Period, types.KindPeriod, 40, false)

	// With neither artist nor object type, fall back to the first title
	// words so the query is never empty.
	if len(terms) == 0 {
		for i, w := range titleWords(item.Title, 3) {
			add(w, types.KindKeyword, 50-i, true)
		}
	}

	return &Generation{
		Query:      types.BuildQueryString(terms),
		Terms:      terms,
		Source:     types.SourceEmergencyFallback,
		Confidence: 0.2,
	}
}

// titleWords returns up to max cleaned words from the title, skipping
// punctuation-only and single-rune tokens.
func titleWords(title string, max int) []string {
	var words []string
	for _, f := range strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(f)) < 2 {
			continue
		}
		words = append(words, f)
		if len(words) == max {
			break
		}
	}
	return words
}
