// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine coordinates a full market analysis: it obtains the
// authoritative query, walks the progressive strategy plan against the
// marketplace, validates the survivors, and hands the result to the
// statistics engine. Consumers receive a result struct in every case;
// search failure is a result state, not an error. See docs/ARCHITECTURE
// § Orchestration.
package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/valuation-engine/internal/authority"
	"github.com/pdiddy/valuation-engine/internal/stats"
	"github.com/pdiddy/valuation-engine/internal/strategy"
	"github.com/pdiddy/valuation-engine/internal/termgen"
	"github.com/pdiddy/valuation-engine/internal/validate"
	"github.com/pdiddy/valuation-engine/pkg/types"
)

// Searcher abstracts the marketplace client so tests can supply a stub.
type Searcher interface {
	SearchEnded(ctx context.Context, query string, maxResults int) (*types.SearchResult, error)
	SearchLive(ctx context.Context, query string, maxResults int, relevanceKeywords []string) (*types.SearchResult, error)
}

// Engine runs historical and live analyses against one query authority.
type Engine struct {
	cfg       types.EngineConfig
	searcher  Searcher
	generator *termgen.Generator
	auth      *authority.Authority
	validator *validate.Validator
	stats     *stats.Engine
	log       *zap.Logger
}

// New assembles an Engine. generator may be nil when the caller installs
// queries into the authority itself.
func New(cfg types.EngineConfig, searcher Searcher, generator *termgen.Generator, auth *authority.Authority, log *zap.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		searcher:  searcher,
		generator: generator,
		auth:      auth,
		validator: validate.New(cfg.Analysis, log),
		stats:     stats.New(cfg.Analysis, log),
		log:       log,
	}
}

// Authority exposes the engine's query authority for UI consumers.
func (e *Engine) Authority() *authority.Authority {
	return e.auth
}

// EnsureQuery makes sure the authority holds a query for the item,
// generating one when the session has none yet.
func (e *Engine) EnsureQuery(ctx context.Context, item types.ItemDescription) (authority.Snapshot, error) {
	if snap, ok := e.auth.Current(); ok {
		return snap, nil
	}
	if e.generator == nil {
		return authority.Snapshot{}, fmt.Errorf("no authoritative query and no term generator")
	}
	gen, err := e.generator.Generate(ctx, item)
	if err != nil {
		return authority.Snapshot{}, fmt.Errorf("generating search terms: %w", err)
	}
	e.auth.SetFromGeneration(gen.Query, gen.Terms, gen.Source, gen.Confidence)
	snap, _ := e.auth.Current()
	return snap, nil
}

// AnalyzeHistorical runs the ended-auction analysis for the item. The
// returned result always reflects the query that actually ran; when no
// strategy yields confirmed sales, HasComparableData is false and
// Limitations explains why.
func (e *Engine) AnalyzeHistorical(ctx context.Context, item types.ItemDescription) (*types.MarketAnalysisResult, error) {
	snap, err := e.EnsureQuery(ctx, item)
	if err != nil {
		return nil, err
	}

	plan := e.plan(snap, item)
	best, bestStrategy := e.runEnded(ctx, plan)

	if best == nil {
		return &types.MarketAnalysisResult{
			HasComparableData: false,
			ActualSearchQuery: snap.Query,
			QuerySource:       snap.Source,
			Limitations:       noDataLimitation(snap),
		}, nil
	}

	result := e.stats.Analyze(best, item.Artist, item.ObjectType, item.Valuation)
	if result == nil {
		return &types.MarketAnalysisResult{
			HasComparableData: false,
			TotalMatches:      best.TotalMatches,
			ActualSearchQuery: best.Query,
			QuerySource:       snap.Source,
			DataQuality:       best.Quality,
			Limitations:       "Listings were found but none carries a confirmed final price.",
		}, nil
	}

	result.UsedStrategy = &bestStrategy
	result.QuerySource = snap.Source
	return result, nil
}

// AnalyzeLive runs the live-market analysis. User-selected queries run
// exactly once and are never substituted, even on zero results.
func (e *Engine) AnalyzeLive(ctx context.Context, item types.ItemDescription) (*types.LiveAnalysisResult, error) {
	snap, err := e.EnsureQuery(ctx, item)
	if err != nil {
		return nil, err
	}

	plan := e.plan(snap, item)
	categoryTerms := strategy.CategoryKeywords(strategy.Detect(item.Artist, item.ObjectType, item.Period, item.Technique))

	var best *types.SearchResult
	var bestStrategy types.SearchStrategy

	for i, strat := range plan {
		// The authoritative query runs exactly as chosen; only broad
		// fallback strategies get the category-relevance title filter.
		var keywords []string
		if i > 0 && strat.Broad {
			keywords = categoryTerms
		}
		result, err := e.searcher.SearchLive(ctx, strat.Query, e.cfg.Marketplace.MaxResults, keywords)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.log.Warn("live search failed", zap.String("query", strat.Query), zap.Error(err))
			continue
		}
		if result == nil || len(result.Records) == 0 {
			continue
		}
		if best == nil {
			best, bestStrategy = result, strat
		}
		if len(result.Records) >= e.cfg.Analysis.LiveMinResults {
			best, bestStrategy = result, strat
			break
		}
	}

	if best == nil {
		return &types.LiveAnalysisResult{
			HasLiveData:       false,
			ActualSearchQuery: snap.Query,
			Limitations:       "No live listings match the current query.",
		}, nil
	}

	out := &types.LiveAnalysisResult{
		HasLiveData:       true,
		ActualSearchQuery: best.Query,
		TotalMatches:      best.TotalMatches,
		Listings:          best.Records,
		UsedStrategy:      &bestStrategy,
	}
	out.EstimateRange = rangeOf(best.Records, func(r types.ListingRecord) float64 { return r.Estimate }, e.cfg.Analysis.ReferenceCurrency)
	out.BidRange = rangeOf(best.Records, func(r types.ListingRecord) float64 { return r.CurrentBid }, e.cfg.Analysis.ReferenceCurrency)
	if len(best.Records) < e.cfg.Analysis.LiveMinResults {
		out.Limitations = "Few live listings; ranges are indicative only."
	}
	return out, nil
}

// Analyze runs the historical and live analyses concurrently.
func (e *Engine) Analyze(ctx context.Context, item types.ItemDescription) (*types.MarketAnalysisResult, *types.LiveAnalysisResult, error) {
	if _, err := e.EnsureQuery(ctx, item); err != nil {
		return nil, nil, err
	}

	var hist *types.MarketAnalysisResult
	var live *types.LiveAnalysisResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hist, err = e.AnalyzeHistorical(gctx, item)
		return err
	})
	g.Go(func() error {
		var err error
		live, err = e.AnalyzeLive(gctx, item)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return hist, live, nil
}

// plan builds the strategy sequence for one analysis run. The
// authoritative query always runs first; user selections get no fallback
// at all, while generated queries fall back to progressively broader
// attribute combinations.
func (e *Engine) plan(snap authority.Snapshot, item types.ItemDescription) []types.SearchStrategy {
	primary := types.SearchStrategy{
		Query:       snap.Query,
		Description: "authoritative query",
		Weight:      1.0,
		Broad:       !hasArtistTerm(snap),
	}
	if snap.Provenance == types.ProvenanceUserSelected {
		primary.Description = "user selection"
		return []types.SearchStrategy{primary}
	}

	plan := []types.SearchStrategy{primary}
	for _, s := range strategy.Build(strategy.Attributes{
		Artist:     item.Artist,
		ObjectType: item.ObjectType,
		Period:     item.Period,
		Technique:  item.Technique,
	}) {
		if s.Query == primary.Query {
			continue
		}
		plan = append(plan, s)
	}
	return plan
}

// runEnded walks the plan against the ended-auction search and returns
// the first sufficient result, or the most specific non-empty one.
func (e *Engine) runEnded(ctx context.Context, plan []types.SearchStrategy) (*types.SearchResult, types.SearchStrategy) {
	var best, estimatesOnly *types.SearchResult
	var bestStrategy, estimatesStrategy types.SearchStrategy

	for _, strat := range plan {
		result, err := e.searcher.SearchEnded(ctx, strat.Query, e.cfg.Marketplace.MaxResults)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			e.log.Warn("ended search failed", zap.String("query", strat.Query), zap.Error(err))
			continue
		}
		if result == nil || len(result.Records) == 0 {
			continue
		}

		if validate.Applicable(strat.Broad, len(result.Records)) {
			filtered := e.validator.Validate(result.Records, strat.Query, strat.Broad)
			if len(filtered) < len(result.Records) {
				copied := *result
				copied.Records = filtered
				result = &copied
			}
		}

		confirmed := len(result.ConfirmedSales())
		if confirmed == 0 {
			if estimatesOnly == nil {
				estimatesOnly, estimatesStrategy = result, strat
			}
			continue
		}
		if best == nil {
			best, bestStrategy = result, strat
		}
		if confirmed >= e.cfg.Analysis.HistoricalMinResults {
			return result, strat
		}
	}
	if best == nil {
		return estimatesOnly, estimatesStrategy
	}
	return best, bestStrategy
}

// hasArtistTerm reports whether the selection carries an artist or brand
// term, which anchors the query firmly enough to skip post-search
// validation.
func hasArtistTerm(snap authority.Snapshot) bool {
	for _, t := range snap.Terms {
		if t.Selected && t.Kind == types.KindArtist {
			return true
		}
	}
	return false
}

func noDataLimitation(snap authority.Snapshot) string {
	if snap.Provenance == types.ProvenanceUserSelected {
		return fmt.Sprintf("No ended auctions match the selected terms (%s). The selection was searched exactly as chosen.", snap.Query)
	}
	return "No comparable ended auctions were found for any search strategy."
}

// rangeOf computes the span of one positive-valued field across records,
// nil when no record carries the field.
func rangeOf(records []types.ListingRecord, value func(types.ListingRecord) float64, currency string) *types.PriceRange {
	var low, high float64
	found := false
	for _, r := range records {
		v := value(r)
		if v <= 0 {
			continue
		}
		if !found || v < low {
			low = v
		}
		if !found || v > high {
			high = v
		}
		found = true
	}
	if !found {
		return nil
	}
	return &types.PriceRange{Low: low, High: high, Currency: strings.ToUpper(currency)}
}
