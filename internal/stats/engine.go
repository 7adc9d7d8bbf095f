// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stats computes robust price statistics and market-confidence
// signals from validated listing records. See docs/ARCHITECTURE § Market
// Statistics.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

// Confidence is clamped to this interval; the engine never claims
// certainty and never reports pure noise as zero.
const (
	confidenceFloor   = 0.10
	confidenceCeiling = 0.95
)

// Engine derives a MarketAnalysisResult from a validated search result.
type Engine struct {
	cfg types.AnalysisConfig
	log *zap.Logger
}

// New builds an Engine.
func New(cfg types.AnalysisConfig, log *zap.Logger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

// Analyze computes the full statistics block. It returns nil when no
// record carries a positive confirmed sale price: bare estimates are
// never a basis for a price range. currentValuation, when positive, is
// the appraiser's own estimate and raises the exceptional-sale bar.
func (e *Engine) Analyze(result *types.SearchResult, artist, objectType string, currentValuation float64) *types.MarketAnalysisResult {
	if result == nil {
		return nil
	}

	sales := confirmedSales(result.Records)
	if len(sales) == 0 {
		return nil
	}

	prices := make([]float64, len(sales))
	for i, s := range sales {
		prices[i] = s.FinalPrice
	}
	sort.Float64s(prices)

	out := &types.MarketAnalysisResult{
		HasComparableData: true,
		TotalMatches:      result.TotalMatches,
		AnalyzedSales:     len(sales),
		PriceRange:        e.priceRange(prices),
		Trend:             e.trend(sales),
		ExceptionalSales:  e.exceptionalSales(sales, prices, currentValuation),
		ActualSearchQuery: result.Query,
		DataQuality:       result.Quality,
	}
	out.Confidence = e.confidence(result, sales, artist, objectType)
	out.MarketContext = e.marketContext(result, sales, artist)
	out.Limitations = e.limitations(sales, artist)
	return out
}

// priceRange reports the true minimum-to-maximum span of confirmed sales.
// No percentile trimming: buyers see the full observed spectrum. A sample
// of three or fewer is symmetrically widened to at least 15% of the mean
// so a single data point never yields a degenerate range.
func (e *Engine) priceRange(sorted []float64) types.PriceRange {
	low := sorted[0]
	high := sorted[len(sorted)-1]

	if len(sorted) <= 3 {
		m := mean(sorted)
		if minSpan := m * 0.15; high-low < minSpan {
			pad := (minSpan - (high - low)) / 2
			low = math.Max(0, low-pad)
			high += pad
		}
	}

	return types.PriceRange{
		Low:      math.Round(low),
		High:     math.Round(high),
		Currency: e.cfg.ReferenceCurrency,
	}
}

// confidence starts at 0.5 and adds banded boosts for market coverage,
// sample size, recency, and title-match quality, clamped to
// [0.10, 0.95]. Lenient-filtered data is discounted before clamping.
func (e *Engine) confidence(result *types.SearchResult, sales []types.ListingRecord, artist, objectType string) float64 {
	c := 0.5

	switch total := result.TotalMatches; {
	case total >= 500:
		c += 0.4
	case total >= 100:
		c += 0.3
	case total >= 50:
		c += 0.2
	case total >= 20:
		c += 0.1
	}

	switch n := len(sales); {
	case n >= 20:
		c += 0.2
	case n >= 10:
		c += 0.15
	case n >= 5:
		c += 0.1
	case n >= 3:
		c += 0.05
	}

	if recent := recentFraction(sales, 24*30*24*time.Hour); recent >= 0.7 {
		c += 0.15
	} else if recent >= 0.5 {
		c += 0.1
	}

	c += titleMatchFraction(sales, artist) * 0.15
	c += titleMatchFraction(sales, objectType) * 0.10

	if result.Quality == types.QualityLenient {
		c -= 0.15
	}

	return math.Min(confidenceCeiling, math.Max(confidenceFloor, c))
}

// trend sorts confirmed sales by date, splits them into older and newer
// halves, and compares mean prices. Swings beyond 1000% are certain signs
// of mixed-market contamination: direction only, magnitude hard-capped.
// Swings beyond 500% are reported but capped and flagged.
func (e *Engine) trend(sales []types.ListingRecord) types.TrendResult {
	dated := make([]types.ListingRecord, 0, len(sales))
	for _, s := range sales {
		if !saleDate(s).IsZero() {
			dated = append(dated, s)
		}
	}
	if len(dated) < 3 {
		return types.TrendResult{Direction: types.TrendInsufficientData, Quality: types.TrendQualityNormal}
	}

	sort.Slice(dated, func(i, j int) bool {
		return saleDate(dated[i]).Before(saleDate(dated[j]))
	})

	half := len(dated) / 2
	olderMean := meanPrice(dated[:half])
	newerMean := meanPrice(dated[half:])
	if olderMean <= 0 {
		return types.TrendResult{Direction: types.TrendInsufficientData, Quality: types.TrendQualityNormal}
	}

	pct := (newerMean - olderMean) / olderMean * 100
	quality := types.TrendQualityNormal

	switch {
	case math.Abs(pct) > 1000:
		quality = types.TrendQualityMixedSuspicious
		e.log.Debug("trend swing beyond 1000%, treating as mixed-market contamination",
			zap.Float64("raw_percent", pct))
		pct = clampPct(pct, 200, -80)
	case math.Abs(pct) > 500:
		quality = types.TrendQualityExtreme
		pct = clampPct(pct, 300, -75)
	}

	return types.TrendResult{
		Direction:     bucketTrend(pct),
		PercentChange: math.Round(pct*10) / 10,
		Quality:       quality,
		OlderMean:     math.Round(olderMean),
		NewerMean:     math.Round(newerMean),
	}
}

func clampPct(pct, posCap, negCap float64) float64 {
	if pct > posCap {
		return posCap
	}
	if pct < negCap {
		return negCap
	}
	return pct
}

func bucketTrend(pct float64) types.TrendDirection {
	switch {
	case pct > 15:
		return types.TrendRisingStrong
	case pct > 5:
		return types.TrendRising
	case pct < -15:
		return types.TrendFallingStrong
	case pct < -5:
		return types.TrendFalling
	default:
		return types.TrendStable
	}
}

// exceptionalSales flags confirmed sales priced well above the crowd.
// The threshold is max(3x median, 2x Q3); a supplied valuation raises it
// further, because an exceptional sale must beat the appraiser's own
// estimate, not just the statistical norm. Requires three confirmed
// prices.
func (e *Engine) exceptionalSales(sales []types.ListingRecord, sorted []float64, currentValuation float64) *types.ExceptionalSalesResult {
	if len(sorted) < 3 {
		return nil
	}

	med := median(sorted)
	threshold := math.Max(3*med, 2*upperQuartile(sorted))
	if currentValuation > 0 {
		threshold = math.Max(threshold, currentValuation)
	}

	var flagged []types.ExceptionalSale
	for _, s := range sales {
		if s.FinalPrice <= threshold {
			continue
		}
		ex := types.ExceptionalSale{
			Title:         s.Title,
			Price:         s.FinalPrice,
			Date:          saleDate(s),
			URL:           s.URL,
			RatioToMedian: math.Round(s.FinalPrice/med*10) / 10,
		}
		if currentValuation > 0 {
			ex.RatioToValuation = math.Round(s.FinalPrice/currentValuation*10) / 10
		}
		flagged = append(flagged, ex)
	}
	if len(flagged) == 0 {
		return nil
	}

	return &types.ExceptionalSalesResult{
		Threshold: math.Round(threshold),
		Median:    math.Round(med),
		Sales:     flagged,
	}
}

// marketContext composes a short narrative from three independent
// signals: artist auction-history depth, overall activity level, and
// price-vs-estimate behavior.
func (e *Engine) marketContext(result *types.SearchResult, sales []types.ListingRecord, artist string) string {
	var parts []string

	if artist != "" {
		if artistMatches(sales, artist) >= 3 {
			parts = append(parts, "established auction history for "+artist)
		} else {
			parts = append(parts, "limited auction history for "+artist)
		}
	}

	switch total := result.TotalMatches; {
	case total >= 500:
		parts = append(parts, "very active market")
	case total >= 100:
		parts = append(parts, "active market")
	case total >= 20:
		parts = append(parts, "moderate market activity")
	default:
		parts = append(parts, "thin market")
	}

	if ratio, ok := priceToEstimateRatio(sales); ok {
		switch {
		case ratio > 1.2:
			parts = append(parts, "typically sells above estimate")
		case ratio < 0.8:
			parts = append(parts, "typically sells below estimate")
		default:
			parts = append(parts, "typically sells near estimate")
		}
	}

	return strings.Join(parts, "; ")
}

// limitations describes weak spots a human should weigh before trusting
// the numbers.
func (e *Engine) limitations(sales []types.ListingRecord, artist string) string {
	var notes []string

	if len(sales) < 5 {
		notes = append(notes, fmt.Sprintf("small sample (%d confirmed sales)", len(sales)))
	}
	if recentFraction(sales, 24*30*24*time.Hour) < 0.5 {
		notes = append(notes, "fewer than half the sales are from the last 24 months")
	}
	if artist != "" && titleMatchFraction(sales, artist) < 0.7 {
		notes = append(notes, "many records do not name the artist in the title")
	}

	return strings.Join(notes, "; ")
}

// --- helpers ---

func confirmedSales(records []types.ListingRecord) []types.ListingRecord {
	var sales []types.ListingRecord
	for _, r := range records {
		if _, ok := r.SalePrice(); ok {
			sales = append(sales, r)
		}
	}
	return sales
}

// saleDate prefers the bid timestamp and falls back to the end date.
func saleDate(r types.ListingRecord) time.Time {
	if !r.BidTimestamp.IsZero() {
		return r.BidTimestamp
	}
	return r.EndDate
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func meanPrice(sales []types.ListingRecord) float64 {
	if len(sales) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sales {
		sum += s.FinalPrice
	}
	return sum / float64(len(sales))
}

// median of an already sorted slice.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// upperQuartile is the median of the upper half (exclusive of the middle
// element for odd-length input), on an already sorted slice.
func upperQuartile(sorted []float64) float64 {
	n := len(sorted)
	if n < 2 {
		return sorted[n-1]
	}
	return median(sorted[(n+1)/2:])
}

// recentFraction is the share of sales whose date falls within the window.
func recentFraction(sales []types.ListingRecord, window time.Duration) float64 {
	if len(sales) == 0 {
		return 0
	}
	cutoff := time.Now().Add(-window)
	recent := 0
	for _, s := range sales {
		if d := saleDate(s); !d.IsZero() && d.After(cutoff) {
			recent++
		}
	}
	return float64(recent) / float64(len(sales))
}

// titleMatchFraction is the share of sales whose title contains the text,
// case-insensitively. Empty text yields zero.
func titleMatchFraction(sales []types.ListingRecord, text string) float64 {
	text = strings.ToLower(strings.TrimSpace(strings.Trim(text, `"`)))
	if text == "" || len(sales) == 0 {
		return 0
	}
	return float64(artistMatches(sales, text)) / float64(len(sales))
}

func artistMatches(sales []types.ListingRecord, artist string) int {
	artist = strings.ToLower(strings.TrimSpace(strings.Trim(artist, `"`)))
	if artist == "" {
		return 0
	}
	n := 0
	for _, s := range sales {
		if strings.Contains(strings.ToLower(s.Title), artist) {
			n++
		}
	}
	return n
}

// priceToEstimateRatio averages final/estimate over sales carrying both.
func priceToEstimateRatio(sales []types.ListingRecord) (float64, bool) {
	var sum float64
	n := 0
	for _, s := range sales {
		if s.Estimate > 0 && s.FinalPrice > 0 {
			sum += s.FinalPrice / s.Estimate
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
