// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stats

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

func newEngine() *Engine {
	return New(types.DefaultEngineConfig().Analysis, zap.NewNop())
}

func soldAt(price float64, when time.Time) types.ListingRecord {
	return types.ListingRecord{
		Title:      "Testobjekt",
		FinalPrice: price,
		Currency:   "SEK",
		EndDate:    when,
		IsSold:     true,
	}
}

func resultOf(total int, records ...types.ListingRecord) *types.SearchResult {
	return &types.SearchResult{
		Query:        "test",
		Records:      records,
		TotalMatches: total,
		Quality:      types.QualityStrict,
	}
}

// --- Terminal states ---

func TestAnalyzeNilWithoutConfirmedSales(t *testing.T) {
	e := newEngine()

	if got := e.Analyze(nil, "", "", 0); got != nil {
		t.Error("nil input must yield nil")
	}

	// Estimate-only records carry no confirmed price.
	est := types.ListingRecord{Title: "x", Estimate: 500, Currency: "SEK"}
	if got := e.Analyze(resultOf(10, est, est), "", "", 0); got != nil {
		t.Error("estimate-only records must yield nil")
	}
}

// --- Price range ---

func TestPriceRangeFullSpan(t *testing.T) {
	e := newEngine()
	now := time.Now()
	res := resultOf(40,
		soldAt(500, now), soldAt(900, now), soldAt(1500, now),
		soldAt(2500, now), soldAt(80000, now),
	)

	got := e.Analyze(res, "", "", 0)
	if got == nil {
		t.Fatal("expected a result")
	}
	// True min-to-max: the luxury outlier stays visible.
	if got.PriceRange.Low != 500 || got.PriceRange.High != 80000 {
		t.Errorf("range = %v-%v, want 500-80000", got.PriceRange.Low, got.PriceRange.High)
	}
	if got.PriceRange.Currency != "SEK" {
		t.Errorf("currency = %q, want SEK", got.PriceRange.Currency)
	}
}

func TestPriceRangeWidensDegenerateSample(t *testing.T) {
	e := newEngine()
	now := time.Now()
	res := resultOf(5, soldAt(1000, now))

	got := e.Analyze(res, "", "", 0)
	if got == nil {
		t.Fatal("expected a result")
	}
	span := got.PriceRange.High - got.PriceRange.Low
	if span < 150 { // 15% of the 1000 mean
		t.Errorf("span = %v, want at least 150", span)
	}
	if got.PriceRange.Low >= 1000 || got.PriceRange.High <= 1000 {
		t.Errorf("widening must be symmetric around the point: %v-%v",
			got.PriceRange.Low, got.PriceRange.High)
	}
}

// --- Confidence ---

func TestConfidenceBounds(t *testing.T) {
	e := newEngine()
	now := time.Now()

	// Everything maxed out: huge market, big fresh sample, full title match.
	var best []types.ListingRecord
	for i := 0; i < 25; i++ {
		r := soldAt(1000, now.Add(-time.Duration(i)*24*time.Hour))
		r.Title = "Carl Malmsten stol"
		best = append(best, r)
	}
	got := e.Analyze(resultOf(800, best...), "Carl Malmsten", "stol", 0)
	if got.Confidence > 0.95 {
		t.Errorf("confidence = %v, must never exceed 0.95", got.Confidence)
	}
	if got.Confidence < 0.9 {
		t.Errorf("confidence = %v, want near ceiling for a maxed sample", got.Confidence)
	}

	// Worst case: one ancient sale, no context.
	worst := soldAt(100, now.AddDate(-9, 0, 0))
	got = e.Analyze(&types.SearchResult{
		Records: []types.ListingRecord{worst}, TotalMatches: 1,
		Quality: types.QualityLenient,
	}, "", "", 0)
	if got.Confidence < 0.1 {
		t.Errorf("confidence = %v, must never fall below 0.1", got.Confidence)
	}
	if got.Confidence > 0.5 {
		t.Errorf("confidence = %v, want discounted lenient single-sale score", got.Confidence)
	}
}

func TestConfidenceLenientDiscount(t *testing.T) {
	e := newEngine()
	now := time.Now()
	records := []types.ListingRecord{
		soldAt(900, now), soldAt(950, now), soldAt(1000, now),
		soldAt(1050, now), soldAt(1100, now),
	}

	strict := e.Analyze(resultOf(60, records...), "", "", 0)

	lenientRes := resultOf(60, records...)
	lenientRes.Quality = types.QualityLenient
	lenient := e.Analyze(lenientRes, "", "", 0)

	if lenient.Confidence >= strict.Confidence {
		t.Errorf("lenient confidence %v not below strict %v", lenient.Confidence, strict.Confidence)
	}
}

// --- Trend ---

func TestTrendInsufficientData(t *testing.T) {
	e := newEngine()
	now := time.Now()
	got := e.Analyze(resultOf(10, soldAt(1000, now), soldAt(1100, now)), "", "", 0)
	if got.Trend.Direction != types.TrendInsufficientData {
		t.Errorf("trend = %q, want insufficient_data for 2 sales", got.Trend.Direction)
	}
}

func TestTrendBuckets(t *testing.T) {
	tests := []struct {
		pct  float64
		want types.TrendDirection
	}{
		{30, types.TrendRisingStrong},
		{10, types.TrendRising},
		{2, types.TrendStable},
		{-2, types.TrendStable},
		{-10, types.TrendFalling},
		{-30, types.TrendFallingStrong},
	}
	for _, tt := range tests {
		if got := bucketTrend(tt.pct); got != tt.want {
			t.Errorf("bucketTrend(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestTrendRising(t *testing.T) {
	e := newEngine()
	now := time.Now()
	res := resultOf(30,
		soldAt(1000, now.AddDate(-4, 0, 0)),
		soldAt(1000, now.AddDate(-3, 0, 0)),
		soldAt(1300, now.AddDate(-1, 0, 0)),
		soldAt(1300, now.AddDate(0, -6, 0)),
	)

	got := e.Analyze(res, "", "", 0)
	if got.Trend.Direction != types.TrendRisingStrong {
		t.Errorf("direction = %q, want rising_strong", got.Trend.Direction)
	}
	if got.Trend.PercentChange != 30 {
		t.Errorf("percent = %v, want 30", got.Trend.PercentChange)
	}
	if got.Trend.Quality != types.TrendQualityNormal {
		t.Errorf("quality = %q, want normal", got.Trend.Quality)
	}
}

func TestTrendMixedMarketContamination(t *testing.T) {
	e := newEngine()
	now := time.Now()
	// Older half mean 1000, newer half mean 12000: an 1100% swing.
	res := resultOf(30,
		soldAt(1000, now.AddDate(-4, 0, 0)),
		soldAt(1000, now.AddDate(-3, 0, 0)),
		soldAt(12000, now.AddDate(-1, 0, 0)),
		soldAt(12000, now.AddDate(0, -6, 0)),
	)

	got := e.Analyze(res, "", "", 0)
	if got.Trend.Quality != types.TrendQualityMixedSuspicious {
		t.Errorf("quality = %q, want mixed_suspicious", got.Trend.Quality)
	}
	if got.Trend.PercentChange > 200 {
		t.Errorf("percent = %v, must be capped at 200", got.Trend.PercentChange)
	}
	if got.Trend.Direction != types.TrendRisingStrong {
		t.Errorf("direction = %q, direction must still be reported", got.Trend.Direction)
	}
}

func TestTrendExtremeButPlausible(t *testing.T) {
	e := newEngine()
	now := time.Now()
	// 600% swing: reported numerically but capped at 300 and flagged.
	res := resultOf(30,
		soldAt(1000, now.AddDate(-4, 0, 0)),
		soldAt(1000, now.AddDate(-3, 0, 0)),
		soldAt(7000, now.AddDate(-1, 0, 0)),
		soldAt(7000, now.AddDate(0, -6, 0)),
	)

	got := e.Analyze(res, "", "", 0)
	if got.Trend.Quality != types.TrendQualityExtreme {
		t.Errorf("quality = %q, want extreme_trend", got.Trend.Quality)
	}
	if got.Trend.PercentChange != 300 {
		t.Errorf("percent = %v, want capped 300", got.Trend.PercentChange)
	}
}

// --- Exceptional sales ---

func TestExceptionalSaleDetection(t *testing.T) {
	e := newEngine()
	now := time.Now()
	prices := []float64{1000, 1050, 1100, 1150, 1200, 1250, 50000}
	var records []types.ListingRecord
	for _, p := range prices {
		records = append(records, soldAt(p, now))
	}

	got := e.Analyze(resultOf(100, records...), "", "", 0)
	if got.ExceptionalSales == nil {
		t.Fatal("expected exceptional sales")
	}

	ex := got.ExceptionalSales
	if ex.Median != 1150 {
		t.Errorf("median = %v, want 1150", ex.Median)
	}
	if ex.Threshold != 3450 {
		t.Errorf("threshold = %v, want 3450 (3x median beats 2x Q3)", ex.Threshold)
	}
	if len(ex.Sales) != 1 || ex.Sales[0].Price != 50000 {
		t.Fatalf("flagged = %+v, want exactly the 50000 sale", ex.Sales)
	}
	if ex.Sales[0].RatioToMedian < 43 || ex.Sales[0].RatioToMedian > 44 {
		t.Errorf("ratio to median = %v, want ~43.5", ex.Sales[0].RatioToMedian)
	}
}

func TestExceptionalSaleMustBeatValuation(t *testing.T) {
	e := newEngine()
	now := time.Now()
	records := []types.ListingRecord{
		soldAt(1000, now), soldAt(1050, now), soldAt(1100, now),
		soldAt(1150, now), soldAt(1200, now), soldAt(9000, now),
	}

	// Without a valuation, 9000 clears the statistical bar.
	got := e.Analyze(resultOf(50, records...), "", "", 0)
	if got.ExceptionalSales == nil || len(got.ExceptionalSales.Sales) != 1 {
		t.Fatal("expected the 9000 sale flagged without a valuation")
	}

	// The appraiser already values the item at 10000: nothing is
	// exceptional anymore.
	got = e.Analyze(resultOf(50, records...), "", "", 10000)
	if got.ExceptionalSales != nil {
		t.Errorf("no sale beats the 10000 valuation, got %+v", got.ExceptionalSales)
	}
}

func TestExceptionalSalesNeedThreePrices(t *testing.T) {
	e := newEngine()
	now := time.Now()
	got := e.Analyze(resultOf(10, soldAt(100, now), soldAt(10000, now)), "", "", 0)
	if got.ExceptionalSales != nil {
		t.Error("two confirmed prices must not produce exceptional sales")
	}
}

// --- Narrative ---

func TestMarketContextComposition(t *testing.T) {
	e := newEngine()
	now := time.Now()
	var records []types.ListingRecord
	for i := 0; i < 4; i++ {
		r := soldAt(1200, now)
		r.Title = "Anders Zorn etsning"
		r.Estimate = 800 // sells well above estimate
		records = append(records, r)
	}

	got := e.Analyze(resultOf(150, records...), "Anders Zorn", "etsning", 0)

	for _, want := range []string{
		"established auction history for Anders Zorn",
		"active market",
		"sells above estimate",
	} {
		if !contains(got.MarketContext, want) {
			t.Errorf("market context %q missing %q", got.MarketContext, want)
		}
	}
}

func TestLimitationsSmallAndStale(t *testing.T) {
	e := newEngine()
	old := time.Now().AddDate(-6, 0, 0)
	records := []types.ListingRecord{soldAt(500, old), soldAt(600, old)}

	got := e.Analyze(resultOf(5, records...), "Okänd Mästare", "", 0)

	if !contains(got.Limitations, "small sample") {
		t.Errorf("limitations %q missing small-sample note", got.Limitations)
	}
	if !contains(got.Limitations, "24 months") {
		t.Errorf("limitations %q missing staleness note", got.Limitations)
	}
	if !contains(got.Limitations, "artist") {
		t.Errorf("limitations %q missing artist-match note", got.Limitations)
	}
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
