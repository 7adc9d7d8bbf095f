// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// TrendDirection buckets the comparison of older-half vs newer-half mean
// prices among confirmed sales.
type TrendDirection string

const (
	TrendRisingStrong     TrendDirection = "rising_strong"
	TrendRising           TrendDirection = "rising"
	TrendStable           TrendDirection = "stable"
	TrendFalling          TrendDirection = "falling"
	TrendFallingStrong    TrendDirection = "falling_strong"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// TrendQuality flags how trustworthy the computed trend percentage is.
type TrendQuality string

const (
	// TrendQualityNormal means the literal percentage is reported.
	TrendQualityNormal TrendQuality = "normal"

	// TrendQualityExtreme marks swings beyond 500%: reported numerically
	// but capped.
	TrendQualityExtreme TrendQuality = "extreme_trend"

	// TrendQualityMixedSuspicious marks swings beyond 1000%, treated as
	// certain mixed-market contamination: direction only, hard-capped.
	TrendQualityMixedSuspicious TrendQuality = "mixed_suspicious"
)

// TrendResult describes price movement across the dated confirmed sales.
type TrendResult struct {
	Direction     TrendDirection `json:"direction" yaml:"direction"`
	PercentChange float64        `json:"percent_change" yaml:"percent_change"`
	Quality       TrendQuality   `json:"quality" yaml:"quality"`
	OlderMean     float64        `json:"older_mean,omitempty" yaml:"older_mean,omitempty"`
	NewerMean     float64        `json:"newer_mean,omitempty" yaml:"newer_mean,omitempty"`
}

// PriceRange is the observed minimum-to-maximum span of confirmed sales.
type PriceRange struct {
	Low      float64 `json:"low" yaml:"low"`
	High     float64 `json:"high" yaml:"high"`
	Currency string  `json:"currency" yaml:"currency"`
}

// ExceptionalSale is one confirmed sale priced well above both the
// statistical norm and, when supplied, the appraiser's own valuation.
type ExceptionalSale struct {
	Title            string    `json:"title" yaml:"title"`
	Price            float64   `json:"price" yaml:"price"`
	Date             time.Time `json:"date,omitempty" yaml:"date,omitempty"`
	URL              string    `json:"url,omitempty" yaml:"url,omitempty"`
	RatioToMedian    float64   `json:"ratio_to_median" yaml:"ratio_to_median"`
	RatioToValuation float64   `json:"ratio_to_valuation,omitempty" yaml:"ratio_to_valuation,omitempty"`
}

// ExceptionalSalesResult groups detected exceptional sales with the
// threshold that flagged them.
type ExceptionalSalesResult struct {
	Threshold float64           `json:"threshold" yaml:"threshold"`
	Median    float64           `json:"median" yaml:"median"`
	Sales     []ExceptionalSale `json:"sales" yaml:"sales"`
}

// MarketAnalysisResult is the outcome of one historical analysis call.
// It is constructed once and never mutated. Failures are expressed as
// HasComparableData=false with a Limitations string, never as an error
// reaching the UI layer.
type MarketAnalysisResult struct {
	HasComparableData bool `json:"has_comparable_data" yaml:"has_comparable_data"`

	// TotalMatches is the marketplace-reported match count for the
	// strategy that produced the data.
	TotalMatches int `json:"total_matches" yaml:"total_matches"`

	// AnalyzedSales counts the confirmed sales the statistics ran on.
	AnalyzedSales int `json:"analyzed_sales" yaml:"analyzed_sales"`

	PriceRange PriceRange `json:"price_range" yaml:"price_range"`

	// Confidence is clamped to [0.1, 0.95]; the engine never claims
	// certainty.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	Trend TrendResult `json:"trend" yaml:"trend"`

	ExceptionalSales *ExceptionalSalesResult `json:"exceptional_sales,omitempty" yaml:"exceptional_sales,omitempty"`

	// MarketContext is a short composed narrative: artist history depth,
	// activity level, price-vs-estimate behavior.
	MarketContext string `json:"market_context,omitempty" yaml:"market_context,omitempty"`

	// Limitations explains weak spots in the sample, or why no data was
	// found.
	Limitations string `json:"limitations,omitempty" yaml:"limitations,omitempty"`

	// UsedStrategy is the strategy that produced the data, nil when no
	// strategy yielded any.
	UsedStrategy *SearchStrategy `json:"used_strategy,omitempty" yaml:"used_strategy,omitempty"`

	// ActualSearchQuery is the query string that was actually executed.
	ActualSearchQuery string `json:"actual_search_query,omitempty" yaml:"actual_search_query,omitempty"`

	// QuerySource records how the executed query was installed.
	QuerySource QuerySource `json:"query_source,omitempty" yaml:"query_source,omitempty"`

	// DataQuality propagates the ingestion filter tag.
	DataQuality DataQuality `json:"data_quality,omitempty" yaml:"data_quality,omitempty"`
}

// LiveAnalysisResult is the outcome of one live-market analysis call.
type LiveAnalysisResult struct {
	HasLiveData bool `json:"has_live_data" yaml:"has_live_data"`

	// ActualSearchQuery is the query that ran; for user-selected queries
	// it is never substituted, even on zero results.
	ActualSearchQuery string `json:"actual_search_query" yaml:"actual_search_query"`

	TotalMatches int             `json:"total_matches" yaml:"total_matches"`
	Listings     []ListingRecord `json:"listings,omitempty" yaml:"listings,omitempty"`

	// EstimateRange spans the houses' estimates on the live listings.
	EstimateRange *PriceRange `json:"estimate_range,omitempty" yaml:"estimate_range,omitempty"`

	// BidRange spans the current leading bids, when any exist.
	BidRange *PriceRange `json:"bid_range,omitempty" yaml:"bid_range,omitempty"`

	Limitations  string          `json:"limitations,omitempty" yaml:"limitations,omitempty"`
	UsedStrategy *SearchStrategy `json:"used_strategy,omitempty" yaml:"used_strategy,omitempty"`
}
