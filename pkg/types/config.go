// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "valuation-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// MarketplaceConfig holds settings for the marketplace search client.
type MarketplaceConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the marketplace search API. Optional;
	// anonymous access is rate limited harder.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxResults is the page size requested per query (default 50).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// EndedCacheTTL is how long ended-auction responses stay cached
	// (default 30 min; historical data moves slowly).
	EndedCacheTTL time.Duration `json:"ended_cache_ttl" yaml:"ended_cache_ttl"`

	// LiveCacheTTL is how long live responses stay cached (default 5 min;
	// live data is volatile).
	LiveCacheTTL time.Duration `json:"live_cache_ttl" yaml:"live_cache_ttl"`

	// ExcludedCompanyID removes listings from one configured seller.
	// Reloaded from the settings store before each analysis; participates
	// in the cache key so a configuration change never serves stale data.
	ExcludedCompanyID string `json:"excluded_company_id,omitempty" yaml:"excluded_company_id,omitempty"`
}

// AnalysisConfig holds thresholds and policy switches for the orchestrator
// and the statistics engine. The sufficiency thresholds are deliberately
// configuration, not constants.
type AnalysisConfig struct {
	// ReferenceCurrency is the only currency admitted into statistics
	// (default "SEK").
	ReferenceCurrency string `json:"reference_currency" yaml:"reference_currency"`

	// HistoricalMinResults is how many confirmed or candidate records a
	// strategy must yield before later, broader strategies are skipped
	// (default 5).
	HistoricalMinResults int `json:"historical_min_results" yaml:"historical_min_results"`

	// LiveMinResults is the live-search sufficiency threshold (default 3).
	LiveMinResults int `json:"live_min_results" yaml:"live_min_results"`

	// EnableRatioOutlierRemoval activates price-ratio outlier removal in
	// the validator. Off by default: legitimate luxury items can differ by
	// 100x from common items of the same category, so the ratio is logged
	// but not enforced.
	EnableRatioOutlierRemoval bool `json:"enable_ratio_outlier_removal" yaml:"enable_ratio_outlier_removal"`
}

// AIConfig holds settings for the term-generation collaborator.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// StoreConfig holds settings for the local SQLite store.
type StoreConfig struct {
	// DataDir is the directory holding valuation.db (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default maximum history query result count
	// (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// EngineConfig groups all component configurations.
type EngineConfig struct {
	Marketplace MarketplaceConfig `json:"marketplace" yaml:"marketplace"`
	Analysis    AnalysisConfig    `json:"analysis" yaml:"analysis"`
	AI          AIConfig          `json:"ai" yaml:"ai"`
	Store       StoreConfig       `json:"store" yaml:"store"`
}

// DefaultEngineConfig returns the documented defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Marketplace: MarketplaceConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   20 * time.Second,
				UserAgent: "valuation-engine/0.1",
			},
			MaxResults:    50,
			EndedCacheTTL: 30 * time.Minute,
			LiveCacheTTL:  5 * time.Minute,
		},
		Analysis: AnalysisConfig{
			ReferenceCurrency:    "SEK",
			HistoricalMinResults: 5,
			LiveMinResults:       3,
		},
		AI: AIConfig{
			Model:      "claude-sonnet-4-5-20250929",
			MaxRetries: 3,
		},
		Store: StoreConfig{
			DataDir:    "data",
			MaxResults: 20,
		},
	}
}
