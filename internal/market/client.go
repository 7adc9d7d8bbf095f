// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package market executes queries against the remote marketplace search
// API, applies a time-boxed response cache, and filters raw listings into
// usable records. See docs/ARCHITECTURE § Marketplace Client.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/pdiddy/valuation-engine/internal/httputil"
	"github.com/pdiddy/valuation-engine/pkg/types"
)

// apiBase is the marketplace listings-search endpoint. Declared as a var
// so tests can substitute an httptest server.
var apiBase = "https://api.auctionet.com/v2/items.json"

// Mode selects between concluded and currently running auctions.
type Mode string

const (
	ModeEnded Mode = "ended"
	ModeLive  Mode = "live"
)

// Client is the marketplace search client. One outbound request runs at a
// time per analysis call; concurrent analyses may share the cache.
type Client struct {
	httpClient  *http.Client
	cfg         types.MarketplaceConfig
	refCurrency string
	cache       *gocache.Cache
	log         *zap.Logger

	// excludedCompany is reloaded from the settings store before each
	// analysis; it participates in cache keys so a configuration change
	// never serves pre-change data.
	excludedCompany string
}

// NewClient builds a Client from configuration. referenceCurrency is the
// only currency admitted into results.
func NewClient(cfg types.MarketplaceConfig, referenceCurrency string, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	if cfg.EndedCacheTTL <= 0 {
		cfg.EndedCacheTTL = 30 * time.Minute
	}
	if cfg.LiveCacheTTL <= 0 {
		cfg.LiveCacheTTL = 5 * time.Minute
	}
	return &Client{
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		cfg:             cfg,
		refCurrency:     referenceCurrency,
		cache:           gocache.New(cfg.LiveCacheTTL, 10*time.Minute),
		log:             log,
		excludedCompany: cfg.ExcludedCompanyID,
	}
}

// SetExcludedCompany installs the excluded seller identifier. Cached
// entries keyed under the previous value become unreachable immediately.
func (c *Client) SetExcludedCompany(id string) {
	c.excludedCompany = strings.TrimSpace(id)
}

// PurgeCache drops every cached response.
func (c *Client) PurgeCache() {
	c.cache.Flush()
}

// cacheKey covers everything that changes the response set.
func (c *Client) cacheKey(mode Mode, query string, maxResults int) string {
	return fmt.Sprintf("%s|%s|%d|%s", mode, query, maxResults, c.excludedCompany)
}

// SearchEnded queries concluded auctions. It returns nil (no error) when
// the marketplace has nothing usable for the query, and nil with an error
// on transport or decode failure; the caller treats both as "no data for
// this strategy", never as fatal.
//
// Filtering runs strict first: reference currency, confirmed-or-estimated
// value, historically concluded. A strict wipeout falls back to a lenient
// pass tagged QualityLenient so statistics can discount confidence.
func (c *Client) SearchEnded(ctx context.Context, query string, maxResults int) (*types.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = c.cfg.MaxResults
	}

	key := c.cacheKey(ModeEnded, query, maxResults)
	if hit, ok := c.cache.Get(key); ok {
		c.log.Debug("cache hit", zap.String("mode", string(ModeEnded)), zap.String("query", query))
		return hit.(*types.SearchResult), nil
	}

	items, total, err := c.fetch(ctx, ModeEnded, query, maxResults)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	records := c.filterEnded(items, strictEndedFilter)
	quality := types.QualityStrict
	if len(records) == 0 {
		records = c.filterEnded(items, lenientEndedFilter)
		quality = types.QualityLenient
		c.log.Debug("strict filter empty, lenient pass admitted records",
			zap.String("query", query), zap.Int("admitted", len(records)))
	}
	if len(records) == 0 {
		return nil, nil
	}

	result := &types.SearchResult{
		Query:        query,
		Records:      records,
		TotalMatches: total,
		Quality:      quality,
	}
	c.cache.Set(key, result, c.cfg.EndedCacheTTL)
	return result, nil
}

// SearchLive queries currently running auctions. relevanceKeywords, when
// non-empty, marks the query as a broad fallback: listings whose title
// contains none of the keywords are rejected so irrelevant matches never
// pollute live estimates.
func (c *Client) SearchLive(ctx context.Context, query string, maxResults int, relevanceKeywords []string) (*types.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = c.cfg.MaxResults
	}

	key := c.cacheKey(ModeLive, query, maxResults) + "|" + strings.Join(relevanceKeywords, ",")
	if hit, ok := c.cache.Get(key); ok {
		c.log.Debug("cache hit", zap.String("mode", string(ModeLive)), zap.String("query", query))
		return hit.(*types.SearchResult), nil
	}

	items, total, err := c.fetch(ctx, ModeLive, query, maxResults)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var records []types.ListingRecord
	for _, it := range items {
		if !c.admitCommon(it) {
			continue
		}
		if !liveFilter(it, now) {
			continue
		}
		if len(relevanceKeywords) > 0 && !titleMatchesAny(it.Title, relevanceKeywords) {
			continue
		}
		records = append(records, toRecord(it))
	}
	if len(records) == 0 {
		return nil, nil
	}

	result := &types.SearchResult{
		Query:        query,
		Records:      records,
		TotalMatches: total,
		Quality:      types.QualityStrict,
	}
	c.cache.Set(key, result, c.cfg.LiveCacheTTL)
	return result, nil
}

// fetch performs the HTTP round trip and decodes the page of listings.
func (c *Client) fetch(ctx context.Context, mode Mode, query string, maxResults int) ([]apiItem, int, error) {
	params := url.Values{
		"q":        {query},
		"per_page": {fmt.Sprintf("%d", maxResults)},
		"is":       {string(mode)},
	}

	reqURL := apiBase + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("marketplace request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("marketplace returned HTTP %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		// Malformed responses are indistinguishable from transport
		// failure for the caller.
		return nil, 0, fmt.Errorf("parsing marketplace response: %w", err)
	}

	return body.Items, body.Pagination.TotalCount, nil
}

// toRecord normalizes one raw listing.
func toRecord(it apiItem) types.ListingRecord {
	rec := types.ListingRecord{
		Title:        it.Title,
		Description:  it.Description,
		Currency:     it.Currency,
		Estimate:     it.Estimate,
		CurrentBid:   it.CurrentBid,
		House:        it.Company.Name,
		CompanyID:    it.Company.ID,
		Location:     it.Company.City,
		EndDate:      it.EndsAt,
		BidTimestamp: it.LatestBidAt,
		ReserveMet:   it.ReserveMet,
		URL:          it.URL,
	}
	if it.Hammered && it.HammerPrice > 0 {
		rec.IsSold = true
		rec.FinalPrice = it.HammerPrice
	}
	return rec
}

// Marketplace API JSON structures.
type apiResponse struct {
	Pagination apiPagination `json:"pagination"`
	Items      []apiItem     `json:"items"`
}

type apiPagination struct {
	TotalCount int `json:"total_count"`
}

type apiItem struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Currency    string     `json:"currency"`
	State       string     `json:"state"`
	Hammered    bool       `json:"hammered"`
	HammerPrice float64    `json:"hammer_price"`
	CurrentBid  float64    `json:"current_bid"`
	Estimate    float64    `json:"estimate"`
	ReserveMet  *bool      `json:"reserve_met"`
	EndsAt      time.Time  `json:"ends_at"`
	LatestBidAt time.Time  `json:"latest_bid_at"`
	URL         string     `json:"url"`
	Company     apiCompany `json:"company"`
}

type apiCompany struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}
