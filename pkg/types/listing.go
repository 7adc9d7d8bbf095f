// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DataQuality tags how strictly a result set was filtered at ingestion.
type DataQuality string

const (
	// QualityStrict means every record passed the full ended-auction filter.
	QualityStrict DataQuality = "strict"

	// QualityLenient means the strict filter matched nothing and the set
	// was re-admitted under the relaxed filter. Statistics discount
	// confidence for lenient sets.
	QualityLenient DataQuality = "lenient"
)

// ListingRecord is the normalized representation of one marketplace
// listing, historical or live.
//
// Invariants: FinalPrice > 0 if and only if IsSold; Currency always equals
// the engine's reference currency (off-currency records are rejected at
// ingestion, never mixed into statistics).
type ListingRecord struct {
	// Title is the listing headline as published by the house.
	Title string `json:"title" yaml:"title"`

	// Description is the optional catalog text, used for term matching.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// FinalPrice is the confirmed hammer price. Zero when the listing has
	// not sold.
	FinalPrice float64 `json:"final_price,omitempty" yaml:"final_price,omitempty"`

	// Currency is the ISO code of every monetary field on the record.
	Currency string `json:"currency" yaml:"currency"`

	// Estimate is the house's pre-sale estimate, zero when absent.
	Estimate float64 `json:"estimate,omitempty" yaml:"estimate,omitempty"`

	// CurrentBid is the leading bid on a live listing, zero when none.
	CurrentBid float64 `json:"current_bid,omitempty" yaml:"current_bid,omitempty"`

	// House names the auction house that ran the sale.
	House string `json:"house,omitempty" yaml:"house,omitempty"`

	// CompanyID is the marketplace's seller identifier, used for
	// exclusion filtering.
	CompanyID string `json:"company_id,omitempty" yaml:"company_id,omitempty"`

	// Location is the house's city or region.
	Location string `json:"location,omitempty" yaml:"location,omitempty"`

	// EndDate is when the auction ended or will end.
	EndDate time.Time `json:"end_date" yaml:"end_date"`

	// BidTimestamp is the time of the winning (or leading) bid.
	BidTimestamp time.Time `json:"bid_timestamp,omitempty" yaml:"bid_timestamp,omitempty"`

	// ReserveMet reports whether the reserve was reached. Nil when the
	// marketplace did not disclose it.
	ReserveMet *bool `json:"reserve_met,omitempty" yaml:"reserve_met,omitempty"`

	// URL links to the listing page.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// IsSold reports a confirmed hammer.
	IsSold bool `json:"is_sold" yaml:"is_sold"`
}

// SalePrice returns the confirmed sale price and whether one exists.
func (r ListingRecord) SalePrice() (float64, bool) {
	if r.IsSold && r.FinalPrice > 0 {
		return r.FinalPrice, true
	}
	return 0, false
}

// SearchResult is one executed marketplace query: the admitted records plus
// the marketplace's total match count (which may far exceed the page of
// records actually fetched).
type SearchResult struct {
	// Query is the query string that produced this set.
	Query string `json:"query" yaml:"query"`

	// Records are the admitted listings after ingestion filtering.
	Records []ListingRecord `json:"records" yaml:"records"`

	// TotalMatches is the marketplace-reported match count.
	TotalMatches int `json:"total_matches" yaml:"total_matches"`

	// Quality tags which filter admitted the records.
	Quality DataQuality `json:"quality" yaml:"quality"`
}

// ConfirmedSales returns the subset of records with confirmed hammer prices.
func (r *SearchResult) ConfirmedSales() []ListingRecord {
	var sold []ListingRecord
	for _, rec := range r.Records {
		if _, ok := rec.SalePrice(); ok {
			sold = append(sold, rec)
		}
	}
	return sold
}
