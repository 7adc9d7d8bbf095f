// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package market

import (
	"strings"
	"time"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

// admitCommon applies the checks shared by both modes: reference currency
// and the excluded-seller filter. Off-currency records never reach
// statistics.
func (c *Client) admitCommon(it apiItem) bool {
	if it.Currency != c.refCurrency {
		return false
	}
	if c.excludedCompany != "" && it.Company.ID == c.excludedCompany {
		return false
	}
	return true
}

// filterEnded runs one ended-auction filter pass over the raw page and
// normalizes the admitted listings.
func (c *Client) filterEnded(items []apiItem, pass func(apiItem, time.Time) bool) []types.ListingRecord {
	now := time.Now()
	var records []types.ListingRecord
	for _, it := range items {
		if !c.admitCommon(it) {
			continue
		}
		if !pass(it, now) {
			continue
		}
		records = append(records, toRecord(it))
	}
	return records
}

// strictEndedFilter admits records that carry a confirmed hammer with a
// positive amount, or a positive estimate, and are historically concluded:
// hammered, past their end time, or in an explicit ended state.
func strictEndedFilter(it apiItem, now time.Time) bool {
	hasValue := (it.Hammered && it.HammerPrice > 0) || it.Estimate > 0
	if !hasValue {
		return false
	}
	concluded := it.Hammered ||
		(!it.EndsAt.IsZero() && it.EndsAt.Before(now)) ||
		it.State == "ended"
	return concluded
}

// lenientEndedFilter is the fallback pass: any positive estimate or any
// bid activity qualifies. Used only when the strict pass admits nothing.
func lenientEndedFilter(it apiItem, _ time.Time) bool {
	return it.Estimate > 0 || it.CurrentBid > 0 || it.HammerPrice > 0
}

// liveFilter admits listings still running: not hammered, published, end
// time in the future.
func liveFilter(it apiItem, now time.Time) bool {
	if it.Hammered {
		return false
	}
	if it.State != "published" {
		return false
	}
	return !it.EndsAt.IsZero() && it.EndsAt.After(now)
}

// titleMatchesAny reports whether the title contains at least one of the
// category-relevance keywords, case-insensitively.
func titleMatchesAny(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
