// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteTerm(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"stol", "stol"},
		{"Carl Malmsten", `"Carl Malmsten"`},
		{`"Carl Malmsten"`, `"Carl Malmsten"`},
		{`  "Carl Malmsten"  `, `"Carl Malmsten"`},
		{"DX7", "DX7"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, QuoteTerm(tc.in), "QuoteTerm(%q)", tc.in)
	}
}

func TestBuildQueryString(t *testing.T) {
	terms := []SearchTerm{
		{Text: "stol", Kind: KindObjectType, Priority: 80, Selected: true},
		{Text: "Carl Malmsten", Kind: KindArtist, Priority: 100, Selected: true},
		{Text: "björk", Kind: KindMaterial, Priority: 60, Selected: false},
		{Text: "  ", Kind: KindKeyword, Priority: 90, Selected: true},
	}

	got := BuildQueryString(terms)
	assert.Equal(t, `"Carl Malmsten" stol`, got)

	// Byte-stable on repeat calls.
	assert.Equal(t, got, BuildQueryString(terms))
}

func TestBuildQueryStringTiesKeepInputOrder(t *testing.T) {
	terms := []SearchTerm{
		{Text: "alpha", Priority: 50, Selected: true},
		{Text: "beta", Priority: 50, Selected: true},
	}
	assert.Equal(t, "alpha beta", BuildQueryString(terms))
}

func TestIsProtected(t *testing.T) {
	cases := []struct {
		name string
		term SearchTerm
		want bool
	}{
		{"ai artist", SearchTerm{Kind: KindArtist, Provenance: ProvenanceAIDetected, Priority: 80}, true},
		{"high priority artist", SearchTerm{Kind: KindArtist, Provenance: ProvenanceUserSelected, Priority: 95}, true},
		{"low priority user artist", SearchTerm{Kind: KindArtist, Provenance: ProvenanceUserSelected, Priority: 50}, false},
		{"ai object type", SearchTerm{Kind: KindObjectType, Provenance: ProvenanceAIDetected, Priority: 100}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.term.IsProtected())
		})
	}
}

func TestSalePrice(t *testing.T) {
	sold := ListingRecord{IsSold: true, FinalPrice: 1200}
	price, ok := sold.SalePrice()
	assert.True(t, ok)
	assert.Equal(t, 1200.0, price)

	unsold := ListingRecord{IsSold: false, Estimate: 900}
	_, ok = unsold.SalePrice()
	assert.False(t, ok)
}
