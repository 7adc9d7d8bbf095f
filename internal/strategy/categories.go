// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

import (
	"regexp"
	"strings"
)

// Category is the closed set of item classes with their own fallback plans.
type Category string

const (
	CategoryJewelry    Category = "jewelry"
	CategoryWatch      Category = "watch"
	CategoryInstrument Category = "instrument"
	CategoryGeneric    Category = "generic"
)

// Classification is driven by the keyword tables below rather than inline
// pattern literals, so it stays testable in isolation.

// jewelryKeywords are object-type words that indicate jewelry when combined
// with a measurement or weight pattern.
var jewelryKeywords = map[string]bool{
	"ring":             true,
	"halsband":         true,
	"armband":          true,
	"brosch":           true,
	"collier":          true,
	"örhängen":         true,
	"hängsmycke":       true,
	"smycke":           true,
	"berlock":          true,
	"manschettknappar": true,
}

// measurementPattern matches weight, fineness, and size notations common in
// jewelry catalog text ("18k", "5,2 g", "0,25 ct", "750/1000").
var measurementPattern = regexp.MustCompile(`(?i)\b\d+([.,]\d+)?\s*(k\b|karat|ct\b|carat|g\b|gram|mm\b|/1000)`)

// watchKeywords are object-type words for the watch category.
var watchKeywords = map[string]bool{
	"armbandsur":  true,
	"fickur":      true,
	"klocka":      true,
	"ur":          true,
	"kronograf":   true,
	"wristwatch":  true,
	"chronograph": true,
}

// instrumentKeywords are object-type words for musical and electronic
// instruments.
var instrumentKeywords = map[string]bool{
	"synthesizer": true,
	"synth":       true,
	"keyboard":    true,
	"gitarr":      true,
	"elgitarr":    true,
	"bas":         true,
	"piano":       true,
	"flygel":      true,
	"orgel":       true,
	"dragspel":    true,
	"violin":      true,
	"fiol":        true,
	"trummaskin":  true,
	"sampler":     true,
	"sequencer":   true,
	"förstärkare": true,
	"amplifier":   true,
}

// instrumentBrands are makers whose presence alone classifies the item as
// an instrument, model number or not.
var instrumentBrands = map[string]bool{
	"yamaha":     true,
	"roland":     true,
	"korg":       true,
	"moog":       true,
	"fender":     true,
	"gibson":     true,
	"casio":      true,
	"akai":       true,
	"oberheim":   true,
	"sequential": true,
	"hammond":    true,
	"rhodes":     true,
	"marshall":   true,
}

// modelPattern matches alphanumeric model designations: two to four
// letters followed by one to four digits, optionally hyphenated
// ("DX7", "TR-808", "JP8000").
var modelPattern = regexp.MustCompile(`\b([A-Za-z]{2,4})-?(\d{1,4})\b`)

// Detect classifies the item from its combined attribute text. The checks
// run jewelry, watch, instrument, generic in that order; the first match
// wins.
func Detect(artist, objectType, period, technique string) Category {
	combined := strings.ToLower(strings.Join([]string{artist, objectType, period, technique}, " "))
	words := strings.Fields(combined)

	hasWord := func(table map[string]bool) bool {
		for _, w := range words {
			if table[strings.Trim(w, ",.()")] {
				return true
			}
		}
		return false
	}

	if hasWord(jewelryKeywords) && measurementPattern.MatchString(combined) {
		return CategoryJewelry
	}
	if hasWord(watchKeywords) {
		return CategoryWatch
	}
	if hasWord(instrumentKeywords) || hasWord(instrumentBrands) || modelPattern.MatchString(combined) {
		// A bare model pattern only counts when a brand-like artist is
		// present; otherwise catalog numbers on furniture would match.
		if hasWord(instrumentKeywords) || hasWord(instrumentBrands) {
			return CategoryInstrument
		}
		if artist != "" && modelPattern.MatchString(strings.ToLower(objectType+" "+technique)) {
			return CategoryInstrument
		}
	}
	return CategoryGeneric
}

// ExtractModel returns the first model designation found in the combined
// object/technique text, normalized to upper case, or "" when none.
func ExtractModel(objectType, technique string) string {
	m := modelPattern.FindString(objectType + " " + technique)
	return strings.ToUpper(m)
}

// CategoryKeywords returns the relevance vocabulary for a category, used by
// the live-search filter to reject off-topic listings on broad fallback
// queries.
func CategoryKeywords(c Category) []string {
	var table map[string]bool
	switch c {
	case CategoryJewelry:
		table = jewelryKeywords
	case CategoryWatch:
		table = watchKeywords
	case CategoryInstrument:
		table = instrumentKeywords
	default:
		return nil
	}

	keywords := make([]string, 0, len(table)+len(instrumentBrands))
	for w := range table {
		keywords = append(keywords, w)
	}
	if c == CategoryInstrument {
		for w := range instrumentBrands {
			keywords = append(keywords, w)
		}
	}
	return keywords
}
