// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package strategy turns partial item attributes into an ordered list of
// marketplace query strategies, most specific first. Each category
// (jewelry, watch, instrument, generic) carries its own progressive
// fallback plan. See docs/ARCHITECTURE § Search Strategies.
package strategy

import (
	"strings"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

// Attributes is the partial item description a cataloger starts from.
type Attributes struct {
	Artist     string
	ObjectType string
	Period     string
	Technique  string
}

// Build produces the ordered strategy list for the item. Strategies are
// returned in descending weight order and never repeat a query string.
// When neither artist nor object type is present the list is empty and the
// caller must treat the item as unsearchable.
func Build(attrs Attributes) []types.SearchStrategy {
	artist := strings.TrimSpace(attrs.Artist)
	objectType := strings.TrimSpace(attrs.ObjectType)
	period := strings.TrimSpace(attrs.Period)
	technique := strings.TrimSpace(attrs.Technique)

	if artist == "" && objectType == "" {
		return nil
	}

	// Multi-word artist and brand names are always phrase-quoted so the
	// marketplace treats them as one unit.
	quotedArtist := ""
	if artist != "" {
		quotedArtist = types.QuoteTerm(artist)
	}

	var candidates []types.SearchStrategy
	switch Detect(artist, objectType, period, technique) {
	case CategoryJewelry:
		candidates = buildJewelry(quotedArtist, objectType, period, technique)
	case CategoryWatch:
		candidates = buildWatch(quotedArtist, objectType, technique)
	case CategoryInstrument:
		candidates = buildInstrument(quotedArtist, objectType, technique)
	default:
		candidates = buildGeneric(quotedArtist, objectType, period, technique)
	}

	return dedupe(candidates)
}

// buildGeneric is the default plan: artist-led combinations first, then
// object-led ones that survive without an artist at all.
func buildGeneric(artist, objectType, period, technique string) []types.SearchStrategy {
	var out []types.SearchStrategy

	if artist != "" {
		out = append(out,
			strategyOf(1.0, "artist + object type", artist, objectType),
			strategyOf(0.9, "artist + technique", artist, technique),
			strategyOf(0.8, "artist + period", artist, period),
			strategyOf(0.7, "artist only", artist),
		)
	}
	out = append(out,
		broad(strategyOf(0.6, "object type + technique + period", objectType, technique, period)),
		broad(strategyOf(0.5, "object type + period", objectType, period)),
	)
	if artist == "" {
		out = append(out, broad(strategyOf(0.4, "object type only", objectType)))
	}
	return out
}

// buildInstrument substitutes brand/model-aware combinations. The brand is
// whatever the artist field carries; the model is mined from the object
// and technique text.
func buildInstrument(brand, objectType, technique string) []types.SearchStrategy {
	model := ExtractModel(objectType, technique)
	instrumentWord := firstKeyword(objectType+" "+technique, instrumentKeywords)

	var out []types.SearchStrategy
	if brand != "" && model != "" {
		out = append(out, strategyOf(1.0, "brand + model", brand, model))
	}
	if model != "" {
		out = append(out, strategyOf(0.9, "model only", model))
	}
	if brand != "" && instrumentWord != "" {
		out = append(out, strategyOf(0.8, "brand + instrument type", brand, instrumentWord))
	}
	if brand != "" {
		out = append(out, strategyOf(0.7, "brand only", brand))
	}
	if instrumentWord != "" {
		out = append(out, broad(strategyOf(0.5, "instrument type only", instrumentWord)))
	} else if objectType != "" {
		out = append(out, broad(strategyOf(0.5, "object type only", objectType)))
	}
	return out
}

// buildWatch favors maker plus reference, then maker plus type.
func buildWatch(brand, objectType, technique string) []types.SearchStrategy {
	reference := ExtractModel(objectType, technique)
	watchWord := firstKeyword(objectType+" "+technique, watchKeywords)
	if watchWord == "" {
		watchWord = objectType
	}

	var out []types.SearchStrategy
	if brand != "" && reference != "" {
		out = append(out, strategyOf(1.0, "brand + reference", brand, reference))
	}
	if brand != "" {
		out = append(out,
			strategyOf(0.9, "brand + watch type", brand, watchWord),
			strategyOf(0.7, "brand only", brand),
		)
	}
	out = append(out, broad(strategyOf(0.5, "watch type only", watchWord)))
	return out
}

// buildJewelry keeps material terms in the mix; "18k guldring" sells on
// material as much as on maker.
func buildJewelry(maker, objectType, period, technique string) []types.SearchStrategy {
	jewelryWord := firstKeyword(objectType, jewelryKeywords)
	if jewelryWord == "" {
		jewelryWord = objectType
	}

	var out []types.SearchStrategy
	if maker != "" {
		out = append(out,
			strategyOf(1.0, "maker + jewelry type", maker, jewelryWord),
			strategyOf(0.9, "maker + technique", maker, technique),
			strategyOf(0.7, "maker only", maker),
		)
	}
	out = append(out,
		broad(strategyOf(0.6, "jewelry type + technique", jewelryWord, technique)),
		broad(strategyOf(0.5, "jewelry type + period", jewelryWord, period)),
		broad(strategyOf(0.4, "jewelry type only", jewelryWord)),
	)
	return out
}

// strategyOf joins the parts into one query. A strategy missing any of its
// named parts is dropped (zero strategy) rather than silently collapsing
// into a broader combination that already exists further down the plan.
func strategyOf(weight float64, description string, parts ...string) types.SearchStrategy {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return types.SearchStrategy{}
		}
		kept = append(kept, p)
	}
	return types.SearchStrategy{
		Query:       strings.Join(kept, " "),
		Description: description,
		Weight:      weight,
	}
}

// broad flags a combination that carries no artist, brand or model token.
// A zero strategy stays zero so dedupe still drops it.
func broad(s types.SearchStrategy) types.SearchStrategy {
	if s.Query == "" {
		return s
	}
	s.Broad = true
	return s
}

// dedupe drops zero strategies and later duplicates of an earlier query.
func dedupe(in []types.SearchStrategy) []types.SearchStrategy {
	seen := make(map[string]bool, len(in))
	var out []types.SearchStrategy
	for _, s := range in {
		if s.Query == "" || seen[s.Query] {
			continue
		}
		seen[s.Query] = true
		out = append(out, s)
	}
	return out
}

// firstKeyword returns the first word of text present in table, or "".
func firstKeyword(text string, table map[string]bool) string {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ",.()")
		if table[w] {
			return w
		}
	}
	return ""
}
