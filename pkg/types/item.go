// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// ItemDescription is the cataloger's partial description of the item
// being valued. Every field may be empty; the engine works with whatever
// is present.
type ItemDescription struct {
	// Title is the free-text headline, e.g. "Stol, Carl Malmsten, björk".
	Title string `json:"title" yaml:"title"`

	// Description is the longer free-text body, may be empty.
	Description string `json:"description" yaml:"description"`

	// Artist is the detected artist, designer, maker, or brand.
	Artist string `json:"artist,omitempty" yaml:"artist,omitempty"`

	// ObjectType names what the thing is: "stol", "armbandsur", "synthesizer".
	ObjectType string `json:"object_type,omitempty" yaml:"object_type,omitempty"`

	// Period is a dating hint, e.g. "1950-tal" or "1900-talets mitt".
	Period string `json:"period,omitempty" yaml:"period,omitempty"`

	// Technique covers material or technique: "björk", "olja på duk".
	Technique string `json:"technique,omitempty" yaml:"technique,omitempty"`

	// Valuation is the cataloger's preliminary estimate in the reference
	// currency, zero when not yet set.
	Valuation float64 `json:"valuation,omitempty" yaml:"valuation,omitempty"`
}

// Empty reports whether the description carries no usable signal at all.
func (d ItemDescription) Empty() bool {
	return strings.TrimSpace(d.Title) == "" &&
		strings.TrimSpace(d.Description) == "" &&
		strings.TrimSpace(d.Artist) == "" &&
		strings.TrimSpace(d.ObjectType) == ""
}
