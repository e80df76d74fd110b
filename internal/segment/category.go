// Package segment turns text into ordered sound events.
package segment

import "golang.org/x/text/unicode/norm"

// Category classifies a code point.
type Category int

const (
	Other Category = iota
	Scripted
	Latin
	Digit
	Symbol
)

func (c Category) String() string {
	switch c {
	case Scripted:
		return "scripted"
	case Latin:
		return "latin"
	case Digit:
		return "digit"
	case Symbol:
		return "symbol"
	default:
		return "other"
	}
}

const (
	hangulSyllableFirst = 0xAC00
	hangulSyllableLast  = 0xD7A3
	hangulJamoFirst     = 0x3131
	hangulJamoLast      = 0x3163
)

// Run is a maximal substring whose code points share one category.
type Run struct {
	Category Category
	Text     string
}

// Classify returns the category of r by code-point range.
func Classify(r rune) Category {
	switch {
	case r >= hangulSyllableFirst && r <= hangulSyllableLast:
		return Scripted
	case r >= hangulJamoFirst && r <= hangulJamoLast:
		return Scripted
	case (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
		return Latin
	case r >= '0' && r <= '9':
		return Digit
	case r <= 127:
		return Symbol
	default:
		return Other
	}
}

// Segment splits NFC-normalized text into runs in original order.
func Segment(text string) []Run {
	text = norm.NFC.String(text)

	var runs []Run
	start := 0
	current := Other
	for i, r := range text {
		category := Classify(r)
		if i > 0 && category != current {
			runs = append(runs, Run{Category: current, Text: text[start:i]})
			start = i
		}
		current = category
	}
	if start < len(text) {
		runs = append(runs, Run{Category: current, Text: text[start:]})
	}
	return runs
}
