// Package band parses human-readable budget range labels ("AED1M – AED2M",
// "Above AED15M") into numeric bounds. Labels come from a closed option list
// on the frontend, so the parser is total: anything it does not recognize
// yields an unknown range instead of an error.
package band

import (
	"regexp"
	"strconv"
	"strings"
)

// Range is a parsed budget band. Min and Max are nil for open bounds.
// Known is false when the label could not be parsed at all, which lets
// callers tell "no data" apart from "unparseable data".
type Range struct {
	Min   *int64
	Max   *int64
	Known bool
}

// Unknown is the zero range returned for unrecognized labels.
var Unknown = Range{}

var amountRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(k|m)?`)

// Parse converts a band label into a Range. It never returns an error:
// unrecognized input produces Unknown.
//
//	"AED1M – AED2M"  -> {Min: 1_000_000, Max: 2_000_000}
//	"Above AED15M"   -> {Min: 15_000_000, Max: nil}
//	"Under AED100K"  -> {Min: nil, Max: 100_000}
func Parse(label string) Range {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return Unknown
	}

	lower := strings.ToLower(trimmed)
	amounts := parseAmounts(trimmed)
	if len(amounts) == 0 {
		return Unknown
	}

	openLow := strings.HasPrefix(lower, "under") || strings.HasPrefix(lower, "below") || strings.HasPrefix(lower, "up to")
	openHigh := strings.HasPrefix(lower, "above") || strings.HasPrefix(lower, "over")

	switch {
	case openLow:
		return Range{Max: &amounts[0], Known: true}
	case openHigh:
		return Range{Min: &amounts[0], Known: true}
	case len(amounts) >= 2:
		return Range{Min: &amounts[0], Max: &amounts[1], Known: true}
	default:
		// Single bound with no qualifier is treated as open-ended upward.
		return Range{Min: &amounts[0], Known: true}
	}
}

func parseAmounts(s string) []int64 {
	matches := amountRe.FindAllStringSubmatch(s, 2)
	out := make([]int64, 0, len(matches))
	for _, m := range matches {
		raw := strings.ReplaceAll(m[1], ",", "")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "k":
			value *= 1_000
		case "m":
			value *= 1_000_000
		}
		out = append(out, int64(value))
	}
	return out
}
