package eval

import (
	"strings"

	"github.com/shopspring/decimal"
)

// unitGroup maps convertible units to their size in the group base unit.
type unitGroup map[string]decimal.Decimal

var pi = decimal.RequireFromString("3.14159265358979323846264338327950288")

func ratio(a, b int64) decimal.Decimal {
	return decimal.NewFromInt(a).DivRound(decimal.NewFromInt(b), divPrecision)
}

var unitGroups = []unitGroup{
	{ // lengths, in px
		"px": decimal.NewFromInt(1),
		"in": decimal.NewFromInt(96),
		"pc": decimal.NewFromInt(16),
		"pt": ratio(4, 3),
		"cm": decimal.NewFromInt(9600).DivRound(decimal.NewFromInt(254), divPrecision),
		"mm": decimal.NewFromInt(960).DivRound(decimal.NewFromInt(254), divPrecision),
		"q":  decimal.NewFromInt(240).DivRound(decimal.NewFromInt(254), divPrecision),
	},
	{ // angles, in deg
		"deg":  decimal.NewFromInt(1),
		"grad": ratio(9, 10),
		"rad":  decimal.NewFromInt(180).DivRound(pi, divPrecision),
		"turn": decimal.NewFromInt(360),
	},
	{ // time, in s
		"s":  decimal.NewFromInt(1),
		"ms": ratio(1, 1000),
	},
	{ // frequency, in Hz
		"hz":  decimal.NewFromInt(1),
		"khz": decimal.NewFromInt(1000),
	},
	{ // resolution, in dpi
		"dpi":  decimal.NewFromInt(1),
		"dpcm": ratio(254, 100),
		"dppx": decimal.NewFromInt(96),
	},
}

func groupOf(unit string) (unitGroup, bool) {
	u := strings.ToLower(unit)
	for _, g := range unitGroups {
		if _, ok := g[u]; ok {
			return g, true
		}
	}
	return nil, false
}

// conversionFactor returns multiplier converting value in unit from to unit
// to, false when units are not compatible.
func conversionFactor(from, to string) (decimal.Decimal, bool) {
	if from == to {
		return decimal.NewFromInt(1), true
	}
	g, ok := groupOf(from)
	if !ok {
		return decimal.Decimal{}, false
	}
	f, ok := g[strings.ToLower(from)]
	if !ok {
		return decimal.Decimal{}, false
	}
	t, ok := g[strings.ToLower(to)]
	if !ok {
		return decimal.Decimal{}, false
	}
	return f.DivRound(t, divPrecision), true
}
