package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit scale detection. The scale note usually sits in the table header
// ("單位:新台幣仟元", "in millions of US dollars"); values in the grid are
// multiplied by the detected factor so every normalized amount is in base
// currency units.

var scaleMarkers = []struct {
	marker string
	factor float64
}{
	// Largest first so "百萬" is not matched as "萬".
	{"億", 1e8}, {"亿", 1e8},
	{"百萬", 1e6}, {"百万", 1e6},
	{"仟元", 1e3}, {"千元", 1e3},
	{"萬元", 1e4}, {"万元", 1e4},
	{"in billions", 1e9},
	{"in millions", 1e6},
	{"in thousands", 1e3},
	{"$000s", 1e3}, {"(000s)", 1e3}, {"'000", 1e3},
}

// DetectScaleFactor inspects header text for a unit scale note. Returns 1
// when no marker is present.
func DetectScaleFactor(header string) float64 {
	lower := strings.ToLower(header)
	for _, m := range scaleMarkers {
		if strings.Contains(lower, m.marker) {
			return m.factor
		}
	}
	return 1
}

// missing cell markers used by report generators for "no figure".
var missingMarkers = map[string]bool{
	"-": true, "—": true, "–": true, "n/a": true, "na": true, "不適用": true,
}

// ParseAmount converts a raw cell into a number. Thousands separators are
// stripped; parentheses mean negative per accounting convention; dash-class
// markers mean the figure is absent rather than zero.
func ParseAmount(cell string) (float64, bool, error) {
	s := strings.TrimSpace(cell)
	if s == "" || missingMarkers[strings.ToLower(s)] {
		return 0, false, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.NewReplacer(",", "", "$", "", "%", "", " ", "").Replace(s)
	if s == "" {
		return 0, false, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("unparseable amount %q", cell)
	}
	if negative {
		v = -v
	}
	return v, true, nil
}
