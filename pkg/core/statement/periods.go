package statement

import (
	"fmt"
	"regexp"
	"strconv"
)

// Period label recognition. Filings write the same fiscal year many ways
// ("2023", "FY23", "2023年度", "截至2023年12月31日", "民國112年度"); all of
// them canonicalize to "FY<year>".

var (
	reFY        = regexp.MustCompile(`(?i)\bFY\s?(\d{2}|\d{4})\b`)
	reYearCJK   = regexp.MustCompile(`(19|20)(\d{2})\s*年`)
	reMinguo    = regexp.MustCompile(`民國\s*(\d{2,3})\s*年`)
	reBareYear  = regexp.MustCompile(`\b(19|20)(\d{2})\b`)
	reYearEnded = regexp.MustCompile(`(?i)year[s]?\s+end(?:ed|ing)\b.*?\b(19|20)(\d{2})\b`)
)

// ParsePeriod canonicalizes a column header into a fiscal period label.
// Returns false for headers that carry no recognizable year.
func ParsePeriod(label string) (string, bool) {
	if m := reMinguo.FindStringSubmatch(label); m != nil {
		n, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("FY%d", n+1911), true
	}
	if m := reFY.FindStringSubmatch(label); m != nil {
		y, _ := strconv.Atoi(m[1])
		if y < 100 {
			y += 2000
		}
		return fmt.Sprintf("FY%d", y), true
	}
	if m := reYearEnded.FindStringSubmatch(label); m != nil {
		return "FY" + m[1] + m[2], true
	}
	if m := reYearCJK.FindStringSubmatch(label); m != nil {
		return "FY" + m[1] + m[2], true
	}
	if m := reBareYear.FindStringSubmatch(label); m != nil {
		return "FY" + m[1] + m[2], true
	}
	return "", false
}

// PeriodYear extracts the numeric year from a canonical "FY<year>" label.
func PeriodYear(period string) (int, bool) {
	if len(period) != 6 || period[:2] != "FY" {
		return 0, false
	}
	y, err := strconv.Atoi(period[2:])
	if err != nil {
		return 0, false
	}
	return y, true
}
