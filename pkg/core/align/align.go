package align

import (
	"fmt"
	"sort"

	"annualcompare/pkg/core/diag"
	"annualcompare/pkg/core/normalize"
	"annualcompare/pkg/core/statement"
)

// Grid is the aligned comparison structure: company x fiscal period rank x
// concept. Rank 0 is each company's most recent period, rank 1 the one
// before it, so companies with offset fiscal calendars still line up.
type Grid struct {
	Companies []string // sorted
	Window    int

	periods map[string][]string // company -> period label per rank
	cells   map[cellKey]float64
}

type cellKey struct {
	company string
	rank    int
	concept normalize.Concept
}

// Build constructs the grid from normalized line items. The result is
// deterministic for any input order: duplicate observations of the same
// cell resolve to the highest confidence, then to the most recently parsed.
func Build(items []normalize.NormalizedLineItem, window int) (*Grid, []diag.Diagnostic) {
	if window <= 0 {
		window = 3
	}

	g := &Grid{
		Window:  window,
		periods: map[string][]string{},
		cells:   map[cellKey]float64{},
	}
	var diags []diag.Diagnostic

	// Collect each company's observed periods, newest first.
	periodSets := map[string]map[string]bool{}
	for _, item := range items {
		if _, ok := statement.PeriodYear(item.Period); !ok {
			continue
		}
		if periodSets[item.Company] == nil {
			periodSets[item.Company] = map[string]bool{}
		}
		periodSets[item.Company][item.Period] = true
	}

	for company, set := range periodSets {
		g.Companies = append(g.Companies, company)
		periods := make([]string, 0, len(set))
		for p := range set {
			periods = append(periods, p)
		}
		sort.Slice(periods, func(i, j int) bool {
			yi, _ := statement.PeriodYear(periods[i])
			yj, _ := statement.PeriodYear(periods[j])
			return yi > yj
		})

		ranked := make([]string, window)
		for rank := 0; rank < window; rank++ {
			if rank < len(periods) {
				ranked[rank] = periods[rank]
			} else {
				diags = append(diags, diag.Diagnostic{
					Kind:    diag.KindAlignmentGap,
					Company: company,
					Detail:  fmt.Sprintf("no period at rank %d, window %d", rank, window),
				})
			}
		}
		g.periods[company] = ranked
	}
	sort.Strings(g.Companies)

	// Resolve duplicates deterministically: process worst candidates first
	// and let better ones overwrite.
	sorted := make([]normalize.NormalizedLineItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence < sorted[j].Confidence
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	for _, item := range sorted {
		rank, ok := g.rankOf(item.Company, item.Period)
		if !ok {
			continue
		}
		g.cells[cellKey{item.Company, rank, item.Concept}] = item.Value
	}
	return g, diags
}

func (g *Grid) rankOf(company, period string) (int, bool) {
	for rank, p := range g.periods[company] {
		if p != "" && p == period {
			return rank, true
		}
	}
	return 0, false
}

// Value reads one cell. The second return is false when the cell is
// missing, either because the period is absent or the concept never
// normalized for it.
func (g *Grid) Value(company string, rank int, concept normalize.Concept) (float64, bool) {
	v, ok := g.cells[cellKey{company, rank, concept}]
	return v, ok
}

// PeriodLabel returns the fiscal period behind a rank for one company, or
// "" when the company has no period at that rank.
func (g *Grid) PeriodLabel(company string, rank int) string {
	ranked := g.periods[company]
	if rank < 0 || rank >= len(ranked) {
		return ""
	}
	return ranked[rank]
}

// Concepts lists every concept present anywhere in the grid, sorted.
func (g *Grid) Concepts() []normalize.Concept {
	seen := map[normalize.Concept]bool{}
	for key := range g.cells {
		seen[key.concept] = true
	}
	concepts := make([]normalize.Concept, 0, len(seen))
	for c := range seen {
		concepts = append(concepts, c)
	}
	sort.Slice(concepts, func(i, j int) bool { return concepts[i] < concepts[j] })
	return concepts
}
