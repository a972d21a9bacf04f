// Package models holds the presentation-layer view of a comparison run.
// Everything here is display shaping; the engines upstream keep full
// precision.
package models

import (
	"fmt"
	"sort"
	"strings"

	"annualcompare/pkg/core/align"
	"annualcompare/pkg/core/metrics"
)

// MetricsRow is one ratio across every company at one period rank.
type MetricsRow struct {
	Ratio    string
	Category string
	Rank     int
	Cells    map[string]string // company -> formatted value or reason
}

// MetricsTable is the rendered comparison.
type MetricsTable struct {
	Companies []string
	Rows      []MetricsRow
}

// BuildTable pivots ratio results into rows keyed by (ratio, rank) with one
// column per company. Undefined ratios show their reason, never a zero.
func BuildTable(grid *align.Grid, ratios []metrics.RatioResult) *MetricsTable {
	table := &MetricsTable{}
	if grid != nil {
		table.Companies = grid.Companies
	}

	type rowKey struct {
		name string
		rank int
	}
	rows := map[rowKey]*MetricsRow{}
	var order []rowKey

	for _, r := range ratios {
		key := rowKey{r.Name, r.Rank}
		row, ok := rows[key]
		if !ok {
			row = &MetricsRow{Ratio: r.Name, Category: r.Category, Rank: r.Rank, Cells: map[string]string{}}
			rows[key] = row
			order = append(order, key)
		}
		if r.Value != nil {
			row.Cells[r.Company] = FormatValue(r.Name, *r.Value)
		} else {
			row.Cells[r.Company] = "n/a (" + r.Reason + ")"
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].rank != order[j].rank {
			return order[i].rank < order[j].rank
		}
		return false
	})
	for _, key := range order {
		table.Rows = append(table.Rows, *rows[key])
	}
	return table
}

// FormatValue renders a ratio for display. Margin and growth ratios show as
// percentages, day counts as whole days, multiples with two decimals.
func FormatValue(name string, v float64) string {
	switch {
	case strings.HasSuffix(name, "_margin"), strings.HasSuffix(name, "_yoy"),
		strings.HasSuffix(name, "_cagr_3y"), name == "roe", name == "roa", name == "debt_ratio":
		return fmt.Sprintf("%.1f%%", v*100)
	case strings.HasSuffix(name, "_days"):
		return fmt.Sprintf("%.0f days", v)
	default:
		return fmt.Sprintf("%.2fx", v)
	}
}

// Render writes the table as aligned plain text.
func (t *MetricsTable) Render() string {
	var sb strings.Builder

	widths := make([]int, len(t.Companies)+1)
	widths[0] = len("ratio (rank)")
	for ci, company := range t.Companies {
		widths[ci+1] = len(company)
	}
	type line []string
	var lines []line
	for _, row := range t.Rows {
		l := make(line, len(t.Companies)+1)
		l[0] = fmt.Sprintf("%s (t-%d)", row.Ratio, row.Rank)
		for ci, company := range t.Companies {
			cell := row.Cells[company]
			if cell == "" {
				cell = "n/a"
			}
			l[ci+1] = cell
		}
		for i, cell := range l {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
		lines = append(lines, l)
	}

	header := make(line, len(t.Companies)+1)
	header[0] = "ratio (rank)"
	copy(header[1:], t.Companies)
	writeLine := func(l line) {
		for i, cell := range l {
			if i > 0 {
				sb.WriteString("  ")
			}
			fmt.Fprintf(&sb, "%-*s", widths[i], cell)
		}
		sb.WriteByte('\n')
	}
	writeLine(header)
	for _, l := range lines {
		writeLine(l)
	}
	return sb.String()
}
