package metrics

import (
	"fmt"
	"math"

	"annualcompare/pkg/core/align"
	"annualcompare/pkg/core/diag"
	"annualcompare/pkg/core/normalize"
)

// RatioResult is one computed ratio for one company at one period rank.
// Value is nil when the ratio is undefined; Reason then says why.
type RatioResult struct {
	Company  string
	Rank     int
	Name     string
	Category string
	Value    *float64
	Inputs   []normalize.Concept
	Reason   string
}

// Engine computes the ratio catalogue over an aligned grid. Ratios are
// never silently zeroed: an uncomputable ratio yields a nil value with a
// machine-readable reason.
type Engine struct {
	// Categories restricts computation to the named categories; empty
	// means all.
	Categories []string
}

// Categories in catalogue order.
const (
	CategoryProfitability = "profitability"
	CategoryGrowth        = "growth"
	CategoryEfficiency    = "efficiency"
	CategoryLeverage      = "leverage"
	CategoryCashQuality   = "cash_quality"
)

// Compute evaluates every selected ratio for every company and rank in the
// grid. Results come back in deterministic order: company, then rank, then
// catalogue order.
func (e *Engine) Compute(grid *align.Grid) ([]RatioResult, []diag.Diagnostic) {
	selected := e.selectedCategories()

	var results []RatioResult
	var diags []diag.Diagnostic

	for _, company := range grid.Companies {
		for rank := 0; rank < grid.Window; rank++ {
			cell := &cellReader{grid: grid, company: company, rank: rank}
			for _, def := range catalogue {
				if !selected[def.category] {
					continue
				}
				value, reason := def.compute(cell)
				result := RatioResult{
					Company:  company,
					Rank:     rank,
					Name:     def.name,
					Category: def.category,
					Inputs:   def.inputs,
					Reason:   reason,
				}
				if reason == "" {
					v := value
					result.Value = &v
				} else {
					diags = append(diags, diag.Diagnostic{
						Kind:    diag.KindRatioUndefined,
						Company: company,
						Detail:  fmt.Sprintf("%s rank %d: %s", def.name, rank, reason),
					})
				}
				results = append(results, result)
			}
		}
	}
	return results, diags
}

func (e *Engine) selectedCategories() map[string]bool {
	all := []string{
		CategoryProfitability, CategoryGrowth, CategoryEfficiency,
		CategoryLeverage, CategoryCashQuality,
	}
	selected := map[string]bool{}
	if len(e.Categories) == 0 {
		for _, c := range all {
			selected[c] = true
		}
		return selected
	}
	for _, c := range e.Categories {
		selected[c] = true
	}
	return selected
}

// cellReader gives ratio formulas access to one company-rank cell and the
// earlier ranks behind it.
type cellReader struct {
	grid    *align.Grid
	company string
	rank    int
}

func (c *cellReader) get(concept normalize.Concept) (float64, bool) {
	return c.grid.Value(c.company, c.rank, concept)
}

func (c *cellReader) at(offset int, concept normalize.Concept) (float64, bool) {
	if c.rank+offset >= c.grid.Window {
		return 0, false
	}
	return c.grid.Value(c.company, c.rank+offset, concept)
}

// need fetches concepts for the current rank, reporting the first one
// missing.
func (c *cellReader) need(concepts ...normalize.Concept) ([]float64, string) {
	values := make([]float64, len(concepts))
	for i, concept := range concepts {
		v, ok := c.get(concept)
		if !ok {
			return nil, "missing concept: " + string(concept)
		}
		values[i] = v
	}
	return values, ""
}

func div(num, den float64, denName normalize.Concept) (float64, string) {
	if den == 0 {
		return 0, "zero denominator: " + string(denName)
	}
	return num / den, ""
}

// avgWithPrior averages a balance concept with its prior-period value,
// falling back to the ending value when the prior period is outside the
// window or missing.
func (c *cellReader) avgWithPrior(concept normalize.Concept) (float64, string) {
	ending, ok := c.get(concept)
	if !ok {
		return 0, "missing concept: " + string(concept)
	}
	if prior, ok := c.at(1, concept); ok {
		return (ending + prior) / 2, ""
	}
	return ending, ""
}

type ratioDef struct {
	name     string
	category string
	inputs   []normalize.Concept
	compute  func(c *cellReader) (float64, string)
}

var catalogue = []ratioDef{
	{
		name: "gross_margin", category: CategoryProfitability,
		inputs: []normalize.Concept{normalize.Revenue, normalize.COGS},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.Revenue, normalize.COGS)
			if reason != "" {
				return 0, reason
			}
			return div(v[0]-v[1], v[0], normalize.Revenue)
		},
	},
	{
		name: "operating_margin", category: CategoryProfitability,
		inputs: []normalize.Concept{normalize.OperatingIncome, normalize.Revenue},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.OperatingIncome, normalize.Revenue)
			if reason != "" {
				return 0, reason
			}
			return div(v[0], v[1], normalize.Revenue)
		},
	},
	{
		name: "net_margin", category: CategoryProfitability,
		inputs: []normalize.Concept{normalize.NetIncome, normalize.Revenue},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.NetIncome, normalize.Revenue)
			if reason != "" {
				return 0, reason
			}
			return div(v[0], v[1], normalize.Revenue)
		},
	},
	{
		name: "roe", category: CategoryProfitability,
		inputs: []normalize.Concept{normalize.NetIncome, normalize.TotalEquity},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.NetIncome)
			if reason != "" {
				return 0, reason
			}
			equity, reason := c.avgWithPrior(normalize.TotalEquity)
			if reason != "" {
				return 0, reason
			}
			return div(v[0], equity, normalize.TotalEquity)
		},
	},
	{
		name: "roa", category: CategoryProfitability,
		inputs: []normalize.Concept{normalize.NetIncome, normalize.TotalAssets},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.NetIncome)
			if reason != "" {
				return 0, reason
			}
			assets, reason := c.avgWithPrior(normalize.TotalAssets)
			if reason != "" {
				return 0, reason
			}
			return div(v[0], assets, normalize.TotalAssets)
		},
	},
	{
		name: "ebitda_margin", category: CategoryProfitability,
		inputs: []normalize.Concept{normalize.OperatingIncome, normalize.DepreciationAmortization, normalize.Revenue},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.OperatingIncome, normalize.DepreciationAmortization, normalize.Revenue)
			if reason != "" {
				return 0, reason
			}
			return div(v[0]+v[1], v[2], normalize.Revenue)
		},
	},

	{
		name: "revenue_yoy", category: CategoryGrowth,
		inputs: []normalize.Concept{normalize.Revenue},
		compute: func(c *cellReader) (float64, string) {
			return c.yoy(normalize.Revenue)
		},
	},
	{
		name: "net_income_yoy", category: CategoryGrowth,
		inputs: []normalize.Concept{normalize.NetIncome},
		compute: func(c *cellReader) (float64, string) {
			return c.yoy(normalize.NetIncome)
		},
	},
	{
		name: "revenue_cagr_3y", category: CategoryGrowth,
		inputs: []normalize.Concept{normalize.Revenue},
		compute: func(c *cellReader) (float64, string) {
			current, ok := c.get(normalize.Revenue)
			if !ok {
				return 0, "missing concept: " + string(normalize.Revenue)
			}
			base, ok := c.at(3, normalize.Revenue)
			if !ok {
				return 0, "insufficient window"
			}
			if base == 0 {
				return 0, "zero denominator: " + string(normalize.Revenue)
			}
			if base < 0 || current < 0 {
				return 0, "negative base: " + string(normalize.Revenue)
			}
			return math.Pow(current/base, 1.0/3.0) - 1, ""
		},
	},

	{
		name: "asset_turnover", category: CategoryEfficiency,
		inputs: []normalize.Concept{normalize.Revenue, normalize.TotalAssets},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.Revenue)
			if reason != "" {
				return 0, reason
			}
			assets, reason := c.avgWithPrior(normalize.TotalAssets)
			if reason != "" {
				return 0, reason
			}
			return div(v[0], assets, normalize.TotalAssets)
		},
	},
	{
		name: "inventory_days", category: CategoryEfficiency,
		inputs: []normalize.Concept{normalize.Inventory, normalize.COGS},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.Inventory, normalize.COGS)
			if reason != "" {
				return 0, reason
			}
			return div(365*v[0], v[1], normalize.COGS)
		},
	},
	{
		name: "receivable_days", category: CategoryEfficiency,
		inputs: []normalize.Concept{normalize.AccountsReceivable, normalize.Revenue},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.AccountsReceivable, normalize.Revenue)
			if reason != "" {
				return 0, reason
			}
			return div(365*v[0], v[1], normalize.Revenue)
		},
	},

	{
		name: "debt_ratio", category: CategoryLeverage,
		inputs: []normalize.Concept{normalize.TotalLiabilities, normalize.TotalAssets},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.TotalLiabilities, normalize.TotalAssets)
			if reason != "" {
				return 0, reason
			}
			return div(v[0], v[1], normalize.TotalAssets)
		},
	},
	{
		name: "debt_to_ebitda", category: CategoryLeverage,
		inputs: []normalize.Concept{normalize.TotalLiabilities, normalize.OperatingIncome, normalize.DepreciationAmortization},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.TotalLiabilities, normalize.OperatingIncome, normalize.DepreciationAmortization)
			if reason != "" {
				return 0, reason
			}
			return div(v[0], v[1]+v[2], normalize.OperatingIncome)
		},
	},
	{
		name: "interest_coverage", category: CategoryLeverage,
		inputs: []normalize.Concept{normalize.OperatingIncome, normalize.InterestExpense},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.OperatingIncome, normalize.InterestExpense)
			if reason != "" {
				return 0, reason
			}
			return div(v[0], math.Abs(v[1]), normalize.InterestExpense)
		},
	},

	{
		name: "ocf_to_ni", category: CategoryCashQuality,
		inputs: []normalize.Concept{normalize.OperatingCashFlow, normalize.NetIncome},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.OperatingCashFlow, normalize.NetIncome)
			if reason != "" {
				return 0, reason
			}
			return div(v[0], v[1], normalize.NetIncome)
		},
	},
	{
		name: "fcf_margin", category: CategoryCashQuality,
		inputs: []normalize.Concept{normalize.OperatingCashFlow, normalize.CapEx, normalize.Revenue},
		compute: func(c *cellReader) (float64, string) {
			v, reason := c.need(normalize.OperatingCashFlow, normalize.CapEx, normalize.Revenue)
			if reason != "" {
				return 0, reason
			}
			return div(v[0]-math.Abs(v[1]), v[2], normalize.Revenue)
		},
	},
}

// yoy computes period-over-period growth against the prior rank.
func (c *cellReader) yoy(concept normalize.Concept) (float64, string) {
	current, ok := c.get(concept)
	if !ok {
		return 0, "missing concept: " + string(concept)
	}
	prior, ok := c.at(1, concept)
	if !ok {
		return 0, "missing prior period"
	}
	if prior == 0 {
		return 0, "zero denominator: " + string(concept)
	}
	// Growth is the change over the magnitude of the prior value, so a
	// recovery from a loss reads as positive growth.
	return (current - prior) / math.Abs(prior), ""
}
