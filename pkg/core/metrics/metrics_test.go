package metrics

import (
	"math"
	"testing"

	"annualcompare/pkg/core/align"
	"annualcompare/pkg/core/diag"
	"annualcompare/pkg/core/normalize"
)

func buildGrid(t *testing.T, items []normalize.NormalizedLineItem, window int) *align.Grid {
	t.Helper()
	g, _ := align.Build(items, window)
	return g
}

func obs(company string, concept normalize.Concept, period string, value float64, seq int) normalize.NormalizedLineItem {
	return normalize.NormalizedLineItem{
		Company: company, Concept: concept, Period: period,
		Value: value, Confidence: 1.0, Seq: seq,
	}
}

func findRatio(results []RatioResult, company, name string, rank int) *RatioResult {
	for i := range results {
		r := &results[i]
		if r.Company == company && r.Name == name && r.Rank == rank {
			return r
		}
	}
	return nil
}

func TestGrossMargin(t *testing.T) {
	grid := buildGrid(t, []normalize.NormalizedLineItem{
		obs("Acme", normalize.Revenue, "FY2023", 1000, 1),
		obs("Acme", normalize.COGS, "FY2023", 400, 2),
	}, 1)

	engine := &Engine{Categories: []string{CategoryProfitability}}
	results, _ := engine.Compute(grid)

	gm := findRatio(results, "Acme", "gross_margin", 0)
	if gm == nil || gm.Value == nil {
		t.Fatalf("gross_margin not computed: %+v", gm)
	}
	// (1000 - 400) / 1000 = 0.6
	if math.Abs(*gm.Value-0.6) > 1e-12 {
		t.Errorf("gross_margin = %v, want 0.6", *gm.Value)
	}
}

func TestGrossMarginMissingCOGS(t *testing.T) {
	grid := buildGrid(t, []normalize.NormalizedLineItem{
		obs("Acme", normalize.Revenue, "FY2023", 1000, 1),
	}, 1)

	engine := &Engine{Categories: []string{CategoryProfitability}}
	results, diags := engine.Compute(grid)

	gm := findRatio(results, "Acme", "gross_margin", 0)
	if gm == nil {
		t.Fatal("gross_margin result missing")
	}
	if gm.Value != nil {
		t.Errorf("gross_margin = %v, want nil", *gm.Value)
	}
	if gm.Reason != "missing concept: COGS" {
		t.Errorf("reason = %q, want %q", gm.Reason, "missing concept: COGS")
	}
	if diag.Count(diags, diag.KindRatioUndefined) == 0 {
		t.Error("expected RATIO_UNDEFINED diagnostic")
	}
}

func TestZeroDenominator(t *testing.T) {
	grid := buildGrid(t, []normalize.NormalizedLineItem{
		obs("Acme", normalize.Revenue, "FY2023", 0, 1),
		obs("Acme", normalize.COGS, "FY2023", 0, 2),
	}, 1)

	engine := &Engine{Categories: []string{CategoryProfitability}}
	results, _ := engine.Compute(grid)

	gm := findRatio(results, "Acme", "gross_margin", 0)
	if gm.Value != nil {
		t.Errorf("gross_margin with zero revenue = %v, want nil", *gm.Value)
	}
	if gm.Reason != "zero denominator: Revenue" {
		t.Errorf("reason = %q, want %q", gm.Reason, "zero denominator: Revenue")
	}
}

func TestRevenueYoY(t *testing.T) {
	grid := buildGrid(t, []normalize.NormalizedLineItem{
		obs("Acme", normalize.Revenue, "FY2023", 1100, 1),
		obs("Acme", normalize.Revenue, "FY2022", 1000, 2),
	}, 2)

	engine := &Engine{Categories: []string{CategoryGrowth}}
	results, _ := engine.Compute(grid)

	yoy := findRatio(results, "Acme", "revenue_yoy", 0)
	if yoy == nil || yoy.Value == nil {
		t.Fatalf("revenue_yoy not computed: %+v", yoy)
	}
	// (1100 - 1000) / 1000 = 0.1
	if math.Abs(*yoy.Value-0.1) > 1e-12 {
		t.Errorf("revenue_yoy = %v, want 0.1", *yoy.Value)
	}

	// The oldest rank has no prior period.
	oldest := findRatio(results, "Acme", "revenue_yoy", 1)
	if oldest.Value != nil || oldest.Reason != "missing prior period" {
		t.Errorf("oldest rank yoy = %+v, want missing prior period", oldest)
	}
}

func TestYoYNegativePrior(t *testing.T) {
	grid := buildGrid(t, []normalize.NormalizedLineItem{
		obs("Acme", normalize.NetIncome, "FY2023", 50, 1),
		obs("Acme", normalize.NetIncome, "FY2022", -100, 2),
	}, 2)

	engine := &Engine{Categories: []string{CategoryGrowth}}
	results, _ := engine.Compute(grid)

	yoy := findRatio(results, "Acme", "net_income_yoy", 0)
	if yoy == nil || yoy.Value == nil {
		t.Fatalf("net_income_yoy not computed: %+v", yoy)
	}
	// (50 - (-100)) / |-100| = 1.5: a loss turning into a profit is
	// positive growth, not negative.
	if math.Abs(*yoy.Value-1.5) > 1e-12 {
		t.Errorf("net_income_yoy = %v, want 1.5", *yoy.Value)
	}

	// And a deepening loss is negative growth.
	grid = buildGrid(t, []normalize.NormalizedLineItem{
		obs("Beta", normalize.NetIncome, "FY2023", -150, 1),
		obs("Beta", normalize.NetIncome, "FY2022", -100, 2),
	}, 2)
	results, _ = engine.Compute(grid)
	yoy = findRatio(results, "Beta", "net_income_yoy", 0)
	if yoy == nil || yoy.Value == nil {
		t.Fatalf("net_income_yoy not computed: %+v", yoy)
	}
	// (-150 - (-100)) / |-100| = -0.5
	if math.Abs(*yoy.Value-(-0.5)) > 1e-12 {
		t.Errorf("net_income_yoy = %v, want -0.5", *yoy.Value)
	}
}

func TestCAGRRequiresFourPeriods(t *testing.T) {
	items := []normalize.NormalizedLineItem{
		obs("Acme", normalize.Revenue, "FY2023", 1331, 1),
		obs("Acme", normalize.Revenue, "FY2022", 1210, 2),
		obs("Acme", normalize.Revenue, "FY2021", 1100, 3),
	}

	// Window 3: rank+3 is outside the window.
	engine := &Engine{Categories: []string{CategoryGrowth}}
	results, _ := engine.Compute(buildGrid(t, items, 3))
	cagr := findRatio(results, "Acme", "revenue_cagr_3y", 0)
	if cagr.Value != nil || cagr.Reason != "insufficient window" {
		t.Errorf("cagr with 3 periods = %+v, want insufficient window", cagr)
	}

	// Window 4 with a base year: (1331/1000)^(1/3) - 1 = 0.1
	items = append(items, obs("Acme", normalize.Revenue, "FY2020", 1000, 4))
	results, _ = engine.Compute(buildGrid(t, items, 4))
	cagr = findRatio(results, "Acme", "revenue_cagr_3y", 0)
	if cagr == nil || cagr.Value == nil {
		t.Fatalf("cagr not computed: %+v", cagr)
	}
	if math.Abs(*cagr.Value-0.1) > 1e-9 {
		t.Errorf("cagr = %v, want 0.1", *cagr.Value)
	}
}

func TestROEAveragesEquity(t *testing.T) {
	grid := buildGrid(t, []normalize.NormalizedLineItem{
		obs("Acme", normalize.NetIncome, "FY2023", 150, 1),
		obs("Acme", normalize.TotalEquity, "FY2023", 1100, 2),
		obs("Acme", normalize.TotalEquity, "FY2022", 900, 3),
	}, 2)

	engine := &Engine{Categories: []string{CategoryProfitability}}
	results, _ := engine.Compute(grid)

	roe := findRatio(results, "Acme", "roe", 0)
	if roe == nil || roe.Value == nil {
		t.Fatalf("roe not computed: %+v", roe)
	}
	// 150 / ((1100 + 900) / 2) = 150 / 1000 = 0.15
	if math.Abs(*roe.Value-0.15) > 1e-12 {
		t.Errorf("roe = %v, want 0.15", *roe.Value)
	}
}

func TestInterestCoverageUsesAbsoluteExpense(t *testing.T) {
	// Filings report interest expense both signed and unsigned.
	grid := buildGrid(t, []normalize.NormalizedLineItem{
		obs("Acme", normalize.OperatingIncome, "FY2023", 500, 1),
		obs("Acme", normalize.InterestExpense, "FY2023", -50, 2),
	}, 1)

	engine := &Engine{Categories: []string{CategoryLeverage}}
	results, _ := engine.Compute(grid)

	ic := findRatio(results, "Acme", "interest_coverage", 0)
	if ic == nil || ic.Value == nil {
		t.Fatalf("interest_coverage not computed: %+v", ic)
	}
	// 500 / |-50| = 10
	if *ic.Value != 10 {
		t.Errorf("interest_coverage = %v, want 10", *ic.Value)
	}
}

func TestCategorySelection(t *testing.T) {
	grid := buildGrid(t, []normalize.NormalizedLineItem{
		obs("Acme", normalize.Revenue, "FY2023", 1000, 1),
	}, 1)

	engine := &Engine{Categories: []string{CategoryGrowth}}
	results, _ := engine.Compute(grid)
	for _, r := range results {
		if r.Category != CategoryGrowth {
			t.Errorf("unexpected category %s in selection", r.Category)
		}
	}
	if len(results) != 3 {
		t.Errorf("expected the 3 growth ratios, got %d", len(results))
	}
}
