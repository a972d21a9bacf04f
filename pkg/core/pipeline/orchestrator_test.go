package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"annualcompare/pkg/core/diag"
	"annualcompare/pkg/core/document"
	"annualcompare/pkg/core/llm"
	"annualcompare/pkg/core/normalize"
)

type fakeSource struct {
	company string
	pages   []document.Page
	err     error
}

func (f *fakeSource) Company() string { return f.company }

func (f *fakeSource) Pages(ctx context.Context) ([]document.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

// reportSource builds a one-page filing with an income statement table in
// thousands. Values are literal strings so each test controls the numbers.
func reportSource(company, currencyNote string, revenue23, revenue22, cogs23, cogs22, ni23, ni22 string) *fakeSource {
	return &fakeSource{
		company: company,
		pages: []document.Page{{
			Index: 1,
			Text:  "Consolidated Income Statement (in thousands, " + currencyNote + ")",
			Tables: [][][]string{{
				{"Item", "2023", "2022"},
				{"Revenue", revenue23, revenue22},
				{"Cost of goods sold", cogs23, cogs22},
				{"Net income", ni23, ni22},
			}},
		}},
	}
}

func newTestOrchestrator() *Orchestrator {
	return NewOrchestrator(nil, document.NewExtractor(nil), &llm.MockEmbedder{})
}

func TestRunEndToEnd(t *testing.T) {
	sources := []document.Source{
		reportSource("Acme", "US$", "1,000", "900", "400", "380", "200", "150"),
		reportSource("Beta", "US$", "2,000", "2,100", "1,200", "1,300", "100", "120"),
	}

	result, err := newTestOrchestrator().Run(context.Background(), sources)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SessionID == "" {
		t.Error("missing session id")
	}

	// "in thousands" applies: 1,000 * 1,000 = 1,000,000 base units.
	if v, ok := result.Grid.Value("Acme", 0, normalize.Revenue); !ok || v != 1000000 {
		t.Errorf("Acme rank 0 Revenue = (%v, %v), want (1000000, true)", v, ok)
	}
	if v, ok := result.Grid.Value("Beta", 1, normalize.COGS); !ok || v != 1300000 {
		t.Errorf("Beta rank 1 COGS = (%v, %v), want (1300000, true)", v, ok)
	}

	// gross_margin for Acme FY2023: (1000 - 400) / 1000 = 0.6
	found := false
	for _, r := range result.Ratios {
		if r.Company == "Acme" && r.Name == "gross_margin" && r.Rank == 0 {
			found = true
			if r.Value == nil || math.Abs(*r.Value-0.6) > 1e-12 {
				t.Errorf("gross_margin = %+v, want 0.6", r.Value)
			}
		}
	}
	if !found {
		t.Error("gross_margin result missing")
	}

	if result.Index == nil || result.Index.Len() == 0 {
		t.Fatal("retrieval index not built")
	}
	hits, err := result.Index.Query(context.Background(), "revenue", 4, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	companies := map[string]bool{}
	for _, h := range hits {
		companies[h.Company] = true
	}
	if !companies["Acme"] || !companies["Beta"] {
		t.Errorf("coverage missing a company: %v", companies)
	}

	if diag.Count(result.Diagnostics, diag.KindMixedCurrency) != 0 {
		t.Errorf("same-currency run flagged mixed: %v", result.Diagnostics)
	}
}

func TestRunCompanyCountBounds(t *testing.T) {
	one := []document.Source{reportSource("Solo", "US$", "1", "1", "1", "1", "1", "1")}
	if _, err := newTestOrchestrator().Run(context.Background(), one); !errors.Is(err, ErrCompanyCount) {
		t.Errorf("1 source err = %v, want ErrCompanyCount", err)
	}

	var six []document.Source
	for i := 0; i < 6; i++ {
		six = append(six, reportSource("C", "US$", "1", "1", "1", "1", "1", "1"))
	}
	if _, err := newTestOrchestrator().Run(context.Background(), six); !errors.Is(err, ErrCompanyCount) {
		t.Errorf("6 sources err = %v, want ErrCompanyCount", err)
	}
}

func TestRunSurvivesOneBrokenDocument(t *testing.T) {
	sources := []document.Source{
		reportSource("Acme", "US$", "1,000", "900", "400", "380", "200", "150"),
		reportSource("Beta", "US$", "2,000", "2,100", "1,200", "1,300", "100", "120"),
		&fakeSource{company: "Broken", err: errors.New("truncated file")},
	}

	result, err := newTestOrchestrator().Run(context.Background(), sources)
	if err != nil {
		t.Fatalf("one broken document must not fail the run: %v", err)
	}
	if diag.Count(result.Diagnostics, diag.KindExtractionFailure) != 1 {
		t.Errorf("expected EXTRACTION_FAILURE for Broken, got %v", result.Diagnostics)
	}
	for _, company := range result.Grid.Companies {
		if company == "Broken" {
			t.Error("broken company leaked into the grid")
		}
	}
}

func TestRunAllBroken(t *testing.T) {
	sources := []document.Source{
		&fakeSource{company: "A", err: errors.New("bad")},
		&fakeSource{company: "B", err: errors.New("bad")},
	}
	if _, err := newTestOrchestrator().Run(context.Background(), sources); !errors.Is(err, ErrNoUsableContent) {
		t.Errorf("err = %v, want ErrNoUsableContent", err)
	}
}

// proseSource is a filing that extracts fine but carries no statement
// tables, like a narrative-only annual letter.
func proseSource(company string) *fakeSource {
	return &fakeSource{
		company: company,
		pages: []document.Page{{
			Index: 1,
			Text: "Annual Report. Management discussion of strategy, markets " +
				"and outlook, with no tabular financial statements.",
		}},
	}
}

func TestRunRetainsProseOnlyReportForRetrieval(t *testing.T) {
	sources := []document.Source{
		reportSource("Acme", "US$", "1,000", "900", "400", "380", "200", "150"),
		proseSource("Textual"),
	}

	result, err := newTestOrchestrator().Run(context.Background(), sources)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The prose-only company has no statements, so no grid presence.
	for _, company := range result.Grid.Companies {
		if company == "Textual" {
			t.Error("prose-only company leaked into the grid")
		}
	}
	if diag.Count(result.Diagnostics, diag.KindNormalizationMiss) == 0 {
		t.Errorf("expected NORMALIZATION_MISS diagnostic, got %v", result.Diagnostics)
	}

	// But its text is still retrievable.
	hits, err := result.Index.Query(context.Background(), "management strategy outlook", 4, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	indexed := map[string]bool{}
	for _, h := range hits {
		indexed[h.Company] = true
	}
	if !indexed["Textual"] {
		t.Errorf("prose-only company missing from retrieval results: %v", indexed)
	}
}

func TestRunAllProseOnlyServesRetrievalWithoutMetrics(t *testing.T) {
	sources := []document.Source{
		proseSource("Alpha"),
		proseSource("Beta"),
	}

	result, err := newTestOrchestrator().Run(context.Background(), sources)
	if err != nil {
		t.Fatalf("prose-only reports must degrade, not fail: %v", err)
	}
	if result.Grid != nil || len(result.Ratios) != 0 {
		t.Errorf("expected no metrics, got grid=%v ratios=%d", result.Grid, len(result.Ratios))
	}
	if result.Index == nil || result.Index.Len() == 0 {
		t.Fatal("retrieval index not built")
	}
}

func TestRunFlagsMixedCurrencies(t *testing.T) {
	sources := []document.Source{
		reportSource("Acme", "US$", "1,000", "900", "400", "380", "200", "150"),
		reportSource("Tai", "新台幣", "30,000", "29,000", "12,000", "11,500", "6,000", "5,800"),
	}

	result, err := newTestOrchestrator().Run(context.Background(), sources)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diag.Count(result.Diagnostics, diag.KindMixedCurrency) != 1 {
		t.Errorf("expected MIXED_CURRENCY diagnostic, got %v", result.Diagnostics)
	}
	// Values are reported as filed, never converted.
	if v, _ := result.Grid.Value("Tai", 0, normalize.Revenue); v != 30000000 {
		t.Errorf("Tai revenue = %v, want 30000000", v)
	}
}
