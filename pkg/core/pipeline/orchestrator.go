package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"annualcompare/pkg/core/align"
	"annualcompare/pkg/core/config"
	"annualcompare/pkg/core/diag"
	"annualcompare/pkg/core/document"
	"annualcompare/pkg/core/llm"
	"annualcompare/pkg/core/metrics"
	"annualcompare/pkg/core/normalize"
	"annualcompare/pkg/core/retrieval"
	"annualcompare/pkg/core/statement"
)

// ErrCompanyCount is returned when the run has fewer than two or more than
// five documents; a comparison needs at least two sides.
var ErrCompanyCount = errors.New("comparison needs 2 to 5 reports")

// ErrNoUsableContent is returned when extraction produced nothing from any
// document. Everything short of that degrades with diagnostics instead: a
// run whose reports carry prose but no parseable statements still serves
// retrieval, just without a metrics grid.
var ErrNoUsableContent = errors.New("no usable content extracted from any report")

// SessionResult is the output of one comparison run.
type SessionResult struct {
	SessionID   string
	Grid        *align.Grid
	Ratios      []metrics.RatioResult
	Index       *retrieval.Index
	Currencies  map[string]string // company -> detected currency
	Diagnostics []diag.Diagnostic
}

// Orchestrator drives the full comparison flow: extract each report, group
// its statement tables, normalize line items, align the companies, compute
// ratios, and build the retrieval index.
type Orchestrator struct {
	cfg       *config.Config
	extractor *document.Extractor
	embedder  llm.Embedder
}

func NewOrchestrator(cfg *config.Config, extractor *document.Extractor, embedder llm.Embedder) *Orchestrator {
	if cfg == nil {
		cfg = config.Default()
	}
	if extractor != nil {
		extractor.CallTimeout = cfg.CollaboratorTimeout()
	}
	return &Orchestrator{cfg: cfg, extractor: extractor, embedder: embedder}
}

// companyOutput is the per-source result joined after the parallel stage.
// A nil report means extraction failed outright; a report with no items
// is excluded from the metrics grid but still indexed for retrieval.
type companyOutput struct {
	report   *document.Report
	items    []normalize.NormalizedLineItem
	diags    []diag.Diagnostic
	company  string
	currency string
}

// Run executes a comparison over the given sources. Per-document failures
// are recorded and excluded; the run only fails outright when the company
// count is out of range or nothing at all survived extraction.
func (o *Orchestrator) Run(ctx context.Context, sources []document.Source) (*SessionResult, error) {
	if len(sources) < 2 || len(sources) > 5 {
		return nil, fmt.Errorf("%w, got %d", ErrCompanyCount, len(sources))
	}

	outputs := make([]companyOutput, len(sources))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.cfg.Workers)
	for i, src := range sources {
		eg.Go(func() error {
			outputs[i] = o.processSource(egCtx, src)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := &SessionResult{
		SessionID:  uuid.NewString(),
		Currencies: map[string]string{},
	}

	// Deterministic join: source order, then item sequence within source.
	var allItems []normalize.NormalizedLineItem
	extracted := 0
	for _, out := range outputs {
		result.Diagnostics = append(result.Diagnostics, out.diags...)
		if out.report == nil {
			continue
		}
		extracted++
		result.Currencies[out.company] = out.currency
		allItems = append(allItems, out.items...)
	}
	if extracted == 0 {
		return result, ErrNoUsableContent
	}

	o.checkCurrencies(result)

	// Companies whose statements did not normalize drop out of the grid
	// here but stay in the index below.
	if len(allItems) > 0 {
		grid, alignDiags := align.Build(allItems, o.cfg.Window)
		result.Grid = grid
		result.Diagnostics = append(result.Diagnostics, alignDiags...)

		engine := &metrics.Engine{Categories: o.cfg.RatioCategories}
		ratios, ratioDiags := engine.Compute(grid)
		result.Ratios = ratios
		result.Diagnostics = append(result.Diagnostics, ratioDiags...)
	}

	o.buildIndex(ctx, outputs, result)

	return result, nil
}

func (o *Orchestrator) processSource(ctx context.Context, src document.Source) companyOutput {
	out := companyOutput{company: src.Company()}

	report, diags, err := o.extractor.Extract(ctx, src)
	out.diags = diags
	if err != nil {
		return out
	}
	out.report = report
	out.company = report.Company
	out.currency = report.Currency

	classifier := &statement.Classifier{}
	tables, classDiags := classifier.Classify(report)
	out.diags = append(out.diags, classDiags...)

	normalizer := normalize.NewNormalizer()
	normalizer.SimilarityThreshold = o.cfg.SimilarityThreshold
	normalizer.ScaleOverride = o.cfg.UnitScaleOverride

	items, _, normDiags := normalizer.Normalize(report.Company, report.Currency, tables)
	out.items = items
	out.diags = append(out.diags, normDiags...)

	if len(items) == 0 {
		out.diags = append(out.diags, diag.Diagnostic{
			Kind:    diag.KindNormalizationMiss,
			Company: report.Company,
			Detail:  "no line items normalized from any table; excluded from metrics, retained for retrieval",
		})
	}
	return out
}

// checkCurrencies flags mixed reporting currencies. Values are never
// converted; the comparison proceeds with the flag raised.
func (o *Orchestrator) checkCurrencies(result *SessionResult) {
	seen := map[string]bool{}
	for _, currency := range result.Currencies {
		if currency != "" {
			seen[currency] = true
		}
	}
	if len(seen) > 1 {
		currencies := make([]string, 0, len(seen))
		for c := range seen {
			currencies = append(currencies, c)
		}
		sort.Strings(currencies)
		result.Diagnostics = append(result.Diagnostics, diag.Diagnostic{
			Kind:   diag.KindMixedCurrency,
			Detail: fmt.Sprintf("reports use different currencies: %v", currencies),
		})
	}
}

// buildIndex embeds every usable report. Embedding failure degrades the
// index rather than the run.
func (o *Orchestrator) buildIndex(ctx context.Context, outputs []companyOutput, result *SessionResult) {
	if o.embedder == nil {
		return
	}
	index := retrieval.NewIndex(o.embedder)
	index.Workers = o.cfg.Workers
	index.CallTimeout = o.cfg.CollaboratorTimeout()
	chunker := retrieval.NewChunker()
	chunker.MaxTokens = o.cfg.ChunkTokens

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.cfg.Workers)
	for _, out := range outputs {
		if out.report == nil {
			continue
		}
		eg.Go(func() error {
			diags := index.AddReport(egCtx, out.report, chunker)
			mu.Lock()
			result.Diagnostics = append(result.Diagnostics, diags...)
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	result.Index = index
}
