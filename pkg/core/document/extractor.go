package document

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"annualcompare/pkg/core/diag"
	"annualcompare/pkg/core/llm"
	"annualcompare/pkg/core/ocr"
)

// Extractor turns a Source into an ordered block stream. It detects whether a
// page is text-native or needs the OCR collaborator; extraction itself is a
// pure transformation with no side effects.
type Extractor struct {
	OCR ocr.TextExtractor // optional; nil disables the fallback

	// MinTextChars is the extractable-character density below which a page
	// is considered image-only and the OCR fallback triggers.
	MinTextChars int

	// RetryAttempts bounds OCR retries before the page degrades.
	RetryAttempts int
	RetryBackoff  time.Duration

	// CallTimeout bounds each individual OCR call; zero means no bound.
	CallTimeout time.Duration
}

// NewExtractor returns an Extractor with the default density threshold.
func NewExtractor(ocrSvc ocr.TextExtractor) *Extractor {
	return &Extractor{
		OCR:           ocrSvc,
		MinTextChars:  50,
		RetryAttempts: 3,
		RetryBackoff:  500 * time.Millisecond,
	}
}

// Extract processes every page of the source. Pages that fail both paths are
// recorded as unextractable and excluded; only a source whose page listing
// itself fails returns an error.
func (e *Extractor) Extract(ctx context.Context, src Source) (*Report, []diag.Diagnostic, error) {
	pages, err := src.Pages(ctx)
	if err != nil {
		return nil, []diag.Diagnostic{{
			Kind:    diag.KindExtractionFailure,
			Company: src.Company(),
			Detail:  err.Error(),
		}}, fmt.Errorf("listing pages for %s: %w", src.Company(), err)
	}

	report := &Report{Company: src.Company()}
	var diags []diag.Diagnostic

	for _, page := range pages {
		text := strings.TrimSpace(page.Text)

		if utf8.RuneCountInString(text) < e.MinTextChars && len(page.Image) > 0 && e.OCR != nil {
			ocrText, ocrErr := e.runOCR(ctx, page)
			if ocrErr != nil {
				diags = append(diags, diag.Diagnostic{
					Kind:    diag.KindCollaboratorFailure,
					Company: src.Company(),
					Page:    page.Index,
					Detail:  fmt.Sprintf("ocr: %v", ocrErr),
				})
			} else if strings.TrimSpace(ocrText) != "" {
				text = strings.TrimSpace(ocrText)
				report.OCRPages = append(report.OCRPages, page.Index)
			}
		}

		blocks := blocksFromText(page.Index, text)
		blocks = append(blocks, blocksFromTables(page.Index, page.Tables)...)

		if len(blocks) == 0 {
			report.UnextractablePages = append(report.UnextractablePages, page.Index)
			diags = append(diags, diag.Diagnostic{
				Kind:    diag.KindUnextractablePage,
				Company: src.Company(),
				Page:    page.Index,
				Detail:  "no blocks after direct extraction and OCR fallback",
			})
			continue
		}
		report.Blocks = append(report.Blocks, blocks...)
	}

	if report.Company == "" {
		report.Company = sniffCompany(report.Blocks)
	}
	report.Currency = sniffCurrency(report.Blocks)

	return report, diags, nil
}

func (e *Extractor) runOCR(ctx context.Context, page Page) (string, error) {
	var text string
	err := llm.WithRetry(ctx, e.RetryAttempts, e.RetryBackoff, func() error {
		callCtx := ctx
		if e.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, e.CallTimeout)
			defer cancel()
		}
		var err error
		text, err = e.OCR.ExtractPage(callCtx, page.Image, page.Index)
		return err
	})
	return text, err
}

// blocksFromText splits a page's text into heading and paragraph blocks.
// Paragraphs are blank-line separated; a lone short line with no terminal
// punctuation is treated as a heading.
func blocksFromText(pageIndex int, text string) []ContentBlock {
	if text == "" {
		return nil
	}
	var blocks []ContentBlock
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		blockType := BlockText
		if isHeading(para) {
			blockType = BlockHeading
		}
		blocks = append(blocks, ContentBlock{
			PageIndex: pageIndex,
			Type:      blockType,
			RawText:   para,
		})
	}
	return blocks
}

func blocksFromTables(pageIndex int, tables [][][]string) []ContentBlock {
	var blocks []ContentBlock
	for ti, grid := range tables {
		if len(grid) < 2 {
			// A single row is a fragment, not a table.
			continue
		}
		tableID := fmt.Sprintf("p%d_t%d", pageIndex, ti+1)
		for _, row := range grid {
			blocks = append(blocks, ContentBlock{
				PageIndex: pageIndex,
				Type:      BlockTableRow,
				RawText:   strings.Join(row, " | "),
				TableID:   tableID,
			})
		}
	}
	return blocks
}

func isHeading(para string) bool {
	if strings.Contains(para, "\n") {
		return false
	}
	if utf8.RuneCountInString(para) >= 60 {
		return false
	}
	return !strings.ContainsAny(para, ".。!？?！；;")
}

var companyMarkers = []string{"股份有限公司", "Corporation", "Inc.", "Ltd", "公司"}

// sniffCompany pulls a company name from the leading text blocks when the
// caller did not provide one.
func sniffCompany(blocks []ContentBlock) string {
	inspected := 0
	for _, b := range blocks {
		if b.Type == BlockTableRow {
			continue
		}
		for _, line := range strings.Split(b.RawText, "\n") {
			line = strings.TrimSpace(line)
			for _, marker := range companyMarkers {
				if strings.Contains(line, marker) {
					return line
				}
			}
		}
		inspected++
		if inspected >= 5 {
			break
		}
	}
	return "unknown"
}

var currencyMarkers = []struct {
	marker   string
	currency string
}{
	{"新台幣", "TWD"}, {"新臺幣", "TWD"}, {"NT$", "TWD"},
	{"人民幣", "CNY"}, {"人民币", "CNY"}, {"RMB", "CNY"},
	{"港幣", "HKD"}, {"HK$", "HKD"},
	{"US$", "USD"}, {"USD", "USD"},
	{"日圓", "JPY"}, {"JPY", "JPY"},
}

func sniffCurrency(blocks []ContentBlock) string {
	for _, b := range blocks {
		for _, m := range currencyMarkers {
			if strings.Contains(b.RawText, m.marker) {
				return m.currency
			}
		}
	}
	return ""
}
