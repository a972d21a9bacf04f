package document

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageTextFunc reads the native text layer of a single-page PDF file.
// Implementations wrap whatever text extraction backend is in use; a nil
// result string means the page has no text layer.
type PageTextFunc func(ctx context.Context, pagePath string) (string, error)

// PageImageFunc rasterizes a single-page PDF file for the OCR fallback.
type PageImageFunc func(ctx context.Context, pagePath string) ([]byte, error)

// MaxPDFPages is the soft cap above which a filing is truncated. Annual
// reports past this size are almost always duplicated attachments.
const MaxPDFPages = 300

// PDFSource reads an annual report from a PDF on disk. The file is
// normalized and split into per-page documents before text extraction so a
// damaged page cannot take down the whole filing.
type PDFSource struct {
	Path        string
	CompanyName string

	TextFn  PageTextFunc
	ImageFn PageImageFunc

	// MaxPages overrides MaxPDFPages when positive.
	MaxPages int
}

func (s *PDFSource) Company() string { return s.CompanyName }

func (s *PDFSource) Pages(ctx context.Context) ([]Page, error) {
	if s.TextFn == nil {
		return nil, fmt.Errorf("pdf source %s: no page text function configured", s.Path)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	workDir, err := os.MkdirTemp("", "annualcompare-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("creating pdf work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Optimize first: repairs xref damage that trips page splitting on
	// filings produced by older report generators.
	optimized := filepath.Join(workDir, "optimized.pdf")
	if err := api.OptimizeFile(s.Path, optimized, conf); err != nil {
		// Fall back to the raw file; optimization is best effort.
		optimized = s.Path
	}

	count, err := api.PageCountFile(optimized)
	if err != nil {
		return nil, fmt.Errorf("counting pages in %s: %w", s.Path, err)
	}

	limit := s.MaxPages
	if limit <= 0 {
		limit = MaxPDFPages
	}
	if count > limit {
		log.Printf("pdf %s has %d pages, truncating to %d", s.Path, count, limit)
		count = limit
	}

	splitDir := filepath.Join(workDir, "pages")
	if err := os.Mkdir(splitDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating split dir: %w", err)
	}
	if err := api.SplitFile(optimized, splitDir, 1, conf); err != nil {
		return nil, fmt.Errorf("splitting %s: %w", s.Path, err)
	}
	pagePaths, err := splitPagePaths(splitDir)
	if err != nil {
		return nil, err
	}

	var pages []Page
	for i, pagePath := range pagePaths {
		if i >= count {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := Page{Index: i + 1}
		text, err := s.TextFn(ctx, pagePath)
		if err == nil {
			page.Text = text
		}
		// Rasterize only when the text layer looks absent; the extractor
		// decides whether to actually run OCR.
		if len(page.Text) == 0 && s.ImageFn != nil {
			if img, imgErr := s.ImageFn(ctx, pagePath); imgErr == nil {
				page.Image = img
			}
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// splitPagePaths lists the per-page files produced by SplitFile in page
// order. pdfcpu names them <stem>_<n>.pdf so a lexical sort is wrong past
// page 9; sort by the numeric suffix instead.
func splitPagePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading split dir: %w", err)
	}
	type numbered struct {
		n    int
		path string
	}
	var files []numbered
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".pdf" {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(trailingNumber(e.Name()), "%d", &n); err != nil {
			continue
		}
		files = append(files, numbered{n: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].n < files[j].n })
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.path)
	}
	return paths, nil
}

// trailingNumber pulls the digits between the final underscore and the
// extension of a split-file name.
func trailingNumber(name string) string {
	base := name[:len(name)-len(filepath.Ext(name))]
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '_' {
			return base[i+1:]
		}
	}
	return ""
}
