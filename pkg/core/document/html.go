package document

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLSource reads an annual report published as a single HTML document.
// HTML has no physical pages, so the whole document maps to page 1; the
// block order still follows document order.
type HTMLSource struct {
	Path        string
	CompanyName string
}

func (s *HTMLSource) Company() string { return s.CompanyName }

func (s *HTMLSource) Pages(ctx context.Context) ([]Page, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.Path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.Path, err)
	}

	page := Page{Index: 1}
	var paras []string

	doc.Find("h1, h2, h3, h4, p, li, table").Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "table" {
			if grid := tableGrid(sel); len(grid) > 0 {
				page.Tables = append(page.Tables, grid)
			}
			return
		}
		// Skip text nested inside a table; the grid already carries it.
		if sel.ParentsFiltered("table").Length() > 0 {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			paras = append(paras, text)
		}
	})

	page.Text = strings.Join(paras, "\n\n")
	if page.Text == "" && len(page.Tables) == 0 {
		return nil, fmt.Errorf("no readable content in %s", s.Path)
	}
	return []Page{page}, nil
}

// tableGrid flattens an HTML table into rows of trimmed cell text.
// Rowspan and colspan are not expanded; financial statement tables in
// filings are almost always plain grids.
func tableGrid(table *goquery.Selection) [][]string {
	var grid [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.TrimSpace(cell.Text()))
		})
		if rowHasContent(row) {
			grid = append(grid, row)
		}
	})
	return grid
}

func rowHasContent(row []string) bool {
	for _, c := range row {
		if c != "" {
			return true
		}
	}
	return false
}

// TextSource reads a plain-text report, splitting on form feeds when the
// producer preserved page breaks and on size otherwise.
type TextSource struct {
	Path        string
	CompanyName string
}

func (s *TextSource) Company() string { return s.CompanyName }

func (s *TextSource) Pages(ctx context.Context) ([]Page, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	text := string(data)

	var chunks []string
	if strings.Contains(text, "\f") {
		chunks = strings.Split(text, "\f")
	} else {
		chunks = []string{text}
	}

	var pages []Page
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		pages = append(pages, Page{Index: i + 1, Text: chunk})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no readable content in %s", s.Path)
	}
	return pages, nil
}
