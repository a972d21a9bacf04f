// Package document turns raw annual-report sources (text-native PDFs, OCR
// page images, HTML filings) into an ordered sequence of typed content blocks
// with page provenance. It deliberately knows nothing about financial
// statements; downstream packages classify and normalize its output.
package document

import "context"

// BlockType identifies the content type of an extracted block.
type BlockType string

const (
	BlockText     BlockType = "text"
	BlockTableRow BlockType = "table_row"
	BlockHeading  BlockType = "heading"
)

// BoundingRegion is an optional position hint inside the page, in the source
// layer's own coordinate space. Extraction never depends on it.
type BoundingRegion struct {
	X0, Y0, X1, Y1 float64
}

// ContentBlock is one immutable unit of extracted content. Blocks are owned
// by a single source document and ordered as they appear in it.
type ContentBlock struct {
	PageIndex int             `json:"page_index"` // 1-based
	Type      BlockType       `json:"type"`
	RawText   string          `json:"raw_text"`
	Region    *BoundingRegion `json:"region,omitempty"`
	TableID   string          `json:"table_id,omitempty"` // set for table_row blocks
}

// Page is the unit handed to the extractor by a Source. Text is the native
// text layer if one exists; Tables are pre-parsed cell grids when the source
// layer provides them; Image is the rasterized page for the OCR fallback.
type Page struct {
	Index  int
	Text   string
	Tables [][][]string
	Image  []byte
}

// Source supplies the pages of a single report. Concrete sources wrap the
// black-box PDF text layer, an OCR-only scan, or an HTML filing.
type Source interface {
	Company() string
	Pages(ctx context.Context) ([]Page, error)
}

// Report is the extraction result for one source document.
type Report struct {
	Company            string
	Currency           string // sniffed reporting currency symbol, may be empty
	Blocks             []ContentBlock
	OCRPages           []int // pages that went through the OCR fallback
	UnextractablePages []int // pages excluded after both extraction paths
}
