package statement

// Type identifies which financial statement a table belongs to.
type Type string

const (
	Income   Type = "income_statement"
	Balance  Type = "balance_sheet"
	CashFlow Type = "cash_flow_statement"
	Other    Type = "other"
)

// RawLineItem is one data row of a classified table, still in the filing's
// own wording. Column values are kept as raw strings; parsing amounts is the
// normalizer's job.
type RawLineItem struct {
	TableID  string
	RowLabel string
	Values   map[string]string // canonical period -> raw cell text
}

// Table is a classified statement table reassembled from table-row blocks.
type Table struct {
	ID         string
	Page       int
	Statement  Type
	HeaderText string   // text context preceding the table, used for scale detection
	Periods    []string // canonical period labels in column order
	Items      []RawLineItem

	// Unperiodized marks a table whose header row yielded no recognizable
	// period columns. Its rows are excluded from normalization.
	Unperiodized bool
}
