package statement

import (
	"fmt"
	"strings"

	"annualcompare/pkg/core/diag"
	"annualcompare/pkg/core/document"
)

// Statement keyword sets, Traditional Chinese and English. Simplified
// variants are included where filings commonly use them.
var statementKeywords = map[Type][]string{
	Income: {
		"損益表", "综合损益", "綜合損益", "營業收入", "营业收入", "營業成本",
		"營業毛利", "營業費用", "稅前淨利", "本期淨利", "每股盈餘",
		"income statement", "statement of operations", "statements of comprehensive income",
		"revenue", "net sales", "cost of goods sold", "cost of revenue",
		"gross profit", "operating income", "operating expenses",
		"net income", "earnings per share",
	},
	Balance: {
		"資產負債表", "资产负债表", "資產總額", "總資產", "流動資產",
		"負債總額", "股東權益", "權益總額", "存貨", "應收帳款",
		"balance sheet", "statement of financial position",
		"total assets", "total liabilities", "shareholders' equity",
		"stockholders' equity", "current assets", "inventory", "accounts receivable",
	},
	CashFlow: {
		"現金流量表", "现金流量表", "營業活動", "投資活動", "籌資活動", "融資活動",
		"cash flow", "operating activities", "investing activities",
		"financing activities", "cash and cash equivalents",
	},
}

// Classifier reassembles table-row blocks into statement tables and labels
// each one by keyword density.
type Classifier struct{}

// Classify walks a report's block stream in order. Each distinct table ID
// becomes one Table; the nearest preceding heading or paragraph on the same
// page is kept as header context for classification and scale detection.
func (c *Classifier) Classify(report *document.Report) ([]Table, []diag.Diagnostic) {
	var tables []Table
	var diags []diag.Diagnostic

	byID := map[string]int{}
	lastText := map[int]string{} // page -> most recent non-table text

	for _, block := range report.Blocks {
		if block.Type != document.BlockTableRow {
			lastText[block.PageIndex] = block.RawText
			continue
		}
		idx, seen := byID[block.TableID]
		if !seen {
			idx = len(tables)
			byID[block.TableID] = idx
			tables = append(tables, Table{
				ID:         block.TableID,
				Page:       block.PageIndex,
				HeaderText: lastText[block.PageIndex],
			})
		}
		row := splitRow(block.RawText)
		tables[idx].Items = append(tables[idx].Items, RawLineItem{
			TableID:  block.TableID,
			RowLabel: strings.Join(row, " | "),
		})
	}

	for i := range tables {
		c.finish(report.Company, &tables[i], &diags)
	}
	return tables, diags
}

// finish resolves a table's period columns, rebuilds its rows into labeled
// line items, and assigns its statement type.
func (c *Classifier) finish(company string, t *Table, diags *[]diag.Diagnostic) {
	rows := make([][]string, 0, len(t.Items))
	for _, item := range t.Items {
		rows = append(rows, splitRow(item.RowLabel))
	}

	headerIdx, columns := findPeriodColumns(rows)
	if len(columns) == 0 {
		t.Unperiodized = true
		*diags = append(*diags, diag.Diagnostic{
			Kind:    diag.KindUnperiodizedTable,
			Company: company,
			Page:    t.Page,
			Detail:  fmt.Sprintf("table %s: no period columns recognized", t.ID),
		})
	}

	seenPeriod := map[string]bool{}
	for _, col := range columns {
		if !seenPeriod[col.period] {
			seenPeriod[col.period] = true
			t.Periods = append(t.Periods, col.period)
		}
	}

	t.Items = t.Items[:0]
	for ri, row := range rows {
		if ri == headerIdx {
			continue
		}
		label := firstNonEmpty(row)
		if label == "" {
			continue
		}
		item := RawLineItem{TableID: t.ID, RowLabel: label, Values: map[string]string{}}
		for _, col := range columns {
			if col.index < len(row) && strings.TrimSpace(row[col.index]) != "" {
				item.Values[col.period] = strings.TrimSpace(row[col.index])
			}
		}
		t.Items = append(t.Items, item)
	}

	t.Statement = classifyType(company, t, diags)
}

type periodColumn struct {
	index  int
	period string
}

// findPeriodColumns scans the leading rows for one whose cells parse as
// fiscal periods. Returns the header row index and the column mapping.
func findPeriodColumns(rows [][]string) (int, []periodColumn) {
	limit := len(rows)
	if limit > 3 {
		limit = 3
	}
	for ri := 0; ri < limit; ri++ {
		var cols []periodColumn
		for ci, cell := range rows[ri] {
			if period, ok := ParsePeriod(cell); ok {
				cols = append(cols, periodColumn{index: ci, period: period})
			}
		}
		if len(cols) > 0 {
			return ri, cols
		}
	}
	return -1, nil
}

func classifyType(company string, t *Table, diags *[]diag.Diagnostic) Type {
	var corpus strings.Builder
	corpus.WriteString(strings.ToLower(t.HeaderText))
	corpus.WriteByte('\n')
	for _, item := range t.Items {
		corpus.WriteString(strings.ToLower(item.RowLabel))
		corpus.WriteByte('\n')
	}
	text := corpus.String()

	scores := map[Type]int{}
	for st, keywords := range statementKeywords {
		for _, kw := range keywords {
			scores[st] += strings.Count(text, strings.ToLower(kw))
		}
	}

	best, second := Other, Other
	for _, st := range []Type{Income, Balance, CashFlow} {
		if scores[st] > scores[best] || best == Other {
			best, second = st, best
		} else if second == Other || scores[st] > scores[second] {
			second = st
		}
	}
	if scores[best] == 0 {
		return Other
	}
	if second != Other && scores[second] == scores[best] {
		*diags = append(*diags, diag.Diagnostic{
			Kind:    diag.KindClassificationAmbiguity,
			Company: company,
			Page:    t.Page,
			Detail:  fmt.Sprintf("table %s: %s and %s tie at score %d", t.ID, best, second, scores[best]),
		})
		return Other
	}
	return best
}

func splitRow(raw string) []string {
	parts := strings.Split(raw, " | ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func firstNonEmpty(row []string) string {
	for _, cell := range row {
		if cell != "" {
			return cell
		}
	}
	return ""
}
