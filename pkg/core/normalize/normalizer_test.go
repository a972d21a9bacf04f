package normalize

import (
	"testing"

	"annualcompare/pkg/core/diag"
	"annualcompare/pkg/core/statement"
)

func TestDetectScaleFactor(t *testing.T) {
	cases := []struct {
		header string
		want   float64
	}{
		{"Consolidated Income Statement (in millions)", 1e6},
		{"(in thousands of US dollars)", 1e3},
		{"單位:新台幣仟元", 1e3},
		{"單位:新台幣百萬元", 1e6},
		{"單位:億元", 1e8},
		{"Consolidated Income Statement", 1},
	}
	for _, c := range cases {
		if got := DetectScaleFactor(c.header); got != c.want {
			t.Errorf("DetectScaleFactor(%q) = %v, want %v", c.header, got, c.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		present bool
		wantErr bool
	}{
		{"1,234", 1234, true, false},
		{"(500)", -500, true, false},
		{"-", 0, false, false},
		{"—", 0, false, false},
		{"", 0, false, false},
		{"12.5", 12.5, true, false},
		{"abc", 0, false, true},
	}
	for _, c := range cases {
		got, present, err := ParseAmount(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseAmount(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
			continue
		}
		if got != c.want || present != c.present {
			t.Errorf("ParseAmount(%q) = (%v, %v), want (%v, %v)", c.in, got, present, c.want, c.present)
		}
	}
}

func incomeTable(header string, rows ...statement.RawLineItem) statement.Table {
	return statement.Table{
		ID:         "p3_t1",
		Page:       3,
		Statement:  statement.Income,
		HeaderText: header,
		Periods:    []string{"FY2023"},
		Items:      rows,
	}
}

func TestNormalizeAppliesUnitScale(t *testing.T) {
	table := incomeTable("Income Statement (in millions)",
		statement.RawLineItem{RowLabel: "Revenue", Values: map[string]string{"FY2023": "5"}},
	)

	n := NewNormalizer()
	items, unmatched, diags := n.Normalize("Acme", "USD", []statement.Table{table})
	if len(unmatched) != 0 || len(diags) != 0 {
		t.Fatalf("unexpected misses: %v %v", unmatched, diags)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	// 5 * 1,000,000 = 5,000,000 base units
	if items[0].Value != 5000000 {
		t.Errorf("value = %v, want 5000000", items[0].Value)
	}
	if items[0].Concept != Revenue {
		t.Errorf("concept = %s, want Revenue", items[0].Concept)
	}
	if items[0].Confidence != 1.0 {
		t.Errorf("exact match confidence = %v, want 1.0", items[0].Confidence)
	}
	if items[0].ScaleApplied != 1e6 {
		t.Errorf("scale = %v, want 1e6", items[0].ScaleApplied)
	}
}

func TestNormalizeFuzzyMatch(t *testing.T) {
	// "Total revenues" is not in the dictionary verbatim but contains the
	// key "revenues".
	table := incomeTable("",
		statement.RawLineItem{RowLabel: "Total revenues", Values: map[string]string{"FY2023": "100"}},
	)

	n := NewNormalizer()
	items, _, _ := n.Normalize("Acme", "USD", []statement.Table{table})
	if len(items) != 1 {
		t.Fatalf("expected fuzzy match, got %d items", len(items))
	}
	if items[0].Concept != Revenue {
		t.Errorf("concept = %s, want Revenue", items[0].Concept)
	}
	if items[0].Confidence >= 1.0 || items[0].Confidence < 0.8 {
		t.Errorf("fuzzy confidence = %v, want [0.8, 1.0)", items[0].Confidence)
	}
}

func TestNormalizeMissRetainsRaw(t *testing.T) {
	table := incomeTable("",
		statement.RawLineItem{RowLabel: "Share-based compensation reclassification", Values: map[string]string{"FY2023": "42"}},
	)

	n := NewNormalizer()
	items, unmatched, diags := n.Normalize("Acme", "USD", []statement.Table{table})
	if len(items) != 0 {
		t.Fatalf("expected no normalized items, got %v", items)
	}
	if len(unmatched) != 1 || unmatched[0].RowLabel != "Share-based compensation reclassification" {
		t.Fatalf("raw item not retained: %v", unmatched)
	}
	if diag.Count(diags, diag.KindNormalizationMiss) != 1 {
		t.Errorf("expected NORMALIZATION_MISS diagnostic, got %v", diags)
	}
}

func TestNormalizeSkipsUnperiodizedAndOther(t *testing.T) {
	tables := []statement.Table{
		{ID: "a", Statement: statement.Income, Unperiodized: true,
			Items: []statement.RawLineItem{{RowLabel: "Revenue", Values: map[string]string{"FY2023": "1"}}}},
		{ID: "b", Statement: statement.Other, Periods: []string{"FY2023"},
			Items: []statement.RawLineItem{{RowLabel: "Revenue", Values: map[string]string{"FY2023": "1"}}}},
	}

	n := NewNormalizer()
	items, _, _ := n.Normalize("Acme", "USD", tables)
	if len(items) != 0 {
		t.Errorf("expected skipped tables to yield no items, got %v", items)
	}
}

func TestScaleOverride(t *testing.T) {
	table := incomeTable("Income Statement (in millions)",
		statement.RawLineItem{RowLabel: "Revenue", Values: map[string]string{"FY2023": "5"}},
	)

	n := NewNormalizer()
	n.ScaleOverride = 1e3
	items, _, _ := n.Normalize("Acme", "USD", []statement.Table{table})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	// Override wins over the detected "in millions": 5 * 1,000 = 5,000
	if items[0].Value != 5000 {
		t.Errorf("value = %v, want 5000", items[0].Value)
	}
}
