package normalize

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"annualcompare/pkg/core/diag"
	"annualcompare/pkg/core/statement"
)

// NormalizedLineItem is one (company, concept, period) observation in base
// currency units, traceable back to the filing row it came from.
type NormalizedLineItem struct {
	Company      string
	Concept      Concept
	Period       string // canonical "FY<year>"
	Value        float64
	RawLabel     string
	Confidence   float64
	ScaleApplied float64
	Currency     string

	// Seq orders items by parse time within one run; later observations of
	// the same cell win ties at equal confidence.
	Seq int
}

// UnmatchedItem retains a row the dictionary could not place, for audit.
type UnmatchedItem struct {
	TableID  string
	Page     int
	RowLabel string
}

// Normalizer maps raw line items onto the concept taxonomy.
type Normalizer struct {
	// SimilarityThreshold is the minimum fuzzy score accepted as a match.
	SimilarityThreshold float64

	// ScaleOverride forces a unit scale factor when positive, for filings
	// whose scale note the detector cannot see.
	ScaleOverride float64

	dictionary map[string]conceptEntry
	keys       []string
	seq        int
}

func (n *Normalizer) sortedKeys() []string {
	if n.keys == nil {
		n.keys = make([]string, 0, len(n.dictionary))
		for k := range n.dictionary {
			n.keys = append(n.keys, k)
		}
		sort.Strings(n.keys)
	}
	return n.keys
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		SimilarityThreshold: 0.8,
		dictionary:          defaultDictionary,
	}
}

// Normalize converts every data row of the classified tables. Unperiodized
// tables and tables typed Other are skipped; rows no dictionary entry
// reaches are kept in the unmatched list with a diagnostic.
func (n *Normalizer) Normalize(company, currency string, tables []statement.Table) ([]NormalizedLineItem, []UnmatchedItem, []diag.Diagnostic) {
	var items []NormalizedLineItem
	var unmatched []UnmatchedItem
	var diags []diag.Diagnostic

	for _, t := range tables {
		if t.Unperiodized || t.Statement == statement.Other {
			continue
		}
		scale := DetectScaleFactor(t.HeaderText)
		if n.ScaleOverride > 0 {
			scale = n.ScaleOverride
		}

		for _, raw := range t.Items {
			concept, confidence, ok := n.matchConcept(raw.RowLabel, t.Statement)
			if !ok {
				unmatched = append(unmatched, UnmatchedItem{
					TableID:  t.ID,
					Page:     t.Page,
					RowLabel: raw.RowLabel,
				})
				diags = append(diags, diag.Diagnostic{
					Kind:    diag.KindNormalizationMiss,
					Company: company,
					Page:    t.Page,
					Detail:  fmt.Sprintf("table %s: no concept for %q", t.ID, raw.RowLabel),
				})
				continue
			}

			for period, cell := range raw.Values {
				value, present, err := ParseAmount(cell)
				if err != nil {
					diags = append(diags, diag.Diagnostic{
						Kind:    diag.KindNormalizationMiss,
						Company: company,
						Page:    t.Page,
						Detail:  fmt.Sprintf("table %s row %q: %v", t.ID, raw.RowLabel, err),
					})
					continue
				}
				if !present {
					continue
				}
				n.seq++
				items = append(items, NormalizedLineItem{
					Company:      company,
					Concept:      concept,
					Period:       period,
					Value:        value * scale,
					RawLabel:     raw.RowLabel,
					Confidence:   confidence,
					ScaleApplied: scale,
					Currency:     currency,
					Seq:          n.seq,
				})
			}
		}
	}
	return items, unmatched, diags
}

// matchConcept resolves a filing label in two stages: exact dictionary
// lookup first, then fuzzy matching against entries of the same statement
// type. Exact hits carry confidence 1.0; fuzzy hits carry their score.
func (n *Normalizer) matchConcept(label string, st statement.Type) (Concept, float64, bool) {
	cleaned := cleanLabel(label)
	if entry, ok := n.dictionary[cleaned]; ok && entry.statement == st {
		return entry.concept, 1.0, true
	}

	var bestConcept Concept
	var bestScore float64
	// Sorted key order keeps equal-score ties deterministic across runs.
	for _, key := range n.sortedKeys() {
		entry := n.dictionary[key]
		if entry.statement != st {
			continue
		}
		score := similarity(cleaned, key)
		if score > bestScore {
			bestScore = score
			bestConcept = entry.concept
		}
	}
	if bestScore >= n.SimilarityThreshold {
		return bestConcept, bestScore, true
	}
	return "", 0, false
}

func cleanLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.Trim(s, ":：.、 ")
	return s
}

// similarity scores two labels in [0,1]. Containment of a whole dictionary
// key scores 0.9; otherwise normalized Levenshtein distance.
func similarity(label, key string) float64 {
	if label == key {
		return 1.0
	}
	if utf8.RuneCountInString(key) >= 4 || isCJK(key) {
		if strings.Contains(label, key) || strings.Contains(key, label) {
			return 0.9
		}
	}
	la, lb := []rune(label), []rune(key)
	longest := len(la)
	if len(lb) > longest {
		longest = len(lb)
	}
	if longest == 0 {
		return 0
	}
	return 1.0 - float64(levenshtein(la, lb))/float64(longest)
}

func isCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
