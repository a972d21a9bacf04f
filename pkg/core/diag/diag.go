// Package diag defines the shared failure taxonomy for a comparison session.
// Every stage of the pipeline reports partial failures as Diagnostics instead
// of aborting; the orchestrator accumulates them into a single report that is
// returned to the caller alongside whatever results were computable.
package diag

import (
	"fmt"
	"strings"
)

// Kind classifies a diagnostic.
type Kind string

const (
	// KindExtractionFailure: a page or document could not be read at all.
	KindExtractionFailure Kind = "EXTRACTION_FAILURE"
	// KindUnextractablePage: a page yielded zero blocks after direct
	// extraction and the OCR fallback. The page is excluded, not fatal.
	KindUnextractablePage Kind = "UNEXTRACTABLE_PAGE"
	// KindClassificationAmbiguity: a table's statement type could not be
	// determined. The table is excluded from metrics, kept for retrieval.
	KindClassificationAmbiguity Kind = "CLASSIFICATION_AMBIGUITY"
	// KindUnperiodizedTable: no parseable fiscal-period column was found.
	KindUnperiodizedTable Kind = "UNPERIODIZED_TABLE"
	// KindNormalizationMiss: a row label matched no canonical concept above
	// the similarity threshold. The raw item stays in the audit trail.
	KindNormalizationMiss Kind = "NORMALIZATION_MISS"
	// KindAlignmentGap: a company is missing a ranked period. The cell is
	// marked missing; this is informational, not an error.
	KindAlignmentGap Kind = "ALIGNMENT_GAP"
	// KindRatioUndefined: a ratio could not be computed (missing input or
	// degenerate denominator). The ratio is null with a reason.
	KindRatioUndefined Kind = "RATIO_UNDEFINED"
	// KindCollaboratorFailure: an external service (OCR, embedding,
	// generation) failed after bounded retries. The dependent feature is
	// degraded, never the whole run.
	KindCollaboratorFailure Kind = "COLLABORATOR_FAILURE"
	// KindMixedCurrency: companies report in different currencies. Values
	// are never converted; the caller is warned instead.
	KindMixedCurrency Kind = "MIXED_CURRENCY"
)

// Diagnostic is one recorded partial failure or warning.
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Company string `json:"company,omitempty"`
	Page    int    `json:"page,omitempty"` // 1-based; 0 means not page-scoped
	Detail  string `json:"detail"`
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(string(d.Kind))
	if d.Company != "" {
		fmt.Fprintf(&sb, " [%s]", d.Company)
	}
	if d.Page > 0 {
		fmt.Fprintf(&sb, " p.%d", d.Page)
	}
	if d.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(d.Detail)
	}
	return sb.String()
}

// New is a convenience constructor for page-less diagnostics.
func New(kind Kind, company, detail string) Diagnostic {
	return Diagnostic{Kind: kind, Company: company, Detail: detail}
}

// Count returns how many diagnostics of the given kind are present.
func Count(ds []Diagnostic, kind Kind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
