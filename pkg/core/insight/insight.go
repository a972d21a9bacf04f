package insight

import "annualcompare/pkg/core/retrieval"

// Citation anchors one claim back to a retrieved passage.
type Citation struct {
	Company string `json:"company"`
	Page    int    `json:"page"`
	Snippet string `json:"snippet"`
}

// CompanyAnswer is the per-company portion of a composed insight.
type CompanyAnswer struct {
	Company   string     `json:"company"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Insight is the answer to a cross-company question over the indexed
// reports. When the generation collaborator is unavailable the retrieved
// passages are still returned so the caller gets raw evidence instead of
// nothing.
type Insight struct {
	Query                 string
	CompanyAnswers        []CompanyAnswer
	Comparison            string
	GenerationUnavailable bool
	Retrieved             []retrieval.ScoredChunk
}
