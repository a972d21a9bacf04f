package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"annualcompare/pkg/core/llm"
	"annualcompare/pkg/core/retrieval"
	"annualcompare/pkg/core/utils"
)

const composerSystemPrompt = `You are a financial analyst comparing annual reports from multiple companies.
Answer strictly from the provided passages. Every claim must cite a passage by company and page.
If the passages do not support an answer for a company, say so for that company.
Respond with JSON only, in this shape:
{
  "company_answers": [
    {"company": "...", "answer": "...", "citations": [{"company": "...", "page": 1, "snippet": "..."}]}
  ],
  "comparison": "..."
}`

// Composer answers cross-company questions: retrieve passages with a
// coverage guarantee, then synthesize a cited answer through the text
// generation collaborator.
type Composer struct {
	Provider llm.Provider
	Index    *retrieval.Index

	K               int
	MinCoverage     int
	MaxContextChars int
	RetryAttempts   int
	RetryBackoff    time.Duration

	// CallTimeout bounds each individual generation call; zero means no
	// bound.
	CallTimeout time.Duration
}

func NewComposer(provider llm.Provider, index *retrieval.Index) *Composer {
	return &Composer{
		Provider:        provider,
		Index:           index,
		K:               8,
		MinCoverage:     2,
		MaxContextChars: 24000,
		RetryAttempts:   3,
		RetryBackoff:    time.Second,
	}
}

// Compose answers one query. Provider failure after retries degrades to an
// insight carrying only the retrieved passages; only an empty or
// unqueryable index is an error.
func (c *Composer) Compose(ctx context.Context, query string) (*Insight, error) {
	hits, err := c.Index.Query(ctx, query, c.K, c.MinCoverage)
	if err != nil {
		if errors.Is(err, retrieval.ErrIndexEmpty) {
			return nil, err
		}
		return nil, fmt.Errorf("retrieving passages: %w", err)
	}

	out := &Insight{Query: query, Retrieved: hits}

	prompt := c.buildPrompt(query, hits)
	options := map[string]interface{}{
		"response_format": map[string]interface{}{"type": "json_object"},
	}

	var response string
	err = llm.WithRetry(ctx, c.RetryAttempts, c.RetryBackoff, func() error {
		callCtx := ctx
		if c.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.CallTimeout)
			defer cancel()
		}
		var genErr error
		response, genErr = c.Provider.GenerateResponse(callCtx, prompt, composerSystemPrompt, options)
		return genErr
	})
	if err != nil {
		out.GenerationUnavailable = true
		return out, nil
	}

	var payload struct {
		CompanyAnswers []CompanyAnswer `json:"company_answers"`
		Comparison     string          `json:"comparison"`
	}
	if _, err := utils.SmartParse(response, &payload); err != nil {
		out.GenerationUnavailable = true
		return out, nil
	}

	out.CompanyAnswers = payload.CompanyAnswers
	out.Comparison = utils.CleanMarkdown(payload.Comparison)
	return out, nil
}

// buildPrompt packs the retrieved passages under the context budget, best
// scores first, each tagged with its provenance.
func (c *Composer) buildPrompt(query string, hits []retrieval.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nPassages:\n")

	used := sb.Len()
	for _, hit := range hits {
		passage := fmt.Sprintf("[%s p.%d]\n%s\n\n", hit.Company, hit.Page, hit.Text)
		if used+len(passage) > c.MaxContextChars {
			break
		}
		sb.WriteString(passage)
		used += len(passage)
	}
	return sb.String()
}
