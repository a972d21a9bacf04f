package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"annualcompare/pkg/core/diag"
	"annualcompare/pkg/core/document"
	"annualcompare/pkg/core/llm"
)

// Chunk is one embedded retrieval unit.
type Chunk struct {
	ID        string
	Company   string
	Page      int
	Text      string
	Hash      string
	Embedding []float32
}

// ScoredChunk is a query hit.
type ScoredChunk struct {
	Chunk
	Score float64
}

// ErrIndexEmpty is returned by Query when nothing has been embedded, for
// example after the embedding collaborator failed for every chunk.
var ErrIndexEmpty = errors.New("retrieval index has no embedded chunks")

// Index is the in-memory vector store over report chunks. It is safe for
// concurrent use.
type Index struct {
	mu       sync.RWMutex
	embedder llm.Embedder
	chunks   []Chunk

	// Workers bounds concurrent embedding calls per document.
	Workers       int
	RetryAttempts int
	RetryBackoff  time.Duration

	// CallTimeout bounds each individual embedding call; zero means no
	// bound.
	CallTimeout time.Duration

	degraded bool
}

func NewIndex(embedder llm.Embedder) *Index {
	return &Index{
		embedder:      embedder,
		Workers:       4,
		RetryAttempts: 3,
		RetryBackoff:  500 * time.Millisecond,
	}
}

// Degraded reports whether any chunk failed to embed. A degraded index
// still serves queries over the chunks that did embed.
func (ix *Index) Degraded() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.degraded
}

// AddReport chunks and embeds one company's report. Chunks that fail to
// embed after retries are dropped with a diagnostic; the document's other
// chunks still index. Duplicate chunks (same company and content hash) are
// skipped without re-embedding.
func (ix *Index) AddReport(ctx context.Context, report *document.Report, chunker *Chunker) []diag.Diagnostic {
	if chunker == nil {
		chunker = NewChunker()
	}
	textChunks := chunker.Split(report)

	existing := ix.hashesFor(report.Company)

	type embedded struct {
		chunk TextChunk
		hash  string
		vec   []float32
		err   error
	}
	results := make([]embedded, len(textChunks))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(ix.Workers)
	for i, tc := range textChunks {
		hash := contentHash(tc.Text)
		if existing[hash] {
			continue
		}
		eg.Go(func() error {
			var vec []float32
			err := llm.WithRetry(egCtx, ix.RetryAttempts, ix.RetryBackoff, func() error {
				callCtx, cancel := ix.callContext(egCtx)
				defer cancel()
				var embErr error
				vec, embErr = ix.embedder.Embed(callCtx, tc.Text, llm.TaskRetrievalDocument)
				return embErr
			})
			results[i] = embedded{chunk: tc, hash: hash, vec: vec, err: err}
			return nil
		})
	}
	_ = eg.Wait()

	var diags []diag.Diagnostic
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, r := range results {
		if r.hash == "" {
			continue
		}
		if r.err != nil {
			ix.degraded = true
			diags = append(diags, diag.Diagnostic{
				Kind:    diag.KindCollaboratorFailure,
				Company: report.Company,
				Page:    r.chunk.Page,
				Detail:  fmt.Sprintf("embedding: %v", r.err),
			})
			continue
		}
		ix.chunks = append(ix.chunks, Chunk{
			ID:        uuid.NewString(),
			Company:   report.Company,
			Page:      r.chunk.Page,
			Text:      r.chunk.Text,
			Hash:      r.hash,
			Embedding: r.vec,
		})
	}
	return diags
}

func (ix *Index) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ix.CallTimeout > 0 {
		return context.WithTimeout(ctx, ix.CallTimeout)
	}
	return ctx, func() {}
}

func (ix *Index) hashesFor(company string) map[string]bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	hashes := map[string]bool{}
	for _, c := range ix.chunks {
		if c.Company == company {
			hashes[c.Hash] = true
		}
	}
	return hashes
}

// Len reports the number of embedded chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Companies lists the companies with at least one embedded chunk, sorted.
func (ix *Index) Companies() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	seen := map[string]bool{}
	for _, c := range ix.chunks {
		seen[c.Company] = true
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Query returns the top-k chunks for the query text with a company
// coverage guarantee: when minCoverage > 0, the result includes the best
// chunk of at least min(minCoverage, companies indexed) distinct companies
// before the remaining slots fill by global score.
func (ix *Index) Query(ctx context.Context, text string, k, minCoverage int) ([]ScoredChunk, error) {
	if k <= 0 {
		k = 8
	}

	var queryVec []float32
	err := llm.WithRetry(ctx, ix.RetryAttempts, ix.RetryBackoff, func() error {
		callCtx, cancel := ix.callContext(ctx)
		defer cancel()
		var embErr error
		queryVec, embErr = ix.embedder.Embed(callCtx, text, llm.TaskRetrievalQuery)
		return embErr
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.chunks) == 0 {
		return nil, ErrIndexEmpty
	}

	scored := make([]ScoredChunk, 0, len(ix.chunks))
	for _, c := range ix.chunks {
		scored = append(scored, ScoredChunk{Chunk: c, Score: cosine(queryVec, c.Embedding)})
	}
	sort.Slice(scored, func(i, j int) bool { return scoredLess(scored[i], scored[j]) })

	picked := make([]ScoredChunk, 0, k)
	taken := map[string]bool{} // chunk IDs already selected

	if minCoverage > 0 {
		// Best chunk per company, companies ordered by their best score.
		bestByCompany := map[string]ScoredChunk{}
		var companyOrder []string
		for _, sc := range scored {
			if _, ok := bestByCompany[sc.Company]; !ok {
				bestByCompany[sc.Company] = sc
				companyOrder = append(companyOrder, sc.Company)
			}
		}
		target := minCoverage
		if len(companyOrder) < target {
			target = len(companyOrder)
		}
		if k < target {
			target = k
		}
		for _, company := range companyOrder[:target] {
			sc := bestByCompany[company]
			picked = append(picked, sc)
			taken[sc.ID] = true
		}
	}

	for _, sc := range scored {
		if len(picked) >= k {
			break
		}
		if taken[sc.ID] {
			continue
		}
		picked = append(picked, sc)
		taken[sc.ID] = true
	}

	sort.Slice(picked, func(i, j int) bool { return scoredLess(picked[i], picked[j]) })
	return picked, nil
}

// scoredLess orders results by score descending, breaking ties on company,
// page and hash so equal-scored chunks never reorder across runs.
func scoredLess(a, b ScoredChunk) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Company != b.Company {
		return a.Company < b.Company
	}
	if a.Page != b.Page {
		return a.Page < b.Page
	}
	return a.Hash < b.Hash
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
