package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
	"sync"
)

// MockProvider returns a canned response. Used in tests and when no
// generation credentials are configured.
type MockProvider struct {
	Response string
	Err      error
	Calls    int
}

var _ Provider = (*MockProvider)(nil)

func (p *MockProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	p.Calls++
	if p.Err != nil {
		return "", p.Err
	}
	if p.Response != "" {
		return p.Response, nil
	}
	return "mock response (configure a generation provider for real answers)", nil
}

func (p *MockProvider) AdaptInstructions(raw string) string { return raw }

// MockEmbedder produces a deterministic unit vector seeded by the content
// hash, so retrieval behaves stably offline: identical text always embeds to
// the identical vector, distinct text almost surely does not.
type MockEmbedder struct {
	Dim int // defaults to 768

	mu    sync.Mutex
	calls int
}

var _ Embedder = (*MockEmbedder)(nil)

func (e *MockEmbedder) ModelName() string { return "mock-embedder" }

// CallCount reports how many Embed calls were made. Safe under the index's
// concurrent embedding.
func (e *MockEmbedder) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *MockEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	dim := e.Dim
	if dim == 0 {
		dim = 768
	}
	sum := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	rng := rand.New(rand.NewSource(seed))

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}
