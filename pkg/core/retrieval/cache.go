package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"annualcompare/pkg/core/llm"
)

// CachedEmbedder wraps an Embedder with a two-level cache: an in-process
// LRU in front of a file cache on disk. The cache key covers model, task
// type and text, so re-adding an unchanged document costs zero provider
// calls.
type CachedEmbedder struct {
	inner llm.Embedder
	dir   string // "" disables the file layer
	lru   *expirable.LRU[string, []float32]
}

// NewCachedEmbedder builds the cache decorator. dir may be "" to keep the
// cache memory-only.
func NewCachedEmbedder(inner llm.Embedder, dir string) (*CachedEmbedder, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating embedding cache dir: %w", err)
		}
	}
	return &CachedEmbedder{
		inner: inner,
		dir:   dir,
		lru:   expirable.NewLRU[string, []float32](2048, nil, 24*time.Hour),
	}, nil
}

func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

func (c *CachedEmbedder) Embed(ctx context.Context, text, taskType string) ([]float32, error) {
	key := c.cacheKey(text, taskType)

	if vec, ok := c.lru.Get(key); ok {
		return vec, nil
	}
	if vec, ok := c.readFile(key); ok {
		c.lru.Add(key, vec)
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, vec)
	c.writeFile(key, vec)
	return vec, nil
}

func (c *CachedEmbedder) cacheKey(text, taskType string) string {
	h := sha256.New()
	h.Write([]byte(c.inner.ModelName()))
	h.Write([]byte{0})
	h.Write([]byte(taskType))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) readFile(key string) ([]float32, bool) {
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(c.dir, key+".json"))
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil || len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

// writeFile persists best effort; a full disk never fails an embedding.
func (c *CachedEmbedder) writeFile(key string, vec []float32) {
	if c.dir == "" {
		return
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	tmp := filepath.Join(c.dir, key+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, filepath.Join(c.dir, key+".json"))
}
