package retrieval

import (
	"context"
	"testing"

	"annualcompare/pkg/core/llm"
)

func TestCachedEmbedderHitsCache(t *testing.T) {
	ctx := context.Background()
	inner := &llm.MockEmbedder{}
	cached, err := NewCachedEmbedder(inner, t.TempDir())
	if err != nil {
		t.Fatalf("NewCachedEmbedder: %v", err)
	}

	first, err := cached.Embed(ctx, "revenue grew 12% year over year", llm.TaskRetrievalDocument)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := cached.Embed(ctx, "revenue grew 12% year over year", llm.TaskRetrievalDocument)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if inner.CallCount() != 1 {
		t.Errorf("inner calls = %d, want 1", inner.CallCount())
	}
	if len(first) != len(second) {
		t.Fatalf("vector lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}
}

func TestCachedEmbedderKeyIncludesTaskType(t *testing.T) {
	ctx := context.Background()
	inner := &llm.MockEmbedder{}
	cached, err := NewCachedEmbedder(inner, "")
	if err != nil {
		t.Fatalf("NewCachedEmbedder: %v", err)
	}

	cached.Embed(ctx, "same text", llm.TaskRetrievalDocument)
	cached.Embed(ctx, "same text", llm.TaskRetrievalQuery)
	if inner.CallCount() != 2 {
		t.Errorf("inner calls = %d, want 2 (task types must not share entries)", inner.CallCount())
	}
}

func TestCachedEmbedderSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := &llm.MockEmbedder{}
	cachedA, _ := NewCachedEmbedder(first, dir)
	cachedA.Embed(ctx, "persisted across processes", llm.TaskRetrievalDocument)

	// A fresh decorator over the same directory serves from disk.
	second := &llm.MockEmbedder{}
	cachedB, _ := NewCachedEmbedder(second, dir)
	cachedB.Embed(ctx, "persisted across processes", llm.TaskRetrievalDocument)
	if second.CallCount() != 0 {
		t.Errorf("file cache missed: %d inner calls, want 0", second.CallCount())
	}
}
