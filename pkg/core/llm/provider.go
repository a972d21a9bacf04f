// Package llm holds the capability interfaces for the two language-model
// collaborators (text generation and text embedding) plus their concrete
// providers. Any backend is an interchangeable implementation behind one of
// these contracts, selected by configuration.
package llm

import (
	"context"
)

// Provider is the interface for all generation providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// Embedder is the interface for all embedding providers. taskType follows the
// Gemini convention and may be ignored by backends without the distinction.
type Embedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)
