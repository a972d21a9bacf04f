// Package ocr models the text-recognition collaborator. Providers are
// interchangeable implementations of one contract, selected by configured
// credentials, never hard-wired into extraction logic.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// ErrNoProvider is returned when no OCR backend is configured. Callers treat
// it as a degraded mode, not a fatal error.
var ErrNoProvider = errors.New("no OCR provider configured")

// TextExtractor is the single request/response contract every OCR backend
// implements.
type TextExtractor interface {
	Name() string
	ExtractPage(ctx context.Context, image []byte, pageIndex int) (string, error)
}

// FromEnv selects a provider from the environment. Gemini vision is the only
// cloud backend wired in; the function is the one place a new backend would
// be registered.
func FromEnv() (TextExtractor, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return &GeminiOCR{apiKey: key}, nil
	}
	return nil, ErrNoProvider
}

// GeminiOCR transcribes page images through the Gemini vision models.
type GeminiOCR struct {
	apiKey string
	Model  string // defaults to gemini-2.0-flash
}

func (g *GeminiOCR) Name() string { return "gemini" }

func (g *GeminiOCR) ExtractPage(ctx context.Context, image []byte, pageIndex int) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create GenAI client: %w", err)
	}

	model := g.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "image/png", Data: image}},
			{Text: "Transcribe all text on this report page exactly as printed, preserving line breaks. Output only the transcription."},
		},
	}}

	result, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini OCR failed on page %d: %w", pageIndex, err)
	}
	return result.Text(), nil
}

// Mock returns a fixed transcription and is used in tests and offline runs.
type Mock struct {
	Text string
	Err  error
	// Calls counts invocations so tests can assert fallback behavior.
	Calls int
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) ExtractPage(ctx context.Context, image []byte, pageIndex int) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}
