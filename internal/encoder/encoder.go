// Package encoder adapts an external sentence encoder to a small interface
// the cross-reference scorer can depend on. The production implementation
// talks to an Ollama embedding model; corpus and query vectors must come
// from the same model so dimensions line up.
package encoder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// Encoder converts text into a fixed-length dense vector. Implementations
// must be deterministic for identical input.
type Encoder interface {
	// Encode returns the embedding for the given text.
	Encode(ctx context.Context, text string) ([]float64, error)

	// Dimensions returns the vector length this encoder produces.
	Dimensions() int
}

// OllamaEncoder implements Encoder against the Ollama embeddings API.
type OllamaEncoder struct {
	client     *ollama.Client
	model      string
	dimensions int
}

// NewOllamaEncoder creates an encoder for the given host and model.
// An empty host falls back to the OLLAMA_HOST environment configuration.
func NewOllamaEncoder(host, model string, dimensions int) (*OllamaEncoder, error) {
	client, err := newOllamaClient(host)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &OllamaEncoder{client: client, model: model, dimensions: dimensions}, nil
}

// Encode requests an embedding and validates its dimensionality.
func (e *OllamaEncoder) Encode(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.Embeddings(ctx, &ollama.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("embed text with %s: %w", e.model, err)
	}

	if len(resp.Embedding) != e.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d",
			len(resp.Embedding), e.dimensions)
	}
	return resp.Embedding, nil
}

// Dimensions returns the configured vector length.
func (e *OllamaEncoder) Dimensions() int {
	return e.dimensions
}

// newOllamaClient builds a client for an explicit host, or from the
// environment when host is empty.
func newOllamaClient(host string) (*ollama.Client, error) {
	if host == "" {
		return ollama.ClientFromEnvironment()
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	return ollama.NewClient(base, &http.Client{Timeout: 60 * time.Second}), nil
}
