// Package judge adapts an external language model to the single-call
// contract the content judgment scorer needs: prompt in, raw text out.
// The call may fail or time out; interpreting the response (and degrading
// gracefully) is the scorer's responsibility.
package judge

import (
	"context"
	"fmt"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

// Judge produces a raw text response for an analysis prompt. The caller
// bounds the call with a context deadline.
type Judge interface {
	Judge(ctx context.Context, prompt string) (string, error)
}

// OllamaJudge implements Judge against a local Ollama model.
type OllamaJudge struct {
	client *ollama.Client
	model  string
}

// NewOllamaJudge creates a judge for the given host and model.
// An empty host falls back to the OLLAMA_HOST environment configuration.
func NewOllamaJudge(host, model string) (*OllamaJudge, error) {
	client, err := newOllamaClient(host)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &OllamaJudge{client: client, model: model}, nil
}

// Judge runs the prompt non-streaming and returns the accumulated response.
func (j *OllamaJudge) Judge(ctx context.Context, prompt string) (string, error) {
	stream := false
	var response strings.Builder

	err := j.client.Generate(ctx, &ollama.GenerateRequest{
		Model:  j.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": 0.2,
		},
	}, func(resp ollama.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("judge with %s: %w", j.model, err)
	}

	return response.String(), nil
}

// CheckModel verifies the configured model is available on the backend.
func (j *OllamaJudge) CheckModel(ctx context.Context) error {
	models, err := j.client.List(ctx)
	if err != nil {
		return fmt.Errorf("list ollama models: %w", err)
	}
	for _, m := range models.Models {
		if m.Name == j.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found on ollama backend", j.model)
}
