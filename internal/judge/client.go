package judge

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"
)

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
