package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// OllamaChecker reports reachability of the Ollama server that backs the
// embedding and judge models.
type OllamaChecker struct {
	url    string
	client *http.Client
}

// NewOllamaChecker creates an Ollama health checker. The url is the server
// base URL (e.g. "http://localhost:11434"); Ollama answers a plain GET on
// it with a 200 when it is up.
func NewOllamaChecker(url string) *OllamaChecker {
	return &OllamaChecker{
		url: url,
		client: &http.Client{
			Timeout: 3 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// HealthCheck verifies the Ollama server responds with a 2xx status.
func (o *OllamaChecker) HealthCheck(ctx context.Context) error {
	if o.url == "" {
		return fmt.Errorf("ollama url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach ollama server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ollama unhealthy: unexpected status code %d", resp.StatusCode)
	}

	return nil
}
