package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaChecker_EmptyURL(t *testing.T) {
	checker := NewOllamaChecker("")

	err := checker.HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected error with empty URL")
	}
	if err.Error() != "ollama url not configured" {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestOllamaChecker_SuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Ollama is running"))
	}))
	defer server.Close()

	checker := NewOllamaChecker(server.URL)
	if err := checker.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected no error for 200 response, got %v", err)
	}
}

func TestOllamaChecker_ErrorResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
	}{
		{"404 Not Found", http.StatusNotFound},
		{"500 Internal Server Error", http.StatusInternalServerError},
		{"503 Service Unavailable", http.StatusServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			}))
			defer server.Close()

			checker := NewOllamaChecker(server.URL)
			if err := checker.HealthCheck(context.Background()); err == nil {
				t.Errorf("expected error for %d response, got nil", tc.statusCode)
			}
		})
	}
}

func TestOllamaChecker_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	checker := NewOllamaChecker(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := checker.HealthCheck(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}
