package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics() returned nil")
	}
	if m.httpRequestDuration == nil {
		t.Error("httpRequestDuration is nil")
	}
	if m.httpRequestsTotal == nil {
		t.Error("httpRequestsTotal is nil")
	}
}

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	// Observe a request to create metric entries
	m.ObserveHTTPRequest("GET", "/api/references", "200", 0.05, 0, 512)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	foundTotal := false
	foundDuration := false
	for _, mf := range metrics {
		if mf.GetName() == MetricHTTPRequestsTotal {
			foundTotal = true
		}
		if mf.GetName() == MetricHTTPRequestDuration {
			foundDuration = true
		}
	}

	if !foundTotal {
		t.Errorf("metric %s not found in registry", MetricHTTPRequestsTotal)
	}
	if !foundDuration {
		t.Errorf("metric %s not found in registry", MetricHTTPRequestDuration)
	}
}

func TestMetrics_ObserveHTTPRequest(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	m.ObserveHTTPRequest("GET", "/api/references", "200", 0.02, 0, 1024)
	m.ObserveHTTPRequest("GET", "/api/references", "200", 0.03, 0, 2048)
	m.ObserveHTTPRequest("POST", "/api/references", "201", 0.10, 256, 512)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	var totalMetric *dto.MetricFamily
	for i := range metrics {
		if metrics[i].GetName() == MetricHTTPRequestsTotal {
			totalMetric = metrics[i]
			break
		}
	}

	if totalMetric == nil {
		t.Fatal("http_requests_total metric not found")
	}

	// Two distinct label sets: GET/200 and POST/201
	if len(totalMetric.GetMetric()) != 2 {
		t.Errorf("expected 2 metric entries, got %d", len(totalMetric.GetMetric()))
	}
}

func TestMetrics_Collectors(t *testing.T) {
	m := NewMetrics()
	collectors := m.Collectors()

	if len(collectors) != 4 {
		t.Errorf("expected 4 collectors, got %d", len(collectors))
	}
}
