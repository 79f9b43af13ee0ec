package credibility

import (
	"context"
	"log/slog"
	"testing"

	"github.com/refcheck/refcheck/internal/reference"
	"github.com/refcheck/refcheck/internal/reputation"
)

func TestDomainScorer_SeededDomain(t *testing.T) {
	repo := reputation.NewInMemoryRepository()
	if _, err := reputation.Seed(context.Background(), repo); err != nil {
		t.Fatalf("seed reputation: %v", err)
	}
	s := NewDomainScorer(reputation.NewResolver(repo, slog.Default()))

	res, err := s.Analyze(context.Background(), &reference.Reference{Domain: "nature.com"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Score != 30 {
		t.Errorf("expected seeded score 30, got %d", res.Score)
	}
	if res.Details["category"] != "academic" || res.Details["verified"] != true {
		t.Errorf("unexpected details: %+v", res.Details)
	}
}

func TestDomainScorer_HeuristicFallback(t *testing.T) {
	s := NewDomainScorer(reputation.NewResolver(reputation.NewInMemoryRepository(), slog.Default()))

	tests := []struct {
		domain       string
		wantScore    int
		wantCategory string
	}{
		{"mit.edu", 25, "academic"},
		{"data.gov", 25, "government"},
		{"quantum-research.net", 15, "academic"},
		{"randomblog.net", 10, "unknown"},
		{"", 0, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			res, err := s.Analyze(context.Background(), &reference.Reference{Domain: tt.domain})
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			if res.Score != tt.wantScore {
				t.Errorf("domain %q: expected score %d, got %d", tt.domain, tt.wantScore, res.Score)
			}
			if res.Details["category"] != tt.wantCategory {
				t.Errorf("domain %q: expected category %q, got %v", tt.domain, tt.wantCategory, res.Details["category"])
			}
		})
	}
}
