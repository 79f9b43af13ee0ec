package credibility

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/refcheck/refcheck/internal/corpus"
	"github.com/refcheck/refcheck/internal/reference"
)

type fakeEncoder struct {
	vec []float64
	err error
}

func (f *fakeEncoder) Encode(ctx context.Context, text string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEncoder) Dimensions() int { return len(f.vec) }

// sourceAtSimilarity builds a unit-ish 2-d embedding whose cosine
// similarity against the query vector [1, 0] is the given value.
func sourceAtSimilarity(url, title string, similarity float64) *corpus.TrustedSource {
	return &corpus.TrustedSource{
		URL:       url,
		Title:     title,
		Embedding: []float64{similarity, math.Sqrt(1 - similarity*similarity)},
	}
}

func newTestIndex(t *testing.T, sources ...*corpus.TrustedSource) *corpus.Index {
	t.Helper()
	repo := corpus.NewInMemorySourceRepository()
	for _, src := range sources {
		if err := repo.Add(context.Background(), src); err != nil {
			t.Fatalf("seed corpus: %v", err)
		}
	}
	return corpus.NewIndex(repo, slog.Default())
}

func titleRef(title string) *reference.Reference {
	return &reference.Reference{ID: "ref-1", URL: "https://example.org/articles/" + title, Title: &title}
}

func TestCrossRefScorer_FourMatchesGoodSimilarity(t *testing.T) {
	index := newTestIndex(t,
		sourceAtSimilarity("https://a.example", "Source A", 0.65),
		sourceAtSimilarity("https://b.example", "Source B", 0.65),
		sourceAtSimilarity("https://c.example", "Source C", 0.65),
		sourceAtSimilarity("https://d.example", "Source D", 0.65),
	)
	s := NewCrossRefScorer(&fakeEncoder{vec: []float64{1, 0}}, index, DefaultScoringConfig().CrossRef, slog.Default())

	res, err := s.Analyze(context.Background(), titleRef("quantum entanglement measurements"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	// 4 matches -> base 20, avg 0.65 -> x0.9 -> 18.
	if res.Score != 18 {
		t.Errorf("expected score 18, got %d", res.Score)
	}
	if res.Details["count"] != 4 {
		t.Errorf("expected count 4, got %v", res.Details["count"])
	}
	if res.Details["has_corroboration"] != true {
		t.Error("4 matches at avg 0.65 should corroborate")
	}
}

func TestCrossRefScorer_NoMatches(t *testing.T) {
	index := newTestIndex(t) // empty corpus
	s := NewCrossRefScorer(&fakeEncoder{vec: []float64{1, 0}}, index, DefaultScoringConfig().CrossRef, slog.Default())

	res, err := s.Analyze(context.Background(), titleRef("entirely novel topic"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Score != 5 {
		t.Errorf("expected fixed floor 5 for empty index, got %d", res.Score)
	}
	if res.Details["count"] != 0 {
		t.Errorf("expected count 0, got %v", res.Details["count"])
	}
	if res.Details["has_corroboration"] != false {
		t.Error("no matches must not corroborate")
	}
}

func TestCrossRefScorer_BelowThresholdExcluded(t *testing.T) {
	index := newTestIndex(t,
		sourceAtSimilarity("https://a.example", "Weak match", 0.3),
		sourceAtSimilarity("https://b.example", "Strong match", 0.9),
	)
	s := NewCrossRefScorer(&fakeEncoder{vec: []float64{1, 0}}, index, DefaultScoringConfig().CrossRef, slog.Default())

	res, err := s.Analyze(context.Background(), titleRef("some topic"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Details["count"] != 1 {
		t.Errorf("expected only the strong match counted, got %v", res.Details["count"])
	}
	// 1 match -> base 8, avg 0.9 -> x1.0 -> 8.
	if res.Score != 8 {
		t.Errorf("expected score 8, got %d", res.Score)
	}
}

func TestCrossRefScorer_InsufficientInput(t *testing.T) {
	index := newTestIndex(t)
	s := NewCrossRefScorer(&fakeEncoder{vec: []float64{1, 0}}, index, DefaultScoringConfig().CrossRef, slog.Default())

	res, err := s.Analyze(context.Background(), &reference.Reference{ID: "ref-1"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Score != 5 {
		t.Errorf("expected floor 5 for empty query text, got %d", res.Score)
	}
	if !strings.Contains(res.Explanation, "Insufficient information") {
		t.Errorf("explanation should note insufficient input: %s", res.Explanation)
	}
}

func TestCrossRefScorer_EncoderFailureDegrades(t *testing.T) {
	index := newTestIndex(t, sourceAtSimilarity("https://a.example", "Source A", 0.9))
	s := NewCrossRefScorer(&fakeEncoder{err: errors.New("model offline")}, index, DefaultScoringConfig().CrossRef, slog.Default())

	res, err := s.Analyze(context.Background(), titleRef("anything"))
	if err != nil {
		t.Fatalf("encoder failure must not propagate: %v", err)
	}
	if res.Score != 5 {
		t.Errorf("expected degraded floor 5, got %d", res.Score)
	}
	if !strings.Contains(res.Explanation, "model offline") {
		t.Errorf("explanation should carry the failure reason: %s", res.Explanation)
	}
}

func TestBuildQueryText(t *testing.T) {
	title := "A Study of Things"
	author := "Jane Doe"

	tests := []struct {
		name string
		ref  *reference.Reference
		want string
	}{
		{"title and author", &reference.Reference{Title: &title, Author: &author}, "A Study of Things. by Jane Doe"},
		{"title only", &reference.Reference{Title: &title}, "A Study of Things"},
		{"url slug fallback", &reference.Reference{URL: "https://x.example/posts/deep-sea-mining_review"}, "deep sea mining review"},
		{"nothing usable", &reference.Reference{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQueryText(tt.ref); got != tt.want {
				t.Errorf("buildQueryText() = %q, want %q", got, tt.want)
			}
		})
	}
}
