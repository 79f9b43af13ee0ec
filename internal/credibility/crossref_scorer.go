package credibility

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/refcheck/refcheck/internal/corpus"
	"github.com/refcheck/refcheck/internal/encoder"
	"github.com/refcheck/refcheck/internal/reference"
)

// CrossRefMaxScore is the cross-reference strategy ceiling.
const CrossRefMaxScore = 25

// CrossRefScorer scores corroboration: it embeds the reference's text and
// searches the trusted-source corpus for similar documents. More matches
// at higher similarity mean better support. Contributes up to 25 points.
//
// Encoder or index failures degrade to the floor score instead of
// propagating; a reference on a novel topic and a broken index look the
// same to the caller, differing only in explanation.
type CrossRefScorer struct {
	encoder encoder.Encoder
	index   *corpus.Index
	weights CrossRefWeights
	logger  *slog.Logger
}

// NewCrossRefScorer creates a CrossRefScorer.
func NewCrossRefScorer(enc encoder.Encoder, index *corpus.Index, weights CrossRefWeights, logger *slog.Logger) *CrossRefScorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrossRefScorer{encoder: enc, index: index, weights: weights, logger: logger}
}

// Name identifies the strategy.
func (s *CrossRefScorer) Name() string { return "Cross-Reference Analysis" }

// MaxScore is the strategy ceiling.
func (s *CrossRefScorer) MaxScore() int { return CrossRefMaxScore }

// Analyze embeds the reference text and scores corpus corroboration.
// Never returns an error; all failure modes degrade to the floor score.
func (s *CrossRefScorer) Analyze(ctx context.Context, ref *reference.Reference) (ScoreResult, error) {
	queryText := buildQueryText(ref)
	if queryText == "" {
		return ScoreResult{
			Score: s.floorScore(),
			Explanation: fmt.Sprintf("Insufficient information to perform cross-reference analysis. "+
				"Default score of %d/%d assigned.", s.floorScore(), s.MaxScore()),
			Details: emptyCrossRefDetails(),
		}, nil
	}

	embedding, err := s.encoder.Encode(ctx, queryText)
	if err != nil {
		s.logger.Warn("embedding failed during cross-reference analysis",
			slog.String("reference_id", ref.ID),
			slog.String("error", err.Error()))
		return s.degraded(err), nil
	}

	matches, err := s.index.Search(ctx, embedding, s.weights.TopK, s.weights.MinSimilarity)
	if err != nil {
		s.logger.Warn("similarity search failed during cross-reference analysis",
			slog.String("reference_id", ref.ID),
			slog.String("error", err.Error()))
		return s.degraded(err), nil
	}

	count := len(matches)
	avg := averageSimilarity(matches)
	score := s.calculateScore(count, avg)

	return ScoreResult{
		Score:       clampScore(score, s.MaxScore()),
		Explanation: s.explain(count, avg, score, matches),
		Details: map[string]any{
			"similar_sources":    matchDetails(matches),
			"count":              count,
			"average_similarity": avg,
			"has_corroboration": count >= s.weights.CorroborationMinCount &&
				avg >= s.weights.CorroborationMinSimilarity,
		},
	}, nil
}

// buildQueryText assembles the text embedded for similarity search:
// title, then author, then a slug derived from the URL path as a last
// resort. Empty when the reference carries nothing usable.
func buildQueryText(ref *reference.Reference) string {
	var parts []string

	if ref.Title != nil && strings.TrimSpace(*ref.Title) != "" {
		parts = append(parts, strings.TrimSpace(*ref.Title))
	}
	if ref.Author != nil && strings.TrimSpace(*ref.Author) != "" {
		parts = append(parts, "by "+strings.TrimSpace(*ref.Author))
	}

	if len(parts) == 0 && ref.URL != "" {
		slug := urlSlug(ref.URL)
		if slug != "" {
			parts = append(parts, slug)
		}
	}

	return strings.Join(parts, ". ")
}

// urlSlug turns the last URL path segment into search text.
func urlSlug(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return ""
	}
	slug := trimmed[idx+1:]
	slug = strings.ReplaceAll(slug, "-", " ")
	slug = strings.ReplaceAll(slug, "_", " ")
	return strings.TrimSpace(slug)
}

// calculateScore maps match count to a base score, then scales it by the
// average similarity when at least one match was found. Zero matches
// score the fixed floor without scaling.
func (s *CrossRefScorer) calculateScore(count int, avgSimilarity float64) int {
	base := s.weights.CountScore(count)
	if count == 0 {
		return base
	}
	return int(math.Floor(float64(base) * s.weights.SimilarityMultiplier(avgSimilarity)))
}

func (s *CrossRefScorer) floorScore() int {
	return s.weights.CountScore(0)
}

func (s *CrossRefScorer) degraded(cause error) ScoreResult {
	details := emptyCrossRefDetails()
	details["error"] = cause.Error()
	return ScoreResult{
		Score: s.floorScore(),
		Explanation: fmt.Sprintf("Cross-reference analysis encountered an error. "+
			"Default score of %d/%d assigned. Error: %v", s.floorScore(), s.MaxScore(), cause),
		Details: details,
	}
}

func (s *CrossRefScorer) explain(count int, avg float64, score int, matches []corpus.Match) string {
	if count == 0 {
		return fmt.Sprintf("No similar sources found in our database of credible references. "+
			"This could indicate novel research or a topic not well-covered in our database. "+
			"Score: %d/%d", score, s.MaxScore())
	}

	top := matches
	if len(top) > 3 {
		top = top[:3]
	}
	names := make([]string, 0, len(top))
	for _, m := range top {
		title := m.Source.Title
		if len(title) > 50 {
			title = title[:50] + "..."
		}
		names = append(names, fmt.Sprintf("%s (similarity: %.2f)", title, m.Similarity))
	}

	var quality string
	switch {
	case avg >= 0.8:
		quality = "very high similarity"
	case avg >= 0.6:
		quality = "good similarity"
	case avg >= 0.5:
		quality = "moderate similarity"
	default:
		quality = "low similarity"
	}

	return fmt.Sprintf("Found %d similar source(s) in our database with %s (avg: %.2f). "+
		"Top matches: %s. Cross-reference support score: %d/%d",
		count, quality, avg, strings.Join(names, ", "), score, s.MaxScore())
}

func averageSimilarity(matches []corpus.Match) float64 {
	if len(matches) == 0 {
		return 0
	}
	var sum float64
	for _, m := range matches {
		sum += m.Similarity
	}
	return sum / float64(len(matches))
}

func matchDetails(matches []corpus.Match) []map[string]any {
	out := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		out = append(out, map[string]any{
			"source_id":         m.Source.ID,
			"url":               m.Source.URL,
			"title":             m.Source.Title,
			"domain":            m.Source.Domain,
			"credibility_score": m.Source.CredibilityScore,
			"similarity":        m.Similarity,
		})
	}
	return out
}

func emptyCrossRefDetails() map[string]any {
	return map[string]any{
		"similar_sources":    []map[string]any{},
		"count":              0,
		"average_similarity": 0.0,
		"has_corroboration":  false,
	}
}
