package credibility

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/refcheck/refcheck/internal/reference"
)

// MetadataMaxScore is the metadata strategy ceiling: author presence (10),
// publication date presence (5), and recency (up to 5).
const MetadataMaxScore = 20

const daysPerYear = 365.25

// MetadataScorer scores metadata completeness and recency with purely
// rule-based checks. No I/O; it never fails.
type MetadataScorer struct {
	weights MetadataWeights

	// now is swappable in tests.
	now func() time.Time
}

// NewMetadataScorer creates a MetadataScorer with the given calibration.
func NewMetadataScorer(weights MetadataWeights) *MetadataScorer {
	return &MetadataScorer{weights: weights, now: time.Now}
}

// Name identifies the strategy.
func (s *MetadataScorer) Name() string { return "Metadata Quality Analysis" }

// MaxScore is the strategy ceiling.
func (s *MetadataScorer) MaxScore() int { return MetadataMaxScore }

// Analyze scores the reference's author, publication date, and recency.
func (s *MetadataScorer) Analyze(ctx context.Context, ref *reference.Reference) (ScoreResult, error) {
	score := s.weights.BaselinePoints
	details := map[string]any{}
	var notes []string

	if ref.Author != nil && strings.TrimSpace(*ref.Author) != "" {
		score += s.weights.AuthorPoints
		details["has_author"] = true
		notes = append(notes, fmt.Sprintf("Author identified: %s.", *ref.Author))
	} else {
		details["has_author"] = false
		notes = append(notes, fmt.Sprintf("No author information available (missing %d points).", s.weights.AuthorPoints))
	}

	if ref.PublicationDate != nil {
		score += s.weights.DatePoints
		details["has_date"] = true
		details["publication_date"] = ref.PublicationDate.Format("2006-01-02")

		recency, note := s.scoreRecency(*ref.PublicationDate)
		score += recency
		details["recency_score"] = recency
		details["age_days"] = int(s.now().Sub(*ref.PublicationDate).Hours() / 24)

		notes = append(notes, fmt.Sprintf("Publication date: %s.", ref.PublicationDate.Format("2006-01-02")), note)
	} else {
		details["has_date"] = false
		details["recency_score"] = 0
		notes = append(notes, "No publication date available (missing date and recency points).")
	}

	score = clampScore(score, s.MaxScore())

	return ScoreResult{
		Score:       score,
		Explanation: s.summarize(score) + " " + strings.Join(notes, " "),
		Details:     details,
	}, nil
}

// scoreRecency awards the recency bonus by publication age. A future
// date is suspicious and scores nothing.
func (s *MetadataScorer) scoreRecency(pubDate time.Time) (int, string) {
	yearsOld := s.now().Sub(pubDate).Hours() / 24 / daysPerYear

	switch {
	case yearsOld < 0:
		return 0, "Publication date is in the future (suspicious, 0 points)."
	case yearsOld <= float64(s.weights.RecentYears):
		return s.weights.RecentPoints,
			fmt.Sprintf("Recent publication (%.1f years old, +%d points).", yearsOld, s.weights.RecentPoints)
	case yearsOld <= float64(s.weights.ModerateYears):
		return s.weights.ModeratePoints,
			fmt.Sprintf("Moderately recent (%.1f years old, +%d points).", yearsOld, s.weights.ModeratePoints)
	case yearsOld <= float64(s.weights.AgingYears):
		return s.weights.AgingPoints,
			fmt.Sprintf("Older publication (%.1f years old, +%d points).", yearsOld, s.weights.AgingPoints)
	default:
		return 0, fmt.Sprintf("Very old publication (%.1f years old, 0 points).", yearsOld)
	}
}

func (s *MetadataScorer) summarize(score int) string {
	intro := fmt.Sprintf("Metadata quality score: %d/%d.", score, s.MaxScore())

	switch {
	case score >= 18:
		return intro + " Excellent metadata completeness."
	case score >= 15:
		return intro + " Good metadata quality."
	case score >= 10:
		return intro + " Adequate metadata, but some information missing."
	case score >= 5:
		return intro + " Poor metadata quality with significant information missing."
	default:
		return intro + " Very poor metadata with critical information absent."
	}
}
