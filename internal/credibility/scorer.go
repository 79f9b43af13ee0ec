// Package credibility implements the multi-strategy scoring engine. Four
// scorers each examine one dimension of a reference (domain reputation,
// metadata completeness, corroboration, content quality) and the Analyzer
// combines them into a single 0-100 credibility score with red flags.
package credibility

import (
	"context"

	"github.com/refcheck/refcheck/internal/reference"
)

// ScoreResult is the outcome of a single scoring strategy.
type ScoreResult struct {
	// Score is the points awarded, in [0, MaxScore] for the strategy.
	Score int `json:"score"`

	// Explanation is a human-readable account of how the score was reached.
	Explanation string `json:"explanation"`

	// Details carries strategy-specific structured data (matched sources,
	// similarity figures, model output) surfaced in the report.
	Details map[string]any `json:"details,omitempty"`
}

// Scorer evaluates one credibility dimension of a reference.
type Scorer interface {
	// Name identifies the strategy in reports and red flags.
	Name() string

	// MaxScore is the ceiling of points this strategy can award.
	MaxScore() int

	// Analyze scores the reference. Implementations return an error only
	// for failures the caller should isolate; partial knowledge is
	// expressed as a low score with an explanation instead.
	Analyze(ctx context.Context, ref *reference.Reference) (ScoreResult, error)
}

func clampScore(score, max int) int {
	if score < 0 {
		return 0
	}
	if score > max {
		return max
	}
	return score
}
