package credibility

import (
	"context"
	"fmt"

	"github.com/refcheck/refcheck/internal/reference"
	"github.com/refcheck/refcheck/internal/reputation"
)

// DomainScorer scores the reference by its hosting domain's reputation,
// delegating to the reputation resolver. Contributes up to 30 points.
type DomainScorer struct {
	resolver *reputation.Resolver
}

// NewDomainScorer creates a DomainScorer backed by the given resolver.
func NewDomainScorer(resolver *reputation.Resolver) *DomainScorer {
	return &DomainScorer{resolver: resolver}
}

// Name identifies the strategy.
func (s *DomainScorer) Name() string { return "Domain Reputation Analysis" }

// MaxScore is the strategy ceiling.
func (s *DomainScorer) MaxScore() int { return reputation.MaxScore }

// Analyze resolves the reference's domain reputation. Store access
// failures propagate so the orchestrator can isolate them.
func (s *DomainScorer) Analyze(ctx context.Context, ref *reference.Reference) (ScoreResult, error) {
	res, err := s.resolver.Resolve(ctx, ref.Domain)
	if err != nil {
		return ScoreResult{}, fmt.Errorf("domain reputation lookup: %w", err)
	}

	return ScoreResult{
		Score:       clampScore(res.Score, s.MaxScore()),
		Explanation: res.Explanation,
		Details: map[string]any{
			"domain":   ref.Domain,
			"category": string(res.Category),
			"verified": res.Verified,
		},
	}, nil
}
