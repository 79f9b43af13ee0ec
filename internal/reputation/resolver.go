package reputation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Heuristic fallback scores for domains absent from the store.
const (
	// TLDFallbackScore applies to .edu and .gov domains that are not
	// catalogued; slightly below a verified entry.
	TLDFallbackScore = 25

	// KeywordFallbackScore applies to domains containing an academic keyword.
	KeywordFallbackScore = 15

	// UnknownDomainScore is the default for entirely unknown domains.
	UnknownDomainScore = 10
)

// academicKeywords mark unverified domains that still look institutional.
var academicKeywords = []string{"university", "academic", "research", "scholar", "institute"}

// Resolver maps a hostname to a reputation resolution, consulting the
// store first and falling back to TLD and keyword heuristics.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

// NewResolver creates a Resolver backed by the given repository.
func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{repo: repo, logger: logger}
}

// Resolve returns the reputation resolution for a domain. An empty domain
// resolves to a zero score rather than an error; only store access
// failures propagate.
func (r *Resolver) Resolve(ctx context.Context, domain string) (*Resolution, error) {
	if strings.TrimSpace(domain) == "" {
		return &Resolution{
			Score:       0,
			Category:    CategoryUnknown,
			Verified:    false,
			Explanation: "Unable to extract domain from URL",
		}, nil
	}

	rec, err := r.repo.GetByDomain(ctx, domain)
	if err == nil {
		return &Resolution{
			Score:       clampScore(rec.BaseScore),
			Category:    rec.Category,
			Verified:    rec.Verified,
			Explanation: knownDomainExplanation(domain, rec),
		}, nil
	}
	if err != ErrRecordNotFound {
		return nil, fmt.Errorf("resolve domain %q: %w", domain, err)
	}

	res := resolveUnknown(domain)
	r.logger.Debug("domain not catalogued, heuristic applied",
		slog.String("domain", domain),
		slog.Int("score", res.Score),
		slog.String("category", string(res.Category)))
	return res, nil
}

// resolveUnknown applies the fallback heuristics in priority order:
// .edu TLD, .gov TLD, academic keywords, then the unknown default.
func resolveUnknown(domain string) *Resolution {
	lower := strings.ToLower(domain)

	if strings.HasSuffix(lower, ".edu") {
		return &Resolution{
			Score:    TLDFallbackScore,
			Category: CategoryAcademic,
			Explanation: fmt.Sprintf("Domain %s uses .edu TLD (educational institution), "+
				"but is not in our verified database. Proceeding with caution.", domain),
		}
	}

	if strings.HasSuffix(lower, ".gov") {
		return &Resolution{
			Score:    TLDFallbackScore,
			Category: CategoryGovernment,
			Explanation: fmt.Sprintf("Domain %s uses .gov TLD (government), "+
				"but is not in our verified database. Proceeding with caution.", domain),
		}
	}

	for _, kw := range academicKeywords {
		if strings.Contains(lower, kw) {
			return &Resolution{
				Score:    KeywordFallbackScore,
				Category: CategoryAcademic,
				Explanation: fmt.Sprintf("Domain %s contains academic keywords but is unverified. "+
					"Exercise caution when citing this source.", domain),
			}
		}
	}

	return &Resolution{
		Score:    UnknownDomainScore,
		Category: CategoryUnknown,
		Explanation: fmt.Sprintf("Domain %s is not in our reputation database. "+
			"This is an unknown source - verify credibility independently.", domain),
	}
}

// knownDomainExplanation templates the explanation for a catalogued domain
// by its category.
func knownDomainExplanation(domain string, rec *Record) string {
	verifiedText := "catalogued"
	if rec.Verified {
		verifiedText = "verified"
	}

	switch rec.Category {
	case CategoryAcademic:
		return fmt.Sprintf("Domain %s is a %s academic/research source. "+
			"Academic sources typically undergo peer review and maintain high standards. "+
			"Score: %d/%d", domain, verifiedText, rec.BaseScore, MaxScore)
	case CategoryGovernment:
		return fmt.Sprintf("Domain %s is a %s government source. "+
			"Government sources are generally reliable for official data and policies. "+
			"Score: %d/%d", domain, verifiedText, rec.BaseScore, MaxScore)
	case CategoryNews:
		return fmt.Sprintf("Domain %s is a %s news outlet. "+
			"Established news organizations follow journalistic standards. "+
			"Score: %d/%d", domain, verifiedText, rec.BaseScore, MaxScore)
	case CategoryUnreliable:
		return fmt.Sprintf("Domain %s is flagged as unreliable in our database. "+
			"This source has been identified as problematic. "+
			"Score: %d/%d", domain, rec.BaseScore, MaxScore)
	default:
		return fmt.Sprintf("Domain %s is in our database but category is unknown. "+
			"Score: %d/%d", domain, rec.BaseScore, MaxScore)
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
