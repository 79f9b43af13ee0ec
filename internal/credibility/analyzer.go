package credibility

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/refcheck/refcheck/internal/reference"
	"github.com/refcheck/refcheck/internal/tracing"
)

// Red flags attached to reports when a strategy output crosses its
// low-quality threshold or a strategy fails outright.
const (
	FlagLowDomainReputation = "Low domain reputation"
	FlagPoorMetadata        = "Poor metadata quality"
	FlagNoCorroboration     = "No corroborating sources found"
	FlagContentConcerns     = "AI flagged content quality concerns"

	FlagDomainError   = "Domain analysis error"
	FlagMetadataError = "Metadata analysis error"
	FlagCrossRefError = "Cross-reference analysis error"
	FlagJudgeError    = "AI analysis error"
)

// Notifier receives completed analysis outcomes. Implementations must be
// best-effort and non-blocking; a notifier failure never affects the
// stored report or the reference status.
type Notifier interface {
	NotifyAnalysisComplete(ref *reference.Reference, report *Report)
}

// Analyzer orchestrates the four scoring strategies into a single
// credibility report.
//
// Each scorer runs behind its own failure boundary: a scorer error is
// replaced with a zero score and a dedicated red flag, and the other
// three still run. Only reference-level failures (reference missing,
// persistence failure) propagate, flipping the reference to failed.
type Analyzer struct {
	domain   Scorer
	metadata Scorer
	crossref Scorer
	judge    Scorer

	refs     reference.Repository
	reports  ReportRepository
	config   *ScoringConfig
	notifier Notifier
	metrics  *Metrics
	logger   *slog.Logger
}

// NewAnalyzer creates an Analyzer. Notifier and metrics may be nil.
func NewAnalyzer(
	domain, metadata, crossref, judgeScorer Scorer,
	refs reference.Repository,
	reports ReportRepository,
	config *ScoringConfig,
	notifier Notifier,
	metrics *Metrics,
	logger *slog.Logger,
) *Analyzer {
	if config == nil {
		config = DefaultScoringConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		domain:   domain,
		metadata: metadata,
		crossref: crossref,
		judge:    judgeScorer,
		refs:     refs,
		reports:  reports,
		config:   config,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// MaxTotalScore is the sum of all strategy ceilings.
func (a *Analyzer) MaxTotalScore() int {
	return a.domain.MaxScore() + a.metadata.MaxScore() + a.crossref.MaxScore() + a.judge.MaxScore()
}

// Analyze runs the full pipeline for a reference and persists the
// resulting report, replacing any prior one. On success the reference is
// marked completed with the total score; on persistence failure it is
// marked failed and no report survives.
func (a *Analyzer) Analyze(ctx context.Context, ref *reference.Reference) (report *Report, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "analyze_reference")
	defer func() { endSpan(err) }()

	start := time.Now()
	var redFlags []string

	domainRes := a.runScorer(ctx, a.domain, ref, FlagDomainError, &redFlags)
	if domainRes.Score < a.config.RedFlags.DomainBelow {
		redFlags = append(redFlags, FlagLowDomainReputation)
	}

	metadataRes := a.runScorer(ctx, a.metadata, ref, FlagMetadataError, &redFlags)
	if metadataRes.Score < a.config.RedFlags.MetadataBelow {
		redFlags = append(redFlags, FlagPoorMetadata)
	}

	crossrefRes := a.runScorer(ctx, a.crossref, ref, FlagCrossRefError, &redFlags)
	if count, ok := crossrefRes.Details["count"].(int); ok && count == 0 {
		redFlags = append(redFlags, FlagNoCorroboration)
	}

	judgeRes := a.runScorer(ctx, a.judge, ref, FlagJudgeError, &redFlags)
	if judgeRes.Score < a.config.RedFlags.JudgeBelow {
		redFlags = append(redFlags, FlagContentConcerns)
	}

	total := domainRes.Score + metadataRes.Score + crossrefRes.Score + judgeRes.Score

	report = &Report{
		ReferenceID:         ref.ID,
		DomainScore:         domainRes.Score,
		MetadataScore:       metadataRes.Score,
		CrossRefScore:       crossrefRes.Score,
		JudgeScore:          judgeRes.Score,
		TotalScore:          total,
		DomainExplanation:   domainRes.Explanation,
		MetadataExplanation: metadataRes.Explanation,
		CrossRefExplanation: crossrefRes.Explanation,
		JudgeExplanation:    judgeRes.Explanation,
		RedFlags:            redFlags,
	}

	if err = a.reports.Replace(ctx, report); err != nil {
		a.markFailed(ctx, ref)
		if a.metrics != nil {
			a.metrics.IncAnalysisErrors()
		}
		err = fmt.Errorf("persist credibility report: %w", err)
		return nil, err
	}

	score := total
	ref.Status = reference.StatusCompleted
	ref.Score = &score

	a.logger.Info("reference analyzed",
		slog.String("reference_id", ref.ID),
		slog.String("domain", ref.Domain),
		slog.Int("total_score", total),
		slog.Int("red_flags", len(redFlags)),
		slog.Duration("elapsed", time.Since(start)))

	if a.metrics != nil {
		a.metrics.IncAnalysesTotal()
		a.metrics.ObserveAnalysisDuration(time.Since(start).Seconds())
		a.metrics.ObserveTotalScore(float64(total))
		a.metrics.ObserveRedFlagCount(float64(len(redFlags)))
		a.metrics.SetLastAnalysisTimestamp(float64(time.Now().Unix()))
	}

	if a.notifier != nil {
		a.notifier.NotifyAnalysisComplete(ref, report)
	}

	return report, nil
}

// AnalyzeByID loads the reference and runs Analyze. A missing reference
// is a reference-level failure and propagates.
func (a *Analyzer) AnalyzeByID(ctx context.Context, referenceID string) (*Report, error) {
	ref, err := a.refs.GetByID(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("load reference %s: %w", referenceID, err)
	}
	return a.Analyze(ctx, ref)
}

// Reanalyze resets the reference to processing, clears its score, and
// runs a fresh analysis. The prior report is replaced, never duplicated.
func (a *Analyzer) Reanalyze(ctx context.Context, referenceID string) (*Report, error) {
	ref, err := a.refs.GetByID(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("load reference %s: %w", referenceID, err)
	}

	ref.Status = reference.StatusProcessing
	ref.Score = nil
	if err := a.refs.Update(ctx, ref); err != nil {
		return nil, fmt.Errorf("reset reference %s: %w", referenceID, err)
	}

	return a.Analyze(ctx, ref)
}

// runScorer executes one strategy behind its failure boundary. An error
// becomes a zero score with the failure in the explanation plus the
// given red flag; it never aborts the sibling scorers.
func (a *Analyzer) runScorer(ctx context.Context, s Scorer, ref *reference.Reference, errorFlag string, redFlags *[]string) ScoreResult {
	res, err := s.Analyze(ctx, ref)
	if err != nil {
		a.logger.Error("scorer failed, isolating",
			slog.String("strategy", s.Name()),
			slog.String("reference_id", ref.ID),
			slog.String("error", err.Error()))
		if a.metrics != nil {
			a.metrics.IncScorerFailure(s.Name())
		}
		*redFlags = append(*redFlags, errorFlag)
		return ScoreResult{
			Score:       0,
			Explanation: fmt.Sprintf("%s failed: %v", s.Name(), err),
		}
	}
	res.Score = clampScore(res.Score, s.MaxScore())
	return res
}

// markFailed best-effort flips the reference to failed after a
// reference-level error.
func (a *Analyzer) markFailed(ctx context.Context, ref *reference.Reference) {
	ref.Status = reference.StatusFailed
	ref.Score = nil
	if err := a.refs.Update(ctx, ref); err != nil {
		a.logger.Error("failed to mark reference as failed",
			slog.String("reference_id", ref.ID),
			slog.String("error", err.Error()))
	}
}
