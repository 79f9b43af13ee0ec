package credibility

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/refcheck/refcheck/internal/judge"
	"github.com/refcheck/refcheck/internal/reference"
)

// JudgeMaxScore is the content judgement strategy ceiling.
const JudgeMaxScore = 25

// DefaultJudgeTimeout bounds the model call; on expiry the scorer
// degrades to the conservative default instead of blocking the analysis.
const DefaultJudgeTimeout = 10 * time.Second

// JudgeScorer asks a language model to assess content quality from the
// reference's metadata. Contributes up to 25 points. Model failures,
// timeouts, and unparseable responses all degrade to fixed defaults;
// this scorer never returns an error.
type JudgeScorer struct {
	judge   judge.Judge
	model   string
	weights JudgeWeights
	timeout time.Duration
	logger  *slog.Logger
}

// NewJudgeScorer creates a JudgeScorer. A zero timeout selects
// DefaultJudgeTimeout.
func NewJudgeScorer(j judge.Judge, model string, weights JudgeWeights, timeout time.Duration, logger *slog.Logger) *JudgeScorer {
	if timeout <= 0 {
		timeout = DefaultJudgeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JudgeScorer{judge: j, model: model, weights: weights, timeout: timeout, logger: logger}
}

// Name identifies the strategy.
func (s *JudgeScorer) Name() string { return "AI Content Analysis" }

// MaxScore is the strategy ceiling.
func (s *JudgeScorer) MaxScore() int { return JudgeMaxScore }

// Analyze scores the reference's content quality via the model.
func (s *JudgeScorer) Analyze(ctx context.Context, ref *reference.Reference) (ScoreResult, error) {
	hasTitle := ref.Title != nil && strings.TrimSpace(*ref.Title) != ""
	hasAuthor := ref.Author != nil && strings.TrimSpace(*ref.Author) != ""

	if !hasTitle && !hasAuthor {
		return ScoreResult{
			Score: s.weights.InsufficientScore,
			Explanation: fmt.Sprintf("Insufficient information for AI analysis. "+
				"Default score of %d/%d assigned.", s.weights.InsufficientScore, s.MaxScore()),
			Details: map[string]any{
				"ai_analysis": "No content available for analysis",
			},
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.judge.Judge(ctx, s.buildPrompt(ref))
	if err != nil {
		s.logger.Warn("content judgement failed",
			slog.String("reference_id", ref.ID),
			slog.String("error", err.Error()))
		return ScoreResult{
			Score: s.weights.ErrorScore,
			Explanation: fmt.Sprintf("AI analysis encountered an error. "+
				"Conservative score of %d/%d assigned. Error: %v", s.weights.ErrorScore, s.MaxScore(), err),
			Details: map[string]any{
				"ai_analysis": fmt.Sprintf("Error: %v", err),
				"error":       true,
			},
		}, nil
	}

	score, analysis := s.parseResponse(response)

	return ScoreResult{
		Score:       clampScore(score, s.MaxScore()),
		Explanation: analysis,
		Details: map[string]any{
			"ai_analysis": response,
			"model":       s.model,
		},
	}, nil
}

// buildPrompt lays out the three scoring rubrics and the exact response
// format the parser expects.
func (s *JudgeScorer) buildPrompt(ref *reference.Reference) string {
	var b strings.Builder

	b.WriteString("You are analyzing an academic/research reference for credibility.\n")
	fmt.Fprintf(&b, "Based on the metadata provided, assess the following criteria and provide a credibility score from 0-%d:\n\n", s.MaxScore())

	b.WriteString("Reference Metadata:\n")
	fmt.Fprintf(&b, "- URL: %s\n", ref.URL)
	fmt.Fprintf(&b, "- Domain: %s\n", ref.Domain)
	fmt.Fprintf(&b, "- Title: %s\n", strValue(ref.Title))
	fmt.Fprintf(&b, "- Author: %s\n", strValue(ref.Author))
	if ref.PublicationDate != nil {
		fmt.Fprintf(&b, "- Publication date: %s\n", ref.PublicationDate.Format("2006-01-02"))
	} else {
		b.WriteString("- Publication date: unknown\n")
	}

	b.WriteString(`
Evaluation Criteria:
1. Title Quality (0-8 points):
   - Is the title descriptive and specific?
   - Does it use professional academic language?
   - Are there any red flags (clickbait, excessive claims)?

2. Source Professionalism (0-8 points):
   - Does the domain suggest a credible publisher?
   - Is author information provided?
   - Does the publication date indicate recency?

3. Content Indicators (0-9 points):
   - Based on title/metadata, does this appear to be:
     * Peer-reviewed research
     * Evidence-based reporting
     * Opinion/blog content
     * Marketing/promotional material

Provide your response in this exact format:
SCORE: [number from 0-25]
ANALYSIS: [2-3 sentence explanation of your assessment]

Be critical but fair. Academic sources should score higher, but good journalism can also score well.`)

	return b.String()
}

// parseResponse extracts the verdict from the model output. A missing
// SCORE: label triggers keyword inference over the raw text; a
// malformed number keeps the neutral default.
func (s *JudgeScorer) parseResponse(response string) (int, string) {
	score := s.weights.FallbackNeutralScore
	analysis := "AI analysis completed."

	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "SCORE:"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
				score = n
			}
		} else if rest, ok := strings.CutPrefix(line, "ANALYSIS:"); ok {
			analysis = strings.TrimSpace(rest)
		}
	}

	if !strings.Contains(response, "SCORE:") {
		analysis = response
		score = s.inferScoreFromKeywords(response)
	}

	return score, analysis
}

// inferScoreFromKeywords maps sentiment words in an unstructured
// response to coarse score tiers.
func (s *JudgeScorer) inferScoreFromKeywords(response string) int {
	lower := strings.ToLower(response)

	for _, w := range []string{"excellent", "high quality", "credible"} {
		if strings.Contains(lower, w) {
			return s.weights.FallbackHighScore
		}
	}
	// Negative terms are checked before the moderate tier so that
	// "unreliable" is not matched by its "reliable" substring.
	for _, w := range []string{"poor", "unreliable", "questionable"} {
		if strings.Contains(lower, w) {
			return s.weights.FallbackLowScore
		}
	}
	for _, w := range []string{"good", "reliable"} {
		if strings.Contains(lower, w) {
			return s.weights.FallbackModerateScore
		}
	}
	return s.weights.FallbackNeutralScore
}

func strValue(p *string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return "unknown"
	}
	return *p
}
