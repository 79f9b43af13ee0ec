package credibility

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// MetadataWeights defines the points awarded for metadata completeness.
type MetadataWeights struct {
	AuthorPoints   int `json:"author_points"`   // Points for a named author (default: 10)
	DatePoints     int `json:"date_points"`     // Points for a publication date (default: 5)
	RecentYears    int `json:"recent_years"`    // Age ceiling for full recency bonus (default: 2)
	RecentPoints   int `json:"recent_points"`   // Bonus within RecentYears (default: 5)
	ModerateYears  int `json:"moderate_years"`  // Age ceiling for moderate bonus (default: 5)
	ModeratePoints int `json:"moderate_points"` // Bonus within ModerateYears (default: 3)
	AgingYears     int `json:"aging_years"`     // Age ceiling for minimal bonus (default: 10)
	AgingPoints    int `json:"aging_points"`    // Bonus within AgingYears (default: 1)
	BaselinePoints int `json:"baseline_points"` // Floor when no metadata is found (default: 0)
}

// CrossRefWeights defines the corroboration scoring bands.
type CrossRefWeights struct {
	TopK          int     `json:"top_k"`          // Matches retrieved per query (default: 5)
	MinSimilarity float64 `json:"min_similarity"` // Similarity floor for a match to count (default: 0.5)

	// Base score by number of corroborating matches. Index i holds the
	// score for exactly i matches; counts beyond the last index use it.
	CountScores []int `json:"count_scores"` // default: [5, 8, 13, 17, 20, 25]

	// Similarity multiplier bands, applied to the count score when at
	// least one match was found. Bands are checked in order; the first
	// whose Below exceeds the average similarity wins.
	MultiplierBands []MultiplierBand `json:"multiplier_bands"`

	// Corroboration is asserted when both thresholds are met.
	CorroborationMinCount      int     `json:"corroboration_min_count"`      // default: 3
	CorroborationMinSimilarity float64 `json:"corroboration_min_similarity"` // default: 0.6
}

// MultiplierBand scales the count score for weak average similarity.
type MultiplierBand struct {
	Below      float64 `json:"below"`      // Band applies when avg similarity < Below
	Multiplier float64 `json:"multiplier"` // Scale factor for the count score
}

// JudgeWeights defines the language-model strategy fallbacks.
type JudgeWeights struct {
	InsufficientScore int `json:"insufficient_score"` // Score when too little text to judge (default: 5)
	ErrorScore        int `json:"error_score"`        // Score when the model call or parse fails (default: 10)

	// Keyword fallback scores, used when the model response carries no
	// parseable verdict line.
	FallbackHighScore     int `json:"fallback_high_score"`     // default: 20
	FallbackModerateScore int `json:"fallback_moderate_score"` // default: 15
	FallbackLowScore      int `json:"fallback_low_score"`      // default: 5
	FallbackNeutralScore  int `json:"fallback_neutral_score"`  // default: 10
}

// RedFlagThresholds defines the per-strategy floors below which the
// report is annotated with a warning.
type RedFlagThresholds struct {
	DomainBelow   int `json:"domain_below"`   // default: 10
	MetadataBelow int `json:"metadata_below"` // default: 5
	JudgeBelow    int `json:"judge_below"`    // default: 10
}

// ScoringConfig holds all credibility scoring calibration.
type ScoringConfig struct {
	Metadata MetadataWeights   `json:"metadata"`
	CrossRef CrossRefWeights   `json:"crossref"`
	Judge    JudgeWeights      `json:"judge"`
	RedFlags RedFlagThresholds `json:"red_flags"`
}

// CalibrationFile is the JSON structure of the scoring calibration file.
type CalibrationFile struct {
	Version string        `json:"version"`
	Scoring ScoringConfig `json:"scoring"`
}

// DefaultScoringConfig returns the default calibration.
//
// The totals are arranged so the four strategies cap out at
// 30 + 20 + 25 + 25 = 100:
//   - domain reputation contributes up to 30 (store or heuristics)
//   - metadata completeness contributes up to 20 (author 10, date 5, recency 5)
//   - cross-referencing contributes up to 25 (count score x similarity multiplier)
//   - content quality judgement contributes up to 25
func DefaultScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		Metadata: MetadataWeights{
			AuthorPoints:   10,
			DatePoints:     5,
			RecentYears:    2,
			RecentPoints:   5,
			ModerateYears:  5,
			ModeratePoints: 3,
			AgingYears:     10,
			AgingPoints:    1,
			BaselinePoints: 0,
		},
		CrossRef: CrossRefWeights{
			TopK:          5,
			MinSimilarity: 0.5,
			CountScores:   []int{5, 8, 13, 17, 20, 25},
			MultiplierBands: []MultiplierBand{
				{Below: 0.5, Multiplier: 0.7},
				{Below: 0.6, Multiplier: 0.8},
				{Below: 0.8, Multiplier: 0.9},
			},
			CorroborationMinCount:      3,
			CorroborationMinSimilarity: 0.6,
		},
		Judge: JudgeWeights{
			InsufficientScore:     5,
			ErrorScore:            10,
			FallbackHighScore:     20,
			FallbackModerateScore: 15,
			FallbackLowScore:      5,
			FallbackNeutralScore:  10,
		},
		RedFlags: RedFlagThresholds{
			DomainBelow:   10,
			MetadataBelow: 5,
			JudgeBelow:    10,
		},
	}
}

// LoadScoringConfig loads scoring calibration from a JSON file.
// If the path is empty, missing, or unparseable, defaults are returned;
// a read or parse failure also returns the error so callers can log it.
// Partial configurations are merged with defaults.
func LoadScoringConfig(filePath string) (*ScoringConfig, error) {
	if filePath == "" {
		return DefaultScoringConfig(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read scoring calibration, using defaults",
			"path", filePath,
			"error", err)
		return DefaultScoringConfig(), fmt.Errorf("failed to read scoring calibration: %w", err)
	}

	var file CalibrationFile
	if err := json.Unmarshal(data, &file); err != nil {
		slog.Warn("failed to parse scoring calibration, using defaults",
			"path", filePath,
			"error", err)
		return DefaultScoringConfig(), fmt.Errorf("failed to parse scoring calibration: %w", err)
	}

	merged := MergeScoringConfig(DefaultScoringConfig(), &file.Scoring)
	slog.Info("loaded scoring calibration", "path", filePath)
	return merged, nil
}

// MergeScoringConfig merges override calibration with a base.
// Only non-zero values from the override are applied, so the calibration
// file may set a subset of fields.
func MergeScoringConfig(base *ScoringConfig, override *ScoringConfig) *ScoringConfig {
	if base == nil {
		return DefaultScoringConfig()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.Metadata.AuthorPoints != 0 {
		result.Metadata.AuthorPoints = override.Metadata.AuthorPoints
	}
	if override.Metadata.DatePoints != 0 {
		result.Metadata.DatePoints = override.Metadata.DatePoints
	}
	if override.Metadata.RecentYears != 0 {
		result.Metadata.RecentYears = override.Metadata.RecentYears
	}
	if override.Metadata.RecentPoints != 0 {
		result.Metadata.RecentPoints = override.Metadata.RecentPoints
	}
	if override.Metadata.ModerateYears != 0 {
		result.Metadata.ModerateYears = override.Metadata.ModerateYears
	}
	if override.Metadata.ModeratePoints != 0 {
		result.Metadata.ModeratePoints = override.Metadata.ModeratePoints
	}
	if override.Metadata.AgingYears != 0 {
		result.Metadata.AgingYears = override.Metadata.AgingYears
	}
	if override.Metadata.AgingPoints != 0 {
		result.Metadata.AgingPoints = override.Metadata.AgingPoints
	}

	if override.CrossRef.TopK != 0 {
		result.CrossRef.TopK = override.CrossRef.TopK
	}
	if override.CrossRef.MinSimilarity != 0 {
		result.CrossRef.MinSimilarity = override.CrossRef.MinSimilarity
	}
	if len(override.CrossRef.CountScores) > 0 {
		result.CrossRef.CountScores = override.CrossRef.CountScores
	}
	if len(override.CrossRef.MultiplierBands) > 0 {
		result.CrossRef.MultiplierBands = override.CrossRef.MultiplierBands
	}
	if override.CrossRef.CorroborationMinCount != 0 {
		result.CrossRef.CorroborationMinCount = override.CrossRef.CorroborationMinCount
	}
	if override.CrossRef.CorroborationMinSimilarity != 0 {
		result.CrossRef.CorroborationMinSimilarity = override.CrossRef.CorroborationMinSimilarity
	}

	if override.Judge.InsufficientScore != 0 {
		result.Judge.InsufficientScore = override.Judge.InsufficientScore
	}
	if override.Judge.ErrorScore != 0 {
		result.Judge.ErrorScore = override.Judge.ErrorScore
	}
	if override.Judge.FallbackHighScore != 0 {
		result.Judge.FallbackHighScore = override.Judge.FallbackHighScore
	}
	if override.Judge.FallbackModerateScore != 0 {
		result.Judge.FallbackModerateScore = override.Judge.FallbackModerateScore
	}
	if override.Judge.FallbackLowScore != 0 {
		result.Judge.FallbackLowScore = override.Judge.FallbackLowScore
	}
	if override.Judge.FallbackNeutralScore != 0 {
		result.Judge.FallbackNeutralScore = override.Judge.FallbackNeutralScore
	}

	if override.RedFlags.DomainBelow != 0 {
		result.RedFlags.DomainBelow = override.RedFlags.DomainBelow
	}
	if override.RedFlags.MetadataBelow != 0 {
		result.RedFlags.MetadataBelow = override.RedFlags.MetadataBelow
	}
	if override.RedFlags.JudgeBelow != 0 {
		result.RedFlags.JudgeBelow = override.RedFlags.JudgeBelow
	}

	return &result
}

// CountScore returns the base score for the given match count.
func (w CrossRefWeights) CountScore(count int) int {
	if len(w.CountScores) == 0 {
		return 0
	}
	if count < 0 {
		count = 0
	}
	if count >= len(w.CountScores) {
		count = len(w.CountScores) - 1
	}
	return w.CountScores[count]
}

// SimilarityMultiplier returns the scale factor for the given average
// similarity.
func (w CrossRefWeights) SimilarityMultiplier(avg float64) float64 {
	for _, band := range w.MultiplierBands {
		if avg < band.Below {
			return band.Multiplier
		}
	}
	return 1.0
}
