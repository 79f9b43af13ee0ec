// Package corpus provides the trusted-source corpus and exact
// nearest-neighbor similarity search used for cross-reference scoring.
package corpus

import (
	"errors"
	"time"
)

// EmbeddingDimensions is the expected length of source and query vectors.
// It matches the sentence encoder configured for the corpus; stored vectors
// of any other length are skipped during search.
const EmbeddingDimensions = 384

// Common errors for corpus operations.
var (
	ErrSourceNotFound = errors.New("trusted source not found")
	ErrDuplicateURL   = errors.New("trusted source URL already exists")
)

// TrustedSource is one curated reference document with a precomputed
// embedding. The corpus is append-only; sources are never mutated by
// the scoring path.
type TrustedSource struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	Title            string    `json:"title"`
	ContentText      string    `json:"content_text,omitempty"`
	Embedding        []float64 `json:"embedding,omitempty"`
	Domain           string    `json:"domain,omitempty"`
	CredibilityScore int       `json:"credibility_score"`
	CreatedAt        time.Time `json:"created_at"`
}

// Match pairs a trusted source with its similarity to a query embedding.
type Match struct {
	Source     *TrustedSource `json:"source"`
	Similarity float64        `json:"similarity"`
}
