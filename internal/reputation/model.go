// Package reputation provides domain reputation lookup and the heuristic
// fallback scoring applied to domains absent from the reputation store.
package reputation

import (
	"errors"
	"time"
)

// Category classifies a domain in the reputation store.
type Category string

// Valid domain categories.
const (
	CategoryAcademic   Category = "academic"
	CategoryGovernment Category = "government"
	CategoryNews       Category = "news"
	CategoryUnknown    Category = "unknown"
	CategoryUnreliable Category = "unreliable"
)

// MaxScore is the upper bound for a domain reputation score.
const MaxScore = 30

// Common errors for reputation operations.
var (
	ErrRecordNotFound  = errors.New("domain reputation record not found")
	ErrInvalidCategory = errors.New("invalid category: must be academic, government, news, unknown, or unreliable")
	ErrInvalidScore    = errors.New("invalid base score: must be between 0 and 30")
)

// ValidCategory reports whether a category string is one of the known values.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryAcademic, CategoryGovernment, CategoryNews, CategoryUnknown, CategoryUnreliable:
		return true
	}
	return false
}

// Record is one row of static reference data mapping a domain to its
// curated reputation. Records are created by seeding and read-only from
// the scoring path.
type Record struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	Category  Category  `json:"category"`
	BaseScore int       `json:"base_score"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks category and score bounds.
func (r *Record) Validate() error {
	if !ValidCategory(r.Category) {
		return ErrInvalidCategory
	}
	if r.BaseScore < 0 || r.BaseScore > MaxScore {
		return ErrInvalidScore
	}
	return nil
}

// Resolution is the outcome of resolving a domain: either the stored
// record's values verbatim, or the heuristic fallback.
type Resolution struct {
	Score       int      `json:"score"`
	Category    Category `json:"category"`
	Verified    bool     `json:"verified"`
	Explanation string   `json:"explanation"`
}
