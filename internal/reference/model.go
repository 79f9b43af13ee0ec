// Package reference provides the reference model and repository: one row
// per submitted URL, carrying scraped metadata and the analysis outcome.
package reference

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Status tracks a reference through the analysis state machine.
type Status string

// Reference lifecycle states.
const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Common errors for reference operations.
var (
	ErrReferenceNotFound = errors.New("reference not found")
	ErrInvalidURL        = errors.New("invalid reference URL")
)

// Reference is a submitted web reference. Title, author and publication
// date are filled in by the scraper before scoring; status and score are
// owned by the analysis orchestrator.
type Reference struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Domain          string     `json:"domain,omitempty"`
	Title           *string    `json:"title,omitempty"`
	Author          *string    `json:"author,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	Status          Status     `json:"status"`
	Score           *int       `json:"credibility_score,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ExtractDomain parses the hostname out of a reference URL, stripping any
// leading "www.". Returns ErrInvalidURL for unparseable or hostless input.
func ExtractDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host := parsed.Hostname()
	if host == "" {
		return "", ErrInvalidURL
	}
	return strings.TrimPrefix(strings.ToLower(host), "www."), nil
}
