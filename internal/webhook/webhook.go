// Package webhook delivers analysis-complete notifications to an external
// HTTP endpoint. Delivery is fire-and-forget: failures are logged and never
// propagate back into the analysis pipeline.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/refcheck/refcheck/internal/credibility"
	"github.com/refcheck/refcheck/internal/reference"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 10 * time.Second

// Payload is the JSON body posted to the configured endpoint.
type Payload struct {
	ReferenceID string         `json:"reference_id"`
	URL         string         `json:"url"`
	Title       *string        `json:"title,omitempty"`
	Author      *string        `json:"author,omitempty"`
	Domain      string         `json:"domain,omitempty"`
	TotalScore  int            `json:"total_score"`
	Breakdown   map[string]int `json:"breakdown"`
	RedFlags    []string       `json:"red_flags"`
	CompletedAt time.Time      `json:"completed_at"`
}

// Notifier posts completed analyses to a webhook URL. A Notifier with an
// empty URL is valid and silently drops every notification.
type Notifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

var _ credibility.Notifier = (*Notifier)(nil)

// New creates a Notifier posting to url. An empty url disables delivery.
func New(url string, timeout time.Duration, logger *slog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Enabled reports whether a delivery endpoint is configured.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// NotifyAnalysisComplete dispatches the delivery on its own goroutine so
// the caller's request path is never blocked on the remote endpoint.
func (n *Notifier) NotifyAnalysisComplete(ref *reference.Reference, report *credibility.Report) {
	if !n.Enabled() || ref == nil || report == nil {
		return
	}

	payload := Payload{
		ReferenceID: ref.ID,
		URL:         ref.URL,
		Title:       ref.Title,
		Author:      ref.Author,
		Domain:      ref.Domain,
		TotalScore:  report.TotalScore,
		Breakdown: map[string]int{
			"domain_score":   report.DomainScore,
			"metadata_score": report.MetadataScore,
			"rag_score":      report.CrossRefScore,
			"ai_score":       report.JudgeScore,
		},
		RedFlags:    report.RedFlags,
		CompletedAt: report.CreatedAt,
	}

	go func() {
		if err := n.deliver(payload); err != nil {
			n.logger.Warn("webhook delivery failed",
				slog.String("reference_id", payload.ReferenceID),
				slog.String("error", err.Error()))
		}
	}()
}

func (n *Notifier) deliver(payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
