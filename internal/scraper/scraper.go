// Package scraper extracts page metadata (title, author, publication
// date) from a reference URL. Scraping is best-effort: any failure
// yields empty metadata rather than an error, and the scoring pipeline
// treats that as "insufficient metadata".
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// DefaultTimeout bounds one page fetch.
const DefaultTimeout = 10 * time.Second

const maxBodySize = 5 << 20 // 5 MiB

// Metadata is the scrape result. All fields are optional; a fully nil
// result means the page yielded nothing usable.
type Metadata struct {
	Title           *string
	Author          *string
	PublicationDate *time.Time
}

// Scraper fetches pages and extracts metadata.
type Scraper struct {
	client *http.Client
	logger *slog.Logger
}

// New creates a Scraper. A zero timeout selects DefaultTimeout.
func New(timeout time.Duration, logger *slog.Logger) *Scraper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Scrape fetches the URL and extracts metadata. Never returns an error;
// failures are logged and produce empty metadata.
func (s *Scraper) Scrape(ctx context.Context, url string) Metadata {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.logger.Warn("invalid scrape url", slog.String("url", url), slog.String("error", err.Error()))
		return Metadata{}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("scrape fetch failed", slog.String("url", url), slog.String("error", err.Error()))
		return Metadata{}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Debug("failed to close response body", slog.String("error", cerr.Error()))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("scrape fetch returned non-success status",
			slog.String("url", url), slog.Int("status", resp.StatusCode))
		return Metadata{}
	}

	doc, err := goquery.NewDocumentFromReader(http.MaxBytesReader(nil, resp.Body, maxBodySize))
	if err != nil {
		s.logger.Warn("scrape parse failed", slog.String("url", url), slog.String("error", err.Error()))
		return Metadata{}
	}

	return s.Extract(doc)
}

// Extract pulls metadata out of an already-parsed document.
func (s *Scraper) Extract(doc *goquery.Document) Metadata {
	md := Metadata{}
	if title := extractTitle(doc); title != "" {
		md.Title = &title
	}
	if author := extractAuthor(doc); author != "" {
		md.Author = &author
	}
	if date, ok := extractDate(doc); ok {
		md.PublicationDate = &date
	}
	return md
}

// titleSuffixPattern strips publisher suffixes like " | Nature" or
// " - arXiv" from <title> text.
var titleSuffixPattern = regexp.MustCompile(`\s*[|\-]\s*[^|\-]*$`)

func extractTitle(doc *goquery.Document) string {
	if content, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if t := strings.TrimSpace(content); t != "" {
			return t
		}
	}
	if content, ok := doc.Find(`meta[name="twitter:title"]`).Attr("content"); ok {
		if t := strings.TrimSpace(content); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return strings.TrimSpace(titleSuffixPattern.ReplaceAllString(t, ""))
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// authorPrefixPattern strips byline prefixes.
var authorPrefixPattern = regexp.MustCompile(`(?i)^(By|Written by|Author:)\s*`)

func extractAuthor(doc *goquery.Document) string {
	for _, name := range []string{"author", "DC.creator", "citation_author"} {
		if content, ok := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).Attr("content"); ok {
			if a := strings.TrimSpace(content); a != "" {
				return a
			}
		}
	}
	if a := strings.TrimSpace(doc.Find(`a[data-test="author-name"]`).First().Text()); a != "" {
		return a
	}
	for _, class := range []string{"author", "byline", "article-author", "post-author", "author-name"} {
		text := strings.TrimSpace(doc.Find("." + class).First().Text())
		text = authorPrefixPattern.ReplaceAllString(text, "")
		if text != "" && len(text) < 100 {
			return text
		}
	}
	return ""
}

// dateMetaNames are checked in order against both property= and name=
// attributes.
var dateMetaNames = []string{
	"article:published_time",
	"citation_publication_date",
	"DC.date",
	"date",
	"publish_date",
	"publication_date",
}

func extractDate(doc *goquery.Document) (time.Time, bool) {
	for _, name := range dateMetaNames {
		for _, attr := range []string{"property", "name"} {
			sel := fmt.Sprintf(`meta[%s=%q]`, attr, name)
			if content, ok := doc.Find(sel).Attr("content"); ok {
				if t, err := parseDate(content); err == nil {
					return t, true
				}
			}
		}
	}

	timeTag := doc.Find("time").First()
	if dt, ok := timeTag.Attr("datetime"); ok {
		if t, err := parseDate(dt); err == nil {
			return t, true
		}
	}
	if t, err := parseDate(timeTag.Text()); err == nil {
		return t, true
	}

	return time.Time{}, false
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	return dateparse.ParseAny(raw)
}
