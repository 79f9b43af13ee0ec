// Package validate checks user-supplied URLs before the service fetches
// them. Submitted references are scraped server-side, so validation blocks
// SSRF targets (localhost, private and link-local addresses) in addition to
// malformed input.
package validate

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// MaxURLLength bounds accepted reference URLs.
const MaxURLLength = 2048

// URL validation errors.
var (
	ErrEmptyURL         = errors.New("URL is empty")
	ErrURLTooLong       = errors.New("URL is too long")
	ErrInvalidURL       = errors.New("invalid URL format")
	ErrDisallowedScheme = errors.New("URL scheme not allowed")
	ErrSSRFRisk         = errors.New("URL poses SSRF risk")
)

var allowedSchemes = []string{"https", "http"}

// ReferenceURL validates a URL submitted for credibility analysis.
// Returns the trimmed URL on success.
func ReferenceURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}
	if len(raw) > MaxURLLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrURLTooLong, MaxURLLength)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	schemeOK := false
	for _, scheme := range allowedSchemes {
		if parsed.Scheme == scheme {
			schemeOK = true
			break
		}
	}
	if !schemeOK {
		return "", fmt.Errorf("%w: got %q, allowed: %v", ErrDisallowedScheme, parsed.Scheme, allowedSchemes)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return "", fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}

	if err := checkSSRF(hostname); err != nil {
		return "", err
	}
	return raw, nil
}

// checkSSRF rejects hostnames that resolve to addresses the scraper must
// not reach. Unresolvable hostnames pass; the fetch will fail on its own
// and a transient DNS outage should not reject legitimate domains.
func checkSSRF(hostname string) error {
	lower := strings.ToLower(hostname)
	if lower == "localhost" || lower == "localhost.localdomain" {
		return fmt.Errorf("%w: localhost not allowed", ErrSSRFRisk)
	}
	if ip := net.ParseIP(hostname); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: private IP address %s", ErrSSRFRisk, ip.String())
		}
		return nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: private IP address %s", ErrSSRFRisk, ip.String())
		}
	}
	return nil
}

// isPrivateIP reports whether an IP is loopback, link-local, or in a
// private range.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 10:
			return true
		case ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31:
			return true
		case ip4[0] == 192 && ip4[1] == 168:
			return true
		case ip4[0] == 169 && ip4[1] == 254:
			return true
		}
		return false
	}
	// fc00::/7 unique local addresses
	return len(ip) == 16 && (ip[0]&0xfe) == 0xfc
}
