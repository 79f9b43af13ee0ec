package validate

import (
	"errors"
	"net"
	"strings"
	"testing"
)

func TestReferenceURL_Valid(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"https", "https://www.nature.com/articles/abc", "https://www.nature.com/articles/abc"},
		{"http", "http://example.com/report", "http://example.com/report"},
		{"trims whitespace", "  https://example.com  ", "https://example.com"},
		{"public ip literal", "https://93.184.216.34/page", "https://93.184.216.34/page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReferenceURL(tt.url)
			if err != nil {
				t.Fatalf("ReferenceURL(%q) error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReferenceURL_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"empty", "", ErrEmptyURL},
		{"whitespace only", "   ", ErrEmptyURL},
		{"too long", "https://example.com/" + strings.Repeat("a", MaxURLLength), ErrURLTooLong},
		{"no scheme", "example.com/page", ErrDisallowedScheme},
		{"ftp scheme", "ftp://example.com/file", ErrDisallowedScheme},
		{"missing hostname", "https:///path", ErrInvalidURL},
		{"localhost", "http://localhost:8080/admin", ErrSSRFRisk},
		{"loopback ip", "http://127.0.0.1/secrets", ErrSSRFRisk},
		{"private 10 range", "http://10.0.0.5/internal", ErrSSRFRisk},
		{"private 172 range", "http://172.16.1.1/", ErrSSRFRisk},
		{"private 192 range", "http://192.168.1.1/router", ErrSSRFRisk},
		{"link local", "http://169.254.169.254/latest/meta-data", ErrSSRFRisk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReferenceURL(tt.url)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReferenceURL(%q) error = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"192.168.0.1", true},
		{"169.254.1.1", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"fc00::1", true},
		{"fd12:3456::1", true},
		{"8.8.8.8", false},
		{"2001:4860:4860::8888", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("bad test IP %q", tt.ip)
			}
			if got := isPrivateIP(ip); got != tt.want {
				t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}
