// Package urlutil provides URL normalization and validation helpers.
package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// URL scheme constants.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// NormalizeBaseURL normalizes a base URL for consistent use:
//   - Adds http:// scheme if no scheme provided
//   - Removes trailing slash for clean path joining
//
// Examples:
//
//	"panel.example.com"        -> "http://panel.example.com"
//	"https://panel.example.com/" -> "https://panel.example.com"
//	"panel.example.com:8080"   -> "http://panel.example.com:8080"
func NormalizeBaseURL(baseURL string) string {
	if baseURL == "" {
		return ""
	}

	baseURL = strings.TrimSpace(baseURL)

	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	return strings.TrimSuffix(baseURL, "/")
}

// JoinPath joins a base URL with a path, ensuring a single slash between them.
func JoinPath(baseURL, path string) string {
	if baseURL == "" {
		return path
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return baseURL + path
}

// IsRemoteURL reports whether a URL can be fetched over HTTP(S).
func IsRemoteURL(u string) bool {
	return strings.HasPrefix(u, "http://") ||
		strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "//")
}

// GetScheme returns the lowercased scheme of a URL, or "" if unparseable.
func GetScheme(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Scheme)
}

// ValidateBaseURL checks that a URL is absolute, uses http or https, and
// carries a host. Used at construction time: a server that fails this check
// can never answer a request.
func ValidateBaseURL(u string) error {
	if strings.TrimSpace(u) == "" {
		return fmt.Errorf("URL is required")
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case SchemeHTTP, SchemeHTTPS:
	case "":
		return fmt.Errorf("URL must include a scheme (http:// or https://)")
	default:
		return fmt.Errorf("unsupported URL scheme: %s (supported: http, https)", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}
