// Package security validates outbound URLs configured for remote list stores.
package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateBaseURL parses the base URL of a remote list API and rejects
// targets on internal networks unless allowPrivate is set. Localhost,
// private ranges, link-local and unspecified addresses are blocked.
func ValidateBaseURL(rawURL string, allowPrivate bool) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("URL must have a host")
	}

	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return nil, fmt.Errorf("base URL must not carry a query or fragment")
	}

	if allowPrivate {
		return parsed, nil
	}

	hostLower := strings.ToLower(host)
	if hostLower == "localhost" || hostLower == "localhost.localdomain" {
		return nil, fmt.Errorf("requests to localhost are not allowed")
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// Hostnames are not resolved here.
		return parsed, nil
	}

	switch {
	case ip.IsLoopback():
		return nil, fmt.Errorf("requests to loopback addresses are not allowed")
	case ip.IsPrivate():
		return nil, fmt.Errorf("requests to private network addresses are not allowed")
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return nil, fmt.Errorf("requests to link-local addresses are not allowed")
	case ip.IsUnspecified():
		return nil, fmt.Errorf("requests to unspecified addresses are not allowed")
	}

	return parsed, nil
}
