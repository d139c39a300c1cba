// Package privacy removes user identifying data from messages before they
// leave the machine.
package privacy

import (
	"cmp"
	"crypto/sha256"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var (
	// URLs as they appear in DSNs and preference backend addresses
	urlPattern = regexp.MustCompile(`\b(?:https?|redis|rediss|mysql|postgres)://\S+`)

	ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

	homePattern    = regexp.MustCompile(`(/home|/Users)/[^/\s]+`)
	winHomePattern = regexp.MustCompile(`(?i)C:\\Users\\[^\\\s]+`)
)

// Scrubber rewrites messages so they carry no user identifying data.
type Scrubber struct {
	roots []string
}

// NewScrubber returns a Scrubber that replaces each of roots with [ROOT].
// Empty, "." and "/" roots are ignored; longer roots win over their prefixes.
func NewScrubber(roots ...string) *Scrubber {
	s := &Scrubber{}
	for _, r := range roots {
		if r == "" {
			continue
		}
		r = filepath.Clean(r)
		if r == "." || r == string(filepath.Separator) {
			continue
		}
		s.roots = append(s.roots, r)
	}
	slices.SortFunc(s.roots, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})
	return s
}

// Scrub rewrites URLs, then storage roots and home directories.
func (s *Scrubber) Scrub(message string) string {
	message = ScrubMessage(message)
	if s != nil {
		for _, r := range s.roots {
			message = strings.ReplaceAll(message, r, "[ROOT]")
		}
	}
	message = homePattern.ReplaceAllString(message, "$1/[USER]")
	return winHomePattern.ReplaceAllString(message, `C:\Users\[USER]`)
}

// ScrubMessage replaces every URL in message with an anonymized form.
func ScrubMessage(message string) string {
	return urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
}

// AnonymizeURL hashes a URL down to its scheme, host category, port and
// path shape. Credentials never contribute to the result, so the same
// endpoint with different passwords maps to the same value.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var parts []string
	if u.Scheme != "" {
		parts = append(parts, u.Scheme)
	}
	if host := u.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if u.Port() != "" {
		parts = append(parts, "port-"+u.Port())
	}
	if u.Path != "" && u.Path != "/" {
		parts = append(parts, anonymizePath(u.Path))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s://url-%x", cmp.Or(u.Scheme, "unknown"), hash[:12])
}

// categorizeHost keeps only the kind of host and, for domains, the TLD.
func categorizeHost(host string) string {
	switch {
	case host == "localhost" || host == "127.0.0.1" || host == "::1":
		return "localhost"
	case isPrivateIP(host):
		return "private-ip"
	case isIPAddress(host):
		return "public-ip"
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return "domain-" + parts[len(parts)-1]
	}
	return "unknown-host"
}

// anonymizePath hashes each segment, keeping the number of segments.
func anonymizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}

	var segments []string
	for seg := range strings.SplitSeq(path, "/") {
		switch {
		case seg == "":
			continue
		case isNumeric(seg):
			segments = append(segments, "numeric")
		default:
			hash := sha256.Sum256([]byte(seg))
			segments = append(segments, fmt.Sprintf("seg-%x", hash[:4]))
		}
	}
	return strings.Join(segments, "/")
}

func isPrivateIP(host string) bool {
	privateRanges := []string{
		"10.", "172.16.", "172.17.", "172.18.", "172.19.", "172.20.", "172.21.", "172.22.", "172.23.",
		"172.24.", "172.25.", "172.26.", "172.27.", "172.28.", "172.29.", "172.30.", "172.31.",
		"192.168.", "169.254.",
		"fc00:", "fd00:", "fe80:",
	}
	host = strings.ToLower(host)
	for _, prefix := range privateRanges {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

func isIPAddress(host string) bool {
	return ipv4Pattern.MatchString(host) || strings.Contains(host, ":")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
