package network

import (
	"strings"
)

const wwwPrefix = "www."

// NormalizeDomain reduces a user-entered site to a bare lowercase domain.
// Examples:
//   - "https://WWW.Example.com/" -> "www.example.com"
//   - "example.com/path?q=1"     -> "example.com"
//   - "http://localhost:8080"    -> "localhost"
//   - "  "                       -> ""
func NormalizeDomain(site string) string {
	domain := strings.TrimSpace(site)

	if rest, ok := strings.CutPrefix(domain, "https://"); ok {
		domain = rest
	} else if rest, ok := strings.CutPrefix(domain, "http://"); ok {
		domain = rest
	}

	domain = strings.TrimRight(domain, "/")
	if i := strings.IndexByte(domain, '/'); i >= 0 {
		domain = domain[:i]
	}
	if i := strings.IndexByte(domain, ':'); i >= 0 {
		domain = domain[:i]
	}

	return strings.ToLower(domain)
}

// Sibling returns the www-toggled counterpart of a normalized domain.
// e.g., example.com -> www.example.com, www.example.com -> example.com
func Sibling(domain string) string {
	if bare, ok := strings.CutPrefix(domain, wwwPrefix); ok {
		return bare
	}
	return wwwPrefix + domain
}

// Domains converts raw site entries into the ordered set of domains to block.
// Each normalized entry is followed by its www sibling; blanks and duplicates are dropped.
// Examples:
//   - Domains([]string{"example.com"})                -> [example.com www.example.com]
//   - Domains([]string{"https://www.Example.com/a"})  -> [www.example.com example.com]
func Domains(sites []string) []string {
	var domains []string

	for _, site := range sites {
		domain := NormalizeDomain(site)
		if domain == "" {
			continue
		}
		domains = append(domains, domain, Sibling(domain))
	}

	return deduplicateDomains(domains)
}

// BareDomains returns the normalized entries without sibling expansion.
// These are the names handed to the resolver.
func BareDomains(sites []string) []string {
	var domains []string

	for _, site := range sites {
		if domain := NormalizeDomain(site); domain != "" {
			domains = append(domains, domain)
		}
	}

	return deduplicateDomains(domains)
}

// deduplicateDomains removes duplicate domains from a slice
func deduplicateDomains(domains []string) []string {
	seen := make(map[string]bool)
	var result []string

	for _, domain := range domains {
		if !seen[domain] {
			seen[domain] = true
			result = append(result, domain)
		}
	}

	return result
}
