package utils

import "regexp"

// Allows domains, subdomains, and optionally a port suffix.
var domainPattern = regexp.MustCompile(`^(([a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9\-]*[a-zA-Z0-9])\.)*([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9\-]*[A-Za-z0-9])(:\d+)?$`)

// IsValidDomain reports whether a string is a syntactically valid allow-list
// entry. A "*."-prefix marks a wildcard; the remainder must still be a valid
// domain.
func IsValidDomain(domain string) bool {
	if domain == "" {
		return false
	}
	if len(domain) > 2 && domain[:2] == "*." {
		domain = domain[2:]
	}
	return domainPattern.MatchString(domain)
}

// ValidateDomains checks every entry of an allow-list and returns the invalid
// ones, if any.
func ValidateDomains(domains []string) (invalid []string) {
	for _, d := range domains {
		if !IsValidDomain(d) {
			invalid = append(invalid, d)
		}
	}
	return invalid
}
