package middleware

import (
	"net/url"
	"strings"

	"github.com/sendhub/sendhub/models"
)

// DomainMatcher decides whether one allow-list rule admits an origin.
// hostname is the origin's host without port; host keeps the port if present.
type DomainMatcher interface {
	Matches(hostname, host string) bool
}

// exactMatcher admits an origin whose hostname or host equals the entry, so
// "app.acme.com" and "app.acme.com:8443" can both be listed.
type exactMatcher struct {
	entry string
}

func (m exactMatcher) Matches(hostname, host string) bool {
	return m.entry == hostname || m.entry == host
}

// wildcardMatcher admits strict subdomains of its base: "*.acme.com" matches
// "app.acme.com" and "a.b.acme.com" but never "acme.com" itself, nor hosts
// that merely end in the same characters ("notacme.com").
type wildcardMatcher struct {
	base string
}

func (m wildcardMatcher) Matches(hostname, _ string) bool {
	return strings.HasSuffix(hostname, "."+m.base)
}

// localhostMatcher admits local development origins when the key opts in.
type localhostMatcher struct{}

func (localhostMatcher) Matches(hostname, _ string) bool {
	return hostname == "localhost" || hostname == "127.0.0.1"
}

// MatchersForKey compiles an API key's allow-list into matchers.
func MatchersForKey(key *models.ApiKey) []DomainMatcher {
	matchers := make([]DomainMatcher, 0, len(key.Domains)+1)
	for _, entry := range key.Domains {
		if strings.HasPrefix(entry, "*.") {
			matchers = append(matchers, wildcardMatcher{base: entry[2:]})
		} else {
			matchers = append(matchers, exactMatcher{entry: entry})
		}
	}
	if key.AllowLocalhost {
		matchers = append(matchers, localhostMatcher{})
	}
	return matchers
}

// OriginAllowed reports whether the Origin header value is admitted by the
// key's allow-list. An absent origin is always allowed: that is a
// server-to-server caller, not a browser.
func OriginAllowed(key *models.ApiKey, origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return false
	}
	hostname := u.Hostname()
	host := u.Host
	for _, m := range MatchersForKey(key) {
		if m.Matches(hostname, host) {
			return true
		}
	}
	return false
}
