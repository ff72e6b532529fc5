package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sendhub/sendhub/models"
)

func TestOriginAllowedExact(t *testing.T) {
	key := &models.ApiKey{Domains: []string{"app.acme.com"}}

	assert.True(t, OriginAllowed(key, "https://app.acme.com"))
	assert.True(t, OriginAllowed(key, "http://app.acme.com:3000"), "exact entry matches any port")
	assert.False(t, OriginAllowed(key, "https://other.acme.com"))
	assert.False(t, OriginAllowed(key, "https://acme.com"))
}

func TestOriginAllowedExactWithPort(t *testing.T) {
	key := &models.ApiKey{Domains: []string{"app.acme.com:8443"}}

	assert.True(t, OriginAllowed(key, "https://app.acme.com:8443"))
	assert.False(t, OriginAllowed(key, "https://app.acme.com:9000"))
}

func TestOriginAllowedWildcard(t *testing.T) {
	key := &models.ApiKey{Domains: []string{"*.acme.com"}}

	assert.True(t, OriginAllowed(key, "https://app.acme.com"))
	assert.True(t, OriginAllowed(key, "https://a.b.acme.com"), "wildcard covers nested subdomains")
	assert.False(t, OriginAllowed(key, "https://acme.com"), "wildcard must not match the bare base")
	assert.False(t, OriginAllowed(key, "https://notacme.com"), "suffix overlap is not a subdomain")
}

func TestOriginAllowedLocalhost(t *testing.T) {
	withFlag := &models.ApiKey{Domains: []string{"app.acme.com"}, AllowLocalhost: true}
	withoutFlag := &models.ApiKey{Domains: []string{"app.acme.com"}}

	assert.True(t, OriginAllowed(withFlag, "http://localhost:3000"))
	assert.True(t, OriginAllowed(withFlag, "http://127.0.0.1:5173"))
	assert.False(t, OriginAllowed(withoutFlag, "http://localhost:3000"))
}

func TestOriginAllowedEdgeCases(t *testing.T) {
	key := &models.ApiKey{Domains: []string{"app.acme.com"}}

	assert.True(t, OriginAllowed(key, ""), "server-to-server callers send no Origin")
	assert.False(t, OriginAllowed(key, "://not a url"))
	assert.False(t, OriginAllowed(&models.ApiKey{}, "https://app.acme.com"), "empty allow-list admits nothing")
}
