package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidDomain(t *testing.T) {
	valid := []string{
		"acme.com",
		"app.acme.com",
		"app.acme.com:8443",
		"*.acme.com",
		"localhost",
		"my-app.acme.co.uk",
	}
	for _, d := range valid {
		assert.True(t, IsValidDomain(d), d)
	}

	invalid := []string{
		"",
		"*.",
		"-acme.com",
		"acme-.com",
		"https://acme.com",
		"acme com",
		"acme.com/path",
	}
	for _, d := range invalid {
		assert.False(t, IsValidDomain(d), d)
	}
}

func TestValidateDomains(t *testing.T) {
	invalid := ValidateDomains([]string{"acme.com", "bad domain", "*.ok.io", "also/bad"})
	assert.Equal(t, []string{"bad domain", "also/bad"}, invalid)

	assert.Empty(t, ValidateDomains(nil))
	assert.Empty(t, ValidateDomains([]string{"acme.com"}))
}
