package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderDoubleBrace(t *testing.T) {
	out := Render("Hello {{name}}, your code is {{code}}.", map[string]string{
		"name": "Ann",
		"code": "1234",
	})
	assert.Equal(t, "Hello Ann, your code is 1234.", out)
}

func TestRenderSingleBrace(t *testing.T) {
	out := Render("Hi {name}!", map[string]string{"name": "Ann"})
	assert.Equal(t, "Hi Ann!", out)
}

func TestRenderInnerSpaces(t *testing.T) {
	out := Render("Hi {{ name }}!", map[string]string{"name": "Ann"})
	assert.Equal(t, "Hi Ann!", out)
}

func TestRenderUnknownKeyBecomesEmpty(t *testing.T) {
	out := Render("Hello {{name}}, welcome to {{company}}.", map[string]string{"name": "Ann"})
	assert.Equal(t, "Hello Ann, welcome to .", out)
}

func TestRenderNoPlaceholders(t *testing.T) {
	out := Render("Plain subject", map[string]string{"name": "Ann"})
	assert.Equal(t, "Plain subject", out)
}

func TestRenderNilData(t *testing.T) {
	out := Render("Hello {{name}}", nil)
	assert.Equal(t, "Hello ", out)
}

func TestRenderDottedAndHyphenatedKeys(t *testing.T) {
	out := Render("{{user.first-name}}", map[string]string{"user.first-name": "Ann"})
	assert.Equal(t, "Ann", out)
}
