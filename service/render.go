package service

import "regexp"

// Placeholders come in two authored forms: {{key}} (optionally with inner
// spaces) and the single-brace {key}. Both resolve against the same data map.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}|\{([A-Za-z0-9_.-]+)\}`)

var innerKeyPattern = regexp.MustCompile(`[A-Za-z0-9_.-]+`)

// Render substitutes placeholders in a template string with values from data.
// Unknown keys become the empty string. No nesting, no escaping: values are
// trusted verbatim.
func Render(template string, data map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := innerKeyPattern.FindString(match)
		return data[key]
	})
}
