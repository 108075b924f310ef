package validation

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictHTMLPolicy = bluemonday.StrictPolicy()

// SanitizeHTMLStripTags removes all HTML tags using a strict policy.
func SanitizeHTMLStripTags(htmlInput string) string {
	return strictHTMLPolicy.Sanitize(htmlInput)
}

// SanitizeDescription is the standard cleanup applied to free-text fields
// before they reach storage: HTML stripped, unprintables dropped,
// spreadsheet formula prefixes neutralized.
func SanitizeDescription(s string) string {
	return SanitizeForFormulaInjection(StripUnprintable(SanitizeHTMLStripTags(s)))
}

// SanitizeForFormulaInjection prepends a single quote if the string starts with a formula character.
// This makes most spreadsheet software treat it as text.
func SanitizeForFormulaInjection(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) > 0 {
		firstChar := rune(trimmed[0])
		if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' || firstChar == '\t' || firstChar == '\r' {
			return "'" + s
		}
	}
	return s
}

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}
