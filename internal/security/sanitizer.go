package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = bluemonday.StrictPolicy()

// MaxTextLength bounds free text stored with ledger rows
const MaxTextLength = 1000

// SanitizeString trims input, removes null bytes, and limits its length
// to MaxTextLength runes.
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	if utf8.RuneCountInString(input) > MaxTextLength {
		input = string([]rune(input)[:MaxTextLength])
	}

	return input
}

// SanitizeHTML removes all HTML tags
func SanitizeHTML(input string) string {
	return htmlPolicy.Sanitize(input)
}

// SanitizeText prepares operator-entered text (names, notes, reasons) for
// storage: markup is stripped and the result is a plain string.
func SanitizeText(input string) string {
	return SanitizeString(html.UnescapeString(SanitizeHTML(input)))
}
