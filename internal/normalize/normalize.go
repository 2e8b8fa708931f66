// Package normalize provides text folding and sanitizing shared by search, sorting and input handling.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// htmlTagPattern matches common HTML tags to detect markup in pasted descriptions.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// whitespace collapses runs of spaces, tabs and newlines.
var whitespace = regexp.MustCompile(`\s+`)

// Fold returns s case-folded with diacritics removed, for case-insensitive,
// accent-insensitive matching. "Ōkami" and "OKAMI" fold to the same string.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	// Transformers carry state, so a fresh chain is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// Contains reports whether folded haystack contains the already-folded needle.
// Callers fold the needle once per query.
func Contains(haystack, foldedNeedle string) bool {
	if foldedNeedle == "" {
		return true
	}
	return strings.Contains(Fold(haystack), foldedNeedle)
}

// Title trims and collapses whitespace in a user-entered title.
func Title(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Category lowercases a category and replaces spaces with underscores,
// so "Light Novel" and "light_novel" are the same category.
func Category(s string) string {
	s = strings.ToLower(Title(s))
	return strings.ReplaceAll(s, " ", "_")
}

// ISBN strips hyphens and spaces from an ISBN and uppercases the check digit.
func ISBN(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
	return s
}

// ContainsHTML reports whether s appears to contain HTML markup.
func ContainsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// Description converts HTML descriptions (often pasted from store pages) to Markdown.
// Plain text is returned trimmed and otherwise unchanged.
func Description(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !ContainsHTML(s) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(markdown)
}
