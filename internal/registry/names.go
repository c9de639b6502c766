package registry

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// Kebab converts a PascalCase or camelCase name to kebab-case.
func Kebab(name string) string {
	return strings.ToLower(camelBoundary.ReplaceAllString(name, "$1-$2"))
}

// Pascal converts a kebab-case name to PascalCase, leaving the tail of each
// word untouched.
func Pascal(name string) string {
	caser := cases.Title(language.Und, cases.NoLower)
	words := strings.Split(name, "-")
	for i, w := range words {
		words[i] = caser.String(w)
	}

	return strings.Join(words, "")
}

// TitleWords converts a kebab-case name to space separated title words,
// e.g. "hero-banner" to "Hero Banner".
func TitleWords(name string) string {
	caser := cases.Title(language.Und, cases.NoLower)
	words := strings.Split(name, "-")
	for i, w := range words {
		words[i] = caser.String(w)
	}

	return strings.Join(words, " ")
}

// UpperFirst upper-cases the first letter of s.
func UpperFirst(s string) string {
	if s == "" {
		return s
	}
	first, rest := s[:1], s[1:]

	return strings.ToUpper(first) + rest
}
