package retrieval

import (
	"strings"
	"unicode"
)

// tokenize lowercases text and splits it on any non-alphanumeric rune
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// termSet returns the unique tokens of text
func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range tokenize(text) {
		set[t] = struct{}{}
	}
	return set
}
