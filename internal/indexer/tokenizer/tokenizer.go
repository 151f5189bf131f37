// Package tokenizer splits document text into index terms. A term is a run of
// word characters (letters, digits, underscore); everything else separates
// terms. Case folding happens upstream in the document loader and again at
// query time, so Tokenize does not lower-case on its own.
package tokenizer

import (
	"strings"
	"unicode"
)

// IsWordRune reports whether r belongs to a term.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// Tokenize breaks text into terms in order of appearance, repeats included.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !IsWordRune(r)
	})
}

// Unique returns the distinct terms of text in first-occurrence order.
func Unique(text string) []string {
	words := Tokenize(text)
	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if word == "" {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		terms = append(terms, word)
	}
	return terms
}
