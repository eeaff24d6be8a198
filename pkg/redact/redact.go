// Package redact masks personal identifiers before text reaches the logs.
package redact

import (
	"regexp"
	"strings"
)

var (
	ssnFull   = regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`)
	phoneLike = regexp.MustCompile(`\(?\b\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}\b`)
	isoDate   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	slashDate = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	shortNum  = regexp.MustCompile(`\b\d{4}\b`)
)

const mask = "***"

// Text masks SSNs, phone numbers, dates and bare four-digit groups.
func Text(s string) string {
	s = ssnFull.ReplaceAllString(s, mask)
	s = phoneLike.ReplaceAllString(s, mask)
	s = isoDate.ReplaceAllString(s, mask)
	s = slashDate.ReplaceAllString(s, mask)
	return shortNum.ReplaceAllString(s, mask)
}

// Name keeps the first letter of each word.
func Name(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = w[:1] + strings.Repeat("*", len(w)-1)
	}
	return strings.Join(words, " ")
}
