package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	enhanceMinLength  = 10
	enhanceTooShort   = "O texto é muito curto para aprimoramento. Por favor, escreva mais."
	enhanceConclusion = " Além disso, a clareza e o foco foram aprimorados pela IA."
)

// EnhanceText applies the rule-based rewrite offered next to each long form
// field: capitalize, close the sentence and append the fixed conclusion.
func EnhanceText(text string) string {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < enhanceMinLength {
		return enhanceTooShort
	}
	first, size := utf8.DecodeRuneInString(trimmed)
	enhanced := string(unicode.ToUpper(first)) + trimmed[size:]
	if !strings.HasSuffix(enhanced, ".") {
		enhanced += "."
	}
	return enhanced + enhanceConclusion
}
