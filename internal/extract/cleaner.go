package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Clean normalizes extracted text for the corpus.
//
// The steps are:
//  1. Unicode NFC normalization, so composed and decomposed forms of the
//     same character produce identical records
//  2. Every run of Unicode whitespace becomes a single space
//  3. Every ". " becomes ".\n", putting each sentence-ish unit on its own
//     line. This is a readability heuristic; abbreviations like "Dr. Smith"
//     are split too
//  4. Leading and trailing whitespace is trimmed
//
// If the result is shorter than minLength characters, Clean returns "".
// Clean is idempotent.
func Clean(text string, minLength int) string {
	text = norm.NFC.String(text)
	text = strings.Join(strings.Fields(text), " ")
	text = strings.ReplaceAll(text, ". ", ".\n")
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) < minLength {
		return ""
	}
	return text
}
