// Package store holds the full-text chunk stores (RediSearch, Postgres) and
// the indexed-video trackers (Redis hash, Postgres table, SQLite file).
package store

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// MinQueryLength is the shortest sanitized query accepted for search.
const MinQueryLength = 3

// SanitizeQuery reduces raw user input to lowercase letter/digit terms
// separated by single spaces. Anything else (query operators, punctuation)
// becomes a separator. Fails with engine.ErrInvalidQuery when fewer than
// MinQueryLength letters or digits remain.
func SanitizeQuery(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, raw)
	q := strings.Join(strings.Fields(cleaned), " ")
	if utf8.RuneCountInString(strings.ReplaceAll(q, " ", "")) < MinQueryLength {
		return "", fmt.Errorf("%w: query must contain at least %d letters or digits", engine.ErrInvalidQuery, MinQueryLength)
	}
	return q, nil
}
