package validation

import (
	"errors"
	"strings"
	"unicode"
)

// ErrQueryEmpty is returned when the search query is empty or whitespace-only after trim.
var ErrQueryEmpty = errors.New("search query is empty")

// ValidateQuery trims the query and rejects it when nothing is left.
// Characters are otherwise passed through untouched; the geocoder decides what matches.
func ValidateQuery(input string) (string, error) {
	s := strings.TrimFunc(input, isTrimmable)
	if s == "" {
		return "", ErrQueryEmpty
	}
	return s, nil
}

// isTrimmable covers Unicode white space plus the byte-order mark, which
// pasted text and some speech engines leave at the edges.
func isTrimmable(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}
