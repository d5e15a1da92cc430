package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes characters and drops combining marks, so that
// accented and plain spellings collide ("Pérez" and "Perez" normalize
// to the same key).
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName canonicalizes a free-text name for comparison: lower-case,
// trimmed, internal whitespace runs collapsed to a single space, diacritics
// removed. Returns ErrEmptyName if nothing remains.
func NormalizeName(text string) (string, error) {
	folded, _, err := transform.String(stripMarks, text)
	if err != nil {
		// Malformed UTF-8 input: fall back to the raw text so that a
		// degraded key is still produced rather than failing the query.
		folded = text
	}

	fields := strings.Fields(strings.ToLower(folded))
	if len(fields) == 0 {
		return "", ErrEmptyName
	}
	return strings.Join(fields, " "), nil
}

// NameKey builds the index key for a ledger row's name columns.
func NameKey(first, last string) (string, error) {
	return NormalizeName(first + " " + last)
}
