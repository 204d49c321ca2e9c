package checkin

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// AnonymousKey is the storage key used when a name normalizes to nothing.
const AnonymousKey = "utilizador"

// NormalizeName derives the storage key for a user name: case-folded, accents removed, and
// restricted to letters, digits, '_' and '-'. "Ana", "ANA" and "aná" all map to "ana".
func NormalizeName(raw string) string {
	folded := cases.Fold().String(strings.TrimSpace(raw))

	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), folded)
	if err != nil {
		stripped = folded
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return AnonymousKey
	}
	return b.String()
}
