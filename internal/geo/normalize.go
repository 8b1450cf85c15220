package geo

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeCity returns the cache key form of a city name: NFC-normalized,
// Unicode case-folded, trimmed, with inner whitespace collapsed.
// "  São  Paulo " and "são paulo" share a key.
func NormalizeCity(city string) string {
	s := norm.NFC.String(city)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}
