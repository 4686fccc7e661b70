package mrz

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// latin letters without a canonical decomposition
var ligatures = strings.NewReplacer(
	"Æ", "AE", "æ", "AE",
	"Ø", "O", "ø", "O",
	"Œ", "OE", "œ", "OE",
	"ß", "SS",
	"Þ", "TH", "þ", "TH",
	"Đ", "D", "đ", "D",
	"Ł", "L", "ł", "L",
)

// Transliterate maps a free text name to the MRZ character set: accents are
// stripped, letters upper-cased, and anything that is not A-Z or 0-9 becomes
// a space. Runs of spaces collapse to one.
func Transliterate(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, ligatures.Replace(s))
	if err != nil {
		stripped = s
	}

	mapped := strings.Map(func(r rune) rune {
		r = unicode.ToUpper(r)
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, stripped)

	return strings.Join(strings.Fields(mapped), " ")
}
