// Package phonetic derives the coarse surname code used as the matcher's
// candidate prefilter.
//
// Soundex keys on the first letter and collapses consonant classes, so
// variants that differ in their leading consonant ("Catherine"/"Katherine")
// land in different buckets. That is a known limitation of the chosen
// algorithm, not a defect to paper over here; manually adjudicated pairs
// cover the cases it misses.
package phonetic

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// Code returns the phonetic code for a surname, or "" when the surname has
// no letters to encode. Codes are computed at identity creation and stored
// so candidate retrieval is a plain equality filter.
func Code(lastName string) string {
	cleaned := letters(lastName)
	if cleaned == "" {
		return ""
	}
	return matchr.Soundex(cleaned)
}

// letters strips everything but ASCII letters; Soundex is undefined for
// digits and punctuation that can appear in raw intake data.
func letters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
