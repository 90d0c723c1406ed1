package phonetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	t.Run("similar surnames share a code", func(t *testing.T) {
		assert.Equal(t, Code("Robert"), Code("Rupert"))
		assert.Equal(t, Code("Smith"), Code("Smyth"))
	})

	t.Run("dissimilar surnames differ", func(t *testing.T) {
		assert.NotEqual(t, Code("Smith"), Code("Jones"))
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.Equal(t, Code("GARCIA"), Code("garcia"))
	})

	t.Run("punctuation and digits are ignored", func(t *testing.T) {
		assert.Equal(t, Code("O'Brien"), Code("OBrien"))
		assert.Equal(t, Code("Smith2"), Code("Smith"))
	})

	t.Run("empty and non-letter input yields empty code", func(t *testing.T) {
		assert.Equal(t, "", Code(""))
		assert.Equal(t, "", Code("123"))
		assert.Equal(t, "", Code("--"))
	})

	// First-letter sensitivity is inherent to Soundex: these are the same
	// name to a human but land in different buckets. Documented limitation.
	t.Run("leading consonant variants diverge", func(t *testing.T) {
		assert.NotEqual(t, Code("Catherine"), Code("Katherine"))
	})
}
