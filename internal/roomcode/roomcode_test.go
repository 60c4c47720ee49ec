package roomcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest_FourHyphenatedWords(t *testing.T) {
	code := Suggest()
	parts := strings.Split(string(code), "-")
	assert.Len(t, parts, 4)
	for _, p := range parts {
		assert.NotEmpty(t, p)
	}
}

func TestSuggest_VariesAcrossCalls(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		seen[string(Suggest())] = true
	}
	assert.Greater(t, len(seen), 1, "20 draws from a combinatorial word space should not collapse to one value")
}
