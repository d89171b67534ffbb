package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortInput(t *testing.T) {
	assert.Equal(t, []string{"hello"}, SplitText("hello", 10, 2))
	assert.Equal(t, []string{""}, SplitText("", 10, 2))
}

func TestSplitTextCountsRunes(t *testing.T) {
	// 6 runes, 18 bytes
	text := "가나다라마바"
	assert.Equal(t, []string{text}, SplitText(text, 6, 0))

	chunks := SplitText(text, 4, 0)
	assert.Equal(t, []string{"가나다라", "마바"}, chunks)
}

func TestSplitTextOverlap(t *testing.T) {
	chunks := SplitText("abcdefghij", 4, 2)
	assert.Equal(t, []string{"abcd", "cdef", "efgh", "ghij"}, chunks)
}

func TestSplitTextBreaksAtWhitespace(t *testing.T) {
	chunks := SplitText("alpha beta gamma delta", 12, 0)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "alpha beta ", chunks[0])
	assert.Equal(t, "alpha beta gamma delta", strings.Join(chunks, ""))
}

func TestSplitTextBounds(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 40)
	for _, c := range SplitText(text, 50, 10) {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50)
		assert.NotEmpty(t, c)
	}
}

func TestSplitTextInvalidOverlap(t *testing.T) {
	chunks := SplitText("abcdefgh", 4, 4)
	assert.Equal(t, []string{"abcd", "efgh"}, chunks)
}
