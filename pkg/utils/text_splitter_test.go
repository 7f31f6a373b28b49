package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText_ShortInputIsSingleChunk(t *testing.T) {
	chunks := SplitText("a short report", 1024, 20)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short report", chunks[0])
}

func TestSplitText_EmptyInput(t *testing.T) {
	assert.Empty(t, SplitText("", 1024, 20))
}

func TestSplitText_ChunksStayWithinSize(t *testing.T) {
	text := strings.Repeat("word ", 2000)
	chunks := SplitText(text, 1024, 20)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 1024, "chunk %d over size", i)
		assert.NotEmpty(t, chunk)
	}
}

func TestSplitText_PrefersNaturalBoundaries(t *testing.T) {
	// Words separated by spaces: every split should land on a space, so no
	// chunk starts or ends mid-word.
	text := strings.TrimSpace(strings.Repeat("alpha beta gamma delta ", 300))
	chunks := SplitText(text, 100, 0)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		for _, w := range strings.Fields(chunk) {
			assert.Contains(t, []string{"alpha", "beta", "gamma", "delta"}, w,
				"chunk %d split mid-word: %q", i, w)
		}
	}
}

func TestSplitText_UnbrokenTextStillMakesProgress(t *testing.T) {
	text := strings.Repeat("x", 5000)
	chunks := SplitText(text, 1024, 20)
	require.Greater(t, len(chunks), 1)

	// All input must be covered despite having no boundary to cut on.
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	assert.GreaterOrEqual(t, total, len(text))
}

func TestSplitText_CoversWholeInput(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 100))
	chunks := SplitText(text, 256, 20)

	joined := strings.Join(chunks, "")
	for _, w := range strings.Fields(text) {
		assert.Contains(t, joined, w)
	}
	assert.Contains(t, chunks[0], "the quick brown fox")
	assert.Contains(t, chunks[len(chunks)-1], "lazy dog.")
}
