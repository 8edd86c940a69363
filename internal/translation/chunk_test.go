package translation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitForTranslationRespectsChunkSizeCap(t *testing.T) {
	sentence := strings.Repeat("a", 50) + ". "
	text := strings.Repeat(sentence, 20)

	chunks := SplitForTranslation(text)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), maxChunkChars)
	}
}

func TestSplitForTranslationSplitsLongCommaSentences(t *testing.T) {
	long := strings.Repeat("word, ", 40) + "end."
	chunks := SplitForTranslation(long)
	require.NotEmpty(t, chunks)
}

func TestSplitForTranslationEmptyInput(t *testing.T) {
	require.Empty(t, SplitForTranslation(""))
	require.Empty(t, SplitForTranslation("   "))
}
