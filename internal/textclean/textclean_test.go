package textclean

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"positive positive positive positive",
		"work with humans and work with humans and work with humans",
		"the quick brown fox jumps over the lazy dog",
		"",
	}
	for _, in := range inputs {
		once, _ := Clean(in)
		twice, _ := Clean(once)
		require.Equal(t, once, twice, "clean(clean(%q)) should equal clean(%q)", in, in)
	}
}

func TestCleanNGramCollapse(t *testing.T) {
	cleaned, _ := Clean("work with humans and work with humans and work with humans")
	require.Equal(t, "work with humans and", strings.TrimSpace(cleaned))
}

func TestCleanSingletonCollapse(t *testing.T) {
	cleaned, hallucinated := Clean("positive positive positive positive positive")
	require.Equal(t, "positive positive", cleaned)
	require.True(t, hallucinated)
}

func TestCleanDominantWordTrim(t *testing.T) {
	cleaned, _ := Clean("hello apple hello banana hello cherry hello date hello")
	words := strings.Fields(cleaned)
	count := 0
	for _, w := range words {
		if strings.EqualFold(w, "hello") {
			count++
		}
	}
	require.Equal(t, 4, count)
	require.Equal(t, words[len(words)-1], "hello")
}

func TestEnforceLengthTrimsToWordBudget(t *testing.T) {
	text := strings.Repeat("word ", 40)
	trimmed := EnforceLength(text, 2.0)
	require.Len(t, strings.Fields(trimmed), 10)
}

func TestEnforceLengthFloorIsFiveWords(t *testing.T) {
	text := strings.Repeat("word ", 40)
	trimmed := EnforceLength(text, 0.2)
	require.Len(t, strings.Fields(trimmed), 5)
}

func TestEnforceLengthLeavesShortTextUnchanged(t *testing.T) {
	text := "hello there"
	require.Equal(t, text, EnforceLength(text, 5.0))
}
