// Package textclean implements the three-pass repetition cleaner and
// length-sanity enforcement used to suppress Whisper-style hallucination
// loops, grounded on the word-level repetition logic already present in
// the hubenschmidt-asr-llm-tts pack (internal/pipeline/wer.go's word
// tokenization) and extended to the cleaning algorithm itself.
package textclean

import (
	"math"
	"strings"
)

// HallucinationThreshold is the fraction below which a cleaned segment's
// word count relative to its raw word count flags the segment as a
// likely hallucination.
const HallucinationThreshold = 0.70

// DominantWordFraction is the share of total words a single token must
// reach before pass 3 trims the output.
const DominantWordFraction = 0.40

// MinWordsPerSecond bounds how many words a segment may contain per
// second of audio duration.
const MinWordsPerSecond = 5.0

// Clean runs the three-pass repetition cleaner over raw text and
// reports whether the result should be treated as a hallucinated
// segment (cleaned word count fell below HallucinationThreshold of the
// raw word count).
func Clean(raw string) (cleaned string, hallucinated bool) {
	words := strings.Fields(raw)
	if len(words) == 0 {
		return raw, false
	}

	out := collapseSingletons(words)
	out = collapseNGrams(out)
	out = trimDominantWord(out)

	cleaned = strings.Join(out, " ")
	hallucinated = float64(len(out)) < HallucinationThreshold*float64(len(words))
	return cleaned, hallucinated
}

// collapseSingletons implements pass 1: runs of the same case-insensitive
// word are collapsed to at most two consecutive occurrences.
func collapseSingletons(words []string) []string {
	out := make([]string, 0, len(words))
	run := 0
	for i, w := range words {
		if i > 0 && strings.EqualFold(w, words[i-1]) {
			run++
		} else {
			run = 0
		}
		if run < 2 {
			out = append(out, w)
		}
	}
	return out
}

// collapseNGrams implements pass 2: for n = 2..10, collapse consecutive
// repeats of an n-word phrase down to a single copy. The full n=2..10
// sweep repeats until one sweep makes no change.
func collapseNGrams(words []string) []string {
	for {
		before := len(words)
		for n := 2; n <= 10; n++ {
			words = collapseNGramPass(words, n)
		}
		if len(words) == before {
			return words
		}
	}
}

func collapseNGramPass(words []string, n int) []string {
	if len(words) < 2*n {
		return words
	}
	out := make([]string, 0, len(words))
	i := 0
	for i < len(words) {
		if i+2*n <= len(words) && ngramEqual(words[i:i+n], words[i+n:i+2*n]) {
			pattern := words[i : i+n]
			out = append(out, pattern...)
			j := i + n
			for j+n <= len(words) && ngramEqual(pattern, words[j:j+n]) {
				j += n
			}
			// a trailing fragment shorter than the pattern that is itself a
			// prefix of the pattern is a cut-off further copy, not new text
			if remaining := len(words) - j; remaining > 0 && remaining < n &&
				ngramEqual(words[j:j+remaining], pattern[:remaining]) {
				j += remaining
			}
			i = j
			continue
		}
		out = append(out, words[i])
		i++
	}
	return out
}

func ngramEqual(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// trimDominantWord implements pass 3: if a single case-insensitive token
// makes up more than DominantWordFraction of the output and the output
// has more than 5 words, truncate at its fourth occurrence.
func trimDominantWord(words []string) []string {
	if len(words) <= 5 {
		return words
	}

	counts := make(map[string]int)
	for _, w := range words {
		counts[strings.ToLower(w)] = counts[strings.ToLower(w)] + 1
	}

	dominant := ""
	for key, count := range counts {
		if float64(count) > DominantWordFraction*float64(len(words)) {
			dominant = key
			break
		}
	}
	if dominant == "" {
		return words
	}

	seen := 0
	for i, w := range words {
		if strings.EqualFold(w, dominant) {
			seen++
			if seen == 4 {
				return words[:i+1]
			}
		}
	}
	return words
}

// EnforceLength trims text to at most max(5, ceil(durationSeconds * 5.0))
// words, returning the text unchanged if already within bound.
func EnforceLength(text string, durationSeconds float64) string {
	words := strings.Fields(text)
	limit := int(math.Ceil(durationSeconds * MinWordsPerSecond))
	if limit < 5 {
		limit = 5
	}
	if len(words) <= limit {
		return text
	}
	return strings.Join(words[:limit], " ")
}
