package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("strips links mentions and hashtags", func(t *testing.T) {
		got := Normalize("Check https://example.com/post @someone #breaking AI news!", 0)
		assert.Equal(t, "check ai news", got)
	})

	t.Run("lowercases and collapses whitespace", func(t *testing.T) {
		got := Normalize("  New   MODEL\n\nreleased\ttoday ", 0)
		assert.Equal(t, "new model released today", got)
	})

	t.Run("strips punctuation and symbols", func(t *testing.T) {
		got := Normalize(`"GPT-5" (finally!) costs $20/mo...`, 0)
		assert.Equal(t, "gpt 5 finally costs 20 mo", got)
	})

	t.Run("nfkc folds compatibility forms", func(t *testing.T) {
		// Fullwidth latin normalizes to plain ASCII.
		got := Normalize("ＡＩ ｍｏｄｅｌ", 0)
		assert.Equal(t, "ai model", got)
	})

	t.Run("caps length in runes", func(t *testing.T) {
		got := Normalize(strings.Repeat("a", 5000), 0)
		assert.Equal(t, DefaultNormalizedCap, len([]rune(got)))
	})

	t.Run("empty after stripping", func(t *testing.T) {
		assert.Equal(t, "", Normalize("https://only-a-link.example.com", 0))
	})
}

func TestFingerprintStableAcrossFormatting(t *testing.T) {
	a := Fingerprint(Normalize("Big AI News! https://a.example @chan", 0))
	b := Fingerprint(Normalize("big   ai news", 0))
	c := Fingerprint(Normalize("different ai news", 0))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestPassesPrefilter(t *testing.T) {
	assert.True(t, PassesPrefilter("new llm model released"))
	assert.True(t, PassesPrefilter("startup ships agent sdk"))
	assert.False(t, PassesPrefilter("great recipe for banana bread"))
	assert.False(t, PassesPrefilter(""))
}
