package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultNormalizedCap bounds the normalized text length in runes so that
// fingerprints of very long posts stay stable across truncated reposts.
const DefaultNormalizedCap = 4000

var (
	urlPattern     = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	hashtagPattern = regexp.MustCompile(`#\w+`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes raw post text for fingerprinting: NFKC form,
// links/mentions/hashtags removed, punctuation stripped, lowercased,
// whitespace collapsed, capped at maxRunes.
func Normalize(text string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultNormalizedCap
	}

	text = norm.NFKC.String(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = mentionPattern.ReplaceAllString(text, " ")
	text = hashtagPattern.ReplaceAllString(text, " ")

	text = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}

		return unicode.ToLower(r)
	}, text)

	text = strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))

	if runes := []rune(text); len(runes) > maxRunes {
		text = string(runes[:maxRunes])
	}

	return text
}

// Fingerprint hashes normalized text into the cross-source dedup key.
func Fingerprint(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))

	return hex.EncodeToString(sum[:])
}
