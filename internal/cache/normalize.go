// Query normalization.
//
// Normalize produces the canonical form of a user query so that semantically
// identical phrasings collide on the same fingerprint. The transform is
// intentionally conservative: whitespace collapse, lowercasing, trailing
// punctuation strip, and removal of a fixed set of Korean sentence-final
// particles that carry politeness rather than meaning ("알려줘요" and
// "알려줘" must hash identically).
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// trailingParticles are sentence-final grammatical particles stripped from
// the end of a normalized query, longest first so compound endings win over
// their suffixes.
var trailingParticles = []string{
	"알려주세요", "알려줘요", "알려줘",
	"해주세요", "해줘요", "해줘",
	"인가요", "일까요", "나요", "까요",
	"예요", "이에요", "습니다", "합니다",
	"어때요", "어때",
	"요", "죠", "감", "영",
}

var (
	whitespaceRE  = regexp.MustCompile(`\s+`)
	trailingPunct = ".,!?~…;:ㅋㅎㅠ"
)

// Normalize returns the canonical form of query: Unicode NFC, whitespace
// collapsed to single spaces, lowercased, trailing punctuation removed, then
// any trailing particle from the fixed list removed. NFC matters for Hangul:
// macOS clients often submit decomposed jamo that must hash the same as the
// composed syllables everyone else sends. The function is total and pure.
func Normalize(query string) string {
	q := norm.NFC.String(query)
	q = whitespaceRE.ReplaceAllString(strings.TrimSpace(q), " ")
	q = strings.ToLower(q)
	q = strings.TrimRight(q, trailingPunct)
	q = strings.TrimSpace(q)

	for _, p := range trailingParticles {
		if strings.HasSuffix(q, p) && len(q) > len(p) {
			q = strings.TrimSpace(strings.TrimSuffix(q, p))
			break
		}
	}
	return q
}

// Fingerprint hashes planTier and the normalized query into the cache key.
// Identical (plan, query) pairs always produce identical keys; different plan
// tiers never share an entry.
func Fingerprint(planTier, query string) string {
	sum := sha256.Sum256([]byte(planTier + "|" + Normalize(query)))
	return hex.EncodeToString(sum[:])
}
