package match

import (
	"errors"
	"strings"

	"cadenza/internal/catalog"
)

// ErrUnmatchable indicates a work carries neither a usable ISWC nor a
// title that survives normalization, so no group key can be derived.
var ErrUnmatchable = errors.New("work has no usable ISWC or title")

// Matcher derives a stable group key for a work. Works that resolve to
// the same key belong to the same match group.
type Matcher interface {
	Key(work *catalog.Work) (string, error)
}

// FingerprintMatcher keys works by normalized ISWC when present,
// falling back to the normalized title token stream.
type FingerprintMatcher struct{}

// NewMatcher returns the default fingerprint matcher.
func NewMatcher() *FingerprintMatcher {
	return &FingerprintMatcher{}
}

// Key returns "iswc:<normalized>" when the work carries an ISWC,
// otherwise "title:<normalized title>". ErrUnmatchable when neither
// yields anything.
func (m *FingerprintMatcher) Key(work *catalog.Work) (string, error) {
	if work == nil {
		return "", ErrUnmatchable
	}
	if iswc := catalog.NormalizeISWC(work.ISWC); iswc != "" {
		return "iswc:" + iswc, nil
	}
	if normalized := NormalizeTitle(work.Title); normalized != "" {
		return "title:" + normalized, nil
	}
	return "", ErrUnmatchable
}

// TitleSimilarity scores two raw titles in [0, 1] using cosine similarity
// over normalized token vectors.
func TitleSimilarity(a, b string) float64 {
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
}

// IsISWCKey reports whether a group key was derived from an ISWC.
func IsISWCKey(key string) bool {
	return strings.HasPrefix(key, "iswc:")
}
