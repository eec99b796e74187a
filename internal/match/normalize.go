package match

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// tokenSplitPattern matches non-alphanumeric character sequences for tokenization.
var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// noiseWords are articles and connectives that carry no matching signal
// and vary freely between registrations of the same work.
var noiseWords = map[string]struct{}{
	"the": {},
	"and": {},
	"for": {},
	"feat": {},
	"featuring": {},
}

var titleCaser = cases.Title(language.English)

// NormalizeTitle folds a work title into a canonical comparison form:
// lowercased, punctuation stripped, noise words removed, token order
// preserved. Returns the empty string if nothing survives.
func NormalizeTitle(title string) string {
	tokens := TokenizeTitle(title)
	if len(tokens) == 0 {
		return ""
	}
	return strings.Join(tokens, " ")
}

// DisplayTitle renders a title in conventional casing for presentation.
func DisplayTitle(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(trimmed))
}

// TokenizeTitle splits a title into lowercase tokens, dropping noise words
// and single-character fragments.
func TokenizeTitle(title string) []string {
	lowered := strings.ToLower(title)
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if len(token) < 2 {
			continue
		}
		if _, noisy := noiseWords[token]; noisy {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}
