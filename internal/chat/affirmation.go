package chat

import (
	"regexp"
	"strings"
)

// Vocabulary used to interpret replies to a pending appointment proposal.
// Multi-word phrases match as whole phrases ("please book" matches
// "please book me" but not "pleasebook").
var (
	affirmativePhrases = []string{
		"yes", "yeah", "yep", "confirm", "sure", "ok", "okay",
		"please book", "book it", "sounds good", "that works",
		"perfect", "great", "good",
	}
	negativePhrases = []string{
		"no", "nope", "cancel", "don't", "do not", "not now",
		"later", "different time", "another time", "not available",
	}

	// Single-character shortcuts only match the whole trimmed message.
	shortAffirmative = []string{"y"}
	shortNegative    = []string{"n"}
)

var (
	affirmativeRE = compileVocabulary(affirmativePhrases)
	negativeRE    = compileVocabulary(negativePhrases)
)

// compileVocabulary builds a single word-boundary alternation for a phrase list.
func compileVocabulary(phrases []string) *regexp.Regexp {
	escaped := make([]string, 0, len(phrases))
	for _, p := range phrases {
		escaped = append(escaped, regexp.QuoteMeta(strings.ToLower(p)))
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(escaped, "|") + `)\b`)
}

// IsAffirmative reports whether the message accepts a pending proposal.
func IsAffirmative(message string) bool {
	return equalsAnyTrimmed(message, shortAffirmative) || affirmativeRE.MatchString(strings.ToLower(message))
}

// IsNegative reports whether the message rejects a pending proposal.
func IsNegative(message string) bool {
	return equalsAnyTrimmed(message, shortNegative) || negativeRE.MatchString(strings.ToLower(message))
}

// equalsAnyTrimmed checks the trimmed, lowercased message against exact values.
func equalsAnyTrimmed(message string, values []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	for _, v := range values {
		if normalized == strings.ToLower(v) {
			return true
		}
	}
	return false
}
