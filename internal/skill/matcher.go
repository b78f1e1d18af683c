package skill

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	// defaultPhoneticThreshold is the minimum Jaro-Winkler score required
	// for a phonetically-matched keyword to be accepted.
	defaultPhoneticThreshold = 0.70
)

// PhraseMatcher matches a normalized transcript against a set of trigger
// phrases. A transcript matches when it contains any of the phrases as a
// word-aligned substring; with phonetic tolerance enabled, recognizer
// misspellings of a phrase ("what thyme is it") still match through Double
// Metaphone codes ranked by Jaro-Winkler similarity.
//
// PhraseMatcher is read-only after construction and safe for concurrent use.
type PhraseMatcher struct {
	phrases   []string
	phonetic  bool
	threshold float64
}

// MatcherOption is a functional option for configuring a PhraseMatcher.
type MatcherOption func(*PhraseMatcher)

// WithPhonetic enables phonetic tolerance for single-word phrases.
func WithPhonetic() MatcherOption {
	return func(m *PhraseMatcher) {
		m.phonetic = true
	}
}

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for phonetic
// matches. Default: 0.70.
func WithPhoneticThreshold(threshold float64) MatcherOption {
	return func(m *PhraseMatcher) {
		m.threshold = threshold
	}
}

// NewPhraseMatcher creates a matcher over the given trigger phrases. Phrases
// are normalized at construction.
func NewPhraseMatcher(phrases []string, opts ...MatcherOption) *PhraseMatcher {
	m := &PhraseMatcher{
		phrases:   make([]string, 0, len(phrases)),
		threshold: defaultPhoneticThreshold,
	}
	for _, p := range phrases {
		if n := Normalize(p); n != "" {
			m.phrases = append(m.phrases, n)
		}
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match reports whether text contains any trigger phrase and returns the
// length of the longest matched phrase. text must already be normalized.
func (m *PhraseMatcher) Match(text string) (bool, int) {
	best := 0
	for _, phrase := range m.phrases {
		if containsPhrase(text, phrase) {
			if len(phrase) > best {
				best = len(phrase)
			}
			continue
		}
		if m.phonetic && phoneticContains(text, phrase, m.threshold) {
			if len(phrase) > best {
				best = len(phrase)
			}
		}
	}
	return best > 0, best
}

// containsPhrase reports whether text contains phrase aligned on word
// boundaries, so "time" does not match inside "sometimes".
func containsPhrase(text, phrase string) bool {
	if text == phrase {
		return true
	}
	if strings.HasPrefix(text, phrase+" ") || strings.HasSuffix(text, " "+phrase) {
		return true
	}
	return strings.Contains(text, " "+phrase+" ")
}

// phoneticContains checks whether any word-aligned window of text the same
// token length as phrase matches it token-for-token. Each aligned token pair
// must be equal, share a Double Metaphone code, or score Jaro-Winkler above
// threshold. Alignment keeps common filler words ("what is the ...") from
// bridging two unrelated phrases.
func phoneticContains(text, phrase string, threshold float64) bool {
	phraseTokens := strings.Fields(phrase)
	textTokens := strings.Fields(text)
	n := len(phraseTokens)
	if n == 0 || len(textTokens) < n {
		return false
	}

	for i := 0; i+n <= len(textTokens); i++ {
		if tokensAlign(textTokens[i:i+n], phraseTokens, threshold) {
			return true
		}
	}
	return false
}

// tokensAlign reports whether every aligned token pair is phonetically
// compatible.
func tokensAlign(window, phrase []string, threshold float64) bool {
	for i := range phrase {
		a, b := window[i], phrase[i]
		if a == b {
			continue
		}
		if codesOverlap(codesForTokens([]string{a}), codesForTokens([]string{b})) {
			continue
		}
		if matchr.JaroWinkler(a, b, false) >= threshold {
			continue
		}
		return false
	}
	return true
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (produced when the word is too short or contains
// no consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
