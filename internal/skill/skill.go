// Package skill implements the command surface of the assistant: the Skill
// contract, the Registry that holds skills, the phrase matching used to map
// transcripts onto skills, and the Router that dispatches a transcript to
// exactly one handler.
package skill

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Skill is a single voice command handler. Implementations must be safe for
// concurrent use; the router may evaluate Match while a previous Handle call
// is still running in a cancelled turn.
type Skill interface {
	// ID is the unique, stable identifier used in logs and config.
	ID() string

	// Priority orders skills when several match the same transcript. Higher
	// wins. Most skills use 0; reserved control skills (enable/disable) use
	// higher values so they cannot be shadowed.
	Priority() int

	// Examples returns sample phrasings for the help skill and docs.
	Examples() []string

	// Match reports whether the normalized transcript addresses this skill
	// and how many characters of it the skill recognised. A larger span
	// means a more specific match and wins priority ties.
	Match(text string) (matched bool, span int)

	// Handle executes the command and returns the spoken response. The ctx
	// is turn-scoped and is cancelled on barge-in or shutdown.
	Handle(ctx context.Context, text string) (string, error)
}

// HandlerError wraps a failure (or recovered panic) inside a skill handler.
// The router converts it to a spoken error response; it never escapes the
// dispatch boundary.
type HandlerError struct {
	SkillID string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("skill %q: handler failed: %v", e.SkillID, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Normalize lower-cases a transcript, strips punctuation, and collapses runs
// of whitespace so matches are insensitive to recognizer formatting.
// Apostrophes survive because contractions carry meaning ("what's", "don't").
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
