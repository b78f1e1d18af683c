// Package builtin provides the assistant's stock skills: time and date,
// greetings, echo, activation control, and help. They double as reference
// implementations of the skill contract.
package builtin

import (
	"context"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/skill"
)

// phraseSkill implements the shared shape of the builtin skills: a
// PhraseMatcher for triggering and a handler function for the response.
type phraseSkill struct {
	id       string
	priority int
	examples []string
	matcher  *skill.PhraseMatcher
	handle   func(ctx context.Context, text string) (string, error)
}

func (s *phraseSkill) ID() string         { return s.id }
func (s *phraseSkill) Priority() int      { return s.priority }
func (s *phraseSkill) Examples() []string { return s.examples }

func (s *phraseSkill) Match(text string) (bool, int) {
	return s.matcher.Match(text)
}

func (s *phraseSkill) Handle(ctx context.Context, text string) (string, error) {
	return s.handle(ctx, text)
}

var _ skill.Skill = (*phraseSkill)(nil)
