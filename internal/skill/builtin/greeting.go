package builtin

import (
	"context"
	"math/rand"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/skill"
)

// defaultGreetings are used when the config supplies none.
var defaultGreetings = []string{
	"Hello! How can I help?",
	"Hi there.",
	"At your service.",
}

// NewGreetingSkill replies to greetings with one of the given responses,
// picked at random. Pass nil to use the defaults.
func NewGreetingSkill(responses []string) skill.Skill {
	if len(responses) == 0 {
		responses = defaultGreetings
	}
	return &phraseSkill{
		id:       "greeting",
		examples: []string{"hello", "good morning"},
		matcher: skill.NewPhraseMatcher([]string{
			"hello",
			"hi",
			"hey",
			"good morning",
			"good afternoon",
			"good evening",
		}),
		handle: func(context.Context, string) (string, error) {
			return responses[rand.Intn(len(responses))], nil
		},
	}
}
