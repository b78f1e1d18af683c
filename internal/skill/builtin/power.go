package builtin

import (
	"context"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/skill"
)

// Activation is the controller surface the power skills drive. SetEnabled
// false puts the assistant to sleep: utterances are still detected but no
// turn is started until it is re-enabled.
type Activation interface {
	SetEnabled(enabled bool)
}

// controlPriority keeps the power skills above every normal skill so a
// command like "stop listening" can never be shadowed.
const controlPriority = 100

// NewSleepSkill disables the assistant.
func NewSleepSkill(act Activation) skill.Skill {
	return &phraseSkill{
		id:       "sleep",
		priority: controlPriority,
		examples: []string{"stop listening", "go to sleep"},
		matcher: skill.NewPhraseMatcher([]string{
			"stop listening",
			"go to sleep",
			"be quiet",
		}),
		handle: func(context.Context, string) (string, error) {
			act.SetEnabled(false)
			return "Going to sleep. Say wake up when you need me.", nil
		},
	}
}

// NewWakeSkill re-enables the assistant. It stays matchable while the
// assistant sleeps; the controller routes only to control-priority skills in
// that state.
func NewWakeSkill(act Activation) skill.Skill {
	return &phraseSkill{
		id:       "wake",
		priority: controlPriority,
		examples: []string{"wake up", "start listening"},
		matcher: skill.NewPhraseMatcher([]string{
			"wake up",
			"start listening",
		}),
		handle: func(context.Context, string) (string, error) {
			act.SetEnabled(true)
			return "I'm listening.", nil
		},
	}
}
