package builtin

import (
	"context"
	"strings"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/skill"
)

// NewHelpSkill lists an example phrase for every registered skill. It reads
// the registry at handle time so late registrations are included.
func NewHelpSkill(registry *skill.Registry) skill.Skill {
	return &phraseSkill{
		id:       "help",
		examples: []string{"what can you do", "help"},
		matcher: skill.NewPhraseMatcher([]string{
			"help",
			"what can you do",
			"what can i say",
		}),
		handle: func(context.Context, string) (string, error) {
			var examples []string
			for _, s := range registry.Skills() {
				if ex := s.Examples(); len(ex) > 0 {
					examples = append(examples, ex[0])
				}
			}
			if len(examples) == 0 {
				return "I have no skills registered yet.", nil
			}
			return "You can say: " + strings.Join(examples, ", ") + ".", nil
		},
	}
}
