package builtin

import (
	"context"
	"strings"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/skill"
)

// echoTriggers are the lead-in phrases the echo skill strips from the
// transcript before repeating the remainder.
var echoTriggers = []string{
	"repeat after me",
	"say",
}

// echoSkill repeats whatever follows its trigger phrase. It implements its
// own Match because the trigger must be a prefix, not an anywhere-substring:
// "say" mid-sentence should not hijack another command.
type echoSkill struct{}

// NewEchoSkill creates the echo skill.
func NewEchoSkill() skill.Skill {
	return &echoSkill{}
}

func (s *echoSkill) ID() string       { return "echo" }
func (s *echoSkill) Priority() int    { return 0 }
func (s *echoSkill) Examples() []string {
	return []string{"repeat after me hello world", "say good morning"}
}

func (s *echoSkill) Match(text string) (bool, int) {
	for _, trigger := range echoTriggers {
		if strings.HasPrefix(text, trigger+" ") {
			return true, len(trigger)
		}
	}
	return false, 0
}

func (s *echoSkill) Handle(_ context.Context, text string) (string, error) {
	for _, trigger := range echoTriggers {
		if rest, ok := strings.CutPrefix(text, trigger+" "); ok {
			return strings.TrimSpace(rest), nil
		}
	}
	return "", nil
}

var _ skill.Skill = (*echoSkill)(nil)
