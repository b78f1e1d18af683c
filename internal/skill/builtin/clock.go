package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/skill"
)

// NewTimeSkill answers questions about the current time. now is injectable
// for tests; pass nil to use time.Now. Matcher options, such as
// skill.WithPhonetic, are forwarded to the trigger matcher.
func NewTimeSkill(now func() time.Time, opts ...skill.MatcherOption) skill.Skill {
	if now == nil {
		now = time.Now
	}
	return &phraseSkill{
		id:       "time",
		examples: []string{"what time is it", "tell me the time"},
		matcher: skill.NewPhraseMatcher([]string{
			"what time is it",
			"what is the time",
			"tell me the time",
			"the time",
		}, opts...),
		handle: func(context.Context, string) (string, error) {
			t := now()
			if t.Minute() == 0 {
				return fmt.Sprintf("It is %s o'clock.", t.Format("3")), nil
			}
			return fmt.Sprintf("It is %s.", t.Format("3:04 PM")), nil
		},
	}
}

// NewDateSkill answers questions about today's date. now is injectable for
// tests; pass nil to use time.Now. Matcher options are forwarded to the
// trigger matcher.
func NewDateSkill(now func() time.Time, opts ...skill.MatcherOption) skill.Skill {
	if now == nil {
		now = time.Now
	}
	return &phraseSkill{
		id:       "date",
		examples: []string{"what is the date", "what day is it"},
		matcher: skill.NewPhraseMatcher([]string{
			"what is the date",
			"what is today's date",
			"what day is it",
			"today's date",
		}, opts...),
		handle: func(context.Context, string) (string, error) {
			return fmt.Sprintf("Today is %s.", now().Format("Monday, January 2")), nil
		},
	}
}
