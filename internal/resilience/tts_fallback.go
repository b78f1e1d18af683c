package resilience

import (
	"context"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts"
)

// SynthesizerFallback implements [tts.Synthesizer] with automatic failover
// across multiple synthesis backends. Each backend has its own circuit
// breaker.
type SynthesizerFallback struct {
	group *FallbackGroup[tts.Synthesizer]
}

// Compile-time interface assertion.
var _ tts.Synthesizer = (*SynthesizerFallback)(nil)

// NewSynthesizerFallback creates a [SynthesizerFallback] with primary as the
// preferred backend.
func NewSynthesizerFallback(primary tts.Synthesizer, primaryName string, cfg FallbackConfig) *SynthesizerFallback {
	return &SynthesizerFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional synthesizer as a fallback.
func (f *SynthesizerFallback) AddFallback(name string, s tts.Synthesizer) {
	f.group.AddFallback(name, s)
}

// Healthy reports readiness: nil while at least one backend's breaker admits
// calls.
func (f *SynthesizerFallback) Healthy() error {
	return f.group.Healthy()
}

// Synthesize renders the text with the first healthy backend. A cancelled
// ctx aborts immediately without consulting fallbacks.
func (f *SynthesizerFallback) Synthesize(ctx context.Context, text string) (tts.Clip, error) {
	return ExecuteWithResult(f.group, func(s tts.Synthesizer) (tts.Clip, error) {
		return s.Synthesize(ctx, text)
	})
}
