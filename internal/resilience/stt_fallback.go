package resilience

import (
	"context"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt"
)

// RecognizerFallback implements [stt.Recognizer] with automatic failover
// across multiple recognition backends. Each backend has its own circuit
// breaker, so an unreachable whisper server stops being probed on every turn
// while a vosk fallback keeps transcribing.
type RecognizerFallback struct {
	group *FallbackGroup[stt.Recognizer]
}

// Compile-time interface assertion.
var _ stt.Recognizer = (*RecognizerFallback)(nil)

// NewRecognizerFallback creates a [RecognizerFallback] with primary as the
// preferred backend.
func NewRecognizerFallback(primary stt.Recognizer, primaryName string, cfg FallbackConfig) *RecognizerFallback {
	return &RecognizerFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional recognizer as a fallback.
func (f *RecognizerFallback) AddFallback(name string, r stt.Recognizer) {
	f.group.AddFallback(name, r)
}

// Healthy reports readiness: nil while at least one backend's breaker admits
// calls.
func (f *RecognizerFallback) Healthy() error {
	return f.group.Healthy()
}

// Transcribe runs the utterance through the first healthy backend. A
// cancelled ctx aborts immediately without consulting fallbacks.
func (f *RecognizerFallback) Transcribe(ctx context.Context, in stt.Audio) (stt.Result, error) {
	return ExecuteWithResult(f.group, func(r stt.Recognizer) (stt.Result, error) {
		return r.Transcribe(ctx, in)
	})
}
