// Package mock provides test doubles for the tts package interfaces.
//
// Use Synthesizer to script clips and inspect which texts the caller
// submitted.
package mock

import (
	"context"
	"sync"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts"
)

// Synthesizer is a mock implementation of tts.Synthesizer.
type Synthesizer struct {
	mu sync.Mutex

	// Clip is returned by every successful Synthesize call. If zero, a short
	// non-empty clip at 16 kHz mono is returned so playback paths have
	// something to play.
	Clip tts.Clip

	// Errs are returned by successive Synthesize calls in order; a nil entry
	// means success. Once exhausted, calls succeed. Use this to script
	// failure-then-recovery for retry tests.
	Errs []error

	// Delay, if set, makes Synthesize block until the delay elapses or the
	// context is cancelled (returning ctx.Err()).
	Delay <-chan struct{}

	// Texts records the text of every Synthesize call in order.
	Texts []string

	next int
}

// Synthesize records the call and returns the scripted clip or error.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (tts.Clip, error) {
	s.mu.Lock()
	s.Texts = append(s.Texts, text)
	var err error
	if s.next < len(s.Errs) {
		err = s.Errs[s.next]
	}
	s.next++
	delay := s.Delay
	clip := s.Clip
	s.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return tts.Clip{}, ctx.Err()
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return tts.Clip{}, ctxErr
	}
	if err != nil {
		return tts.Clip{}, err
	}

	if len(clip.PCM) == 0 {
		clip = tts.Clip{
			PCM:    make([]byte, 320),
			Format: audio.Format{SampleRate: 16000, Channels: 1},
		}
	}
	return clip, nil
}

// CallCount returns the number of Synthesize calls. Thread-safe.
func (s *Synthesizer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Texts)
}

// Ensure Synthesizer implements tts.Synthesizer at compile time.
var _ tts.Synthesizer = (*Synthesizer)(nil)
