// Package mock provides test doubles for the stt package interfaces.
//
// Use Recognizer to script transcription results and inspect which audio the
// caller submitted.
//
// Example:
//
//	r := &mock.Recognizer{Results: []stt.Result{{Text: "what time is it"}}}
//	res, _ := r.Transcribe(ctx, clip)
package mock

import (
	"context"
	"sync"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Recognizer.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Audio is the clip passed to Transcribe (PCM is not copied).
	Audio stt.Audio
}

// Recognizer is a mock implementation of stt.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// Results are returned by successive Transcribe calls in order. Once
	// exhausted, the last result repeats. If empty, a zero Result is returned.
	Results []stt.Result

	// Err, if non-nil, is returned as the error from every Transcribe call.
	Err error

	// Delay, if set, makes Transcribe block until the delay elapses or the
	// context is cancelled (returning ctx.Err()). Use a blocking delay to
	// exercise cancellation paths.
	Delay <-chan struct{}

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall

	next int
}

// Transcribe records the call and returns the next scripted result.
func (r *Recognizer) Transcribe(ctx context.Context, in stt.Audio) (stt.Result, error) {
	r.mu.Lock()
	r.TranscribeCalls = append(r.TranscribeCalls, TranscribeCall{Ctx: ctx, Audio: in})
	delay := r.Delay
	r.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return stt.Result{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return stt.Result{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return stt.Result{}, r.Err
	}
	if len(r.Results) == 0 {
		return stt.Result{}, nil
	}
	res := r.Results[min(r.next, len(r.Results)-1)]
	r.next++
	return res, nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (r *Recognizer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.TranscribeCalls)
}

// Reset clears recorded calls and rewinds the scripted results. Thread-safe.
func (r *Recognizer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.TranscribeCalls = nil
	r.next = 0
}

// Ensure Recognizer implements stt.Recognizer at compile time.
var _ stt.Recognizer = (*Recognizer)(nil)
