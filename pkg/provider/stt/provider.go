// Package stt defines the Recognizer interface for speech-to-text backends.
//
// A recognizer wraps a transcription engine (e.g., a local whisper.cpp server,
// a vosk-server instance, or the OpenAI transcription API) and exposes a
// uniform batch interface: one complete utterance in, one transcription result
// out. Utterance segmentation happens upstream in the endpoint detector, so a
// recognizer never sees open-ended audio; every call carries a bounded clip
// with a known start and end.
//
// Implementations must be safe for concurrent use. The session controller
// issues at most one Transcribe call per turn, but health checks and fallback
// probing may run concurrently with it.
package stt

import (
	"context"
	"errors"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
)

// ErrUnavailable indicates the backend could not be reached or refused the
// request. It marks a recoverable infrastructure failure, distinct from an
// empty transcription (which is a valid Result with empty Text). Fallback
// chains advance to the next recognizer on this error.
var ErrUnavailable = errors.New("stt: recognizer unavailable")

// Audio is a complete utterance submitted for transcription. PCM is 16-bit
// signed little-endian samples in the format described by Format.
type Audio struct {
	PCM    []byte
	Format audio.Format
}

// Duration returns the clip length implied by the PCM size and format.
func (a Audio) Duration() float64 {
	bytesPerSec := a.Format.SampleRate * a.Format.Channels * 2
	if bytesPerSec <= 0 {
		return 0
	}
	return float64(len(a.PCM)) / float64(bytesPerSec)
}

// Result is the outcome of a successful transcription. An empty Text means
// the recognizer heard the audio but understood nothing — that is not an
// error, and callers must treat it as a no-match rather than retrying.
type Result struct {
	// Text is the transcribed speech content. May be empty.
	Text string

	// Confidence is the overall confidence score (0.0–1.0). Zero if the
	// backend does not report confidence.
	Confidence float64

	// Words contains per-word detail when the backend supports it (vosk,
	// OpenAI verbose output). Nil otherwise.
	Words []WordDetail

	// Raw holds the backend's decoded response for callers that need
	// provider-specific fields. May be nil.
	Raw any
}

// WordDetail holds per-word metadata from recognizers that report it.
type WordDetail struct {
	Word       string
	Start      float64
	End        float64
	Confidence float64
}

// Recognizer is the abstraction over any speech-to-text backend.
//
// Transcribe must honour ctx: when the caller cancels (barge-in, shutdown),
// the implementation abandons the request promptly and returns ctx.Err().
// Backend failures are reported by wrapping ErrUnavailable so that fallback
// chains can recognise them with errors.Is.
type Recognizer interface {
	Transcribe(ctx context.Context, in Audio) (Result, error)
}
