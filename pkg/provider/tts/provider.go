// Package tts defines the Synthesizer interface for text-to-speech backends.
//
// A synthesizer wraps a speech synthesis service (e.g., a local Coqui TTS
// server, ElevenLabs, or the OpenAI speech API) and presents a uniform batch
// interface: one response text in, one playable PCM clip out. Responses in
// this assistant are short single sentences, so there is no streaming surface;
// the session controller hands the whole clip to the playback device and
// relies on ctx cancellation for barge-in.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
)

// ErrUnavailable indicates the backend could not be reached or refused the
// request. Fallback chains advance to the next synthesizer on this error.
var ErrUnavailable = errors.New("tts: synthesizer unavailable")

// Clip is a complete synthesised utterance. PCM is 16-bit signed
// little-endian samples in the format described by Format.
type Clip struct {
	PCM    []byte
	Format audio.Format
}

// Duration returns the clip length implied by the PCM size and format.
func (c Clip) Duration() float64 {
	bytesPerSec := c.Format.SampleRate * c.Format.Channels * 2
	if bytesPerSec <= 0 {
		return 0
	}
	return float64(len(c.PCM)) / float64(bytesPerSec)
}

// Synthesizer is the abstraction over any text-to-speech backend.
//
// Synthesize must honour ctx: when the caller cancels (barge-in, shutdown),
// the implementation abandons the request promptly and returns ctx.Err().
// Backend failures are reported by wrapping ErrUnavailable. An empty text
// returns an empty Clip and no error.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Clip, error)
}
