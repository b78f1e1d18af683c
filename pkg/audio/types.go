// Package audio defines the data types and transport primitives for PCM audio
// flowing through the assistant pipeline: the AudioFrame unit, the bounded
// FrameBus that decouples capture from processing, and the FormatConverter
// that normalises frames to the recogniser's expected format.
package audio

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AudioFrame is a single fixed-size chunk of PCM audio flowing through the
// pipeline. Frames are produced by a capture device, normalised once, and
// consumed by the activation detector; they are not retained past the turn
// they belong to.
type AudioFrame struct {
	// Data is raw little-endian 16-bit PCM.
	Data []byte

	// SampleRate in Hz (e.g., 44100 for typical capture, 16000 for STT).
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the play time of the frame, derived from its PCM length.
// Returns 0 for frames with an invalid format.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 || len(f.Data) == 0 {
		return 0
	}
	samples := len(f.Data) / 2 / f.Channels
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// String returns a human-readable description, e.g. "16000Hz mono".
func (f Format) String() string {
	ch := "mono"
	if f.Channels == 2 {
		ch = "stereo"
	} else if f.Channels > 2 {
		ch = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%dHz %s", f.SampleRate, ch)
}

// Utterance is one bounded span of captured speech: the ordered frames between
// a detected start and end of speech. The activation detector owns an
// utterance until it emits it; after that the utterance is immutable and
// ownership passes to the recogniser stage.
type Utterance struct {
	// ID uniquely identifies the utterance for logging and turn correlation.
	ID uuid.UUID

	// Frames are the normalised frames in capture order.
	Frames []AudioFrame

	// Start and End bound the utterance relative to stream start.
	Start time.Duration
	End   time.Duration
}

// PCM concatenates the utterance's frames into one contiguous PCM buffer.
func (u *Utterance) PCM() []byte {
	var n int
	for _, f := range u.Frames {
		n += len(f.Data)
	}
	out := make([]byte, 0, n)
	for _, f := range u.Frames {
		out = append(out, f.Data...)
	}
	return out
}

// Duration returns End − Start.
func (u *Utterance) Duration() time.Duration {
	return u.End - u.Start
}

// DeviceError reports an unrecoverable failure of the capture or playback
// device. It is the only fatal error class in the pipeline: the session loop
// terminates when the capture device reports one.
type DeviceError struct {
	// Device is a short identifier for the failing device ("capture",
	// "playback", or a backend-specific name).
	Device string

	// Err is the underlying backend error.
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio: device %s failed: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Drain reads from ch until it is closed, discarding all values. Use this to
// prevent goroutine leaks when the data on a streaming channel is no longer
// needed (e.g., frames of a cancelled turn).
func Drain[T any](ch <-chan T) {
	for range ch {
	}
}
