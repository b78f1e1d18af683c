package audio

import "context"

// CaptureDevice is a continuous source of AudioFrames, typically a microphone.
//
// Start begins delivering frames to the bus and returns immediately; capture
// runs on the backend's own thread. The device must never block on the bus —
// FrameBus.Push is non-blocking for exactly this reason. Errors after Start
// (device unplugged, backend died) are delivered through the channel returned
// by Errors as a *DeviceError and are fatal to the session.
type CaptureDevice interface {
	// Start begins capture, pushing frames into bus until Stop or a device
	// failure. Returns an error if the device cannot be opened.
	Start(ctx context.Context, bus *FrameBus) error

	// Errors returns a channel delivering fatal device errors. The channel
	// is closed when the device stops cleanly.
	Errors() <-chan error

	// Stop halts capture and releases the device. Idempotent.
	Stop() error
}

// PlaybackDevice renders PCM audio to an output sink, typically speakers.
//
// Play blocks until the clip has been fully rendered or ctx is cancelled.
// Cancellation must stop output promptly — this is the mechanism behind
// barge-in, where the controller cuts off an in-progress response.
type PlaybackDevice interface {
	// Play renders pcm in the given format. Returns ctx.Err() when cancelled
	// mid-playback and a *DeviceError if the output device fails.
	Play(ctx context.Context, pcm []byte, format Format) error

	// Close releases the device. Idempotent.
	Close() error
}
