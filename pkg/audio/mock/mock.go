// Package mock provides in-memory capture and playback devices for tests and
// for running the assistant without real audio hardware.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
)

// CaptureDevice is a scriptable [audio.CaptureDevice]. Frames queued with
// QueueFrames are pushed to the bus when Start is called; FailWith injects a
// fatal device error.
type CaptureDevice struct {
	mu      sync.Mutex
	frames  []audio.AudioFrame
	errCh   chan error
	started bool
	stopped bool

	// RealTime, when true, paces frame delivery by each frame's duration
	// instead of pushing everything at once.
	RealTime bool
}

var _ audio.CaptureDevice = (*CaptureDevice)(nil)

// NewCaptureDevice returns an empty capture device.
func NewCaptureDevice() *CaptureDevice {
	return &CaptureDevice{errCh: make(chan error, 1)}
}

// QueueFrames appends frames to be delivered on Start.
func (d *CaptureDevice) QueueFrames(frames ...audio.AudioFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, frames...)
}

// FailWith injects a fatal device error observable via Errors.
func (d *CaptureDevice) FailWith(err error) {
	select {
	case d.errCh <- err:
	default:
	}
}

// Start pushes all queued frames to bus from a goroutine.
func (d *CaptureDevice) Start(ctx context.Context, bus *audio.FrameBus) error {
	d.mu.Lock()
	frames := d.frames
	d.started = true
	d.mu.Unlock()

	go func() {
		for _, f := range frames {
			select {
			case <-ctx.Done():
				return
			default:
			}
			bus.Push(f)
			if d.RealTime {
				time.Sleep(f.Duration())
			}
		}
	}()
	return nil
}

// Errors returns the injected-error channel.
func (d *CaptureDevice) Errors() <-chan error { return d.errCh }

// Stop marks the device stopped.
func (d *CaptureDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.stopped {
		d.stopped = true
		close(d.errCh)
	}
	return nil
}

// Started reports whether Start was called.
func (d *CaptureDevice) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// PlaybackDevice records played clips and supports blocking playback so tests
// can exercise barge-in cancellation.
type PlaybackDevice struct {
	mu     sync.Mutex
	played [][]byte

	// BlockUntilCancel makes Play block until its context is cancelled,
	// simulating a long clip.
	BlockUntilCancel bool

	// PlayErr, when non-nil, is returned by every Play call.
	PlayErr error
}

var _ audio.PlaybackDevice = (*PlaybackDevice)(nil)

// NewPlaybackDevice returns an empty playback recorder.
func NewPlaybackDevice() *PlaybackDevice {
	return &PlaybackDevice{}
}

// Play records the clip. With BlockUntilCancel set it blocks until ctx is
// cancelled and returns ctx.Err().
func (d *PlaybackDevice) Play(ctx context.Context, pcm []byte, _ audio.Format) error {
	if d.PlayErr != nil {
		return d.PlayErr
	}
	d.mu.Lock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	d.played = append(d.played, cp)
	d.mu.Unlock()

	if d.BlockUntilCancel {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

// Played returns copies of all clips played so far.
func (d *PlaybackDevice) Played() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.played))
	copy(out, d.played)
	return out
}

// Close is a no-op.
func (d *PlaybackDevice) Close() error { return nil }
