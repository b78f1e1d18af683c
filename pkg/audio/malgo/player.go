package malgo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
)

// Player is a miniaudio-backed playback device implementing
// [audio.PlaybackDevice]. Each Play call opens a short-lived playback stream
// for the clip; cancelling the context stops output immediately, which is how
// barge-in cuts off a response mid-sentence.
type Player struct {
	mu     sync.Mutex
	mctx   *malgo.AllocatedContext
	closed bool
}

// NewPlayer creates a playback device. The miniaudio context is shared across
// Play calls and released by Close.
func NewPlayer() (*Player, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, &audio.DeviceError{Device: "playback", Err: fmt.Errorf("init context: %w", err)}
	}
	return &Player{mctx: mctx}, nil
}

// Play renders pcm to the default output device and blocks until the clip has
// been fully written or ctx is cancelled. On cancellation the stream is torn
// down immediately and ctx.Err() is returned.
func (p *Player) Play(ctx context.Context, pcm []byte, format audio.Format) error {
	if len(pcm) == 0 {
		return nil
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return fmt.Errorf("malgo: invalid playback format %s", format)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("malgo: player is closed")
	}
	mctx := p.mctx
	p.mu.Unlock()

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(format.Channels)
	cfg.SampleRate = uint32(format.SampleRate)
	cfg.Alsa.NoMMap = 1

	done := make(chan struct{})
	var once sync.Once
	pos := 0

	onSend := func(samples, _ []byte, frameCount uint32) {
		if pos >= len(pcm) {
			once.Do(func() { close(done) })
			return
		}
		n := copy(samples, pcm[pos:])
		pos += n
		// miniaudio zero-fills the remainder of short writes itself; we only
		// need to signal completion once the clip is exhausted.
		if pos >= len(pcm) {
			once.Do(func() { close(done) })
		}
		_ = frameCount
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: onSend})
	if err != nil {
		return &audio.DeviceError{Device: "playback", Err: fmt.Errorf("init device: %w", err)}
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return &audio.DeviceError{Device: "playback", Err: fmt.Errorf("start: %w", err)}
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the miniaudio context. Idempotent.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.mctx != nil {
		_ = p.mctx.Uninit()
		p.mctx.Free()
		p.mctx = nil
	}
	return nil
}
