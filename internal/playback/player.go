// Package playback plays synthesised clips on an output device with
// interrupt semantics: a clip stops immediately when its context is
// cancelled or when Interrupt is called, which is how barge-in cuts the
// assistant off mid-sentence.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts"
)

// Player wraps an audio.PlaybackDevice. At most one clip plays at a time;
// starting a new clip while one is playing interrupts the old one first.
type Player struct {
	device audio.PlaybackDevice
	log    *slog.Logger

	mu     sync.Mutex
	gen    uint64             // increments per Play; identifies the slot owner
	cancel context.CancelFunc // cancels the in-flight Play, nil when idle
}

// New creates a Player on the given device.
func New(device audio.PlaybackDevice, log *slog.Logger) *Player {
	if log == nil {
		log = slog.Default()
	}
	return &Player{device: device, log: log}
}

// Play blocks until the clip finishes, the ctx is cancelled, or Interrupt is
// called. A cancelled playback returns context.Canceled; that is the normal
// barge-in path, not a failure.
func (p *Player) Play(ctx context.Context, clip tts.Clip) error {
	if len(clip.PCM) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	p.cancel = cancel
	p.mu.Unlock()

	// Clear the slot only while it still belongs to this call: a superseding
	// Play may have replaced it while the device call was blocked, and its
	// cancel must stay reachable for Interrupt.
	defer func() {
		p.mu.Lock()
		if p.gen == gen {
			p.cancel = nil
		}
		p.mu.Unlock()
	}()

	p.log.Debug("playing clip", "duration_s", clip.Duration(), "format", clip.Format)
	if err := p.device.Play(ctx, clip.PCM, clip.Format); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("playback: %w", err)
	}
	return nil
}

// Interrupt stops the in-flight clip, if any. Safe to call from any
// goroutine and when nothing is playing.
func (p *Player) Interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Close interrupts playback and closes the device.
func (p *Player) Close() error {
	p.Interrupt()
	return p.device.Close()
}
