package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	stt      map[string]func(ProviderEntry) (stt.Recognizer, error)
	tts      map[string]func(ProviderEntry) (tts.Synthesizer, error)
	capture  map[string]func(AudioConfig) (audio.CaptureDevice, error)
	playback map[string]func(AudioConfig) (audio.PlaybackDevice, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:      make(map[string]func(ProviderEntry) (stt.Recognizer, error)),
		tts:      make(map[string]func(ProviderEntry) (tts.Synthesizer, error)),
		capture:  make(map[string]func(AudioConfig) (audio.CaptureDevice, error)),
		playback: make(map[string]func(AudioConfig) (audio.PlaybackDevice, error)),
	}
}

// RegisterSTT registers a recognizer factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTTS registers a synthesizer factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Synthesizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterCapture registers a capture device factory under name. Capture
// factories receive the whole [AudioConfig] because the device needs the
// target format, not just its own entry.
func (r *Registry) RegisterCapture(name string, factory func(AudioConfig) (audio.CaptureDevice, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capture[name] = factory
}

// RegisterPlayback registers a playback device factory under name.
func (r *Registry) RegisterPlayback(name string, factory func(AudioConfig) (audio.PlaybackDevice, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playback[name] = factory
}

// CreateSTT instantiates a recognizer using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates a synthesizer using the factory registered under
// entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Synthesizer, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateCapture instantiates a capture device using the factory registered
// under cfg.Capture.Name.
func (r *Registry) CreateCapture(cfg AudioConfig) (audio.CaptureDevice, error) {
	r.mu.RLock()
	factory, ok := r.capture[cfg.Capture.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: capture/%q", ErrProviderNotRegistered, cfg.Capture.Name)
	}
	return factory(cfg)
}

// CreatePlayback instantiates a playback device using the factory registered
// under cfg.Playback.Name.
func (r *Registry) CreatePlayback(cfg AudioConfig) (audio.PlaybackDevice, error) {
	r.mu.RLock()
	factory, ok := r.playback[cfg.Playback.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: playback/%q", ErrProviderNotRegistered, cfg.Playback.Name)
	}
	return factory(cfg)
}
