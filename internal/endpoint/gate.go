package endpoint

import (
	"fmt"

	"github.com/maxhawkins/go-webrtcvad"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
)

// SpeechGate classifies a single frame of PCM audio as speech or non-speech.
// Gates are stateful (hysteresis, history) and not safe for concurrent use;
// each detector owns its own gate.
type SpeechGate interface {
	IsSpeech(frame audio.AudioFrame) bool
	Reset()
}

// ---- EnergyGate -------------------------------------------------------------

// EnergyGate is a pure-Go speech gate based on RMS energy levels. It uses
// hysteresis with separate enter and exit thresholds plus consecutive-frame
// counts, so a single loud click does not open the gate and a single quiet
// frame mid-word does not close it.
type EnergyGate struct {
	speechThreshold  float64 // RMS level to start speech
	silenceThreshold float64 // RMS level to end speech
	speechFrames     int     // consecutive speech frames needed to trigger
	silenceFrames    int     // consecutive silence frames needed to end

	inSpeech     bool
	speechCount  int
	silenceCount int
}

// EnergyGateConfig tunes an EnergyGate. Thresholds are in 16-bit PCM units
// (0–32767). Zero values select the defaults.
type EnergyGateConfig struct {
	SpeechThreshold  float64
	SilenceThreshold float64
	SpeechFrames     int
	SilenceFrames    int
}

// NewEnergyGate returns an EnergyGate suitable for 16 kHz 20 ms frames.
func NewEnergyGate(cfg EnergyGateConfig) *EnergyGate {
	g := &EnergyGate{
		speechThreshold:  cfg.SpeechThreshold,
		silenceThreshold: cfg.SilenceThreshold,
		speechFrames:     cfg.SpeechFrames,
		silenceFrames:    cfg.SilenceFrames,
	}
	if g.speechThreshold <= 0 {
		g.speechThreshold = 500
	}
	if g.silenceThreshold <= 0 {
		g.silenceThreshold = 250
	}
	if g.speechFrames <= 0 {
		g.speechFrames = 3 // ~60 ms to open
	}
	if g.silenceFrames <= 0 {
		g.silenceFrames = 2
	}
	return g
}

// IsSpeech returns true while the gate considers the stream to be in speech.
func (g *EnergyGate) IsSpeech(frame audio.AudioFrame) bool {
	level := audio.RMS(frame.Data)

	if g.inSpeech {
		if level < g.silenceThreshold {
			g.silenceCount++
			g.speechCount = 0
			if g.silenceCount >= g.silenceFrames {
				g.inSpeech = false
				g.silenceCount = 0
			}
		} else {
			g.silenceCount = 0
		}
	} else {
		if level >= g.speechThreshold {
			g.speechCount++
			g.silenceCount = 0
			if g.speechCount >= g.speechFrames {
				g.inSpeech = true
				g.speechCount = 0
			}
		} else {
			g.speechCount = 0
		}
	}

	return g.inSpeech
}

// Reset clears internal hysteresis state.
func (g *EnergyGate) Reset() {
	g.inSpeech = false
	g.speechCount = 0
	g.silenceCount = 0
}

var _ SpeechGate = (*EnergyGate)(nil)

// ---- WebRTCGate -------------------------------------------------------------

// WebRTCGate wraps the WebRTC voice activity detector. It only accepts the
// frame sizes the underlying library supports (10, 20 or 30 ms at 8, 16, 32
// or 48 kHz mono); on any processing error it falls back to an EnergyGate so
// the pipeline keeps working with odd frame sizes.
type WebRTCGate struct {
	vad      *webrtcvad.VAD
	fallback *EnergyGate
}

// NewWebRTCGate creates a WebRTCGate with the given aggressiveness mode
// (0–3, where 3 is most aggressive about declaring non-speech).
func NewWebRTCGate(mode int) (*WebRTCGate, error) {
	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("endpoint: create webrtc vad: %w", err)
	}
	if err := vad.SetMode(mode); err != nil {
		return nil, fmt.Errorf("endpoint: set vad mode %d: %w", mode, err)
	}
	return &WebRTCGate{
		vad:      vad,
		fallback: NewEnergyGate(EnergyGateConfig{}),
	}, nil
}

// IsSpeech classifies the frame with the WebRTC VAD, falling back to the
// energy gate on unsupported input.
func (g *WebRTCGate) IsSpeech(frame audio.AudioFrame) bool {
	if frame.Channels != 1 || !g.vad.ValidRateAndFrameLength(frame.SampleRate, len(frame.Data)/2) {
		return g.fallback.IsSpeech(frame)
	}
	active, err := g.vad.Process(frame.SampleRate, frame.Data)
	if err != nil {
		return g.fallback.IsSpeech(frame)
	}
	return active
}

// Reset clears the fallback gate state. The WebRTC detector itself is
// stateless per frame.
func (g *WebRTCGate) Reset() {
	g.fallback.Reset()
}

var _ SpeechGate = (*WebRTCGate)(nil)
