// Package config provides the configuration schema, loader, and provider
// registry for the voice assistant.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/endpoint"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from YAML strings in Go duration
// syntax ("800ms", "2s"). Bare integers are interpreted as milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LogLevel controls log verbosity for the assistant.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for the assistant.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Audio       AudioConfig       `yaml:"audio"`
	Endpointing EndpointingConfig `yaml:"endpointing"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Wake        WakeConfig        `yaml:"wake"`
	Responses   ResponsesConfig   `yaml:"responses"`
	Skills      SkillsConfig      `yaml:"skills"`
}

// ServerConfig holds the diagnostics HTTP server and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the diagnostics server (health, metrics)
	// listens on (e.g., ":8080"). Empty disables the server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig describes the capture and playback devices and the pipeline's
// target format.
type AudioConfig struct {
	// Capture selects the capture device implementation.
	Capture ProviderEntry `yaml:"capture"`

	// Playback selects the playback device implementation.
	Playback ProviderEntry `yaml:"playback"`

	// SampleRate is the recogniser sample rate frames are normalised to.
	// Default: 16000.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the normalised channel count (1 or 2). Default: 1.
	Channels int `yaml:"channels"`

	// BusCapacity bounds the frame bus between capture and the pipeline.
	// Zero uses the bus default.
	BusCapacity int `yaml:"bus_capacity"`
}

// EndpointingConfig tunes the activation detector. Zero durations fall back
// to the detector's defaults.
type EndpointingConfig struct {
	// Mode selects voice activation or push-to-talk.
	Mode endpoint.Mode `yaml:"mode"`

	// Gate selects the speech gate backend: "energy" or "webrtcvad".
	Gate string `yaml:"gate"`

	// VADAggressiveness is the webrtcvad mode in [0, 3]; higher is more
	// aggressive about classifying frames as non-speech. Ignored by the
	// energy gate.
	VADAggressiveness int `yaml:"vad_aggressiveness"`

	PreRoll      Duration `yaml:"pre_roll"`
	MinSpeech    Duration `yaml:"min_speech"`
	HangSilence  Duration `yaml:"hang_silence"`
	MaxUtterance Duration `yaml:"max_utterance"`
	MinUtterance Duration `yaml:"min_utterance"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each entry selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
	TTS ProviderEntry `yaml:"tts"`

	// STTFallbacks lists additional recognition backends tried in order when
	// the primary fails or its circuit breaker is open.
	STTFallbacks []ProviderEntry `yaml:"stt_fallbacks"`

	// TTSFallbacks lists additional synthesis backends tried in order.
	TTSFallbacks []ProviderEntry `yaml:"tts_fallbacks"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered implementation (e.g., "whisper", "coqui").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "whisper-1").
	Model string `yaml:"model"`

	// Voice is the provider-specific voice identifier for TTS providers.
	Voice string `yaml:"voice"`

	// Language is the spoken language hint (e.g., "en").
	Language string `yaml:"language"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above. Values may be strings, numbers, booleans,
	// or nested maps.
	Options map[string]any `yaml:"options"`
}

// WakeConfig holds the optional text-level wake phrase. When Phrase is
// non-empty, recognised text must begin with it or the turn is ignored.
type WakeConfig struct {
	// Phrase is the wake phrase (e.g., "hey nova"). Empty disables wake
	// phrase checking; every utterance is dispatched.
	Phrase string `yaml:"phrase"`
}

// ResponsesConfig overrides the spoken fallback responses for non-matched
// outcomes. Empty fields use built-in defaults.
type ResponsesConfig struct {
	// NoMatch is spoken when no skill matches the recognised text.
	NoMatch string `yaml:"no_match"`

	// Ambiguous is spoken when multiple skills tie for the command.
	Ambiguous string `yaml:"ambiguous"`

	// Unavailable is spoken when recognition or a handler fails.
	Unavailable string `yaml:"unavailable"`
}

// SkillsConfig tunes the built-in skill set.
type SkillsConfig struct {
	// Disabled lists built-in skill IDs that should not be registered.
	Disabled []string `yaml:"disabled"`

	// Greetings overrides the greeting skill's response pool.
	Greetings []string `yaml:"greetings"`

	// Phonetic enables phonetic keyword matching for the built-in skills.
	// Defaults to true; set to false for exact matching only.
	Phonetic *bool `yaml:"phonetic"`
}

// PhoneticEnabled reports whether phonetic matching is on, defaulting to
// true when unset.
func (s SkillsConfig) PhoneticEnabled() bool {
	return s.Phonetic == nil || *s.Phonetic
}

// Default returns a Config with the defaults used when fields are absent
// from the YAML file: malgo capture and playback, 16 kHz mono, energy-gated
// voice activation, and mock providers so the binary runs without any
// external service.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Audio: AudioConfig{
			Capture:    ProviderEntry{Name: "malgo"},
			Playback:   ProviderEntry{Name: "malgo"},
			SampleRate: 16000,
			Channels:   1,
		},
		Endpointing: EndpointingConfig{
			Mode: endpoint.ModeVAD,
			Gate: "energy",
		},
		Providers: ProvidersConfig{
			STT: ProviderEntry{Name: "mock"},
			TTS: ProviderEntry{Name: "mock"},
		},
	}
}
