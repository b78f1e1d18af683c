package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/endpoint"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":      {"whisper", "whisper-native", "vosk", "openai", "mock"},
	"tts":      {"coqui", "elevenlabs", "openai", "mock"},
	"capture":  {"malgo", "remote", "mock"},
	"playback": {"malgo", "mock"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels != 1 && cfg.Audio.Channels != 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d is invalid; valid values: 1, 2", cfg.Audio.Channels))
	}
	if cfg.Audio.BusCapacity < 0 {
		errs = append(errs, fmt.Errorf("audio.bus_capacity %d must not be negative", cfg.Audio.BusCapacity))
	}
	if cfg.Audio.Capture.Name == "" {
		errs = append(errs, errors.New("audio.capture.name is required"))
	}
	if cfg.Audio.Playback.Name == "" {
		errs = append(errs, errors.New("audio.playback.name is required"))
	}

	// Endpointing
	switch cfg.Endpointing.Mode {
	case "", endpoint.ModeVAD, endpoint.ModePushToTalk:
	default:
		errs = append(errs, fmt.Errorf("endpointing.mode %q is invalid; valid values: vad, push_to_talk", cfg.Endpointing.Mode))
	}
	switch cfg.Endpointing.Gate {
	case "", "energy", "webrtcvad":
	default:
		errs = append(errs, fmt.Errorf("endpointing.gate %q is invalid; valid values: energy, webrtcvad", cfg.Endpointing.Gate))
	}
	if a := cfg.Endpointing.VADAggressiveness; a < 0 || a > 3 {
		errs = append(errs, fmt.Errorf("endpointing.vad_aggressiveness %d is out of range [0, 3]", a))
	}
	for _, d := range []struct {
		name  string
		value Duration
	}{
		{"pre_roll", cfg.Endpointing.PreRoll},
		{"min_speech", cfg.Endpointing.MinSpeech},
		{"hang_silence", cfg.Endpointing.HangSilence},
		{"max_utterance", cfg.Endpointing.MaxUtterance},
		{"min_utterance", cfg.Endpointing.MinUtterance},
	} {
		if d.value < 0 {
			errs = append(errs, fmt.Errorf("endpointing.%s must not be negative", d.name))
		}
	}

	// Providers
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts.name is required"))
	}
	for i, entry := range cfg.Providers.STTFallbacks {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("providers.stt_fallbacks[%d].name is required", i))
		}
	}
	for i, entry := range cfg.Providers.TTSFallbacks {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("providers.tts_fallbacks[%d].name is required", i))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	for _, entry := range cfg.Providers.STTFallbacks {
		validateProviderName("stt", entry.Name)
	}
	for _, entry := range cfg.Providers.TTSFallbacks {
		validateProviderName("tts", entry.Name)
	}
	validateProviderName("capture", cfg.Audio.Capture.Name)
	validateProviderName("playback", cfg.Audio.Playback.Name)

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
