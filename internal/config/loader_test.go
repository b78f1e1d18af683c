package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/endpoint"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	yamlDoc := `
server:
  listen_addr: ":9090"
  log_level: debug
audio:
  capture:
    name: malgo
  playback:
    name: malgo
  sample_rate: 16000
  channels: 1
  bus_capacity: 100
endpointing:
  mode: vad
  gate: webrtcvad
  vad_aggressiveness: 2
  hang_silence: 800ms
  max_utterance: 10s
providers:
  stt:
    name: whisper
    base_url: http://localhost:8090
    language: en
  stt_fallbacks:
    - name: vosk
      base_url: ws://localhost:2700
  tts:
    name: coqui
    base_url: http://localhost:5002
    voice: p225
wake:
  phrase: hey nova
responses:
  no_match: "Sorry, I did not catch that."
skills:
  disabled: [echo]
  greetings: ["Hello!", "Hi there!"]
`
	cfg, err := LoadFromReader(strings.NewReader(yamlDoc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("log_level = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Endpointing.Mode != endpoint.ModeVAD {
		t.Errorf("mode = %q, want vad", cfg.Endpointing.Mode)
	}
	if cfg.Endpointing.HangSilence.Std() != 800*time.Millisecond {
		t.Errorf("hang_silence = %v, want 800ms", cfg.Endpointing.HangSilence)
	}
	if cfg.Providers.STT.Name != "whisper" {
		t.Errorf("stt.name = %q, want whisper", cfg.Providers.STT.Name)
	}
	if len(cfg.Providers.STTFallbacks) != 1 || cfg.Providers.STTFallbacks[0].Name != "vosk" {
		t.Errorf("stt_fallbacks = %+v, want one vosk entry", cfg.Providers.STTFallbacks)
	}
	if cfg.Providers.TTS.Voice != "p225" {
		t.Errorf("tts.voice = %q, want p225", cfg.Providers.TTS.Voice)
	}
	if cfg.Wake.Phrase != "hey nova" {
		t.Errorf("wake.phrase = %q, want hey nova", cfg.Wake.Phrase)
	}
	if len(cfg.Skills.Greetings) != 2 {
		t.Errorf("greetings = %v, want 2 entries", cfg.Skills.Greetings)
	}
}

func TestLoadFromReader_EmptyUsesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("sample_rate = %d, want default 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("channels = %d, want default 1", cfg.Audio.Channels)
	}
	if cfg.Endpointing.Mode != endpoint.ModeVAD {
		t.Errorf("mode = %q, want default vad", cfg.Endpointing.Mode)
	}
	if cfg.Providers.STT.Name != "mock" {
		t.Errorf("stt.name = %q, want default mock", cfg.Providers.STT.Name)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yamlDoc := `
server:
  listen_adr: ":8080"
`
	if _, err := LoadFromReader(strings.NewReader(yamlDoc)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assistant.yaml")
	doc := "providers:\n  stt:\n    name: whisper\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.STT.Name != "whisper" {
		t.Errorf("stt.name = %q, want whisper", cfg.Providers.STT.Name)
	}
	// Unset sections keep their defaults.
	if cfg.Providers.TTS.Name != "mock" {
		t.Errorf("tts.name = %q, want default mock", cfg.Providers.TTS.Name)
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	cfg := Default()
	cfg.Server.LogLevel = "loud"
	cfg.Audio.SampleRate = 0
	cfg.Audio.Channels = 5
	cfg.Endpointing.Mode = "hold_to_speak"
	cfg.Endpointing.Gate = "psychic"
	cfg.Endpointing.HangSilence = Duration(-time.Second)
	cfg.Providers.STT.Name = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}

	for _, want := range []string{
		"server.log_level",
		"audio.sample_rate",
		"audio.channels",
		"endpointing.mode",
		"endpointing.gate",
		"endpointing.hang_silence",
		"providers.stt.name",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidate_VADAggressivenessRange(t *testing.T) {
	cfg := Default()
	cfg.Endpointing.VADAggressiveness = 4
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for vad_aggressiveness 4")
	}

	cfg.Endpointing.VADAggressiveness = 3
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error for vad_aggressiveness 3: %v", err)
	}
}

func TestValidate_FallbackEntriesNeedNames(t *testing.T) {
	cfg := Default()
	cfg.Providers.STTFallbacks = []ProviderEntry{{BaseURL: "ws://localhost:2700"}}

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "stt_fallbacks[0].name") {
		t.Fatalf("err = %v, want stt_fallbacks[0].name failure", err)
	}
}

func TestSkillsConfig_PhoneticDefaultsOn(t *testing.T) {
	var s SkillsConfig
	if !s.PhoneticEnabled() {
		t.Error("phonetic should default to enabled")
	}

	off := false
	s.Phonetic = &off
	if s.PhoneticEnabled() {
		t.Error("phonetic should be disabled when set to false")
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
