// Command voice-assistant runs the voice command assistant: microphone
// capture through wake phrase, skill dispatch, and spoken responses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/app"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/config"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/observe"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio/malgo"
	audiomock "github.com/vipul-sharma20/AI-voice-assistant/pkg/audio/mock"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio/remote"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt"
	sttmock "github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt/mock"
	oaistt "github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt/openai"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt/vosk"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt/whisper"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts/coqui"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts/elevenlabs"
	ttsmock "github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts/mock"
	oaitts "github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts/openai"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return 0
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voice-assistant: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voice-assistant: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voice-assistant starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(cfg, providers,
		app.WithLogger(logger),
		app.WithVersion(version),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("assistant ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		shutdown(application)
		return 1
	}

	shutdown(application)
	slog.Info("goodbye")
	return 0
}

func shutdown(application *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider and device factories
// into reg. Each factory receives its config entry and constructs the
// implementation from the real provider packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Recognizer, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Recognizer, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if entry.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(entry.Language))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterSTT("vosk", func(entry config.ProviderEntry) (stt.Recognizer, error) {
		return vosk.New(entry.BaseURL)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Recognizer, error) {
		var opts []oaistt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		if entry.Language != "" {
			opts = append(opts, oaistt.WithLanguage(entry.Language))
		}
		return oaistt.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterSTT("mock", func(config.ProviderEntry) (stt.Recognizer, error) {
		return &sttmock.Recognizer{}, nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		var opts []coqui.Option
		if entry.Voice != "" {
			opts = append(opts, coqui.WithVoice(entry.Voice))
		}
		if entry.Language != "" {
			opts = append(opts, coqui.WithLanguage(entry.Language))
		}
		if mode := optString(entry.Options, "api_mode"); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		return elevenlabs.New(entry.APIKey, entry.Voice, opts...)
	})

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		var opts []oaitts.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaitts.WithBaseURL(entry.BaseURL))
		}
		if entry.Voice != "" {
			opts = append(opts, oaitts.WithVoice(entry.Voice))
		}
		return oaitts.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterTTS("mock", func(config.ProviderEntry) (tts.Synthesizer, error) {
		return &ttsmock.Synthesizer{}, nil
	})

	// ── Audio devices ─────────────────────────────────────────────────────────

	reg.RegisterCapture("malgo", func(cfg config.AudioConfig) (audio.CaptureDevice, error) {
		var opts []malgo.Option
		if name := optString(cfg.Capture.Options, "device"); name != "" {
			opts = append(opts, malgo.WithDeviceName(name))
		}
		format := audio.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels}
		return malgo.NewDevice(format, opts...)
	})

	reg.RegisterCapture("remote", func(cfg config.AudioConfig) (audio.CaptureDevice, error) {
		path := optString(cfg.Capture.Options, "path")
		return remote.NewSource(cfg.Capture.BaseURL, path), nil
	})

	reg.RegisterCapture("mock", func(config.AudioConfig) (audio.CaptureDevice, error) {
		return audiomock.NewCaptureDevice(), nil
	})

	reg.RegisterPlayback("malgo", func(config.AudioConfig) (audio.PlaybackDevice, error) {
		return malgo.NewPlayer()
	})

	reg.RegisterPlayback("mock", func(config.AudioConfig) (audio.PlaybackDevice, error) {
		return audiomock.NewPlaybackDevice(), nil
	})
}

// buildProviders instantiates everything named in cfg using the registry and
// returns it in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}
	var err error

	if ps.STT, err = reg.CreateSTT(cfg.Providers.STT); err != nil {
		return nil, fmt.Errorf("create stt provider: %w", err)
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	for _, entry := range cfg.Providers.STTFallbacks {
		r, err := reg.CreateSTT(entry)
		if err != nil {
			return nil, fmt.Errorf("create stt fallback: %w", err)
		}
		ps.STTFallbacks = append(ps.STTFallbacks, app.NamedRecognizer{Name: entry.Name, Recognizer: r})
		slog.Info("provider created", "kind", "stt-fallback", "name", entry.Name)
	}

	if ps.TTS, err = reg.CreateTTS(cfg.Providers.TTS); err != nil {
		return nil, fmt.Errorf("create tts provider: %w", err)
	}
	slog.Info("provider created", "kind", "tts", "name", cfg.Providers.TTS.Name)

	for _, entry := range cfg.Providers.TTSFallbacks {
		s, err := reg.CreateTTS(entry)
		if err != nil {
			return nil, fmt.Errorf("create tts fallback: %w", err)
		}
		ps.TTSFallbacks = append(ps.TTSFallbacks, app.NamedSynthesizer{Name: entry.Name, Synthesizer: s})
		slog.Info("provider created", "kind", "tts-fallback", "name", entry.Name)
	}

	if ps.Capture, err = reg.CreateCapture(cfg.Audio); err != nil {
		return nil, fmt.Errorf("create capture device: %w", err)
	}
	slog.Info("device created", "kind", "capture", "name", cfg.Audio.Capture.Name)

	if ps.Playback, err = reg.CreatePlayback(cfg.Audio); err != nil {
		return nil, fmt.Errorf("create playback device: %w", err)
	}
	slog.Info("device created", "kind", "playback", "name", cfg.Audio.Playback.Name)

	return ps, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
