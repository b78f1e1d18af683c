// Package app wires all assistant subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the audio pipeline until the context is done, and
// Shutdown tears everything down in order.
//
// For testing, inject mock devices and providers via the Providers struct;
// the functional options cover the cross-cutting pieces (logger, metrics).
// Production wiring happens in main.go via the config registry.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/config"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/endpoint"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/health"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/observe"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/playback"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/resilience"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/session"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/skill"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/skill/builtin"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts"
)

// NamedRecognizer pairs a fallback recognizer with the name used in logs and
// provider-error metrics.
type NamedRecognizer struct {
	Name       string
	Recognizer stt.Recognizer
}

// NamedSynthesizer pairs a fallback synthesizer with its name.
type NamedSynthesizer struct {
	Name        string
	Synthesizer tts.Synthesizer
}

// Providers holds the concrete providers and devices the pipeline runs on.
// Populated by main.go via the config registry; tests fill it with mocks.
// All four primary slots are required.
type Providers struct {
	STT      stt.Recognizer
	TTS      tts.Synthesizer
	Capture  audio.CaptureDevice
	Playback audio.PlaybackDevice

	// STTFallbacks and TTSFallbacks are tried in order when the primary
	// fails or its circuit breaker is open.
	STTFallbacks []NamedRecognizer
	TTSFallbacks []NamedSynthesizer
}

// App owns all subsystem lifetimes and runs the capture → endpoint →
// recognize → dispatch → speak pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers
	log       *slog.Logger
	metrics   *observe.Metrics
	version   string

	// Subsystems — initialised in New, torn down in Shutdown.
	bus         *audio.FrameBus
	converter   *audio.FormatConverter
	detector    *endpoint.Detector
	player      *playback.Player
	skills      *skill.Registry
	controller  *session.Controller
	recognizer  *resilience.RecognizerFallback
	synthesizer *resilience.SynthesizerFallback
	httpSrv     *http.Server

	// detMu serialises detector access: Feed runs on the pipeline
	// goroutine, SetTalking may be called from anywhere.
	detMu sync.Mutex

	started atomic.Bool

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithLogger sets the application logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithMetrics injects a metrics instance instead of the process-wide default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithVersion sets the version string reported by the health endpoint.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together: frame bus and format
// converter, resilience-wrapped providers, the skill registry and session
// controller, the endpoint detector, and the diagnostics HTTP server.
func New(cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		return nil, errors.New("app: providers must not be nil")
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		version:   "dev",
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.checkProviders(); err != nil {
		return nil, err
	}

	// ── 1. Frame bus + converter ─────────────────────────────────────────
	a.bus = audio.NewFrameBus(cfg.Audio.BusCapacity)
	a.converter = &audio.FormatConverter{Target: audio.Format{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
	}}

	// ── 2. Playback ──────────────────────────────────────────────────────
	a.player = playback.New(providers.Playback, a.log)
	a.closers = append(a.closers, a.player.Close)

	// ── 3. Skills + controller ───────────────────────────────────────────
	if err := a.initSkills(); err != nil {
		return nil, fmt.Errorf("app: init skills: %w", err)
	}

	// ── 4. Endpoint detector ─────────────────────────────────────────────
	if err := a.initDetector(); err != nil {
		return nil, fmt.Errorf("app: init detector: %w", err)
	}

	// ── 5. Diagnostics server ────────────────────────────────────────────
	a.initDiagnostics()

	return a, nil
}

func (a *App) checkProviders() error {
	var errs []error
	if a.providers.STT == nil {
		errs = append(errs, errors.New("stt recognizer is required"))
	}
	if a.providers.TTS == nil {
		errs = append(errs, errors.New("tts synthesizer is required"))
	}
	if a.providers.Capture == nil {
		errs = append(errs, errors.New("capture device is required"))
	}
	if a.providers.Playback == nil {
		errs = append(errs, errors.New("playback device is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initSkills builds the skill registry, wraps the providers in their fallback
// groups, and creates the session controller.
func (a *App) initSkills() error {
	disabled := make(map[string]bool, len(a.cfg.Skills.Disabled))
	for _, id := range a.cfg.Skills.Disabled {
		disabled[id] = true
	}

	var mopts []skill.MatcherOption
	if a.cfg.Skills.PhoneticEnabled() {
		mopts = append(mopts, skill.WithPhonetic())
	}

	reg := skill.NewRegistry()
	stock := []skill.Skill{
		builtin.NewTimeSkill(nil, mopts...),
		builtin.NewDateSkill(nil, mopts...),
		builtin.NewGreetingSkill(a.cfg.Skills.Greetings),
		builtin.NewEchoSkill(),
	}
	for _, s := range stock {
		if disabled[s.ID()] {
			a.log.Info("builtin skill disabled", "skill", s.ID())
			continue
		}
		if err := reg.Register(s); err != nil {
			return err
		}
	}

	// Circuit breakers wrap the providers even without fallbacks so a dead
	// backend fails fast instead of stalling every turn.
	a.recognizer = resilience.NewRecognizerFallback(
		a.providers.STT, a.cfg.Providers.STT.Name, resilience.FallbackConfig{})
	for _, f := range a.providers.STTFallbacks {
		a.recognizer.AddFallback(f.Name, f.Recognizer)
	}
	a.synthesizer = resilience.NewSynthesizerFallback(
		a.providers.TTS, a.cfg.Providers.TTS.Name, resilience.FallbackConfig{})
	for _, f := range a.providers.TTSFallbacks {
		a.synthesizer.AddFallback(f.Name, f.Synthesizer)
	}

	a.controller = session.New(a.recognizer, a.synthesizer,
		skill.NewRouter(reg, a.log), a.player, a.converter.Target,
		session.WithLogger(a.log),
		session.WithMetrics(a.metrics),
		session.WithConfig(session.Config{
			WakePhrase:   a.cfg.Wake.Phrase,
			AsleepSkills: []string{"wake"},
			Responses: session.Responses{
				NoMatch:     a.cfg.Responses.NoMatch,
				Ambiguous:   a.cfg.Responses.Ambiguous,
				Unavailable: a.cfg.Responses.Unavailable,
			},
		}),
	)

	// The activation and help skills close over the controller and registry,
	// so they register after both exist.
	late := []skill.Skill{
		builtin.NewSleepSkill(a.controller),
		builtin.NewWakeSkill(a.controller),
		builtin.NewHelpSkill(reg),
	}
	for _, s := range late {
		if disabled[s.ID()] {
			a.log.Info("builtin skill disabled", "skill", s.ID())
			continue
		}
		if err := reg.Register(s); err != nil {
			return err
		}
	}

	a.skills = reg
	return nil
}

// initDetector builds the configured speech gate and the utterance detector.
func (a *App) initDetector() error {
	var gate endpoint.SpeechGate
	switch a.cfg.Endpointing.Gate {
	case "", "energy":
		gate = endpoint.NewEnergyGate(endpoint.EnergyGateConfig{})
	case "webrtcvad":
		g, err := endpoint.NewWebRTCGate(a.cfg.Endpointing.VADAggressiveness)
		if err != nil {
			return fmt.Errorf("create webrtcvad gate: %w", err)
		}
		gate = g
	default:
		return fmt.Errorf("unknown speech gate %q", a.cfg.Endpointing.Gate)
	}

	a.detector = endpoint.NewDetector(endpoint.Config{
		Mode:          a.cfg.Endpointing.Mode,
		PreRoll:       a.cfg.Endpointing.PreRoll.Std(),
		MinSpeech:     a.cfg.Endpointing.MinSpeech.Std(),
		HangSilence:   a.cfg.Endpointing.HangSilence.Std(),
		MaxUtterance:  a.cfg.Endpointing.MaxUtterance.Std(),
		MinUtterance:  a.cfg.Endpointing.MinUtterance.Std(),
		OnSpeechStart: a.controller.OnSpeechStart,
		OnSpeechAbort: a.controller.OnSpeechAbort,
	}, gate)
	return nil
}

// initDiagnostics mounts health and metrics endpoints when a listen address
// is configured.
func (a *App) initDiagnostics() {
	if a.cfg.Server.ListenAddr == "" {
		return
	}

	mux := http.NewServeMux()
	h := health.New(a.version,
		health.Checker{
			Name: "pipeline",
			Check: func(context.Context) error {
				if !a.started.Load() {
					return errors.New("pipeline not started")
				}
				return nil
			},
		},
		health.Checker{
			Name:  "stt",
			Check: func(context.Context) error { return a.recognizer.Healthy() },
		},
		health.Checker{
			Name:  "tts",
			Check: func(context.Context) error { return a.synthesizer.Healthy() },
		},
	)
	h.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	a.httpSrv = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts capture and the processing goroutines, then blocks until ctx is
// cancelled or a fatal error occurs. A capture device failure is fatal; all
// other pipeline errors are logged and survived.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if err := a.providers.Capture.Start(ctx, a.bus); err != nil {
		return fmt.Errorf("app: start capture: %w", err)
	}
	a.started.Store(true)

	g.Go(func() error { return a.controller.Run(ctx) })
	g.Go(func() error { return a.pumpFrames(ctx) })
	g.Go(func() error { a.watchCapture(ctx); return nil })

	if a.httpSrv != nil {
		g.Go(func() error {
			a.log.Info("diagnostics server listening", "addr", a.httpSrv.Addr)
			if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: diagnostics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.httpSrv.Shutdown(sctx)
		})
	}

	a.log.Info("assistant running",
		"format", a.converter.Target,
		"skills", a.skills.Len(),
		"wake_phrase", a.cfg.Wake.Phrase)

	return g.Wait()
}

// pumpFrames is the pipeline loop: pop a frame off the bus, convert it to the
// target format, and feed the endpoint detector. Completed utterances go to
// the session controller.
func (a *App) pumpFrames(ctx context.Context) error {
	var overruns uint64
	for {
		frame, err := a.bus.Pop(ctx)
		if err != nil {
			if errors.Is(err, audio.ErrBusClosed) {
				return nil
			}
			return err
		}

		if cur := a.bus.Overruns(); cur > overruns {
			a.metrics.BusOverruns.Add(ctx, int64(cur-overruns))
			overruns = cur
		}

		conv, err := a.converter.Convert(frame)
		if err != nil {
			a.log.Warn("dropping unconvertible frame", "err", err)
			a.metrics.RecordFramesDropped(ctx, "conversion", 1)
			continue
		}

		a.detMu.Lock()
		u := a.detector.Feed(conv)
		a.detMu.Unlock()
		if u != nil {
			a.metrics.Utterances.Add(ctx, 1)
			a.log.Debug("utterance detected", "duration", u.Duration())
			a.controller.OnUtterance(u)
		}
	}
}

// watchCapture forwards fatal capture device errors to the controller, which
// ends the session.
func (a *App) watchCapture(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-a.providers.Capture.Errors():
			if !ok {
				return
			}
			a.log.Error("capture device failed", "err", err)
			a.controller.NotifyDeviceError(err)
		}
	}
}

// SetTalking drives push-to-talk endpointing: press opens the utterance,
// release closes and dispatches it. A no-op in voice-activation mode.
func (a *App) SetTalking(on bool) {
	a.detMu.Lock()
	u := a.detector.SetTalking(on)
	a.detMu.Unlock()
	if u != nil {
		a.metrics.Utterances.Add(context.Background(), 1)
		a.controller.OnUtterance(u)
	}
}

// Controller exposes the session controller, mainly so embedders can toggle
// activation programmatically.
func (a *App) Controller() *session.Controller { return a.controller }

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops capture, drains the pipeline, and closes all subsystems in
// order. It respects the context deadline: if ctx expires before all closers
// finish, remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down", "closers", len(a.closers))

		if err := a.providers.Capture.Stop(); err != nil {
			a.log.Warn("capture stop error", "err", err)
		}
		a.bus.Close()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.log.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				a.log.Warn("closer error", "index", i, "err", err)
			}
		}

		a.log.Info("shutdown complete")
	})
	return shutdownErr
}
