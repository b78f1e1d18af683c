// Package session owns the assistant's turn lifecycle. A single controller
// goroutine is the only writer of session state; capture, detection, and
// turn goroutines communicate with it exclusively through its event channel.
//
// At most one turn is in flight. When the user starts speaking while the
// assistant is talking (barge-in) or a newer utterance completes, the
// controller cancels the running turn's context and interrupts playback
// before the next turn starts. Recoverable failures — recognition or
// synthesis unavailable, no matching skill, ambiguity, handler errors —
// produce a spoken fallback and return the controller to idle. Only a
// capture device failure terminates Run.
package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/observe"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/playback"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/skill"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts"
)

// eventBuf is the capacity of the controller's event channel. The loop only
// does bookkeeping per event, so a small buffer absorbs bursts from the
// pipeline goroutine without ever blocking it for long.
const eventBuf = 32

// Controller drives turns through the pipeline stages. Construct with [New],
// then call [Controller.Run] from its own goroutine; the pipeline feeds it
// via [Controller.OnSpeechStart] and [Controller.OnUtterance].
type Controller struct {
	recognizer  stt.Recognizer
	synthesizer tts.Synthesizer
	router      *skill.Router
	player      *playback.Player
	format      audio.Format
	cfg         Config
	log         *slog.Logger
	metrics     *observe.Metrics

	events chan event

	// turnDone carries turn completions on their own channel so a flooded
	// event queue can never drop one and wedge the state machine. At most
	// one turn is in flight, so the small buffer is never exceeded.
	turnDone chan event

	enabled atomic.Bool
	state   atomic.Int32

	// turn and pending are owned by the Run goroutine.
	turn    *Turn
	pending *audio.Utterance
}

// Option configures a Controller during construction.
type Option func(*Controller)

// WithLogger sets the controller's logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithMetrics sets the metrics instance. Nil disables metric recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithConfig sets the controller configuration.
func WithConfig(cfg Config) Option {
	return func(c *Controller) { c.cfg = cfg }
}

// New creates a Controller. format is the normalised format of utterance
// frames, handed to the recogniser alongside the PCM. The controller starts
// enabled.
func New(recognizer stt.Recognizer, synthesizer tts.Synthesizer, router *skill.Router, player *playback.Player, format audio.Format, opts ...Option) *Controller {
	c := &Controller{
		recognizer:  recognizer,
		synthesizer: synthesizer,
		router:      router,
		player:      player,
		format:      format,
		events:      make(chan event, eventBuf),
		turnDone:    make(chan event, 2),
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.cfg.applyDefaults()
	c.enabled.Store(true)
	return c
}

// SetEnabled turns the assistant on or off. While disabled, only the skills
// named in Config.AsleepSkills run their handlers and produce responses; any
// other matched turn is dropped after matching, before its handler executes.
// Safe to call from skill handlers.
func (c *Controller) SetEnabled(enabled bool) {
	old := c.enabled.Swap(enabled)
	if old != enabled {
		c.log.Info("assistant enabled state changed", "enabled", enabled)
	}
}

// Enabled reports whether the assistant is responding to commands.
func (c *Controller) Enabled() bool {
	return c.enabled.Load()
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// OnSpeechStart notifies the controller that the detector opened an
// utterance. If a turn is speaking, this is the barge-in signal: the turn is
// cancelled and playback stops. Called from the pipeline goroutine.
func (c *Controller) OnSpeechStart() {
	c.post(event{kind: evSpeechStart})
}

// OnSpeechAbort notifies the controller that an opened utterance ended
// without producing one (discarded as noise), so no OnUtterance call will
// follow the OnSpeechStart. Called from the pipeline goroutine.
func (c *Controller) OnSpeechAbort() {
	c.post(event{kind: evSpeechAbort})
}

// OnUtterance hands a completed utterance to the controller. Called from the
// pipeline goroutine.
func (c *Controller) OnUtterance(u *audio.Utterance) {
	c.post(event{kind: evUtterance, utt: u})
}

// NotifyDeviceError reports a fatal capture device failure. Run tears down
// the in-flight turn and returns the error.
func (c *Controller) NotifyDeviceError(err error) {
	c.post(event{kind: evDeviceError, err: err})
}

// post delivers an event without ever blocking the caller. The buffer is
// generous; if it is full the controller is gone or wedged and dropping is
// the only real-time safe choice. Turn completions do not travel this path:
// they go over the dedicated turnDone channel and are never dropped.
func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("controller event dropped", "kind", ev.kind)
	}
}

// Run executes the controller loop until ctx is cancelled or a device error
// arrives. It returns ctx.Err() on cancellation and the device error when
// one terminates the session.
func (c *Controller) Run(ctx context.Context) error {
	c.setState(StateIdle)
	if c.metrics != nil {
		c.metrics.ActiveSessions.Add(ctx, 1)
		defer c.metrics.ActiveSessions.Add(context.Background(), -1)
	}

	for {
		select {
		case <-ctx.Done():
			c.teardown()
			return ctx.Err()

		case ev := <-c.turnDone:
			c.finishTurn(ctx, ev)

		case ev := <-c.events:
			switch ev.kind {
			case evSpeechStart:
				if c.turn != nil {
					c.log.Info("barge-in, cancelling turn", "turn", c.turn.ID)
					if c.metrics != nil {
						c.metrics.BargeIns.Add(ctx, 1)
					}
					c.cancelTurn()
					c.setState(StateCancelling)
				} else {
					c.setState(StateListening)
				}

			case evSpeechAbort:
				// The opened utterance was discarded as noise; leave the
				// listening state so State() does not mislead.
				if c.turn == nil {
					c.setState(StateIdle)
				}

			case evUtterance:
				if c.turn != nil {
					// The newer utterance wins; park it until the old turn
					// finishes tearing down.
					c.cancelTurn()
					c.pending = ev.utt
					c.setState(StateCancelling)
				} else {
					c.startTurn(ctx, ev.utt)
				}

			case evProgress:
				if ev.turn == c.turn {
					c.setState(ev.state)
				}

			case evDeviceError:
				c.log.Error("capture device failed, terminating session", "error", ev.err)
				c.teardown()
				return ev.err
			}
		}
	}
}

// finishTurn handles a turn completion: record the outcome and latency, then
// start the parked utterance or return to idle.
func (c *Controller) finishTurn(ctx context.Context, ev event) {
	if ev.turn != c.turn {
		return // stale completion from a superseded turn
	}
	if c.metrics != nil && ev.outcome != "" {
		c.metrics.RecordTurn(ctx, ev.outcome, time.Since(ev.turn.started).Seconds())
	}
	c.turn = nil
	if c.pending != nil {
		u := c.pending
		c.pending = nil
		c.startTurn(ctx, u)
	} else {
		c.setState(StateIdle)
	}
}

// cancelTurn cancels the in-flight turn's context and stops playback. The
// turn pointer is kept until its done event arrives so stale completions can
// be told apart from the current one.
func (c *Controller) cancelTurn() {
	if c.turn == nil {
		return
	}
	c.turn.cancel()
	c.player.Interrupt()
}

// teardown cancels and waits out the in-flight turn during shutdown.
func (c *Controller) teardown() {
	c.cancelTurn()
	if c.turn != nil {
		<-c.turn.done
		c.turn = nil
	}
	c.pending = nil
	c.setState(StateIdle)
}

// startTurn begins processing an utterance in its own goroutine.
func (c *Controller) startTurn(parent context.Context, u *audio.Utterance) {
	tctx, cancel := context.WithCancel(parent)
	t := &Turn{
		ID:        u.ID,
		Utterance: u,
		started:   time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	c.turn = t
	c.setState(StateRecognizing)

	go func() {
		defer cancel()
		outcome := c.runTurn(tctx, t)
		close(t.done)
		c.turnDone <- event{kind: evTurnDone, turn: t, outcome: outcome}
	}()
}

// runTurn carries one utterance through recognition, dispatch, and playback.
// It returns the turn outcome label for metrics. Cancellation at any stage
// ends the turn silently.
func (c *Controller) runTurn(ctx context.Context, t *Turn) string {
	log := c.log.With("turn", t.ID)

	in := stt.Audio{PCM: t.Utterance.PCM(), Format: c.format}
	recStart := time.Now()
	res, err := c.recognizer.Transcribe(ctx, in)
	if c.metrics != nil {
		c.metrics.RecognitionDuration.Record(ctx, time.Since(recStart).Seconds())
	}
	if err != nil {
		if ctx.Err() != nil {
			return "cancelled"
		}
		log.Warn("recognition failed", "error", err)
		if c.metrics != nil {
			c.metrics.RecordProviderError(ctx, "stt", "transcribe")
		}
		c.speak(ctx, t, c.cfg.Responses.Unavailable)
		return "stt_unavailable"
	}

	text := strings.TrimSpace(res.Text)
	log.Info("recognized", "text", text, "confidence", res.Confidence,
		"duration_s", t.Utterance.Duration().Seconds())
	if text == "" {
		// Nothing understood. Treated as noise, not an error.
		return "empty"
	}

	if c.cfg.WakePhrase != "" {
		rest, ok := strings.CutPrefix(skill.Normalize(text), skill.Normalize(c.cfg.WakePhrase))
		if !ok {
			log.Debug("no wake phrase, ignoring", "text", text)
			return "no_wake"
		}
		text = strings.TrimSpace(rest)
		if text == "" {
			c.speak(ctx, t, c.cfg.Responses.WakeAck)
			return "wake_only"
		}
	}

	c.post(event{kind: evProgress, turn: t, state: StateDispatching})
	winner, out := c.router.Resolve(text)

	// The asleep gate runs between matching and execution: a disabled
	// assistant must never run a side-effecting handler, only the skills
	// named in AsleepSkills.
	if !c.enabled.Load() && !(out.Kind == skill.Matched && slices.Contains(c.cfg.AsleepSkills, out.SkillID)) {
		log.Debug("assistant disabled, dropping turn", "text", text)
		return "asleep"
	}

	if out.Kind == skill.Matched {
		out = c.router.Invoke(ctx, winner, text)
		if ctx.Err() != nil {
			return "cancelled"
		}
	}

	switch out.Kind {
	case skill.NoMatch:
		c.speak(ctx, t, c.cfg.Responses.NoMatch)
		return "no_match"

	case skill.Ambiguous:
		log.Info("ambiguous command", "candidates", out.Candidates)
		c.speak(ctx, t, c.cfg.Responses.Ambiguous)
		return "ambiguous"

	case skill.Matched:
		if out.Err != nil {
			log.Warn("skill handler failed", "skill", out.SkillID, "error", out.Err)
			c.speak(ctx, t, c.cfg.Responses.Unavailable)
			return "handler_error"
		}
		if out.Response != "" {
			c.speak(ctx, t, out.Response)
		}
		return "matched"
	}
	return "unknown"
}

// speak synthesises and plays text. Synthesis gets exactly one retry after a
// short backoff; if that fails too the turn ends silently. Playback
// interruption is the normal barge-in path, never an error.
func (c *Controller) speak(ctx context.Context, t *Turn, text string) {
	if text == "" || ctx.Err() != nil {
		return
	}
	c.post(event{kind: evProgress, turn: t, state: StateSpeaking})
	log := c.log.With("turn", t.ID)

	synthStart := time.Now()
	clip, err := c.synthesizer.Synthesize(ctx, text)
	if err != nil && ctx.Err() == nil {
		log.Warn("synthesis failed, retrying once", "error", err)
		if c.metrics != nil {
			c.metrics.RecordProviderError(ctx, "tts", "synthesize")
		}
		select {
		case <-time.After(c.cfg.SynthesisRetryBackoff):
		case <-ctx.Done():
			return
		}
		clip, err = c.synthesizer.Synthesize(ctx, text)
	}
	if c.metrics != nil {
		c.metrics.SynthesisDuration.Record(ctx, time.Since(synthStart).Seconds())
	}
	if err != nil {
		if ctx.Err() == nil {
			log.Error("synthesis failed after retry, ending turn silently", "error", err)
			if c.metrics != nil {
				c.metrics.RecordProviderError(ctx, "tts", "synthesize")
			}
		}
		return
	}

	if err := c.player.Play(ctx, clip); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("playback interrupted")
			return
		}
		log.Warn("playback failed", "error", err)
	}
}
