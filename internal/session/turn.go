package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
)

// State is the controller's position in the turn lifecycle. Exactly one
// state is active at a time; all transitions happen on the controller's own
// goroutine.
type State int32

const (
	// StateIdle means no speech is being captured and no turn is running.
	StateIdle State = iota

	// StateListening means the detector has opened an utterance that has not
	// ended yet.
	StateListening

	// StateRecognizing means an utterance is being transcribed.
	StateRecognizing

	// StateDispatching means the transcript is being routed to a skill.
	StateDispatching

	// StateSpeaking means a response is being synthesised or played.
	StateSpeaking

	// StateCancelling means an in-flight turn is being torn down after a
	// barge-in or a newer utterance.
	StateCancelling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateRecognizing:
		return "recognizing"
	case StateDispatching:
		return "dispatching"
	case StateSpeaking:
		return "speaking"
	case StateCancelling:
		return "cancelling"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Turn is one utterance being carried through recognition, dispatch, and
// playback. A turn runs in its own goroutine under a context cancelled by
// the controller on barge-in or shutdown.
type Turn struct {
	// ID is the utterance ID, reused for log correlation.
	ID uuid.UUID

	// Utterance is the captured speech being processed.
	Utterance *audio.Utterance

	// started is when the turn began, i.e. end of utterance. The elapsed
	// time at completion feeds the turn duration histogram.
	started time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// eventKind discriminates messages on the controller's event channel.
type eventKind int

const (
	evSpeechStart eventKind = iota
	evSpeechAbort
	evUtterance
	evProgress
	evTurnDone
	evDeviceError
)

// event is a message posted to the controller goroutine. Exactly one of the
// payload fields is meaningful per kind.
type event struct {
	kind    eventKind
	utt     *audio.Utterance
	turn    *Turn
	state   State
	outcome string
	err     error
}

// Responses are the spoken fallbacks for turns that do not reach a skill
// handler's own response. Empty fields select the defaults.
type Responses struct {
	// NoMatch is spoken when no skill recognises the transcript.
	NoMatch string

	// Ambiguous is spoken when several skills tie for the command.
	Ambiguous string

	// Unavailable is spoken when recognition or a handler fails.
	Unavailable string

	// WakeAck is spoken when the wake phrase arrives with no command after
	// it.
	WakeAck string
}

func (r *Responses) applyDefaults() {
	if r.NoMatch == "" {
		r.NoMatch = "Sorry, I don't know how to help with that."
	}
	if r.Ambiguous == "" {
		r.Ambiguous = "I heard more than one command. Could you be more specific?"
	}
	if r.Unavailable == "" {
		r.Unavailable = "Sorry, something went wrong. Please try again."
	}
	if r.WakeAck == "" {
		r.WakeAck = "Yes?"
	}
}

// Config tunes a Controller.
type Config struct {
	// WakePhrase, when non-empty, must prefix the recognised text or the
	// turn is silently ignored. The phrase is stripped before dispatch.
	WakePhrase string

	// AsleepSkills lists skill IDs still dispatched while the assistant is
	// disabled. These are the wake-up control skills; everything else is
	// ignored until SetEnabled(true).
	AsleepSkills []string

	// Responses configures the spoken fallbacks.
	Responses Responses

	// SynthesisRetryBackoff is the wait before the single synthesis retry.
	// Default: 250 ms.
	SynthesisRetryBackoff time.Duration
}

func (c *Config) applyDefaults() {
	c.Responses.applyDefaults()
	if c.SynthesisRetryBackoff == 0 {
		c.SynthesisRetryBackoff = 250 * time.Millisecond
	}
}
