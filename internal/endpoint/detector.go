// Package endpoint segments a continuous stream of audio frames into bounded
// utterances. A Detector consumes normalized frames one at a time and emits a
// complete Utterance when it decides the speaker has finished: enough
// trailing silence, a hard length cap, or an explicit push-to-talk release.
//
// The detector is a three-state machine (silence, accumulating, plus the
// emitted terminal result) fed synchronously from the pipeline goroutine. It
// keeps a short pre-roll of recent frames so the first syllable of an
// utterance is not clipped by the gate's open latency.
package endpoint

import (
	"time"

	"github.com/google/uuid"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
)

// Mode selects how the detector decides utterance boundaries.
type Mode string

const (
	// ModeVAD bounds utterances with the speech gate: debounced speech
	// opens an utterance, hang silence or the length cap closes it.
	ModeVAD Mode = "vad"

	// ModePushToTalk ignores the gate entirely. SetTalking(true) opens an
	// utterance and SetTalking(false) closes it.
	ModePushToTalk Mode = "push_to_talk"
)

// Config tunes a Detector. Zero durations select the defaults.
type Config struct {
	// Mode selects VAD or push-to-talk endpointing. Defaults to ModeVAD.
	Mode Mode

	// PreRoll is how much audio before gate-open is prepended to the
	// utterance. Defaults to 200 ms.
	PreRoll time.Duration

	// MinSpeech is how long the gate must stay open before an utterance
	// starts. Defaults to 60 ms.
	MinSpeech time.Duration

	// HangSilence is how much trailing closed-gate audio ends the
	// utterance. Defaults to 600 ms.
	HangSilence time.Duration

	// MaxUtterance force-ends an utterance regardless of the gate, bounding
	// memory during continuous speech. Defaults to 15 s.
	MaxUtterance time.Duration

	// MinUtterance discards shorter utterances as noise. Defaults to 300 ms.
	MinUtterance time.Duration

	// OnSpeechStart, if set, is called synchronously when an utterance opens:
	// the debounced gate-open transition in VAD mode, or the press in
	// push-to-talk mode. The session uses this to cut off playback the moment
	// the user starts talking over the assistant.
	OnSpeechStart func()

	// OnSpeechAbort, if set, is called synchronously when an opened utterance
	// closes without being emitted (discarded as sub-MinUtterance noise, or a
	// push-to-talk release with nothing captured). Every OnSpeechStart is
	// therefore followed by exactly one emitted utterance or one abort.
	OnSpeechAbort func()
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeVAD
	}
	if c.PreRoll == 0 {
		c.PreRoll = 200 * time.Millisecond
	}
	if c.MinSpeech == 0 {
		c.MinSpeech = 60 * time.Millisecond
	}
	if c.HangSilence == 0 {
		c.HangSilence = 600 * time.Millisecond
	}
	if c.MaxUtterance == 0 {
		c.MaxUtterance = 15 * time.Second
	}
	if c.MinUtterance == 0 {
		c.MinUtterance = 300 * time.Millisecond
	}
}

// state is the detector's position in the utterance lifecycle.
type state int

const (
	stateSilence state = iota
	stateAccumulating
)

// Detector turns a frame stream into utterances. It is driven from a single
// goroutine; Feed and SetTalking must not be called concurrently.
type Detector struct {
	cfg  Config
	gate SpeechGate

	st      state
	preRoll []audio.AudioFrame // recent frames kept for utterance lead-in
	frames  []audio.AudioFrame // accumulating utterance body
	start   time.Duration      // timestamp of the first accumulated frame

	speech  time.Duration // accumulated gate-open time while in silence
	silence time.Duration // trailing gate-closed time while accumulating

	talking bool // push-to-talk state
}

// NewDetector creates a Detector using the given speech gate. The gate is
// unused in push-to-talk mode and may be nil there.
func NewDetector(cfg Config, gate SpeechGate) *Detector {
	cfg.applyDefaults()
	return &Detector{cfg: cfg, gate: gate}
}

// SetTalking opens or closes the push-to-talk window. The returned utterance
// is non-nil when releasing ends an utterance of acceptable length. In VAD
// mode this is a no-op returning nil.
func (d *Detector) SetTalking(on bool) *audio.Utterance {
	if d.cfg.Mode != ModePushToTalk {
		return nil
	}
	if on {
		d.talking = true
		if d.cfg.OnSpeechStart != nil {
			d.cfg.OnSpeechStart()
		}
		return nil
	}
	if !d.talking {
		return nil // release without a press
	}
	d.talking = false
	return d.finish()
}

// Feed advances the detector by one frame. It returns a completed utterance
// or nil. Frames must arrive in timestamp order; the caller normalizes them
// to a single format first.
func (d *Detector) Feed(frame audio.AudioFrame) *audio.Utterance {
	if d.cfg.Mode == ModePushToTalk {
		return d.feedPushToTalk(frame)
	}
	return d.feedVAD(frame)
}

func (d *Detector) feedPushToTalk(frame audio.AudioFrame) *audio.Utterance {
	if !d.talking {
		return nil
	}
	if len(d.frames) == 0 {
		d.start = frame.Timestamp
	}
	d.frames = append(d.frames, frame)
	if d.duration(frame) >= d.cfg.MaxUtterance {
		d.talking = false
		return d.finish()
	}
	return nil
}

func (d *Detector) feedVAD(frame audio.AudioFrame) *audio.Utterance {
	inSpeech := d.gate.IsSpeech(frame)

	switch d.st {
	case stateSilence:
		d.pushPreRoll(frame)
		if !inSpeech {
			d.speech = 0
			return nil
		}
		d.speech += frame.Duration()
		if d.speech < d.cfg.MinSpeech {
			return nil
		}
		// Utterance begins. Move the pre-roll into the body so the lead-in
		// syllable survives the gate latency.
		d.st = stateAccumulating
		d.frames = append(d.frames, d.preRoll...)
		d.preRoll = nil
		if len(d.frames) > 0 {
			d.start = d.frames[0].Timestamp
		} else {
			d.start = frame.Timestamp
		}
		d.speech = 0
		d.silence = 0
		if d.cfg.OnSpeechStart != nil {
			d.cfg.OnSpeechStart()
		}
		return nil

	case stateAccumulating:
		d.frames = append(d.frames, frame)
		if inSpeech {
			d.silence = 0
		} else {
			d.silence += frame.Duration()
			if d.silence >= d.cfg.HangSilence {
				return d.finish()
			}
		}
		if d.duration(frame) >= d.cfg.MaxUtterance {
			return d.finish()
		}
		return nil
	}
	return nil
}

// pushPreRoll appends a frame to the pre-roll window, evicting the oldest
// frames once the window exceeds the configured duration.
func (d *Detector) pushPreRoll(frame audio.AudioFrame) {
	d.preRoll = append(d.preRoll, frame)
	var total time.Duration
	for _, f := range d.preRoll {
		total += f.Duration()
	}
	for len(d.preRoll) > 0 && total > d.cfg.PreRoll {
		total -= d.preRoll[0].Duration()
		d.preRoll = d.preRoll[1:]
	}
}

// duration returns how long the current utterance is, ending at last.
func (d *Detector) duration(last audio.AudioFrame) time.Duration {
	if len(d.frames) == 0 {
		return 0
	}
	return last.Timestamp + last.Duration() - d.start
}

// finish closes the current utterance and resets the detector to silence.
// Utterances shorter than MinUtterance are discarded as noise; finish then
// reports the abort and returns nil.
func (d *Detector) finish() *audio.Utterance {
	frames := d.frames
	d.frames = nil
	d.st = stateSilence
	d.speech = 0
	d.silence = 0
	if d.gate != nil {
		d.gate.Reset()
	}

	if len(frames) == 0 {
		d.abort()
		return nil
	}

	var total time.Duration
	for _, f := range frames {
		total += f.Duration()
	}
	if total < d.cfg.MinUtterance {
		d.abort()
		return nil
	}

	last := frames[len(frames)-1]
	return &audio.Utterance{
		ID:     uuid.New(),
		Frames: frames,
		Start:  frames[0].Timestamp,
		End:    last.Timestamp + last.Duration(),
	}
}

func (d *Detector) abort() {
	if d.cfg.OnSpeechAbort != nil {
		d.cfg.OnSpeechAbort()
	}
}
