package endpoint

import (
	"testing"
	"time"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
)

// scriptGate returns a scripted sequence of speech decisions, then false
// forever. It implements SpeechGate.
type scriptGate struct {
	script []bool
	pos    int
	resets int
}

func (g *scriptGate) IsSpeech(audio.AudioFrame) bool {
	if g.pos >= len(g.script) {
		return false
	}
	v := g.script[g.pos]
	g.pos++
	return v
}

func (g *scriptGate) Reset() { g.resets++ }

// frames20ms builds n consecutive 20 ms frames at 16 kHz mono starting at ts.
func frames20ms(n int, ts time.Duration) []audio.AudioFrame {
	out := make([]audio.AudioFrame, n)
	for i := range out {
		out[i] = audio.AudioFrame{
			Data:       make([]byte, 640),
			SampleRate: 16000,
			Channels:   1,
			Timestamp:  ts + time.Duration(i)*20*time.Millisecond,
		}
	}
	return out
}

// repeat builds a gate script of n copies of v.
func repeat(v bool, n int) []bool {
	s := make([]bool, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func feedAll(d *Detector, frames []audio.AudioFrame) []*audio.Utterance {
	var out []*audio.Utterance
	for _, f := range frames {
		if u := d.Feed(f); u != nil {
			out = append(out, u)
		}
	}
	return out
}

func TestDetector_SpeechThenSilenceEmitsOneUtterance(t *testing.T) {
	// 25 speech frames (500 ms), then enough silence to trip HangSilence.
	script := append(repeat(true, 25), repeat(false, 40)...)
	d := NewDetector(Config{
		HangSilence:  200 * time.Millisecond,
		MinUtterance: 100 * time.Millisecond,
	}, &scriptGate{script: script})

	got := feedAll(d, frames20ms(65, 0))
	if len(got) != 1 {
		t.Fatalf("utterances = %d, want 1", len(got))
	}
	u := got[0]
	if u.End <= u.Start {
		t.Errorf("End (%v) must be after Start (%v)", u.End, u.Start)
	}
	if len(u.Frames) == 0 {
		t.Fatal("utterance has no frames")
	}
}

func TestDetector_NoMergingAcrossSilence(t *testing.T) {
	// Two bursts of speech separated by silence longer than HangSilence
	// must produce two utterances, never one merged clip.
	script := append(repeat(true, 25), repeat(false, 20)...)
	script = append(script, repeat(true, 25)...)
	script = append(script, repeat(false, 20)...)
	d := NewDetector(Config{
		HangSilence:  200 * time.Millisecond,
		MinUtterance: 100 * time.Millisecond,
	}, &scriptGate{script: script})

	got := feedAll(d, frames20ms(90, 0))
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2", len(got))
	}
	if got[1].Start < got[0].End {
		t.Errorf("second utterance starts at %v, before first ends at %v", got[1].Start, got[0].End)
	}
	if got[0].ID == got[1].ID {
		t.Error("utterances must have distinct IDs")
	}
}

func TestDetector_ShortBurstDiscardedAsNoise(t *testing.T) {
	// 4 speech frames (80 ms) is past MinSpeech but under MinUtterance.
	script := append(repeat(true, 4), repeat(false, 40)...)
	d := NewDetector(Config{
		HangSilence:  200 * time.Millisecond,
		MinUtterance: 500 * time.Millisecond,
	}, &scriptGate{script: script})

	if got := feedAll(d, frames20ms(44, 0)); len(got) != 0 {
		t.Fatalf("utterances = %d, want 0 (noise)", len(got))
	}
}

func TestDetector_SingleFrameBlipDoesNotStartUtterance(t *testing.T) {
	// One open-gate frame (20 ms) is below MinSpeech (60 ms default).
	script := append(repeat(true, 1), repeat(false, 50)...)
	d := NewDetector(Config{}, &scriptGate{script: script})

	if got := feedAll(d, frames20ms(51, 0)); len(got) != 0 {
		t.Fatalf("utterances = %d, want 0", len(got))
	}
}

func TestDetector_MaxUtteranceForcesCutoff(t *testing.T) {
	// Continuous speech must still be cut at MaxUtterance.
	d := NewDetector(Config{
		MaxUtterance: 1 * time.Second,
		MinUtterance: 100 * time.Millisecond,
	}, &scriptGate{script: repeat(true, 200)})

	got := feedAll(d, frames20ms(100, 0)) // 2 s of speech
	if len(got) == 0 {
		t.Fatal("expected at least one forced utterance")
	}
	if dur := got[0].Duration(); dur > 1100*time.Millisecond {
		t.Errorf("utterance duration = %v, want ≤ ~1s", dur)
	}
}

func TestDetector_PreRollKeepsLeadIn(t *testing.T) {
	// 10 silent frames, then speech. The utterance must start earlier than
	// the first gate-open frame because of the pre-roll window.
	script := append(repeat(false, 10), repeat(true, 25)...)
	script = append(script, repeat(false, 40)...)
	d := NewDetector(Config{
		PreRoll:      100 * time.Millisecond,
		HangSilence:  200 * time.Millisecond,
		MinUtterance: 100 * time.Millisecond,
	}, &scriptGate{script: script})

	got := feedAll(d, frames20ms(75, 0))
	if len(got) != 1 {
		t.Fatalf("utterances = %d, want 1", len(got))
	}
	firstSpeechTS := 10 * 20 * time.Millisecond
	if got[0].Start >= firstSpeechTS {
		t.Errorf("Start = %v, want earlier than first speech frame at %v", got[0].Start, firstSpeechTS)
	}
}

func TestDetector_PushToTalkBoundsUtterance(t *testing.T) {
	d := NewDetector(Config{
		Mode:         ModePushToTalk,
		MinUtterance: 100 * time.Millisecond,
	}, nil)

	// Frames before the button press are ignored.
	if got := feedAll(d, frames20ms(10, 0)); len(got) != 0 {
		t.Fatalf("utterances before press = %d, want 0", len(got))
	}

	if u := d.SetTalking(true); u != nil {
		t.Fatal("pressing talk must not emit an utterance")
	}
	if got := feedAll(d, frames20ms(25, 200*time.Millisecond)); len(got) != 0 {
		t.Fatalf("utterances while held = %d, want 0", len(got))
	}

	u := d.SetTalking(false)
	if u == nil {
		t.Fatal("release must emit the held utterance")
	}
	if len(u.Frames) != 25 {
		t.Errorf("frames = %d, want 25", len(u.Frames))
	}
}

func TestDetector_PushToTalkReleaseWithoutAudioIsNil(t *testing.T) {
	d := NewDetector(Config{Mode: ModePushToTalk}, nil)
	d.SetTalking(true)
	if u := d.SetTalking(false); u != nil {
		t.Fatal("release with no frames must return nil")
	}
}

func TestEnergyGate_Hysteresis(t *testing.T) {
	g := NewEnergyGate(EnergyGateConfig{
		SpeechThreshold:  1000,
		SilenceThreshold: 400,
		SpeechFrames:     2,
		SilenceFrames:    2,
	})

	loud := audio.AudioFrame{Data: loudPCM(320), SampleRate: 16000, Channels: 1}
	quiet := audio.AudioFrame{Data: make([]byte, 640), SampleRate: 16000, Channels: 1}

	if g.IsSpeech(loud) {
		t.Error("one loud frame must not open the gate")
	}
	if !g.IsSpeech(loud) {
		t.Error("second consecutive loud frame must open the gate")
	}
	if !g.IsSpeech(quiet) {
		t.Error("one quiet frame must not close the gate")
	}
	if g.IsSpeech(quiet) {
		t.Error("second consecutive quiet frame must close the gate")
	}
}

// loudPCM builds a square wave with RMS ≈ 8000.
func loudPCM(samples int) []byte {
	b := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(8000)
		if i%2 == 1 {
			v = -8000
		}
		b[i*2] = byte(v)
		b[i*2+1] = byte(v >> 8)
	}
	return b
}

func TestDetector_OnSpeechStartFiresOncePerUtterance(t *testing.T) {
	script := append(repeat(true, 25), repeat(false, 20)...)
	script = append(script, repeat(true, 25)...)
	script = append(script, repeat(false, 20)...)

	starts := 0
	d := NewDetector(Config{
		HangSilence:   200 * time.Millisecond,
		MinUtterance:  100 * time.Millisecond,
		OnSpeechStart: func() { starts++ },
	}, &scriptGate{script: script})

	got := feedAll(d, frames20ms(90, 0))
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2", len(got))
	}
	if starts != 2 {
		t.Errorf("speech start callbacks = %d, want 2", starts)
	}
}

func TestDetector_OnSpeechStartFiresOnPushToTalkPress(t *testing.T) {
	starts := 0
	d := NewDetector(Config{
		Mode:          ModePushToTalk,
		MinUtterance:  100 * time.Millisecond,
		OnSpeechStart: func() { starts++ },
	}, nil)

	d.SetTalking(true)
	for _, f := range frames20ms(25, 0) {
		d.Feed(f)
	}
	if u := d.SetTalking(false); u == nil {
		t.Fatal("expected utterance on release")
	}
	if starts != 1 {
		t.Errorf("speech start callbacks = %d, want 1", starts)
	}
}

func TestDetector_DiscardedUtteranceFiresAbort(t *testing.T) {
	// 4 speech frames (80 ms) open an utterance that ends under MinUtterance.
	script := append(repeat(true, 4), repeat(false, 40)...)

	starts, aborts := 0, 0
	d := NewDetector(Config{
		HangSilence:   200 * time.Millisecond,
		MinUtterance:  500 * time.Millisecond,
		OnSpeechStart: func() { starts++ },
		OnSpeechAbort: func() { aborts++ },
	}, &scriptGate{script: script})

	if got := feedAll(d, frames20ms(44, 0)); len(got) != 0 {
		t.Fatalf("utterances = %d, want 0 (noise)", len(got))
	}
	if starts != 1 {
		t.Fatalf("speech start callbacks = %d, want 1", starts)
	}
	if aborts != 1 {
		t.Errorf("abort callbacks = %d, want 1", aborts)
	}
}

func TestDetector_PushToTalkEmptyReleaseFiresAbort(t *testing.T) {
	aborts := 0
	d := NewDetector(Config{
		Mode:          ModePushToTalk,
		OnSpeechAbort: func() { aborts++ },
	}, nil)

	d.SetTalking(true)
	if u := d.SetTalking(false); u != nil {
		t.Fatal("release with no frames must return nil")
	}
	if aborts != 1 {
		t.Errorf("abort callbacks = %d, want 1", aborts)
	}

	// A release without a matching press is a no-op, not an abort.
	d.SetTalking(false)
	if aborts != 1 {
		t.Errorf("abort callbacks after stray release = %d, want 1", aborts)
	}
}
