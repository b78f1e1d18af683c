package endpoint

import (
	"encoding/binary"
	"testing"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
)

// toneFrame builds a 20 ms, 16 kHz mono frame where every sample has the
// given amplitude, so its RMS equals the amplitude exactly.
func toneFrame(amplitude int16) audio.AudioFrame {
	data := make([]byte, 640)
	for i := 0; i < len(data); i += 2 {
		binary.LittleEndian.PutUint16(data[i:], uint16(amplitude))
	}
	return audio.AudioFrame{Data: data, SampleRate: 16000, Channels: 1}
}

func TestEnergyGate_OpensAfterConsecutiveSpeechFrames(t *testing.T) {
	g := NewEnergyGate(EnergyGateConfig{})

	loud := toneFrame(2000)
	if g.IsSpeech(loud) || g.IsSpeech(loud) {
		t.Fatal("gate must not open before the consecutive-frame count is met")
	}
	if !g.IsSpeech(loud) {
		t.Fatal("gate should open on the third consecutive loud frame")
	}
}

func TestEnergyGate_SingleClickDoesNotOpen(t *testing.T) {
	g := NewEnergyGate(EnergyGateConfig{})

	if g.IsSpeech(toneFrame(20000)) {
		t.Fatal("a single loud frame must not open the gate")
	}
	// The quiet frame resets the consecutive counter.
	if g.IsSpeech(toneFrame(0)) {
		t.Fatal("silence must not read as speech")
	}
	if g.IsSpeech(toneFrame(20000)) || g.IsSpeech(toneFrame(20000)) {
		t.Fatal("counter should have restarted after the quiet frame")
	}
}

func TestEnergyGate_HysteresisHoldsThroughQuietFrame(t *testing.T) {
	g := NewEnergyGate(EnergyGateConfig{})

	loud := toneFrame(2000)
	for i := 0; i < 3; i++ {
		g.IsSpeech(loud)
	}

	// One quiet frame mid-word must not close the gate (silenceFrames = 2).
	if !g.IsSpeech(toneFrame(0)) {
		t.Fatal("gate closed on a single quiet frame")
	}
	if g.IsSpeech(toneFrame(0)) {
		t.Fatal("gate should close after consecutive quiet frames")
	}
}

func TestEnergyGate_ExitThresholdBelowEnterThreshold(t *testing.T) {
	g := NewEnergyGate(EnergyGateConfig{SpeechThreshold: 1000, SilenceThreshold: 400})

	for i := 0; i < 3; i++ {
		g.IsSpeech(toneFrame(1500))
	}
	// 600 is below the enter threshold but above the exit threshold, so the
	// gate stays open indefinitely.
	for i := 0; i < 10; i++ {
		if !g.IsSpeech(toneFrame(600)) {
			t.Fatal("gate closed while level was above the exit threshold")
		}
	}
}

func TestEnergyGate_Reset(t *testing.T) {
	g := NewEnergyGate(EnergyGateConfig{})

	loud := toneFrame(2000)
	for i := 0; i < 3; i++ {
		g.IsSpeech(loud)
	}
	g.Reset()
	if g.IsSpeech(loud) {
		t.Fatal("reset gate should need the full consecutive-frame count again")
	}
}
