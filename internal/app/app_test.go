package app

import (
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vipul-sharma20/AI-voice-assistant/internal/config"
	"github.com/vipul-sharma20/AI-voice-assistant/internal/endpoint"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
	audiomock "github.com/vipul-sharma20/AI-voice-assistant/pkg/audio/mock"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt"
	sttmock "github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt/mock"
	ttsmock "github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts/mock"
)

// pcmFrame builds a 20 ms, 16 kHz mono frame where every sample has the given
// amplitude. Amplitude 0 is silence; anything well above the energy gate's
// speech threshold reads as speech.
func pcmFrame(amplitude int16, ts time.Duration) audio.AudioFrame {
	data := make([]byte, 640)
	for i := 0; i < len(data); i += 2 {
		binary.LittleEndian.PutUint16(data[i:], uint16(amplitude))
	}
	return audio.AudioFrame{
		Data:       data,
		SampleRate: 16000,
		Channels:   1,
		Timestamp:  ts,
	}
}

// speechThenSilence builds a burst of loud frames followed by silence, enough
// to open the energy gate and then trip the hang-silence timeout.
func speechThenSilence(speech, silence int) []audio.AudioFrame {
	frames := make([]audio.AudioFrame, 0, speech+silence)
	ts := time.Duration(0)
	for i := 0; i < speech; i++ {
		frames = append(frames, pcmFrame(8000, ts))
		ts += 20 * time.Millisecond
	}
	for i := 0; i < silence; i++ {
		frames = append(frames, pcmFrame(0, ts))
		ts += 20 * time.Millisecond
	}
	return frames
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.ListenAddr = ""
	// Large enough that a burst queued all at once never overruns.
	cfg.Audio.BusCapacity = 200
	return cfg
}

// harness owns an App over mock devices and providers, running until cleanup.
type harness struct {
	app        *App
	capture    *audiomock.CaptureDevice
	device     *audiomock.PlaybackDevice
	recognizer *sttmock.Recognizer
	synth      *ttsmock.Synthesizer
	runErr     chan error
	cancel     context.CancelFunc
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()

	h := &harness{
		capture:    audiomock.NewCaptureDevice(),
		device:     audiomock.NewPlaybackDevice(),
		recognizer: &sttmock.Recognizer{},
		synth:      &ttsmock.Synthesizer{},
		runErr:     make(chan error, 1),
	}

	a, err := New(cfg, &Providers{
		STT:      h.recognizer,
		TTS:      h.synth,
		Capture:  h.capture,
		Playback: h.device,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.app = a
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.runErr <- h.app.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-h.runErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("app did not shut down")
		}
		sctx, scancel := context.WithTimeout(context.Background(), time.Second)
		defer scancel()
		if err := h.app.Shutdown(sctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestNew_RequiresAllProviders(t *testing.T) {
	_, err := New(testConfig(), &Providers{})
	if err == nil {
		t.Fatal("expected an error for empty providers")
	}
	for _, want := range []string{"stt", "tts", "capture", "playback"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestNew_DisabledSkillNotRegistered(t *testing.T) {
	cfg := testConfig()
	cfg.Skills.Disabled = []string{"echo", "help"}

	h := newHarness(t, cfg)
	if h.app.skills.Get("echo") != nil {
		t.Error("echo skill should not be registered")
	}
	if h.app.skills.Get("help") != nil {
		t.Error("help skill should not be registered")
	}
	if h.app.skills.Get("time") == nil {
		t.Error("time skill should be registered")
	}
	if h.app.skills.Get("wake") == nil {
		t.Error("wake skill should be registered")
	}
}

func TestNew_UnknownGateFails(t *testing.T) {
	cfg := testConfig()
	cfg.Endpointing.Gate = "psychic"

	_, err := New(cfg, &Providers{
		STT:      &sttmock.Recognizer{},
		TTS:      &ttsmock.Synthesizer{},
		Capture:  audiomock.NewCaptureDevice(),
		Playback: audiomock.NewPlaybackDevice(),
	})
	if err == nil {
		t.Fatal("expected an error for an unknown gate")
	}
}

func TestRun_SpeechBecomesSpokenResponse(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg)

	h.recognizer.Results = []stt.Result{{Text: "what time is it", Confidence: 0.9}}
	h.capture.QueueFrames(speechThenSilence(25, 50)...)

	h.run(t)

	waitFor(t, func() bool { return len(h.device.Played()) == 1 }, "response playback")
	if got := h.recognizer.CallCount(); got != 1 {
		t.Errorf("Transcribe calls = %d, want 1", got)
	}
	if got := h.synth.CallCount(); got != 1 {
		t.Errorf("Synthesize calls = %d, want 1", got)
	}
}

func TestRun_CaptureDeviceErrorIsFatal(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg)
	h.run(t)

	devErr := &audio.DeviceError{Device: "capture", Err: errors.New("unplugged")}
	h.capture.FailWith(devErr)

	select {
	case err := <-h.runErr:
		var de *audio.DeviceError
		if !errors.As(err, &de) {
			t.Fatalf("Run returned %v, want a *audio.DeviceError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after a device error")
	}
	// Re-arm so cleanup does not block on the drained channel.
	h.runErr <- nil
}

func TestSetTalking_PushToTalkDispatchesUtterance(t *testing.T) {
	cfg := testConfig()
	cfg.Endpointing.Mode = endpoint.ModePushToTalk
	cfg.Endpointing.MinUtterance = config.Duration(100 * time.Millisecond)

	h := newHarness(t, cfg)
	h.recognizer.Results = []stt.Result{{Text: "what time is it"}}

	// Press before any frames arrive so every queued frame lands inside the
	// open utterance.
	h.app.SetTalking(true)
	h.capture.QueueFrames(speechThenSilence(25, 0)...)
	h.run(t)

	// Give the pipeline time to drain the queued frames, then release.
	time.Sleep(300 * time.Millisecond)
	h.app.SetTalking(false)

	waitFor(t, func() bool { return h.recognizer.CallCount() == 1 }, "recognition")
	waitFor(t, func() bool { return len(h.device.Played()) == 1 }, "response playback")
}

func TestDiagnosticsEndpoints(t *testing.T) {
	cfg := testConfig()
	cfg.Server.ListenAddr = "127.0.0.1:0"

	h := newHarness(t, cfg)
	if h.app.httpSrv == nil {
		t.Fatal("diagnostics server not configured")
	}

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.app.httpSrv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want %d", rec.Code, http.StatusOK)
	}
	// Not running yet, so the pipeline check must fail readiness.
	if rec := get("/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before start = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if rec := get("/metrics"); rec.Code != http.StatusOK {
		t.Errorf("metrics = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestDiagnosticsDisabledByEmptyAddr(t *testing.T) {
	h := newHarness(t, testConfig())
	if h.app.httpSrv != nil {
		t.Fatal("diagnostics server should be disabled with an empty listen address")
	}
}
