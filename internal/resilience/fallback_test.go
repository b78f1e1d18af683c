package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt"
	sttmock "github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt/mock"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts"
	ttsmock "github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts/mock"
)

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("secondary", "secondary")

	var called string
	err := fg.Execute(func(v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "primary" {
		t.Fatalf("called = %q, want primary", called)
	}
}

func TestFallbackGroup_PrimaryFailFallbackSuccess(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("secondary", "secondary")

	var called string
	err := fg.Execute(func(v string) error {
		if v == "primary" {
			return errTest
		}
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "secondary" {
		t.Fatalf("called = %q, want secondary", called)
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("secondary", "secondary")

	err := fg.Execute(func(v string) error {
		return errTest
	})
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_CancellationSkipsFallbacks(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("secondary", "secondary")

	var calls []string
	err := fg.Execute(func(v string) error {
		calls = append(calls, v)
		return context.Canceled
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(calls) != 1 || calls[0] != "primary" {
		t.Fatalf("calls = %v, want only primary (fallbacks skipped on cancel)", calls)
	}
}

func TestFallbackGroup_CircuitBreakerSkipsOpenProvider(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	})
	fg.AddFallback("secondary", "secondary")

	// Fail the primary enough to open its breaker.
	for i := 0; i < 2; i++ {
		_ = fg.Execute(func(v string) error {
			if v == "primary" {
				return errTest
			}
			return nil
		})
	}

	// Now the primary's breaker should be open — calls should go to secondary.
	var called string
	err := fg.Execute(func(v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "secondary" {
		t.Fatalf("called = %q, want secondary (primary circuit should be open)", called)
	}
}

func TestExecuteWithResult_Failover(t *testing.T) {
	fg := NewFallbackGroup(10, "ten", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("twenty", 20)

	result, err := ExecuteWithResult(fg, func(v int) (string, error) {
		if v == 10 {
			return "", errTest
		}
		return "from-twenty", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-twenty" {
		t.Fatalf("result = %q, want from-twenty", result)
	}
}

func TestExecuteWithResult_CancellationReturnsImmediately(t *testing.T) {
	fg := NewFallbackGroup(10, "ten", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("twenty", 20)

	calls := 0
	_, err := ExecuteWithResult(fg, func(v int) (string, error) {
		calls++
		return "", context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRecognizerFallback_FailsOverToSecondBackend(t *testing.T) {
	primary := &sttmock.Recognizer{Err: stt.ErrUnavailable}
	backup := &sttmock.Recognizer{
		Results: []stt.Result{{Text: "what time is it", Confidence: 0.9}},
	}

	f := NewRecognizerFallback(primary, "whisper", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("vosk", backup)

	in := stt.Audio{
		PCM:    make([]byte, 320),
		Format: audio.Format{SampleRate: 16000, Channels: 1},
	}
	res, err := f.Transcribe(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "what time is it" {
		t.Fatalf("text = %q, want transcript from fallback", res.Text)
	}
	if primary.CallCount() != 1 || backup.CallCount() != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", primary.CallCount(), backup.CallCount())
	}
}

func TestRecognizerFallback_AllBackendsDown(t *testing.T) {
	primary := &sttmock.Recognizer{Err: stt.ErrUnavailable}
	backup := &sttmock.Recognizer{Err: stt.ErrUnavailable}

	f := NewRecognizerFallback(primary, "whisper", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("vosk", backup)

	_, err := f.Transcribe(context.Background(), stt.Audio{
		PCM:    make([]byte, 320),
		Format: audio.Format{SampleRate: 16000, Channels: 1},
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestSynthesizerFallback_FailsOverToSecondBackend(t *testing.T) {
	primary := &ttsmock.Synthesizer{Errs: []error{tts.ErrUnavailable, tts.ErrUnavailable}}
	backup := &ttsmock.Synthesizer{}

	f := NewSynthesizerFallback(primary, "coqui", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("elevenlabs", backup)

	clip, err := f.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clip.PCM) == 0 {
		t.Fatal("expected audio from fallback synthesizer")
	}
	if backup.CallCount() != 1 {
		t.Fatalf("fallback calls = %d, want 1", backup.CallCount())
	}
}

func TestSynthesizerFallback_BargeInDoesNotTripBreaker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	primary := &ttsmock.Synthesizer{Delay: release}
	backup := &ttsmock.Synthesizer{}

	f := NewSynthesizerFallback(primary, "coqui", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	f.AddFallback("elevenlabs", backup)

	// Repeated barge-ins cancel synthesis mid-flight. The primary's breaker
	// must stay closed and the fallback must not be consulted.
	for i := 0; i < 5; i++ {
		_, err := f.Synthesize(ctx, "interrupted response")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	}
	if backup.CallCount() != 0 {
		t.Fatalf("fallback called %d times during barge-in, want 0", backup.CallCount())
	}

	// A real request afterwards still reaches the primary.
	close(release)
	if _, err := f.Synthesize(context.Background(), "hello"); err != nil {
		t.Fatalf("post-barge-in synthesis failed: %v", err)
	}
}

func TestFallbackGroup_Healthy(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  1,
			ResetTimeout: time.Hour,
		},
	})
	fg.AddFallback("secondary", "secondary")

	if err := fg.Healthy(); err != nil {
		t.Fatalf("fresh group should be healthy, got %v", err)
	}

	// Open the primary's breaker; the secondary keeps the group healthy.
	_ = fg.Execute(func(v string) error {
		if v == "primary" {
			return errTest
		}
		return nil
	})
	if err := fg.Healthy(); err != nil {
		t.Fatalf("group with one live fallback should be healthy, got %v", err)
	}

	// Open the secondary too.
	_ = fg.Execute(func(string) error { return errTest })
	err := fg.Healthy()
	if err == nil {
		t.Fatal("group with every breaker open should be unhealthy")
	}
	if !strings.Contains(err.Error(), "primary") || !strings.Contains(err.Error(), "secondary") {
		t.Fatalf("error %q should name both providers", err)
	}
}
