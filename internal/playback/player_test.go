package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
	audiomock "github.com/vipul-sharma20/AI-voice-assistant/pkg/audio/mock"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts"
)

func testClip() tts.Clip {
	return tts.Clip{
		PCM:    make([]byte, 640),
		Format: audio.Format{SampleRate: 16000, Channels: 1},
	}
}

func TestPlay_DeliversClipToDevice(t *testing.T) {
	dev := &audiomock.PlaybackDevice{}
	p := New(dev, nil)

	if err := p.Play(context.Background(), testClip()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if got := len(dev.Played()); got != 1 {
		t.Fatalf("played clips = %d, want 1", got)
	}
}

func TestPlay_EmptyClipIsNoop(t *testing.T) {
	dev := &audiomock.PlaybackDevice{}
	p := New(dev, nil)

	if err := p.Play(context.Background(), tts.Clip{}); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if got := len(dev.Played()); got != 0 {
		t.Fatalf("played clips = %d, want 0", got)
	}
}

func TestPlay_InterruptStopsPlayback(t *testing.T) {
	dev := &audiomock.PlaybackDevice{BlockUntilCancel: true}
	p := New(dev, nil)

	done := make(chan error, 1)
	go func() {
		done <- p.Play(context.Background(), testClip())
	}()

	time.Sleep(20 * time.Millisecond)
	p.Interrupt()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Play returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return after Interrupt")
	}
}

func TestPlay_CtxCancelStopsPlayback(t *testing.T) {
	dev := &audiomock.PlaybackDevice{BlockUntilCancel: true}
	p := New(dev, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Play(ctx, testClip())
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Play returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return after ctx cancel")
	}
}

func TestPlay_DeviceErrorSurfaces(t *testing.T) {
	wantErr := errors.New("device gone")
	dev := &audiomock.PlaybackDevice{PlayErr: wantErr}
	p := New(dev, nil)

	err := p.Play(context.Background(), testClip())
	if !errors.Is(err, wantErr) {
		t.Fatalf("Play returned %v, want wrapped device error", err)
	}
}

func TestPlay_SupersededPlayKeepsInterruptWorking(t *testing.T) {
	dev := &audiomock.PlaybackDevice{BlockUntilCancel: true}
	p := New(dev, nil)

	aDone := make(chan error, 1)
	go func() { aDone <- p.Play(context.Background(), testClip()) }()
	time.Sleep(20 * time.Millisecond)

	// B supersedes A; A is cancelled and returns, running its cleanup.
	bDone := make(chan error, 1)
	go func() { bDone <- p.Play(context.Background(), testClip()) }()

	select {
	case err := <-aDone:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("superseded play returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded play did not return")
	}

	// A's cleanup must not have cleared B's cancel.
	time.Sleep(20 * time.Millisecond)
	p.Interrupt()

	select {
	case err := <-bDone:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("superseding play returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Interrupt did not stop the superseding play")
	}
}
