// This file contains the Native recognizer backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt"
)

// Compile-time assertion that Native satisfies stt.Recognizer.
var _ stt.Recognizer = (*Native)(nil)

// Native implements stt.Recognizer using the whisper.cpp Go bindings (CGO),
// eliminating HTTP overhead entirely. The model is loaded once at startup and
// shared across calls; each Transcribe creates its own whisper context, so
// concurrent calls do not interfere.
type Native struct {
	model    whisperlib.Model
	language string

	// whisper contexts are not reentrant, so inference is serialised. The
	// model itself tolerates concurrent context creation.
	mu sync.Mutex
}

// NativeOption is a functional option for configuring a Native recognizer.
type NativeOption func(*Native)

// WithNativeLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(n *Native) { n.language = lang }
}

// NewNative creates a Native recognizer that loads the whisper.cpp model from
// the given file path. The caller must call Close when the recognizer is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*Native, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	n := &Native{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Close releases the whisper model.
func (n *Native) Close() error {
	if n.model != nil {
		return n.model.Close()
	}
	return nil
}

// Transcribe converts the utterance to float32 mono, runs whisper.cpp
// inference in-process, and returns the concatenated segment text. The ctx is
// checked before inference starts; the bindings themselves cannot be
// interrupted mid-inference, so cancellation during a running Process call
// takes effect only once it completes.
func (n *Native) Transcribe(ctx context.Context, in stt.Audio) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, err
	}
	if len(in.PCM) == 0 {
		return stt.Result{}, nil
	}

	samples := samplesFromPCM(in.PCM, in.Format.Channels)

	n.mu.Lock()
	defer n.mu.Unlock()

	wctx, err := n.model.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create context: %w: %w", stt.ErrUnavailable, err)
	}

	if err := wctx.SetLanguage(n.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", n.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return stt.Result{}, err
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return stt.Result{Text: strings.Join(parts, " ")}, nil
}
