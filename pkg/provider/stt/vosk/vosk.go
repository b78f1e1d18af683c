// Package vosk provides a recognizer backed by a vosk-server instance using
// its WebSocket API. It implements the stt.Recognizer interface.
//
// The vosk-server protocol is connection-per-utterance friendly: the client
// sends a JSON configuration message, streams binary PCM chunks, then sends
// {"eof": 1}. The server replies with interim {"partial": ...} messages and a
// final {"text": ..., "result": [...]} message before closing. This
// recognizer opens a fresh connection per Transcribe call, which keeps the
// implementation stateless and makes cancellation trivial.
package vosk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/stt"
)

const (
	// chunkBytes is the size of each binary PCM message. vosk-server buffers
	// internally, so the exact size only affects framing overhead. 8000 bytes
	// is 250 ms of 16 kHz mono audio.
	chunkBytes = 8000

	defaultTimeout = 30 * time.Second
)

// Compile-time assertion that Recognizer implements stt.Recognizer.
var _ stt.Recognizer = (*Recognizer)(nil)

// Option is a functional option for configuring a Recognizer.
type Option func(*Recognizer)

// WithTimeout sets the per-call deadline applied on top of the caller's
// context. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(r *Recognizer) {
		r.timeout = d
	}
}

// Recognizer implements stt.Recognizer backed by a vosk-server WebSocket
// endpoint. It holds no connection state between calls and is safe for
// concurrent use.
type Recognizer struct {
	serverURL string
	timeout   time.Duration
}

// New creates a Recognizer that connects to the vosk-server WebSocket
// endpoint at serverURL (e.g., "ws://localhost:2700"). serverURL must be
// non-empty.
func New(serverURL string, opts ...Option) (*Recognizer, error) {
	if serverURL == "" {
		return nil, errors.New("vosk: serverURL must not be empty")
	}
	r := &Recognizer{
		serverURL: serverURL,
		timeout:   defaultTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// voskResult is the JSON structure of a vosk-server final result message.
// Interim messages carry a "partial" field instead and are skipped.
type voskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Conf  float64 `json:"conf"`
	} `json:"result"`
}

// Transcribe opens a WebSocket connection, streams the utterance, and
// collects the server's final results. Dial and transport failures wrap
// stt.ErrUnavailable; a cancelled ctx returns ctx.Err().
func (r *Recognizer) Transcribe(ctx context.Context, in stt.Audio) (stt.Result, error) {
	if len(in.PCM) == 0 {
		return stt.Result{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, r.serverURL, nil)
	if err != nil {
		if ctx.Err() != nil {
			return stt.Result{}, ctx.Err()
		}
		return stt.Result{}, fmt.Errorf("vosk: dial: %w: %w", stt.ErrUnavailable, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	cfg := fmt.Sprintf(`{"config": {"sample_rate": %d}}`, in.Format.SampleRate)
	if err := conn.Write(ctx, websocket.MessageText, []byte(cfg)); err != nil {
		return stt.Result{}, fmt.Errorf("vosk: send config: %w: %w", stt.ErrUnavailable, err)
	}

	for off := 0; off < len(in.PCM); off += chunkBytes {
		end := min(off+chunkBytes, len(in.PCM))
		if err := conn.Write(ctx, websocket.MessageBinary, in.PCM[off:end]); err != nil {
			return stt.Result{}, fmt.Errorf("vosk: send audio: %w: %w", stt.ErrUnavailable, err)
		}
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"eof" : 1}`)); err != nil {
		return stt.Result{}, fmt.Errorf("vosk: send eof: %w: %w", stt.ErrUnavailable, err)
	}

	// The server emits one message per processed chunk. Interim messages
	// carry "partial"; committed segments carry "text". After eof the last
	// message is final and the server closes the connection.
	var (
		text  string
		words []stt.WordDetail
		last  voskResult
	)
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return stt.Result{}, ctx.Err()
			}
			// Normal closure after the final result.
			break
		}

		var res voskResult
		if err := json.Unmarshal(msg, &res); err != nil {
			continue
		}
		if res.Text == "" && res.Result == nil {
			continue // interim partial
		}

		if text != "" && res.Text != "" {
			text += " "
		}
		text += res.Text
		for _, w := range res.Result {
			words = append(words, stt.WordDetail{
				Word:       w.Word,
				Start:      w.Start,
				End:        w.End,
				Confidence: w.Conf,
			})
		}
		last = res
	}

	return stt.Result{
		Text:       text,
		Confidence: averageConfidence(words),
		Words:      words,
		Raw:        last,
	}, nil
}

// averageConfidence derives an utterance-level confidence from per-word
// scores. vosk reports no overall score, so the mean is the best proxy.
func averageConfidence(words []stt.WordDetail) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}
