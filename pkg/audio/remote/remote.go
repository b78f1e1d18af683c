// Package remote implements a websocket microphone source: a thin client
// (phone, satellite speaker, browser) streams audio frames to the assistant
// over a websocket connection instead of a locally attached microphone.
//
// The wire protocol is one binary websocket message per frame, prefixed with a
// 1-byte codec tag:
//
//	0x01  raw little-endian 16-bit PCM at the negotiated format
//	0x02  one Opus packet (16 kHz mono, 20 ms frames)
//
// A client opens the stream with a JSON text message declaring its format:
//
//	{"sample_rate": 16000, "channels": 1, "codec": "opus"}
//
// Frames are pushed onto the session's FrameBus exactly like local capture;
// the server side of the pipeline is unaware of the transport.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"layeh.com/gopus"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
)

const (
	codecPCM  byte = 0x01
	codecOpus byte = 0x02

	// opusFrameSize is samples per channel per 20 ms packet at 16 kHz.
	opusSampleRate = 16000
	opusFrameSize  = opusSampleRate * 20 / 1000

	// readLimit bounds a single frame message. 64 KiB is far above any sane
	// 20 ms frame and protects against misbehaving clients.
	readLimit = 64 << 10
)

// helloMessage is the JSON stream-open message sent by the client.
type helloMessage struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Codec      string `json:"codec"` // "pcm" or "opus"
}

// Source is a websocket microphone source implementing [audio.CaptureDevice].
// Start registers an HTTP handler on the configured mux; at most one client
// may stream at a time, additional connections are rejected with 409.
type Source struct {
	addr string
	path string

	mu       sync.Mutex
	bus      *audio.FrameBus
	errCh    chan error
	server   *http.Server
	active   bool
	stopped  bool
	startCtx context.Context
}

var _ audio.CaptureDevice = (*Source)(nil)

// NewSource creates a websocket microphone source listening on addr (e.g.
// ":8090") at path (e.g. "/mic").
func NewSource(addr, path string) *Source {
	if path == "" {
		path = "/mic"
	}
	return &Source{
		addr:  addr,
		path:  path,
		errCh: make(chan error, 1),
	}
}

// Start begins accepting websocket clients, pushing their frames to bus.
// The HTTP server failing to listen is a fatal device error.
func (s *Source) Start(ctx context.Context, bus *audio.FrameBus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("remote: source already started")
	}
	s.bus = bus
	s.startCtx = ctx

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleClient)
	s.server = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errCh <- &audio.DeviceError{Device: "remote-mic", Err: err}:
			default:
			}
		}
	}()

	slog.Info("remote microphone listening", "addr", s.addr, "path", s.path)
	return nil
}

// Errors returns the fatal-error channel.
func (s *Source) Errors() <-chan error { return s.errCh }

// Stop shuts down the HTTP server and releases resources. Idempotent.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	var err error
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = s.server.Shutdown(shutdownCtx)
		cancel()
		s.server = nil
	}
	close(s.errCh)
	return err
}

// handleClient upgrades the connection and streams frames until the client
// disconnects or the source stops.
func (s *Source) handleClient(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		http.Error(w, "a microphone client is already connected", http.StatusConflict)
		return
	}
	s.active = true
	bus := s.bus
	ctx := s.startCtx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
	}()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("remote mic accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(readLimit)

	// First message: JSON hello declaring the stream format.
	msgType, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	if msgType != websocket.MessageText {
		conn.Close(websocket.StatusProtocolError, "expected JSON hello")
		return
	}
	var hello helloMessage
	if err := json.Unmarshal(data, &hello); err != nil {
		conn.Close(websocket.StatusProtocolError, "malformed hello")
		return
	}
	if hello.SampleRate <= 0 || hello.Channels <= 0 {
		conn.Close(websocket.StatusProtocolError, "invalid format")
		return
	}

	var decoder *gopus.Decoder
	if hello.Codec == "opus" {
		decoder, err = gopus.NewDecoder(hello.SampleRate, hello.Channels)
		if err != nil {
			slog.Warn("remote mic opus decoder failed", "err", err)
			conn.Close(websocket.StatusInternalError, "opus unsupported")
			return
		}
	}

	slog.Info("remote microphone connected",
		"remote", r.RemoteAddr,
		"sample_rate", hello.SampleRate,
		"channels", hello.Channels,
		"codec", hello.Codec,
	)

	start := time.Now()
	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			slog.Debug("remote microphone disconnected", "remote", r.RemoteAddr, "err", err)
			return
		}
		if msgType != websocket.MessageBinary || len(payload) < 2 {
			continue
		}

		pcm, err := decodeFrame(payload, decoder)
		if err != nil {
			slog.Debug("remote mic frame dropped", "err", err)
			continue
		}

		bus.Push(audio.AudioFrame{
			Data:       pcm,
			SampleRate: hello.SampleRate,
			Channels:   hello.Channels,
			Timestamp:  time.Since(start),
		})
	}
}

// decodeFrame strips the codec tag and returns raw PCM, decoding Opus packets
// when a decoder is present.
func decodeFrame(payload []byte, decoder *gopus.Decoder) ([]byte, error) {
	tag, body := payload[0], payload[1:]
	switch tag {
	case codecPCM:
		pcm := make([]byte, len(body))
		copy(pcm, body)
		return pcm, nil
	case codecOpus:
		if decoder == nil {
			return nil, errors.New("remote: opus frame on a pcm stream")
		}
		samples, err := decoder.Decode(body, opusFrameSize, false)
		if err != nil {
			return nil, fmt.Errorf("remote: opus decode: %w", err)
		}
		return int16sToBytes(samples), nil
	default:
		return nil, fmt.Errorf("remote: unknown codec tag 0x%02x", tag)
	}
}

// int16sToBytes converts int16 PCM samples to little-endian bytes.
func int16sToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
