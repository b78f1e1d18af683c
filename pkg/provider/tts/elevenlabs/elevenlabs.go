// Package elevenlabs provides an ElevenLabs-backed synthesizer using the
// ElevenLabs REST API. It implements the tts.Synthesizer interface.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vipul-sharma20/AI-voice-assistant/pkg/audio"
	"github.com/vipul-sharma20/AI-voice-assistant/pkg/provider/tts"
)

const (
	defaultModel   = "eleven_flash_v2_5"
	defaultTimeout = 30 * time.Second

	// defaultOutputFmt requests raw 16-bit little-endian PCM at 16 kHz, which
	// needs no container parsing on our side.
	defaultOutputFmt = "pcm_16000"
	outputSampleRate = 16000
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// Option is a functional option for configuring the ElevenLabs Synthesizer.
type Option func(*Synthesizer)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(s *Synthesizer) {
		s.model = model
	}
}

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(base string) Option {
	return func(s *Synthesizer) {
		s.baseURL = strings.TrimRight(base, "/")
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		s.httpClient.Timeout = d
	}
}

// Synthesizer implements tts.Synthesizer backed by the ElevenLabs API.
type Synthesizer struct {
	apiKey     string
	voiceID    string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a new ElevenLabs Synthesizer. apiKey and voiceID must be
// non-empty.
func New(apiKey, voiceID string, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	if voiceID == "" {
		return nil, errors.New("elevenlabs: voiceID must not be empty")
	}
	s := &Synthesizer{
		apiKey:     apiKey,
		voiceID:    voiceID,
		model:      defaultModel,
		baseURL:    "https://api.elevenlabs.io",
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// ttsBody is the JSON payload sent to the text-to-speech endpoint.
type ttsBody struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize performs one text-to-speech request. The response body is raw
// 16-bit PCM at 16 kHz because of the pcm_16000 output format. API failures
// wrap tts.ErrUnavailable; a cancelled ctx returns ctx.Err().
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (tts.Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return tts.Clip{}, nil
	}

	body, err := json.Marshal(ttsBody{
		Text:    text,
		ModelID: s.model,
		VoiceSettings: &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return tts.Clip{}, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", s.baseURL, s.voiceID, defaultOutputFmt)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return tts.Clip{}, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return tts.Clip{}, ctx.Err()
		}
		return tts.Clip{}, fmt.Errorf("elevenlabs: http request: %w: %w", tts.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tts.Clip{}, fmt.Errorf("elevenlabs: unexpected status %d: %w", resp.StatusCode, tts.ErrUnavailable)
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return tts.Clip{}, fmt.Errorf("elevenlabs: read response: %w", err)
	}

	return tts.Clip{
		PCM:    pcm,
		Format: audio.Format{SampleRate: outputSampleRate, Channels: 1},
	}, nil
}
