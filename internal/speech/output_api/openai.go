package output_api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bz888/leanne/internal/api/server/client"
	"github.com/bz888/leanne/internal/logger"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	DefaultModel = "tts-1"
	DefaultVoice = "alloy"

	// maxAudioBody bounds a synthesized reply.
	maxAudioBody = 64 << 20
)

var ErrInvalidAudio = errors.New("speech response is not a valid wav file")

// Synthesizer turns text into PCM through the OpenAI audio/speech endpoint.
type Synthesizer struct {
	client *client.OpenAIClient
	model  string
	voice  string
	log    *logger.Logger
}

func NewSynthesizer(c *client.OpenAIClient, model, voice string) *Synthesizer {
	if model == "" {
		model = DefaultModel
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &Synthesizer{
		client: c,
		model:  model,
		voice:  voice,
		log:    logger.NewLogger("speech synthesis"),
	}
}

// Synthesize requests text spoken at rate and returns the decoded samples.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, rate float64) (*audio.IntBuffer, error) {
	apiKey, err := s.client.APIKey()
	if err != nil {
		return nil, err
	}

	bts, err := json.Marshal(client.SpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: "wav",
		Speed:          rate,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal speech request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.GetSpeechURL(), bytes.NewReader(bts))
	if err != nil {
		return nil, fmt.Errorf("build speech request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+apiKey)

	response, err := s.client.HTTPClient().Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", client.ErrCanceled, context.Cause(ctx))
		}
		return nil, &client.TransportError{Err: err}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxAudioBody))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", client.ErrCanceled, context.Cause(ctx))
		}
		return nil, &client.TransportError{StatusCode: response.StatusCode, Err: err}
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		apiErr := client.ErrorFromResponse(response.StatusCode, body)
		s.log.Error("Received error response:", apiErr)
		return nil, apiErr
	}

	buf, err := decodeWAV(body)
	if err != nil {
		return nil, err
	}
	s.log.Info("Synthesized", len(buf.Data), "samples at", buf.Format.SampleRate, "Hz")
	return buf, nil
}

func decodeWAV(data []byte) (*audio.IntBuffer, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, ErrInvalidAudio
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	return buf, nil
}
