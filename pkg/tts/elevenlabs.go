package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/visionaid/go-visionaid/internal/log"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs.
const (
	// ModelTurboV2_5 is the fastest English model.
	ModelTurboV2_5 = "eleven_turbo_v2_5"

	// ModelFlashV2_5 is the fastest multilingual model.
	ModelFlashV2_5 = "eleven_flash_v2_5"
)

// ElevenLabs implements Provider against the ElevenLabs HTTP API.
type ElevenLabs struct {
	config  *Config
	client  *http.Client
	baseURL string
}

var _ Provider = (*ElevenLabs)(nil)

// NewElevenLabs creates an ElevenLabs provider.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	return &ElevenLabs{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: baseURL,
	}, nil
}

// Synthesize converts text to a complete audio buffer.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	start := time.Now()

	payload, err := json.Marshal(map[string]interface{}{
		"text":     text,
		"model_id": e.config.ModelID,
	})
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("marshal payload: %w", err))
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", e.baseURL, e.config.VoiceID)
	resp, err := e.doWithRetry(ctx, url, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	latency := time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		return nil, e.parseError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("read response: %w", err))
	}

	log.Debug("synthesized alert audio",
		"chars", len(text), "bytes", len(audio), "latency_ms", latency)

	return &AudioResult{
		Audio:     audio,
		Format:    e.outputFormat(),
		CharCount: len(text),
		LatencyMs: latency,
		Duration:  e.estimateDuration(len(audio)),
	}, nil
}

// Health checks API connectivity and key validity.
func (e *ElevenLabs) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/user", nil)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return WrapError(providerElevenLabs, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return e.parseError(resp)
	}
	return nil
}

// Close releases idle connections.
func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// doWithRetry posts the payload, retrying on rate limits and server
// errors. The payload is kept as bytes so each attempt gets a fresh
// body.
func (e *ElevenLabs) doWithRetry(ctx context.Context, url string, payload []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, WrapError(providerElevenLabs, err)
		}
		req.Header.Set("xi-api-key", e.config.APIKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", e.formatToMIME())

		resp, err := e.client.Do(req)
		if err != nil {
			lastErr = WrapError(providerElevenLabs, err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = e.parseError(resp)
			log.Warn("retrying synthesis request",
				"attempt", attempt+1, "status", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError reads and parses an error response body.
func (e *ElevenLabs) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var errResp struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
		message = errResp.Detail.Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   providerElevenLabs,
	}
}

func (e *ElevenLabs) outputFormat() AudioFormat {
	return AudioFormat{
		Encoding:   e.config.OutputFormat,
		SampleRate: SampleRateFromEncoding(e.config.OutputFormat),
		Channels:   1,
		BitDepth:   16,
	}
}

func (e *ElevenLabs) formatToMIME() string {
	switch e.config.OutputFormat {
	case EncodingMP3:
		return "audio/mpeg"
	default:
		return "audio/pcm"
	}
}

// estimateDuration estimates playback time from the PCM16 byte count.
func (e *ElevenLabs) estimateDuration(byteLen int) time.Duration {
	sampleRate := SampleRateFromEncoding(e.config.OutputFormat)
	samples := byteLen / 2
	seconds := float64(samples) / float64(sampleRate)
	return time.Duration(seconds * float64(time.Second))
}
