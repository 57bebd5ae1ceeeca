// Package tts calls an ElevenLabs-compatible text-to-speech API and streams
// the synthesized audio to a file. Call pacing is the caller's concern; this
// client performs exactly one request per synthesis.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultTimeout = 2 * time.Minute

// Config captures the runtime settings for speech synthesis.
type Config struct {
	APIKey         string
	BaseURL        string
	VoiceID        string
	Stability      float64
	Similarity     float64
	TimeoutSeconds int
}

// Client talks to the synthesis endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a synthesis client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			VoiceID:        strings.TrimSpace(cfg.VoiceID),
			Stability:      cfg.Stability,
			Similarity:     cfg.Similarity,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text to speech and writes the audio bytes to outputPath.
func (c *Client) Synthesize(ctx context.Context, text, outputPath string) error {
	if c.cfg.APIKey == "" {
		return errors.New("synthesize: api key required")
	}
	if c.cfg.VoiceID == "" {
		return errors.New("synthesize: voice id required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("synthesize: text required")
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1", "text-to-speech", c.cfg.VoiceID)
	if err != nil {
		return fmt.Errorf("synthesize: build url: %w", err)
	}
	body, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
		VoiceSettings: voiceSettings{
			Stability:       c.cfg.Stability,
			SimilarityBoost: c.cfg.Similarity,
		},
	})
	if err != nil {
		return fmt.Errorf("synthesize: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("synthesize: new request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("synthesize: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("synthesize: http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	tmpPath := outputPath + ".synth.tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("synthesize: create output: %w", err)
	}
	written, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("synthesize: write output: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("synthesize: close output: %w", err)
	}
	if written == 0 {
		os.Remove(tmpPath)
		return errors.New("synthesize: empty audio response")
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("synthesize: finalize output: %w", err)
	}
	return nil
}
