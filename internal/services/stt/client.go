// Package stt calls a Whisper-compatible speech-to-text API and returns
// segment-level transcripts. Transient and server-side failures are retried
// with exponential backoff; request-validation failures are surfaced
// immediately because retrying cannot fix a bad upload.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultTimeout       = 5 * time.Minute
	defaultRetryAttempts = 3
	defaultMaxUploadMB   = 25
	retryBaseDelay       = 2 * time.Second
	retryMaxDelay        = 30 * time.Second
)

// ErrUploadTooLarge reports an audio file over the provider's size limit.
var ErrUploadTooLarge = errors.New("audio upload exceeds size limit")

// ErrBadRequest reports a request the provider rejected as invalid.
var ErrBadRequest = errors.New("transcription request rejected")

// Segment is one contiguous span of recognized speech.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the full recognition result for one audio file.
type Transcript struct {
	Text     string
	Segments []Segment
}

// Config captures the runtime settings for the transcription service.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxUploadMB    int
	TimeoutSeconds int
	RetryAttempts  int
}

// Client talks to the transcription endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    func(time.Duration)
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

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a transcription client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			MaxUploadMB:    cfg.MaxUploadMB,
			TimeoutSeconds: cfg.TimeoutSeconds,
			RetryAttempts:  cfg.RetryAttempts,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	if client.cfg.MaxUploadMB <= 0 {
		client.cfg.MaxUploadMB = defaultMaxUploadMB
	}
	if client.cfg.RetryAttempts <= 0 {
		client.cfg.RetryAttempts = defaultRetryAttempts
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type verboseTranscription struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe uploads the audio file and returns segment-level transcripts.
// languageHint is an ISO 639-1 code; empty lets the provider auto-detect.
func (c *Client) Transcribe(ctx context.Context, audioPath, languageHint string) (*Transcript, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("transcribe: api key required")
	}
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: stat audio: %w", err)
	}
	if maxBytes := int64(c.cfg.MaxUploadMB) << 20; info.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %dMB)", ErrUploadTooLarge, info.Size(), c.cfg.MaxUploadMB)
	}
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: read audio: %w", err)
	}

	body, contentType, err := c.buildForm(filepath.Base(audioPath), audio, languageHint)
	if err != nil {
		return nil, err
	}

	attempts := c.cfg.RetryAttempts
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		transcript, err := c.sendOnce(ctx, body, contentType)
		if err == nil {
			return transcript, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == attempts || ctx.Err() != nil {
			return nil, err
		}
		if err := c.sleep(ctx, backoffDelay(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("transcribe: failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) buildForm(filename string, audio []byte, languageHint string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("transcribe: build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("transcribe: build form: %w", err)
	}
	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
	}
	if hint := strings.TrimSpace(languageHint); hint != "" {
		fields = append(fields, [2]string{"language", hint})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("transcribe: build form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("transcribe: build form: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func (c *Client) sendOnce(ctx context.Context, body []byte, contentType string) (*Transcript, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1", "audio", "transcriptions")
	if err != nil {
		return nil, fmt.Errorf("transcribe: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transcribe: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: err}
	}
	if resp.StatusCode != http.StatusOK {
		detail := strings.TrimSpace(string(payload))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusTooManyRequests &&
			resp.StatusCode != http.StatusRequestTimeout {
			return nil, fmt.Errorf("%w: http %d: %s", ErrBadRequest, resp.StatusCode, detail)
		}
		return nil, &serverError{status: resp.StatusCode, detail: detail}
	}

	var decoded verboseTranscription
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("transcribe: decode response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("transcribe: api error: %s", decoded.Error.Message)
	}

	segments := make([]Segment, 0, len(decoded.Segments))
	for _, seg := range decoded.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.End <= seg.Start {
			continue
		}
		segments = append(segments, Segment{Text: text, Start: seg.Start, End: seg.End})
	}
	return &Transcript{Text: strings.TrimSpace(decoded.Text), Segments: segments}, nil
}

type transportError struct{ err error }

func (e *transportError) Error() string { return "transcribe: http error: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

type serverError struct {
	status int
	detail string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("transcribe: http %d: %s", e.status, e.detail)
}

func isRetryable(err error) bool {
	var tErr *transportError
	if errors.As(err, &tErr) {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	var sErr *serverError
	return errors.As(err, &sErr)
}

func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
