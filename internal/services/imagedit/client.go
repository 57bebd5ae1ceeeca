// Package imagedit calls a generative image-edit service. A request is
// submitted with the source image embedded, polled until the model finishes,
// and the resulting image is fetched from the returned temporary URL. These
// models take minutes, so the whole exchange runs under one long deadline.
package imagedit

import (
	"bytes"
	"context"
	"encoding/base64"
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

const (
	defaultTimeout      = 5 * time.Minute
	defaultPollInterval = 2 * time.Second
)

// ErrEditFailed reports that the service finished without producing an image.
var ErrEditFailed = errors.New("image edit failed")

// Config captures the runtime settings for the edit service.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client talks to the image-edit service.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	pollInterval time.Duration
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

// WithPollInterval overrides the delay between status polls.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// NewClient constructs an image-edit client.
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
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type submitRequest struct {
	Prompt       string `json:"prompt"`
	InputImage   string `json:"input_image"`
	OutputFormat string `json:"output_format"`
}

type submitResponse struct {
	ID         string `json:"id"`
	PollingURL string `json:"polling_url"`
	Detail     string `json:"detail"`
}

type pollResponse struct {
	Status string `json:"status"`
	Result struct {
		Sample string `json:"sample"`
	} `json:"result"`
	Detail string `json:"detail"`
}

// Edit submits the image with a natural-language instruction and writes the
// edited result to outputPath. It blocks until the service finishes or the
// context deadline expires.
func (c *Client) Edit(ctx context.Context, imagePath, instruction, outputPath string) error {
	if c.cfg.APIKey == "" {
		return errors.New("image edit: api key required")
	}
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return errors.New("image edit: instruction required")
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("image edit: read image: %w", err)
	}

	deadline := time.Duration(c.cfg.TimeoutSeconds) * time.Second
	if deadline <= 0 {
		deadline = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	pollingURL, requestID, err := c.submit(ctx, data, instruction)
	if err != nil {
		return err
	}
	sampleURL, err := c.waitForResult(ctx, pollingURL, requestID)
	if err != nil {
		return err
	}
	return c.download(ctx, sampleURL, outputPath)
}

func (c *Client) submit(ctx context.Context, image []byte, instruction string) (string, string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1", c.cfg.Model)
	if err != nil {
		return "", "", fmt.Errorf("image edit: build url: %w", err)
	}
	body, err := json.Marshal(submitRequest{
		Prompt:       instruction,
		InputImage:   base64.StdEncoding.EncodeToString(image),
		OutputFormat: "jpeg",
	})
	if err != nil {
		return "", "", fmt.Errorf("image edit: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("image edit: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("image edit: submit: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("image edit: read submit body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("image edit: submit http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded submitResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", "", fmt.Errorf("image edit: decode submit response: %w", err)
	}
	if decoded.PollingURL == "" {
		return "", "", fmt.Errorf("%w: no polling url (%s)", ErrEditFailed, strings.TrimSpace(decoded.Detail))
	}
	return decoded.PollingURL, decoded.ID, nil
}

func (c *Client) waitForResult(ctx context.Context, pollingURL, requestID string) (string, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.pollOnce(ctx, pollingURL, requestID)
		if err != nil {
			return "", err
		}
		switch strings.ToLower(status.Status) {
		case "ready":
			if status.Result.Sample == "" {
				return "", fmt.Errorf("%w: ready without sample url", ErrEditFailed)
			}
			return status.Result.Sample, nil
		case "pending", "queued", "processing", "running":
			// still working
		default:
			detail := strings.TrimSpace(status.Detail)
			if detail == "" {
				detail = status.Status
			}
			return "", fmt.Errorf("%w: %s", ErrEditFailed, detail)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("image edit: wait for result: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) pollOnce(ctx context.Context, pollingURL, requestID string) (pollResponse, error) {
	var decoded pollResponse
	target := pollingURL
	if requestID != "" {
		separator := "?"
		if strings.Contains(target, "?") {
			separator = "&"
		}
		target += separator + "id=" + url.QueryEscape(requestID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return decoded, fmt.Errorf("image edit: poll request: %w", err)
	}
	req.Header.Set("x-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decoded, fmt.Errorf("image edit: poll: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decoded, fmt.Errorf("image edit: read poll body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decoded, fmt.Errorf("image edit: poll http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return decoded, fmt.Errorf("image edit: decode poll response: %w", err)
	}
	return decoded, nil
}

func (c *Client) download(ctx context.Context, sampleURL, outputPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sampleURL, nil)
	if err != nil {
		return fmt.Errorf("image edit: download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("image edit: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image edit: download http %d", resp.StatusCode)
	}

	tmpPath := outputPath + ".download.tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("image edit: create output: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("image edit: write output: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("image edit: close output: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("image edit: finalize output: %w", err)
	}
	return nil
}
