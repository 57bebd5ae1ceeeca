// Package ocr calls a document-text-detection service and returns
// paragraph-level text regions in image pixel coordinates.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Region is one detected paragraph of text with its pixel bounding box.
type Region struct {
	Text   string `json:"text"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Config captures the runtime settings for the OCR service.
type Config struct {
	Endpoint       string
	APIKey         string
	TimeoutSeconds int
}

// Client talks to the OCR endpoint.
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

// NewClient constructs an OCR client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			Endpoint:       strings.TrimSpace(cfg.Endpoint),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type detectRequest struct {
	Image       string `json:"image"`
	Granularity string `json:"granularity"`
}

type detectResponse struct {
	Regions []struct {
		Text        string `json:"text"`
		BoundingBox struct {
			X      int `json:"x"`
			Y      int `json:"y"`
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"bounding_box"`
	} `json:"regions"`
	Error string `json:"error"`
}

// DetectRegions runs paragraph-level text detection over the image at path.
// An image with no text yields an empty slice, not an error.
func (c *Client) DetectRegions(ctx context.Context, imagePath string) ([]Region, error) {
	if c.cfg.Endpoint == "" {
		return nil, errors.New("ocr detect: endpoint not configured")
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("ocr detect: read image: %w", err)
	}

	body, err := json.Marshal(detectRequest{
		Image:       base64.StdEncoding.EncodeToString(data),
		Granularity: "paragraph",
	})
	if err != nil {
		return nil, fmt.Errorf("ocr detect: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ocr detect: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr detect: http error: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ocr detect: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr detect: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded detectResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("ocr detect: decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("ocr detect: service error: %s", decoded.Error)
	}

	regions := make([]Region, 0, len(decoded.Regions))
	for _, r := range decoded.Regions {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		regions = append(regions, Region{
			Text:   text,
			X:      r.BoundingBox.X,
			Y:      r.BoundingBox.Y,
			Width:  r.BoundingBox.Width,
			Height: r.BoundingBox.Height,
		})
	}
	return regions, nil
}
