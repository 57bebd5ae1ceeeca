package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeTempImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp image: %v", err)
	}
	return path
}

func TestDetectRegions(t *testing.T) {
	imageData := []byte{0xff, 0xd8, 0xff}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req detectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Granularity != "paragraph" {
			t.Errorf("granularity = %q", req.Granularity)
		}
		decoded, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil || len(decoded) != len(imageData) {
			t.Errorf("image payload mismatch: %v", err)
		}
		if _, err := w.Write([]byte(`{
			"regions": [
				{"text": "Top caption", "bounding_box": {"x": 10, "y": 20, "width": 300, "height": 60}},
				{"text": "   ", "bounding_box": {"x": 0, "y": 0, "width": 5, "height": 5}},
				{"text": "Bottom caption", "bounding_box": {"x": 10, "y": 400, "width": 280, "height": 50}}
			]
		}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL, APIKey: "key"})
	regions, err := client.DetectRegions(context.Background(), writeTempImage(t, imageData))
	if err != nil {
		t.Fatalf("DetectRegions: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("regions = %d, want 2 (blank text dropped)", len(regions))
	}
	if regions[0].Text != "Top caption" || regions[0].Width != 300 {
		t.Fatalf("first region = %+v", regions[0])
	}
}

func TestDetectRegionsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "detection backend down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	if _, err := client.DetectRegions(context.Background(), writeTempImage(t, []byte{1})); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestDetectRegionsMissingImage(t *testing.T) {
	client := NewClient(Config{Endpoint: "http://127.0.0.1:0"})
	if _, err := client.DetectRegions(context.Background(), filepath.Join(t.TempDir(), "absent.jpg")); err == nil {
		t.Fatal("expected error for missing image")
	}
}
