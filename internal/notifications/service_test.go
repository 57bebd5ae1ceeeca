package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"redub/internal/config"
	"redub/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyItemCompleted(context.Background(), "Example", "/out/example.mp4", false); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsMessages(t *testing.T) {
	type received struct {
		title    string
		tags     string
		priority string
		body     string
	}
	var got received
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = received{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyItemCompleted(context.Background(), "Street food tour", "/out/tour.mp4", true); err != nil {
		t.Fatalf("NotifyItemCompleted: %v", err)
	}
	if got.title != "Redub - Complete" {
		t.Errorf("title = %q", got.title)
	}
	if got.body != "Localized: Street food tour (fallback renderer)\nFile: /out/tour.mp4" {
		t.Errorf("body = %q", got.body)
	}
	if got.tags != "redub,item,completed" {
		t.Errorf("tags = %q", got.tags)
	}

	if err := svc.NotifyItemFailed(context.Background(), "Broken clip", errors.New("no speech recognized")); err != nil {
		t.Fatalf("NotifyItemFailed: %v", err)
	}
	if got.priority != "high" {
		t.Errorf("priority = %q, want high for failures", got.priority)
	}
	if got.body != "Failed: Broken clip\nno speech recognized" {
		t.Errorf("body = %q", got.body)
	}

	if err := svc.NotifyQueueCompleted(context.Background(), 3, 1, 90*time.Second); err != nil {
		t.Fatalf("NotifyQueueCompleted: %v", err)
	}
	if got.title != "Redub - Queue Complete (with errors)" {
		t.Errorf("title = %q", got.title)
	}
	if got.body != "Queue processing complete: 3 succeeded, 1 failed in 1m30s" {
		t.Errorf("body = %q", got.body)
	}
}

func TestNtfyServiceSurfacesHTTPFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
