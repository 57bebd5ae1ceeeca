package queue_test

import (
	"context"
	"testing"

	"redub/internal/queue"
	"redub/internal/testsupport"
)

func TestNewItemAssignsDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewItem(ctx, "/media/Holiday Clip.mp4", queue.MediaVideo)
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.RunID == "" {
		t.Fatal("expected run ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", item.Status)
	}
	if item.Title != "Holiday Clip" {
		t.Fatalf("title = %q, want inferred from path", item.Title)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.SourcePath != item.SourcePath || fetched.Kind != queue.MediaVideo {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
}

func TestNextPendingClaimsOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewItem(t, store, "/media/a.png", queue.MediaImage)
	testsupport.NewItem(t, store, "/media/b.png", queue.MediaImage)

	claimed, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("expected oldest item claimed, got %#v", claimed)
	}
	if claimed.Status != queue.StatusProcessing {
		t.Fatalf("claimed status = %s, want processing", claimed.Status)
	}

	// The claimed item must not be handed out twice.
	second, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if second == nil || second.ID == first.ID {
		t.Fatalf("expected second item, got %#v", second)
	}

	third, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if third != nil {
		t.Fatalf("expected empty queue, got %#v", third)
	}
}

func TestUpdateRoundTripsWarnings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewItem(t, store, "/media/clip.mp4", queue.MediaVideo)
	item.Status = queue.StatusCompleted
	item.OutputPath = "/out/clip_dubbed.mp4"
	item.UsedFallback = true
	item.CostEstimate = 1.25
	item.AddWarning("3 segments failed synthesis")
	item.AddWarning("  ")
	item.AddWarning("1 segment capped at 1.5x speed")

	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusCompleted || !fetched.UsedFallback {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
	if fetched.CostEstimate != 1.25 {
		t.Fatalf("cost estimate = %v, want 1.25", fetched.CostEstimate)
	}
	if len(fetched.Warnings) != 2 {
		t.Fatalf("warnings = %#v, want 2 non-blank entries", fetched.Warnings)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewItem(t, store, "/media/a.png", queue.MediaImage)
	if _, err := store.NextPending(ctx); err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}

	claimed, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected reclaimed item to be pending again")
	}
}

func TestRetryClearsErrorState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewItem(t, store, "/media/a.png", queue.MediaImage)
	item.SetFailed("edit service rejected image")
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := store.Retry(ctx, item.ID); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusPending || fetched.ErrorMessage != "" {
		t.Fatalf("unexpected item after retry: %#v", fetched)
	}

	// Completed items are not retryable.
	fetched.Status = queue.StatusCompleted
	if err := store.Update(ctx, fetched); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Retry(ctx, item.ID); err == nil {
		t.Fatal("expected error retrying completed item")
	}
}

func TestClearFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewItem(t, store, "/media/a.png", queue.MediaImage)
	failed := testsupport.NewItem(t, store, "/media/b.png", queue.MediaImage)
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	removed, err := store.Clear(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].Status != queue.StatusPending {
		t.Fatalf("unexpected remaining items: %#v", items)
	}
}

func TestCompletedVideoCountIgnoresImages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	video := testsupport.NewItem(t, store, "/media/a.mp4", queue.MediaVideo)
	image := testsupport.NewItem(t, store, "/media/b.png", queue.MediaImage)
	for _, item := range []*queue.Item{video, image} {
		item.Status = queue.StatusCompleted
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	count, err := store.CompletedVideoCount(ctx)
	if err != nil {
		t.Fatalf("CompletedVideoCount failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestHealthAggregatesCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewItem(t, store, "/media/a.png", queue.MediaImage)
	reviewItem := testsupport.NewItem(t, store, "/media/b.png", queue.MediaImage)
	reviewItem.SetReview("needs operator")
	if err := store.Update(ctx, reviewItem); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if summary.Total != 2 || summary.Pending != 1 || summary.Review != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}
