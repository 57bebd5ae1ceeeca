package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"redub/internal/logging"
	"redub/internal/queue"
	"redub/internal/services"
	"redub/internal/stage"
	"redub/internal/testsupport"
)

type stubHandler struct {
	name       string
	prepareErr error
	execErr    error
	executed   int
	onExecute  func(item *queue.Item)
}

func (s *stubHandler) Prepare(ctx context.Context, item *queue.Item) error {
	return s.prepareErr
}

func (s *stubHandler) Execute(ctx context.Context, item *queue.Item) error {
	s.executed++
	if s.onExecute != nil {
		s.onExecute(item)
	}
	return s.execErr
}

func (s *stubHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(s.name)
}

type recordingNotifier struct {
	mu        sync.Mutex
	started   []string
	completed []string
	failed    []string
	queueRuns int
}

func (r *recordingNotifier) NotifyItemStarted(_ context.Context, title, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, title)
	return nil
}

func (r *recordingNotifier) NotifyItemCompleted(_ context.Context, title, _ string, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, title)
	return nil
}

func (r *recordingNotifier) NotifyItemFailed(_ context.Context, title string, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, title)
	return nil
}

func (r *recordingNotifier) NotifyQueueStarted(context.Context, int) error { return nil }

func (r *recordingNotifier) NotifyQueueCompleted(_ context.Context, _, _ int, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queueRuns++
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func newTestManager(t *testing.T) (*Manager, *queue.Store, *recordingNotifier) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	manager := NewManager(cfg, store, logging.NewNop(), WithNotifier(notifier), WithoutPreflight())
	return manager, store, notifier
}

func TestRunDrainsQueue(t *testing.T) {
	manager, store, notifier := newTestManager(t)
	handler := &stubHandler{name: "images", onExecute: func(item *queue.Item) {
		item.OutputPath = item.SourcePath + ".out"
		item.CostEstimate = 0.01
	}}
	manager.RegisterHandler(queue.MediaImage, handler)

	testsupport.NewItem(t, store, "/media/a.png", queue.MediaImage)
	testsupport.NewItem(t, store, "/media/b.png", queue.MediaImage)

	summary, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if handler.executed != 2 {
		t.Fatalf("expected 2 executions, got %d", handler.executed)
	}

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, item := range items {
		if item.Status != queue.StatusCompleted {
			t.Fatalf("item %d status = %s, want completed", item.ID, item.Status)
		}
		if item.OutputPath == "" {
			t.Fatalf("item %d missing output path", item.ID)
		}
	}
	if len(notifier.completed) != 2 {
		t.Fatalf("expected 2 completion notifications, got %d", len(notifier.completed))
	}
	if notifier.queueRuns != 1 {
		t.Fatalf("expected 1 queue completion notification, got %d", notifier.queueRuns)
	}
}

func TestRunClassifiesFailures(t *testing.T) {
	manager, store, notifier := newTestManager(t)
	validationErr := services.Wrap(services.ErrValidation, "image", "prepare", "missing source", nil)
	manager.RegisterHandler(queue.MediaImage, &stubHandler{name: "images", prepareErr: validationErr})
	manager.RegisterHandler(queue.MediaVideo, &stubHandler{name: "videos", execErr: errors.New("remux exploded")})

	reviewItem := testsupport.NewItem(t, store, "/media/missing.png", queue.MediaImage)
	failedItem := testsupport.NewItem(t, store, "/media/clip.mp4", queue.MediaVideo)

	summary, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 2 || summary.Failed != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	got, err := store.GetByID(context.Background(), reviewItem.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusReview {
		t.Fatalf("validation failure status = %s, want review", got.Status)
	}
	if got.ReviewReason == "" {
		t.Fatal("expected review reason")
	}

	got, err = store.GetByID(context.Background(), failedItem.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusFailed {
		t.Fatalf("transient failure status = %s, want failed", got.Status)
	}
	if len(notifier.failed) != 2 {
		t.Fatalf("expected 2 failure notifications, got %d", len(notifier.failed))
	}
}

func TestRunVideoCapDefersExcessVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithVideoCap(1))
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	manager := NewManager(cfg, store, logging.NewNop(), WithNotifier(notifier), WithoutPreflight())
	manager.RegisterHandler(queue.MediaImage, &stubHandler{name: "images"})
	manager.RegisterHandler(queue.MediaVideo, &stubHandler{name: "videos"})

	testsupport.NewItem(t, store, "/media/one.mp4", queue.MediaVideo)
	deferredItem := testsupport.NewItem(t, store, "/media/two.mp4", queue.MediaVideo)
	testsupport.NewItem(t, store, "/media/pic.png", queue.MediaImage)

	summary, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("processed = %d, want 2", summary.Processed)
	}
	if summary.Deferred != 1 {
		t.Fatalf("deferred = %d, want 1", summary.Deferred)
	}

	got, err := store.GetByID(context.Background(), deferredItem.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusPending {
		t.Fatalf("deferred video status = %s, want pending", got.Status)
	}
}

func TestRunFailsItemWithoutHandler(t *testing.T) {
	manager, store, _ := newTestManager(t)
	manager.RegisterHandler(queue.MediaImage, &stubHandler{name: "images"})

	item := testsupport.NewItem(t, store, "/media/clip.mp4", queue.MediaVideo)

	if _, err := manager.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Fatal("expected error message naming the missing handler")
	}
}

func TestRunLeavesItemProcessingOnCancel(t *testing.T) {
	manager, store, _ := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	manager.RegisterHandler(queue.MediaImage, &stubHandler{name: "images", onExecute: func(*queue.Item) {
		cancel()
	}, execErr: context.Canceled})

	item := testsupport.NewItem(t, store, "/media/a.png", queue.MediaImage)

	if _, err := manager.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v, want context.Canceled", err)
	}

	got, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusProcessing {
		t.Fatalf("status = %s, want processing for startup reclaim", got.Status)
	}
}

func TestWatchProcessesThenStopsOnCancel(t *testing.T) {
	manager, store, _ := newTestManager(t)
	manager.pollInterval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	handler := &stubHandler{name: "images", onExecute: func(*queue.Item) {
		cancel()
	}}
	manager.RegisterHandler(queue.MediaImage, handler)

	item := testsupport.NewItem(t, store, "/media/a.png", queue.MediaImage)

	if err := manager.Watch(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Watch err = %v, want context.Canceled", err)
	}
	if handler.executed != 1 {
		t.Fatalf("executed = %d, want 1", handler.executed)
	}

	got, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
}

func TestManagerHealth(t *testing.T) {
	manager, _, _ := newTestManager(t)
	manager.RegisterHandler(queue.MediaImage, &stubHandler{name: "images"})
	manager.RegisterHandler(queue.MediaVideo, &stubHandler{name: "videos"})

	health := manager.Health(context.Background())
	if len(health) != 2 {
		t.Fatalf("expected 2 health records, got %d", len(health))
	}
	for _, record := range health {
		if !record.Ready {
			t.Fatalf("%s not ready: %s", record.Name, record.Detail)
		}
	}
}
