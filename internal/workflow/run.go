package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"redub/internal/logging"
	"redub/internal/preflight"
	"redub/internal/queue"
	"redub/internal/services"
	"redub/internal/stage"
)

// RunSummary reports the outcome of a queue drain.
type RunSummary struct {
	Processed int
	Failed    int
	Deferred  int
	Duration  time.Duration
}

// Run drains the queue: it claims pending items oldest first and processes
// each to a terminal status, returning when no pending work remains or the
// context is canceled. Videos beyond the configured cap are left pending
// for a later run.
func (m *Manager) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()

	if !m.skipPreflight {
		if err := m.runPreflight(ctx); err != nil {
			return nil, err
		}
	}

	reclaimed, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		return nil, fmt.Errorf("reclaim stuck items: %w", err)
	}
	if reclaimed > 0 {
		m.logger.Warn("reclaimed orphaned in-flight items", logging.Int64("count", reclaimed))
	}

	health, err := m.store.Health(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue health: %w", err)
	}
	if health.Pending > 0 {
		if err := m.notifier.NotifyQueueStarted(ctx, health.Pending); err != nil {
			m.logger.Warn("queue start notification failed", logging.Error(err))
		}
	}

	summary := &RunSummary{}
	videosDone := 0
	var deferred []*queue.Item

	for {
		if err := ctx.Err(); err != nil {
			m.restoreDeferred(deferred)
			return summary, err
		}

		item, err := m.store.NextPending(ctx)
		if err != nil {
			m.restoreDeferred(deferred)
			return summary, fmt.Errorf("claim next item: %w", err)
		}
		if item == nil {
			break
		}

		if item.Kind == queue.MediaVideo && m.videoCapReached(videosDone) {
			m.logger.Info("video cap reached, deferring item",
				logging.Int64("item_id", item.ID),
				logging.Int("cap", m.cfg.Workflow.VideoCap))
			deferred = append(deferred, item)
			continue
		}

		completed, err := m.processItem(ctx, item)
		if errors.Is(err, context.Canceled) {
			m.restoreDeferred(deferred)
			return summary, err
		}
		summary.Processed++
		if !completed {
			summary.Failed++
		}
		if completed && item.Kind == queue.MediaVideo {
			videosDone++
		}
	}

	m.restoreDeferred(deferred)
	summary.Deferred = len(deferred)
	summary.Duration = time.Since(start)

	if summary.Processed > 0 {
		if err := m.notifier.NotifyQueueCompleted(ctx, summary.Processed, summary.Failed, summary.Duration); err != nil {
			m.logger.Warn("queue completion notification failed", logging.Error(err))
		}
	}
	m.logger.Info("queue drained",
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Int("deferred", summary.Deferred),
		logging.Duration("duration", summary.Duration))
	return summary, nil
}

// Watch drains the queue, then keeps polling for new work at the configured
// interval until the context is canceled. Preflight runs once up front, not
// per poll.
func (m *Manager) Watch(ctx context.Context) error {
	if !m.skipPreflight {
		if err := m.runPreflight(ctx); err != nil {
			return err
		}
		m.skipPreflight = true
	}
	for {
		if _, err := m.Run(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

func (m *Manager) runPreflight(ctx context.Context) error {
	results := preflight.RunAll(ctx, m.cfg)
	var failures []string
	for _, result := range results {
		if result.Passed {
			continue
		}
		failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		m.logger.Error("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}
	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "workflow", "preflight",
			strings.Join(failures, "; "), nil)
	}
	return nil
}

// processItem runs one item to a terminal status. The bool reports whether
// the item completed; handler failures are persisted, not returned.
func (m *Manager) processItem(ctx context.Context, item *queue.Item) (bool, error) {
	itemLogger := m.logger.With(
		logging.Int64("item_id", item.ID),
		logging.String("kind", string(item.Kind)),
		logging.String("title", item.Title))
	itemCtx := services.WithItemID(ctx, item.ID)
	itemCtx = services.WithStage(itemCtx, string(item.Kind))

	handler, ok := m.handlers[item.Kind]
	if !ok {
		item.SetFailed(fmt.Sprintf("no handler registered for kind %q", item.Kind))
		return false, m.persist(ctx, item, itemLogger)
	}

	if err := m.notifier.NotifyItemStarted(itemCtx, item.Title, string(item.Kind)); err != nil {
		itemLogger.Warn("item start notification failed", logging.Error(err))
	}
	itemLogger.Info("item started", logging.String("source", item.SourcePath))
	itemStart := time.Now()

	execErr := runHandler(itemCtx, handler, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			// Leave the item processing; the next run reclaims it.
			return false, execErr
		}
		m.recordFailure(itemCtx, item, execErr, itemLogger)
		return false, m.persist(ctx, item, itemLogger)
	}

	item.Status = queue.StatusCompleted
	if err := m.persist(ctx, item, itemLogger); err != nil {
		return false, err
	}
	itemLogger.Info("item completed",
		logging.String("output", item.OutputPath),
		logging.Bool("used_fallback", item.UsedFallback),
		logging.Float64("cost_estimate", item.CostEstimate),
		logging.Duration("duration", time.Since(itemStart)))
	if err := m.notifier.NotifyItemCompleted(itemCtx, item.Title, item.OutputPath, item.UsedFallback); err != nil {
		itemLogger.Warn("item completion notification failed", logging.Error(err))
	}
	return true, nil
}

func runHandler(ctx context.Context, handler stage.Handler, item *queue.Item) error {
	if err := handler.Prepare(ctx, item); err != nil {
		return err
	}
	return handler.Execute(ctx, item)
}

func (m *Manager) recordFailure(ctx context.Context, item *queue.Item, execErr error, itemLogger *slog.Logger) {
	status := services.FailureStatus(execErr)
	if status == queue.StatusReview {
		item.SetReview(execErr.Error())
	} else {
		item.SetFailed(execErr.Error())
	}
	itemLogger.Error("item failed",
		logging.Error(execErr),
		logging.String("status", string(item.Status)))
	if err := m.notifier.NotifyItemFailed(ctx, item.Title, execErr); err != nil {
		itemLogger.Warn("item failure notification failed", logging.Error(err))
	}
}

func (m *Manager) persist(ctx context.Context, item *queue.Item, itemLogger *slog.Logger) error {
	if err := m.store.Update(ctx, item); err != nil {
		itemLogger.Error("failed to persist item state", logging.Error(err))
		return fmt.Errorf("persist item %d: %w", item.ID, err)
	}
	return nil
}

func (m *Manager) videoCapReached(videosDone int) bool {
	limit := m.cfg.Workflow.VideoCap
	return limit > 0 && videosDone >= limit
}

// restoreDeferred returns cap-deferred items to pending so a later run
// picks them up. Best effort on shutdown paths.
func (m *Manager) restoreDeferred(items []*queue.Item) {
	if len(items) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, item := range items {
		item.Status = queue.StatusPending
		if err := m.store.Update(ctx, item); err != nil {
			m.logger.Error("failed to restore deferred item",
				logging.Int64("item_id", item.ID), logging.Error(err))
		}
	}
}
