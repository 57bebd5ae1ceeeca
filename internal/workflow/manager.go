package workflow

import (
	"context"
	"log/slog"
	"time"

	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/notifications"
	"redub/internal/queue"
	"redub/internal/stage"
)

// Manager coordinates queue processing using registered per-kind handlers.
type Manager struct {
	cfg           *config.Config
	store         *queue.Store
	logger        *slog.Logger
	notifier      notifications.Service
	handlers      map[queue.MediaKind]stage.Handler
	pollInterval  time.Duration
	skipPreflight bool
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier overrides the notification service (used in tests).
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) { m.notifier = notifier }
}

// WithoutPreflight skips the startup readiness checks (used in tests).
func WithoutPreflight() ManagerOption {
	return func(m *Manager) { m.skipPreflight = true }
}

// NewManager constructs a workflow manager. Handlers for the media kinds
// must be registered before Run is called; see DefaultHandlers.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := time.Duration(cfg.Workflow.PollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	m := &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		notifier:     notifications.NewService(cfg),
		handlers:     make(map[queue.MediaKind]stage.Handler),
		pollInterval: interval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterHandler binds a handler to a media kind, replacing any previous one.
func (m *Manager) RegisterHandler(kind queue.MediaKind, handler stage.Handler) {
	m.handlers[kind] = handler
}

// Health reports the readiness of every registered handler.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	results := make([]stage.Health, 0, len(m.handlers))
	for _, kind := range []queue.MediaKind{queue.MediaImage, queue.MediaVideo} {
		handler, ok := m.handlers[kind]
		if !ok {
			continue
		}
		results = append(results, handler.HealthCheck(ctx))
	}
	return results
}
