package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusReview     Status = "review"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// MediaKind distinguishes the two pipeline types an item can run through.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// ParseMediaKind converts a string into a known MediaKind.
func ParseMediaKind(value string) (MediaKind, bool) {
	normalized := MediaKind(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case MediaImage, MediaVideo:
		return normalized, true
	}
	return "", false
}

// Item represents a queue item persisted in SQLite.
type Item struct {
	ID           int64
	RunID        string
	SourcePath   string
	Title        string
	Kind         MediaKind
	Status       Status
	OutputPath   string
	UsedFallback bool
	CostEstimate float64
	Warnings     []string
	ErrorMessage string
	ReviewReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Review     int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight run.
func (i Item) IsProcessing() bool {
	return i.Status == StatusProcessing
}

// AddWarning appends a warning to the item, skipping blank entries.
func (i *Item) AddWarning(warning string) {
	warning = strings.TrimSpace(warning)
	if warning == "" {
		return
	}
	i.Warnings = append(i.Warnings, warning)
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
}

// SetReview marks the item as needing operator attention.
func (i *Item) SetReview(reason string) {
	i.Status = StatusReview
	i.ReviewReason = reason
	i.ErrorMessage = reason
}
