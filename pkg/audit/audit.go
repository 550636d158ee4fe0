// Package audit records the terminal outcome of authentication attempts.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Outcomes recorded per attempt.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Event is one recorded attempt outcome.
type Event struct {
	AttemptID  string
	Username   string
	Outcome    string
	Detail     string
	OccurredAt time.Time
}

// Recorder persists attempt outcomes.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// LogRecorder writes attempt outcomes to the default logger.
type LogRecorder struct{}

func (LogRecorder) Record(ctx context.Context, event Event) error {
	slog.Info("mfa attempt finished",
		"attemptID", event.AttemptID,
		"username", event.Username,
		"outcome", event.Outcome,
		"detail", event.Detail)
	return nil
}

// MemoryRecorder keeps events in memory, for tests.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *MemoryRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
