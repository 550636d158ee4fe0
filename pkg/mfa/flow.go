package mfa

import "log/slog"

// Outcome classifies the result of a flow phase.
type Outcome string

const (
	// OutcomeSucceeded finishes the attempt with access granted.
	OutcomeSucceeded Outcome = "succeeded"

	// OutcomeCancelled finishes the attempt because the user cancelled it.
	// Distinct from failure: no retry, immediate exit.
	OutcomeCancelled Outcome = "cancelled"

	// OutcomePending re-renders the second-factor form for another round
	// trip. After an evaluate turn this carries the invalid-credentials
	// classification; the surrounding flow decides whether retries remain.
	OutcomePending Outcome = "pending"
)

// Decision is the terminal result of one flow phase invocation. Render is set
// only for OutcomePending.
type Decision struct {
	Outcome Outcome
	Render  *RenderState
}

// User is the already-authenticated subject of the attempt, as supplied by
// the primary credential check.
type User struct {
	Username string
	Groups   []string
}

// FlowService drives the challenge-response exchange with the authentication
// backend. The service itself is stateless; all mutable attempt state lives
// in the NoteStore passed to each phase.
type FlowService struct {
	backend Backend
}

// NewFlowService creates a FlowService on top of the given backend.
func NewFlowService(backend Backend) *FlowService {
	return &FlowService{backend: backend}
}

// debugLog emits a diagnostic record when the config enables logging.
func debugLog(cfg Config, msg string, args ...any) {
	if cfg.DoLog {
		slog.Info(msg, args...)
	}
}
