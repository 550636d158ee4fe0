// Package api exposes the challenge-response flow over HTTP. The surrounding
// login service calls /mfa/begin once the primary factor succeeded and
// /mfa/submit for every second-factor form submission.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/audit"
	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/mfa"
	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/notes"
	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/tokengenerator"
)

type Handle struct {
	flow      *mfa.FlowService
	cfg       mfa.Config
	notesRepo notes.Repository
	tokens    *tokengenerator.AttemptTokenGenerator
	recorder  audit.Recorder
	jwtAuth   *jwtauth.JWTAuth
}

func NewHandle(flow *mfa.FlowService, cfg mfa.Config, notesRepo notes.Repository, tokens *tokengenerator.AttemptTokenGenerator, recorder audit.Recorder) Handle {
	return Handle{
		flow:      flow,
		cfg:       cfg,
		notesRepo: notesRepo,
		tokens:    tokens,
		recorder:  recorder,
		jwtAuth:   jwtauth.New("HS256", []byte(tokens.Secret), nil),
	}
}

// Routes mounts the flow endpoints on the router. The submit endpoint
// requires the attempt token minted by begin.
func (h Handle) Routes(r chi.Router) {
	r.Post("/mfa/begin", h.Begin)

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.jwtAuth))
		r.Use(jwtauth.Authenticator(h.jwtAuth))
		r.Post("/mfa/submit", h.Submit)
	})
}

// BeginRequest is sent by the login service once the primary factor
// succeeded. Password is the primary credential, forwarded to the backend
// only when configured.
type BeginRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password,omitempty"`
	Groups   []string `json:"groups,omitempty"`
}

// FlowResponse is the answer of both endpoints.
type FlowResponse struct {
	Status string `json:"status"`

	// AttemptToken authorizes subsequent submits; set while pending.
	AttemptToken string `json:"attempt_token,omitempty"`

	// Render holds the form state while the attempt is pending.
	Render *mfa.RenderState `json:"render,omitempty"`
}

// SubmitRequest carries one second-factor form submission.
type SubmitRequest struct {
	mfa.Form
}

// Begin runs the challenge initiator for a freshly authenticated user.
// (POST /mfa/begin)
func (h Handle) Begin(w http.ResponseWriter, r *http.Request) {
	var req BeginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Username == "" {
		http.Error(w, "unable to parse body", http.StatusBadRequest)
		return
	}

	attemptID := uuid.NewString()
	store := notes.ForAttempt(h.notesRepo, attemptID)
	user := mfa.User{Username: req.Username, Groups: req.Groups}

	decision, err := h.flow.Initiate(r.Context(), h.cfg, user, req.Password, r.Header.Get("Accept-Language"), store)
	if err != nil {
		slog.Error("Failed to initiate mfa attempt", "username", req.Username, "err", err)
		h.record(r, attemptID, req.Username, audit.OutcomeFailed, err.Error())
		attemptsTotal.WithLabelValues(audit.OutcomeFailed).Inc()
		http.Error(w, "authentication backend unavailable", http.StatusBadGateway)
		return
	}

	if decision.Outcome == mfa.OutcomeSucceeded {
		h.finish(r, attemptID, req.Username, audit.OutcomeSucceeded, "second factor not required")
		render.JSON(w, r, FlowResponse{Status: string(mfa.OutcomeSucceeded)})
		return
	}

	token, _, err := h.tokens.GenerateToken(req.Username, attemptID)
	if err != nil {
		slog.Error("Failed to generate attempt token", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	attemptsTotal.WithLabelValues("initiated").Inc()
	render.JSON(w, r, FlowResponse{
		Status:       string(mfa.OutcomePending),
		AttemptToken: token,
		Render:       decision.Render,
	})
}

// Submit runs the response evaluator for one form submission.
// (POST /mfa/submit)
func (h Handle) Submit(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "missing or invalid attempt token", http.StatusUnauthorized)
		return
	}

	attemptID, _ := claims["attempt_id"].(string)
	username, _ := claims["sub"].(string)
	if attemptID == "" || username == "" {
		http.Error(w, "malformed attempt token claims", http.StatusUnauthorized)
		return
	}

	var req SubmitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, "unable to parse body", http.StatusBadRequest)
		return
	}

	store := notes.ForAttempt(h.notesRepo, attemptID)
	decision, err := h.flow.Evaluate(r.Context(), h.cfg, username, req.Form, store)
	if err != nil {
		slog.Error("Failed to evaluate mfa submission", "username", username, "err", err)
		h.record(r, attemptID, username, audit.OutcomeFailed, err.Error())
		attemptsTotal.WithLabelValues(audit.OutcomeFailed).Inc()
		http.Error(w, "authentication backend unavailable", http.StatusBadGateway)
		return
	}

	switch decision.Outcome {
	case mfa.OutcomeSucceeded:
		h.finish(r, attemptID, username, audit.OutcomeSucceeded, "")
		render.JSON(w, r, FlowResponse{Status: string(mfa.OutcomeSucceeded)})

	case mfa.OutcomeCancelled:
		h.finish(r, attemptID, username, audit.OutcomeCancelled, "")
		render.JSON(w, r, FlowResponse{Status: string(mfa.OutcomeCancelled)})

	default:
		// Invalid credentials classification: the form re-renders, the
		// surrounding flow decides whether retries remain.
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, FlowResponse{Status: string(mfa.OutcomePending), Render: decision.Render})
	}
}

// finish records a terminal outcome and discards the attempt state.
func (h Handle) finish(r *http.Request, attemptID, username, outcome, detail string) {
	attemptsTotal.WithLabelValues(outcome).Inc()
	h.record(r, attemptID, username, outcome, detail)
	if err := h.notesRepo.Delete(r.Context(), attemptID); err != nil {
		slog.Error("Failed to discard attempt notes", "attemptID", attemptID, "err", err)
	}
}

func (h Handle) record(r *http.Request, attemptID, username, outcome, detail string) {
	event := audit.Event{
		AttemptID:  attemptID,
		Username:   username,
		Outcome:    outcome,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
	if err := h.recorder.Record(r.Context(), event); err != nil {
		slog.Error("Failed to record audit event", "attemptID", attemptID, "err", err)
	}
}
