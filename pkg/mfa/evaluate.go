package mfa

import (
	"context"
	"fmt"
	"log/slog"
)

// Evaluate runs on every second-factor form submission. It dispatches to the
// verification operation matching the form's mode, interprets the backend
// result, advances the auth counter and produces either a terminal outcome or
// the render state for the next round trip.
//
// Exactly one backend verification call is made per invocation, or none when
// the turn cannot verify anything (push not yet answered, token type switch,
// missing WebAuthn origin).
func (s *FlowService) Evaluate(ctx context.Context, cfg Config, username string, form Form, notes NoteStore) (*Decision, error) {
	if form.Cancel {
		debugLog(cfg, "User cancelled the authentication attempt", "username", username)
		return &Decision{Outcome: OutcomeCancelled}, nil
	}

	session, err := LoadSession(ctx, notes)
	if err != nil {
		return nil, err
	}

	failureMessage := FailureMessage
	pushMessage := form.PushMessage
	otpMessage := form.OTPMessage

	// didTrigger suppresses the failure banner when a new challenge was
	// triggered this turn.
	didTrigger := false
	var result *ChallengeResult

	// Determine which verification operation the submitted form maps to.
	switch {
	case form.Mode == TokenTypePush:
		// In push mode, poll for the transaction to see if the challenge has
		// been answered out of band.
		answered, err := s.backend.PollTransaction(ctx, session.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll transaction %q: %w", session.TransactionID, err)
		}
		if answered {
			// Finalize with a validate check carrying an empty credential.
			result, err = s.backend.ValidateCheck(ctx, username, "", session.TransactionID, session.AcceptLanguage)
			if err != nil {
				return nil, fmt.Errorf("failed to finalize transaction %q: %w", session.TransactionID, err)
			}
		}

	case form.WebAuthnSignResponse != "":
		if form.WebAuthnOrigin == "" {
			slog.Error("Origin is missing for WebAuthn authentication", "username", username)
		} else {
			result, err = s.backend.ValidateCheckWebAuthn(ctx, username, session.TransactionID, form.WebAuthnSignResponse, form.WebAuthnOrigin, session.AcceptLanguage)
			if err != nil {
				return nil, fmt.Errorf("failed to verify webauthn sign response: %w", err)
			}
		}

	case !form.ModeChanged:
		// An empty transaction id is legal here and means the value is
		// checked as a first factor.
		result, err = s.backend.ValidateCheck(ctx, username, form.OTP, session.TransactionID, session.AcceptLanguage)
		if err != nil {
			return nil, fmt.Errorf("failed to validate credential: %w", err)
		}

	default:
		// The token type was switched without submitting a credential, just
		// re-render under the new mode.
	}

	if result != nil {
		if result.Success {
			debugLog(cfg, "Second factor verified", "username", username)
			return &Decision{Outcome: OutcomeSucceeded}, nil
		}

		if len(result.PendingChallenges) > 0 {
			// A new challenge was triggered: display its message and adopt
			// its transaction id.
			otpMessage = result.Message
			session.TransactionID = result.TransactionID
			didTrigger = true
		} else {
			// Nothing was triggered, so the submitted data was wrong.
			failureMessage += "\n" + result.Message
		}
	}

	// The auth counter also indexes the polling interval schedule; past the
	// end of the schedule the last interval repeats.
	session.AuthCounter++
	if session.AuthCounter >= len(cfg.PollingIntervals) {
		session.AuthCounter = len(cfg.PollingIntervals) - 1
	}
	if err := session.Save(ctx, notes); err != nil {
		return nil, err
	}

	if pushMessage == "" {
		pushMessage = DefaultPushMessageEN
	}
	if otpMessage == "" {
		otpMessage = DefaultOTPMessageEN
	}

	render := &RenderState{
		PollInterval:        PollInterval(cfg.PollingIntervals, session.AuthCounter),
		EnrollmentQR:        form.EnrollmentQR,
		Mode:                form.Mode,
		PushAvailable:       form.PushAvailable,
		OTPAvailable:        form.OTPAvailable,
		PushMessage:         pushMessage,
		OTPMessage:          otpMessage,
		WebAuthnSignRequest: form.WebAuthnSignRequest,
		UILanguage:          form.UILanguage,
	}

	// Do not display the error if the token type was switched or if another
	// challenge was triggered. An unanswered push is not a failure, just not
	// verified yet.
	if !form.ModeChanged && !didTrigger {
		if form.Mode == TokenTypePush {
			render.Error = NotVerifiedMessage
		} else {
			render.Error = failureMessage
		}
	}

	return &Decision{Outcome: OutcomePending, Render: render}, nil
}
