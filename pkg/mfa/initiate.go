package mfa

import (
	"context"
	"fmt"
	"log/slog"
)

// Initiate runs once, at the moment the primary factor succeeds. It decides
// whether the user is exempt from the second factor, triggers the first
// challenge per the configured precedence, optionally enrolls a token, and
// produces the initial session state and form render state.
//
// The password parameter is the credential submitted with the primary factor;
// it may be empty and is only forwarded when SendPassword is configured.
func (s *FlowService) Initiate(ctx context.Context, cfg Config, user User, password, acceptLanguage string, notes NoteStore) (*Decision, error) {
	// Members of an excluded group skip the second factor entirely. This is
	// the single escape hatch from the state machine.
	if cfg.IsGroupExcluded(user.Groups) {
		debugLog(cfg, "User is member of an excluded group, skipping second factor", "username", user.Username)
		return &Decision{Outcome: OutcomeSucceeded}, nil
	}

	lang := uiLanguage(acceptLanguage)
	pushMessage, otpMessage := defaultMessages(lang)

	// Trigger challenges if configured. The service account has precedence
	// over sending the password.
	var triggered *ChallengeResult
	var err error
	if cfg.TriggerChallenge {
		triggered, err = s.backend.TriggerChallenges(ctx, user.Username, acceptLanguage)
		if err != nil {
			return nil, fmt.Errorf("failed to trigger challenges for %q: %w", user.Username, err)
		}
	} else if cfg.SendPassword {
		if password != "" {
			triggered, err = s.backend.ValidateCheck(ctx, user.Username, password, "", acceptLanguage)
			if err != nil {
				return nil, fmt.Errorf("failed to forward password for %q: %w", user.Username, err)
			}
		} else {
			slog.Warn("Cannot send password because it is empty", "username", user.Username)
		}
	}

	transactionID := ""
	pushAvailable := false
	mode := TokenTypeOTP
	webAuthnSignRequest := ""

	if triggered != nil {
		transactionID = triggered.TransactionID

		if len(triggered.PendingChallenges) > 0 {
			pushAvailable = triggered.PushAvailable()
			if pushAvailable {
				pushMessage = triggered.PushMessage()
			}

			// The OTP message carries the generic status text even when no
			// OTP token type was triggered.
			otpMessage = triggered.OTPMessage()

			// TODO surface the remaining sign requests once the form can
			// offer a choice between multiple WebAuthn tokens.
			if triggered.HasTokenType(TokenTypeWebAuthn) {
				webAuthnSignRequest = triggered.FirstWebAuthnSignRequest()
			}
		}

		if triggered.HasTokenType(cfg.PreferredTokenType) {
			mode = cfg.PreferredTokenType
		}
	}

	// Enroll a token if enabled and the user has none. If something was
	// triggered before, don't even try.
	enrollmentQR := ""
	if cfg.EnrollToken && transactionID == "" {
		tokens, err := s.backend.GetTokenInfo(ctx, user.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to get token info for %q: %w", user.Username, err)
		}
		if len(tokens) == 0 {
			rollout, err := s.backend.TokenRollout(ctx, user.Username, cfg.EnrollingTokenType)
			if err != nil {
				return nil, fmt.Errorf("failed to enroll %s token for %q: %w", cfg.EnrollingTokenType, user.Username, err)
			}
			enrollmentQR = rollout.EnrollmentQR
			debugLog(cfg, "Enrolled token for user", "username", user.Username, "tokenType", cfg.EnrollingTokenType, "serial", rollout.Serial)
		}
	}

	session := SessionState{
		TransactionID:  transactionID,
		AcceptLanguage: acceptLanguage,
		AuthCounter:    0,
	}
	if err := session.Save(ctx, notes); err != nil {
		return nil, err
	}

	render := &RenderState{
		PollInterval:        PollInterval(cfg.PollingIntervals, 0),
		EnrollmentQR:        enrollmentQR,
		Mode:                mode,
		PushAvailable:       pushAvailable,
		OTPAvailable:        true, // always assume an OTP token
		PushMessage:         pushMessage,
		OTPMessage:          otpMessage,
		WebAuthnSignRequest: webAuthnSignRequest,
		UILanguage:          lang,
	}

	return &Decision{Outcome: OutcomePending, Render: render}, nil
}
