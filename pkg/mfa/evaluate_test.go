package mfa

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seededNotes returns a note store preloaded with an initiated session.
func seededNotes(t *testing.T, session SessionState) *memNotes {
	t.Helper()
	notes := newMemNotes()
	require.NoError(t, session.Save(context.Background(), notes))
	return notes
}

func TestEvaluateCancel(t *testing.T) {
	backend := &mockBackend{}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{TransactionID: "tx-1", AcceptLanguage: "en"})

	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", Form{Cancel: true}, notes)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCancelled, decision.Outcome)
	assert.Empty(t, backend.calls, "cancellation must not call the backend")
}

func TestEvaluateOTPSuccess(t *testing.T) {
	backend := &mockBackend{
		validateResult: &ChallengeResult{Success: true},
	}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{TransactionID: "tx-1", AcceptLanguage: "en"})

	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", Form{Mode: TokenTypeOTP, OTP: "123456"}, notes)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSucceeded, decision.Outcome)
	assert.Equal(t, []string{"validateCheck(alice,123456,tx-1)"}, backend.calls)
}

func TestEvaluateSuccessWinsOverPendingChallenges(t *testing.T) {
	// success=true must always yield attempt success regardless of any
	// pending challenge content in the same response.
	backend := &mockBackend{
		validateResult: &ChallengeResult{
			Success:           true,
			TransactionID:     "tx-9",
			PendingChallenges: []Challenge{{TokenType: TokenTypePush}},
		},
	}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{AcceptLanguage: "en"})

	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", Form{Mode: TokenTypeOTP, OTP: "123456"}, notes)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSucceeded, decision.Outcome)
}

func TestEvaluateOTPWithoutTransaction(t *testing.T) {
	// An empty transaction id is legal: the value is verified as a first
	// factor.
	backend := &mockBackend{
		validateResult: &ChallengeResult{Success: true},
	}
	flow := NewFlowService(backend)

	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", Form{Mode: TokenTypeOTP, OTP: "123456"}, newMemNotes())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSucceeded, decision.Outcome)
	assert.Equal(t, []string{"validateCheck(alice,123456,)"}, backend.calls)
}

func TestEvaluateOTPRejected(t *testing.T) {
	backend := &mockBackend{
		validateResult: &ChallengeResult{Success: false, Message: "wrong otp value"},
	}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{TransactionID: "tx-1", AcceptLanguage: "en"})

	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", Form{Mode: TokenTypeOTP, OTP: "000000"}, notes)
	require.NoError(t, err)

	require.Equal(t, OutcomePending, decision.Outcome)
	assert.True(t, strings.HasPrefix(decision.Render.Error, FailureMessage))
	assert.Contains(t, decision.Render.Error, "wrong otp value")
}

func TestEvaluateNewChallengeSuppressesBanner(t *testing.T) {
	backend := &mockBackend{
		validateResult: &ChallengeResult{
			Success:           false,
			Message:           "please enter otp",
			TransactionID:     "tx-2",
			PendingChallenges: []Challenge{{TokenType: TokenTypePush, Message: "confirm"}},
		},
	}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{TransactionID: "tx-1", AcceptLanguage: "en"})

	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", Form{Mode: TokenTypeOTP, OTP: "secret1"}, notes)
	require.NoError(t, err)

	require.Equal(t, OutcomePending, decision.Outcome)
	assert.Empty(t, decision.Render.Error)
	assert.Equal(t, "please enter otp", decision.Render.OTPMessage)

	// The new transaction id replaces the stored one.
	session, err := LoadSession(context.Background(), notes)
	require.NoError(t, err)
	assert.Equal(t, "tx-2", session.TransactionID)
}

func TestEvaluatePushNotAnswered(t *testing.T) {
	backend := &mockBackend{pollAnswered: false}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{TransactionID: "tx-1", AcceptLanguage: "en"})

	form := Form{Mode: TokenTypePush, PushAvailable: true, OTPAvailable: true}
	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", form, notes)
	require.NoError(t, err)

	require.Equal(t, OutcomePending, decision.Outcome)
	// Polling only, no verification call this turn.
	assert.Equal(t, []string{"pollTransaction(tx-1)"}, backend.calls)
	assert.Equal(t, NotVerifiedMessage, decision.Render.Error)
	assert.Equal(t, TokenTypePush, decision.Render.Mode)

	session, err := LoadSession(context.Background(), notes)
	require.NoError(t, err)
	assert.Equal(t, "tx-1", session.TransactionID, "transaction id must survive unanswered polls")
}

func TestEvaluatePushPollingSchedule(t *testing.T) {
	// Schedule [1,2,5,10]: three unanswered polls serve intervals 2, 5, 10
	// and a fourth clamps at 10.
	backend := &mockBackend{pollAnswered: false}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{TransactionID: "tx-1", AcceptLanguage: "en"})

	form := Form{Mode: TokenTypePush, PushAvailable: true, OTPAvailable: true}
	var intervals []int
	for i := 0; i < 4; i++ {
		decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", form, notes)
		require.NoError(t, err)
		require.Equal(t, OutcomePending, decision.Outcome)
		intervals = append(intervals, decision.Render.PollInterval)
	}

	assert.Equal(t, []int{2, 5, 10, 10}, intervals)

	session, err := LoadSession(context.Background(), notes)
	require.NoError(t, err)
	assert.Equal(t, 3, session.AuthCounter, "counter clamps at len(intervals)-1")
}

func TestEvaluatePushAnsweredFinalizes(t *testing.T) {
	backend := &mockBackend{
		pollAnswered:   true,
		validateResult: &ChallengeResult{Success: true},
	}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{TransactionID: "tx-1", AcceptLanguage: "en"})

	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", Form{Mode: TokenTypePush}, notes)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSucceeded, decision.Outcome)
	// The finalizing verify call carries an empty credential and the stored
	// transaction id.
	assert.Equal(t, []string{"pollTransaction(tx-1)", "validateCheck(alice,,tx-1)"}, backend.calls)
}

func TestEvaluateWebAuthn(t *testing.T) {
	backend := &mockBackend{
		webAuthnResult: &ChallengeResult{Success: true},
	}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{TransactionID: "tx-1", AcceptLanguage: "en"})

	form := Form{
		Mode:                 TokenTypeWebAuthn,
		WebAuthnSignResponse: `{"credentialid":"abc"}`,
		WebAuthnOrigin:       "https://login.example.com",
	}
	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", form, notes)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSucceeded, decision.Outcome)
	assert.Equal(t, []string{`validateCheckWebAuthn(alice,tx-1,{"credentialid":"abc"},https://login.example.com)`}, backend.calls)
}

func TestEvaluateWebAuthnMissingOrigin(t *testing.T) {
	backend := &mockBackend{}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{TransactionID: "tx-1", AcceptLanguage: "en"})

	form := Form{
		Mode:                 TokenTypeWebAuthn,
		WebAuthnSignResponse: `{"credentialid":"abc"}`,
	}
	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", form, notes)
	require.NoError(t, err)

	// No backend call is made, the attempt stays pending with the
	// transaction id unchanged.
	require.Equal(t, OutcomePending, decision.Outcome)
	assert.Empty(t, backend.calls)

	session, err := LoadSession(context.Background(), notes)
	require.NoError(t, err)
	assert.Equal(t, "tx-1", session.TransactionID)
}

func TestEvaluateModeChangedSkipsVerification(t *testing.T) {
	backend := &mockBackend{}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{TransactionID: "tx-1", AcceptLanguage: "en"})

	form := Form{Mode: TokenTypeOTP, ModeChanged: true, PushAvailable: true, OTPAvailable: true}
	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", form, notes)
	require.NoError(t, err)

	require.Equal(t, OutcomePending, decision.Outcome)
	assert.Empty(t, backend.calls)
	assert.Empty(t, decision.Render.Error, "switching the token type must not show a failure banner")
}

func TestEvaluateEchoesFormValues(t *testing.T) {
	backend := &mockBackend{
		validateResult: &ChallengeResult{Success: false, Message: "nope"},
	}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{AcceptLanguage: "de"})

	form := Form{
		Mode:                TokenTypeOTP,
		OTP:                 "000000",
		PushAvailable:       true,
		OTPAvailable:        true,
		PushMessage:         "push prompt",
		OTPMessage:          "otp prompt",
		WebAuthnSignRequest: `{"rpId":"example.com"}`,
		EnrollmentQR:        "data:image/png;base64,abc",
		UILanguage:          "de",
	}
	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", form, notes)
	require.NoError(t, err)

	require.Equal(t, OutcomePending, decision.Outcome)
	render := decision.Render
	assert.Equal(t, TokenTypeOTP, render.Mode)
	assert.True(t, render.PushAvailable)
	assert.True(t, render.OTPAvailable)
	assert.Equal(t, "push prompt", render.PushMessage)
	assert.Equal(t, "otp prompt", render.OTPMessage)
	assert.Equal(t, `{"rpId":"example.com"}`, render.WebAuthnSignRequest)
	assert.Equal(t, "data:image/png;base64,abc", render.EnrollmentQR)
	assert.Equal(t, "de", render.UILanguage)
}

func TestEvaluateEmptyMessagesFallBackToDefaults(t *testing.T) {
	backend := &mockBackend{
		validateResult: &ChallengeResult{Success: false, Message: "nope"},
	}
	flow := NewFlowService(backend)
	notes := seededNotes(t, SessionState{AcceptLanguage: "en"})

	decision, err := flow.Evaluate(context.Background(), testConfig(), "alice", Form{Mode: TokenTypeOTP}, notes)
	require.NoError(t, err)

	require.Equal(t, OutcomePending, decision.Outcome)
	assert.Equal(t, DefaultPushMessageEN, decision.Render.PushMessage)
	assert.Equal(t, DefaultOTPMessageEN, decision.Render.OTPMessage)
}

func TestEvaluateBackendFailurePropagates(t *testing.T) {
	tests := []struct {
		name    string
		backend *mockBackend
		form    Form
	}{
		{
			name:    "poll failure",
			backend: &mockBackend{pollErr: errors.New("connection refused")},
			form:    Form{Mode: TokenTypePush},
		},
		{
			name:    "validate failure",
			backend: &mockBackend{validateErr: errors.New("bad gateway")},
			form:    Form{Mode: TokenTypeOTP, OTP: "123456"},
		},
		{
			name:    "webauthn failure",
			backend: &mockBackend{webAuthnErr: errors.New("timeout")},
			form:    Form{WebAuthnSignResponse: "{}", WebAuthnOrigin: "https://x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := NewFlowService(tt.backend)
			notes := seededNotes(t, SessionState{TransactionID: "tx-1", AcceptLanguage: "en"})

			_, err := flow.Evaluate(context.Background(), testConfig(), "alice", tt.form, notes)
			assert.Error(t, err)
		})
	}
}
