package mfa

import (
	"context"
	"fmt"
)

// mockBackend is a scriptable Backend that records every call it receives.
type mockBackend struct {
	calls []string

	triggerResult  *ChallengeResult
	triggerErr     error
	validateResult *ChallengeResult
	validateErr    error
	webAuthnResult *ChallengeResult
	webAuthnErr    error
	pollAnswered   bool
	pollErr        error
	tokens         []TokenInfo
	tokensErr      error
	rollout        *RolloutInfo
	rolloutErr     error
}

func (m *mockBackend) TriggerChallenges(ctx context.Context, username, acceptLanguage string) (*ChallengeResult, error) {
	m.calls = append(m.calls, fmt.Sprintf("triggerChallenges(%s,%s)", username, acceptLanguage))
	return m.triggerResult, m.triggerErr
}

func (m *mockBackend) ValidateCheck(ctx context.Context, username, credential, transactionID, acceptLanguage string) (*ChallengeResult, error) {
	m.calls = append(m.calls, fmt.Sprintf("validateCheck(%s,%s,%s)", username, credential, transactionID))
	return m.validateResult, m.validateErr
}

func (m *mockBackend) ValidateCheckWebAuthn(ctx context.Context, username, transactionID, signResponse, origin, acceptLanguage string) (*ChallengeResult, error) {
	m.calls = append(m.calls, fmt.Sprintf("validateCheckWebAuthn(%s,%s,%s,%s)", username, transactionID, signResponse, origin))
	return m.webAuthnResult, m.webAuthnErr
}

func (m *mockBackend) PollTransaction(ctx context.Context, transactionID string) (bool, error) {
	m.calls = append(m.calls, fmt.Sprintf("pollTransaction(%s)", transactionID))
	return m.pollAnswered, m.pollErr
}

func (m *mockBackend) GetTokenInfo(ctx context.Context, username string) ([]TokenInfo, error) {
	m.calls = append(m.calls, fmt.Sprintf("getTokenInfo(%s)", username))
	return m.tokens, m.tokensErr
}

func (m *mockBackend) TokenRollout(ctx context.Context, username, tokenType string) (*RolloutInfo, error) {
	m.calls = append(m.calls, fmt.Sprintf("tokenRollout(%s,%s)", username, tokenType))
	return m.rollout, m.rolloutErr
}

// memNotes is an in-memory NoteStore for tests.
type memNotes struct {
	values map[string]string
}

func newMemNotes() *memNotes {
	return &memNotes{values: make(map[string]string)}
}

func (n *memNotes) GetNote(ctx context.Context, name string) (string, error) {
	return n.values[name], nil
}

func (n *memNotes) SetNote(ctx context.Context, name, value string) error {
	n.values[name] = value
	return nil
}
