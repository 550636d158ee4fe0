package mfa

import "strings"

// Challenge is a single pending challenge descriptor returned by the backend.
type Challenge struct {
	TokenType     string `json:"type"`
	Serial        string `json:"serial"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
}

// ChallengeResult is the backend's answer to any trigger, verify or poll
// related call. A non-empty PendingChallenges list means the authentication is
// not finished but in progress.
type ChallengeResult struct {
	// Success reports whether the factor was accepted.
	Success bool

	// Message is the human-readable status or failure text.
	Message string

	// TransactionID correlates all exchanges of one active challenge. Set
	// when at least one challenge exists.
	TransactionID string

	// PendingChallenges lists the challenges triggered by this call.
	PendingChallenges []Challenge

	// WebAuthnSignRequests holds the raw sign request payloads of triggered
	// WebAuthn challenges, in backend order.
	WebAuthnSignRequests []string
}

// TriggeredTokenTypes returns the set of token type tags present among the
// pending challenges.
func (r *ChallengeResult) TriggeredTokenTypes() []string {
	seen := make(map[string]bool)
	var types []string
	for _, c := range r.PendingChallenges {
		if !seen[c.TokenType] {
			seen[c.TokenType] = true
			types = append(types, c.TokenType)
		}
	}
	return types
}

// HasTokenType reports whether a challenge of the given token type is pending.
func (r *ChallengeResult) HasTokenType(tokenType string) bool {
	for _, c := range r.PendingChallenges {
		if c.TokenType == tokenType {
			return true
		}
	}
	return false
}

// PushAvailable reports whether a push challenge is pending.
func (r *ChallengeResult) PushAvailable() bool {
	return r.HasTokenType(TokenTypePush)
}

// PushMessage returns the joined messages of all pending push challenges.
func (r *ChallengeResult) PushMessage() string {
	return r.joinMessages(func(c Challenge) bool { return c.TokenType == TokenTypePush })
}

// OTPMessage returns the joined messages of all pending non-push challenges.
// It carries the generic status text even when no OTP token was triggered.
func (r *ChallengeResult) OTPMessage() string {
	return r.joinMessages(func(c Challenge) bool { return c.TokenType != TokenTypePush })
}

// FirstWebAuthnSignRequest returns the first WebAuthn sign request payload, or
// the empty string when none was triggered. Only the first sign request is
// surfaced even when multiple WebAuthn tokens are registered.
func (r *ChallengeResult) FirstWebAuthnSignRequest() string {
	if len(r.WebAuthnSignRequests) == 0 {
		return ""
	}
	return r.WebAuthnSignRequests[0]
}

func (r *ChallengeResult) joinMessages(match func(Challenge) bool) string {
	seen := make(map[string]bool)
	var messages []string
	for _, c := range r.PendingChallenges {
		if match(c) && c.Message != "" && !seen[c.Message] {
			seen[c.Message] = true
			messages = append(messages, c.Message)
		}
	}
	return strings.Join(messages, ", ")
}

// TokenInfo describes a token already assigned to a user.
type TokenInfo struct {
	Serial    string `json:"serial"`
	TokenType string `json:"tokentype"`
	Active    bool   `json:"active"`
}

// RolloutInfo is the backend's answer to a token enrollment request.
type RolloutInfo struct {
	Serial string

	// EnrollmentQR is a renderable QR payload (image data URI or otpauth URL)
	// for the freshly enrolled token.
	EnrollmentQR string
}
