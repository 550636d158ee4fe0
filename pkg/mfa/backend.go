package mfa

import "context"

// Backend is the authentication backend consumed by both flow phases. Every
// call is stateless from the flow's perspective except for the transaction
// identifier the backend hands back. Errors from any call propagate as an
// attempt failure, the flow never guesses at success.
type Backend interface {
	// TriggerChallenges triggers all challenges for the user via the
	// configured service account. No password is required.
	TriggerChallenges(ctx context.Context, username, acceptLanguage string) (*ChallengeResult, error)

	// ValidateCheck verifies a credential value. An empty transactionID is
	// legal and means the value is checked as a first factor with no
	// challenge in progress.
	ValidateCheck(ctx context.Context, username, credential, transactionID, acceptLanguage string) (*ChallengeResult, error)

	// ValidateCheckWebAuthn verifies a WebAuthn sign response for the given
	// transaction. The origin is the one the browser signed over.
	ValidateCheckWebAuthn(ctx context.Context, username, transactionID, signResponse, origin, acceptLanguage string) (*ChallengeResult, error)

	// PollTransaction reports whether the out-of-band challenge of the given
	// transaction has been answered. A positive result still requires a
	// finalizing ValidateCheck call.
	PollTransaction(ctx context.Context, transactionID string) (bool, error)

	// GetTokenInfo lists the tokens already assigned to the user.
	GetTokenInfo(ctx context.Context, username string) ([]TokenInfo, error)

	// TokenRollout enrolls a new token of the given type for the user.
	TokenRollout(ctx context.Context, username, tokenType string) (*RolloutInfo, error)
}
