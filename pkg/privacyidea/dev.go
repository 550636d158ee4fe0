package privacyidea

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/mfa"
)

const devIssuer = "privacyidea-dev"

// DevBackend is an in-process mfa.Backend for demos and tests. It enrolls
// TOTP tokens, validates their codes and simulates push challenges that are
// answered via Approve. Not for production use.
type DevBackend struct {
	mu           sync.Mutex
	secrets      map[string]string // username -> totp secret
	serials      map[string]string // username -> token serial
	transactions map[string]*devTransaction
}

type devTransaction struct {
	username string
	answered bool
}

// NewDevBackend creates an empty dev backend.
func NewDevBackend() *DevBackend {
	return &DevBackend{
		secrets:      make(map[string]string),
		serials:      make(map[string]string),
		transactions: make(map[string]*devTransaction),
	}
}

// Enroll registers a TOTP secret for the user and returns it, for seeding
// test fixtures.
func (b *DevBackend) Enroll(username string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      devIssuer,
		AccountName: username,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate totp secret: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.secrets[username] = key.Secret()
	b.serials[username] = "TOTP" + uuid.NewString()[:8]
	return key.Secret(), nil
}

// Approve marks the out-of-band challenge of the transaction as answered, as
// a push confirmation on the user's device would.
func (b *DevBackend) Approve(transactionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tx, ok := b.transactions[transactionID]; ok {
		tx.answered = true
	}
}

func (b *DevBackend) TriggerChallenges(ctx context.Context, username, acceptLanguage string) (*mfa.ChallengeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	txID := uuid.NewString()
	b.transactions[txID] = &devTransaction{username: username}

	return &mfa.ChallengeResult{
		Message:       mfa.DefaultOTPMessageEN,
		TransactionID: txID,
		PendingChallenges: []mfa.Challenge{
			{TokenType: mfa.TokenTypePush, Message: mfa.DefaultPushMessageEN, TransactionID: txID},
			{TokenType: mfa.TokenTypeOTP, Message: mfa.DefaultOTPMessageEN, TransactionID: txID},
		},
	}, nil
}

func (b *DevBackend) ValidateCheck(ctx context.Context, username, credential, transactionID, acceptLanguage string) (*mfa.ChallengeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A finalizing call for an answered push transaction succeeds with an
	// empty credential.
	if transactionID != "" && credential == "" {
		if tx, ok := b.transactions[transactionID]; ok && tx.answered && tx.username == username {
			delete(b.transactions, transactionID)
			return &mfa.ChallengeResult{Success: true, Message: "matching 1 tokens"}, nil
		}
	}

	secret, ok := b.secrets[username]
	if ok && totp.Validate(credential, secret) {
		delete(b.transactions, transactionID)
		return &mfa.ChallengeResult{Success: true, Message: "matching 1 tokens"}, nil
	}

	return &mfa.ChallengeResult{Success: false, Message: "wrong otp value"}, nil
}

func (b *DevBackend) ValidateCheckWebAuthn(ctx context.Context, username, transactionID, signResponse, origin, acceptLanguage string) (*mfa.ChallengeResult, error) {
	// The dev backend cannot verify assertions; it rejects them uniformly.
	return &mfa.ChallengeResult{Success: false, Message: "webauthn is not supported by the dev backend"}, nil
}

func (b *DevBackend) PollTransaction(ctx context.Context, transactionID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx, ok := b.transactions[transactionID]
	return ok && tx.answered, nil
}

func (b *DevBackend) GetTokenInfo(ctx context.Context, username string) ([]mfa.TokenInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if serial, ok := b.serials[username]; ok {
		return []mfa.TokenInfo{{Serial: serial, TokenType: "totp", Active: true}}, nil
	}
	return nil, nil
}

func (b *DevBackend) TokenRollout(ctx context.Context, username, tokenType string) (*mfa.RolloutInfo, error) {
	if tokenType != "" && tokenType != "totp" {
		return nil, fmt.Errorf("dev backend cannot enroll token type %q", tokenType)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      devIssuer,
		AccountName: username,
		Period:      30,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enroll totp token: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	serial := "TOTP" + uuid.NewString()[:8]
	b.secrets[username] = key.Secret()
	b.serials[username] = serial

	return &mfa.RolloutInfo{
		Serial:       serial,
		EnrollmentQR: key.URL(),
	}, nil
}

// GenerateCode produces the current TOTP code for an enrolled user, for
// demos and tests.
func (b *DevBackend) GenerateCode(username string) (string, error) {
	b.mu.Lock()
	secret, ok := b.secrets[username]
	b.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no token enrolled for %q", username)
	}
	return totp.GenerateCode(secret, time.Now().UTC())
}
