package privacyidea

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/mfa"
)

func TestDevBackendTOTPRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := NewDevBackend()

	_, err := backend.Enroll("alice")
	require.NoError(t, err)

	code, err := backend.GenerateCode("alice")
	require.NoError(t, err)

	result, err := backend.ValidateCheck(ctx, "alice", code, "", "en")
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = backend.ValidateCheck(ctx, "alice", "000000", "", "en")
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestDevBackendPushFlow(t *testing.T) {
	ctx := context.Background()
	backend := NewDevBackend()

	triggered, err := backend.TriggerChallenges(ctx, "alice", "en")
	require.NoError(t, err)
	require.NotEmpty(t, triggered.TransactionID)
	assert.True(t, triggered.PushAvailable())

	answered, err := backend.PollTransaction(ctx, triggered.TransactionID)
	require.NoError(t, err)
	assert.False(t, answered)

	backend.Approve(triggered.TransactionID)

	answered, err = backend.PollTransaction(ctx, triggered.TransactionID)
	require.NoError(t, err)
	assert.True(t, answered)

	// Finalize with an empty credential, as the evaluate phase does.
	result, err := backend.ValidateCheck(ctx, "alice", "", triggered.TransactionID, "en")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestDevBackendRollout(t *testing.T) {
	ctx := context.Background()
	backend := NewDevBackend()

	tokens, err := backend.GetTokenInfo(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, tokens)

	rollout, err := backend.TokenRollout(ctx, "bob", "totp")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rollout.EnrollmentQR, "otpauth://totp/"))

	tokens, err = backend.GetTokenInfo(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "totp", tokens[0].TokenType)
}

func TestDevBackendRejectsUnknownTokenType(t *testing.T) {
	_, err := NewDevBackend().TokenRollout(context.Background(), "bob", "push")
	assert.Error(t, err)
}

var _ mfa.Backend = (*DevBackend)(nil)
var _ mfa.Backend = (*Client)(nil)
