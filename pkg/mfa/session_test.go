package mfa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	notes := newMemNotes()

	in := SessionState{
		TransactionID:  "tx-1234",
		AcceptLanguage: "de-DE,de;q=0.9",
		AuthCounter:    3,
	}
	require.NoError(t, in.Save(ctx, notes))

	out, err := LoadSession(ctx, notes)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadSessionEmptyStore(t *testing.T) {
	out, err := LoadSession(context.Background(), newMemNotes())
	require.NoError(t, err)
	assert.Equal(t, SessionState{}, out)
}

func TestLoadSessionMalformedCounter(t *testing.T) {
	ctx := context.Background()
	notes := newMemNotes()
	require.NoError(t, notes.SetNote(ctx, NoteAuthCounter, "not-a-number"))

	_, err := LoadSession(ctx, notes)
	assert.Error(t, err)
}

func TestSaveKeepsEarlierTransactionID(t *testing.T) {
	ctx := context.Background()
	notes := newMemNotes()

	require.NoError(t, SessionState{TransactionID: "tx-1", AcceptLanguage: "en"}.Save(ctx, notes))

	// A later turn without an active transaction must not erase the stored id.
	require.NoError(t, SessionState{AcceptLanguage: "en", AuthCounter: 1}.Save(ctx, notes))

	out, err := LoadSession(ctx, notes)
	require.NoError(t, err)
	assert.Equal(t, "tx-1", out.TransactionID)
	assert.Equal(t, 1, out.AuthCounter)
}
