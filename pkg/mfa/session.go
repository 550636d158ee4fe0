package mfa

import (
	"context"
	"fmt"
	"strconv"
)

// Note names under which attempt state is persisted between round trips.
const (
	NoteTransactionID  = "pi.transactionID"
	NoteAcceptLanguage = "pi.acceptLanguage"
	NoteAuthCounter    = "pi.authCounter"
)

// NoteStore persists string-valued notes for a single authentication attempt.
// It must be isolated per attempt and survive across round trips for the
// duration of the attempt. A missing note reads as the empty string.
type NoteStore interface {
	GetNote(ctx context.Context, name string) (string, error)
	SetNote(ctx context.Context, name, value string) error
}

// SessionState is the typed attempt state carried between the initiate and
// evaluate phases. It is owned exclusively by the one in-flight attempt.
type SessionState struct {
	// TransactionID correlates all exchanges of the active challenge. Empty
	// means no challenge is in progress.
	TransactionID string

	// AcceptLanguage is the locale captured at initiation, reused for every
	// backend call of the attempt.
	AcceptLanguage string

	// AuthCounter counts evaluate invocations that did not yet succeed. It
	// only indexes the polling interval schedule.
	AuthCounter int
}

// LoadSession reads the attempt state from the note store. Absent notes yield
// zero values, a malformed counter is an error.
func LoadSession(ctx context.Context, notes NoteStore) (SessionState, error) {
	var s SessionState
	var err error

	if s.TransactionID, err = notes.GetNote(ctx, NoteTransactionID); err != nil {
		return s, fmt.Errorf("failed to read transaction id note: %w", err)
	}
	if s.AcceptLanguage, err = notes.GetNote(ctx, NoteAcceptLanguage); err != nil {
		return s, fmt.Errorf("failed to read accept language note: %w", err)
	}

	counter, err := notes.GetNote(ctx, NoteAuthCounter)
	if err != nil {
		return s, fmt.Errorf("failed to read auth counter note: %w", err)
	}
	if counter != "" {
		s.AuthCounter, err = strconv.Atoi(counter)
		if err != nil {
			return s, fmt.Errorf("malformed auth counter note %q: %w", counter, err)
		}
	}

	return s, nil
}

// Save writes the attempt state back to the note store. The transaction id
// note is only written when a challenge is active, so an earlier transaction
// id survives evaluate turns that did not trigger a new challenge.
func (s SessionState) Save(ctx context.Context, notes NoteStore) error {
	if err := notes.SetNote(ctx, NoteAuthCounter, strconv.Itoa(s.AuthCounter)); err != nil {
		return fmt.Errorf("failed to write auth counter note: %w", err)
	}
	if err := notes.SetNote(ctx, NoteAcceptLanguage, s.AcceptLanguage); err != nil {
		return fmt.Errorf("failed to write accept language note: %w", err)
	}
	if s.TransactionID != "" {
		if err := notes.SetNote(ctx, NoteTransactionID, s.TransactionID); err != nil {
			return fmt.Errorf("failed to write transaction id note: %w", err)
		}
	}
	return nil
}
