// Package notes persists the per-attempt auth notes between the two phases of
// the challenge-response flow. A Repository stores notes keyed by attempt id;
// ForAttempt scopes it down to the single-attempt NoteStore the flow consumes.
package notes

import "context"

// Repository stores string-valued notes per authentication attempt. Notes of
// one attempt are isolated from every other attempt and are deleted when the
// attempt terminates.
type Repository interface {
	Get(ctx context.Context, attemptID, name string) (string, error)
	Set(ctx context.Context, attemptID, name, value string) error

	// Delete removes all notes of the attempt.
	Delete(ctx context.Context, attemptID string) error
}

// AttemptNotes adapts a Repository to the flow's single-attempt NoteStore.
type AttemptNotes struct {
	repo      Repository
	attemptID string
}

// ForAttempt scopes the repository to one attempt.
func ForAttempt(repo Repository, attemptID string) *AttemptNotes {
	return &AttemptNotes{repo: repo, attemptID: attemptID}
}

func (n *AttemptNotes) GetNote(ctx context.Context, name string) (string, error) {
	return n.repo.Get(ctx, n.attemptID, name)
}

func (n *AttemptNotes) SetNote(ctx context.Context, name, value string) error {
	return n.repo.Set(ctx, n.attemptID, name, value)
}
