package session

import "context"

// Gateway is the remote session store. Mutating calls never publish
// invalidations themselves; that is the caller's job.
type Gateway interface {
	// ListActive returns the owner's non-archived sessions.
	ListActive(ctx context.Context, ownerToken string) ([]Record, error)

	// ListArchived returns the owner's archived sessions.
	ListArchived(ctx context.Context, ownerToken string) ([]Record, error)

	// ListShared returns the owner's sessions with a public share link.
	ListShared(ctx context.Context, ownerToken string) ([]Record, error)

	// SetArchived sets the archived flag. Setting it to its current value
	// succeeds without change.
	SetArchived(ctx context.Context, id string, archived bool) error

	// DeleteOne permanently removes a session and its content.
	DeleteOne(ctx context.Context, id string) error

	// DeleteAll permanently removes every session of the owner.
	DeleteAll(ctx context.Context, ownerToken string) error

	// ExportAll returns a downloadable serialization of every session.
	ExportAll(ctx context.Context, ownerToken string) ([]byte, error)

	// Rename updates the display title.
	Rename(ctx context.Context, id, title string) error

	// SetShared toggles public sharing. The share URL is returned when
	// enabling, if the store provides one.
	SetShared(ctx context.Context, id string, shared bool) (string, error)
}

// Mutator is the subset of Gateway used by Service.
type Mutator interface {
	SetArchived(ctx context.Context, id string, archived bool) error
	DeleteOne(ctx context.Context, id string) error
	Rename(ctx context.Context, id, title string) error
	SetShared(ctx context.Context, id string, shared bool) (string, error)
}
