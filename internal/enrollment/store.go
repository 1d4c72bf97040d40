package enrollment

import "context"

// Store holds the enrolled roster. The session loop reads it once at start
// and treats the snapshot as immutable for the session's duration.
type Store interface {
	// Upsert creates a student or overwrites an existing one by ID.
	Upsert(ctx context.Context, student *Student) error

	// Get returns sentinel.ErrNotFound (wrapped) for unknown IDs.
	Get(ctx context.Context, id string) (*Student, error)

	// List returns all students in a stable order.
	List(ctx context.Context) ([]*Student, error)
}
