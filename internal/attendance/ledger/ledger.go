// Package ledger is the durable authority preventing duplicate attendance
// writes and duplicate absentee alerts. Every variant guarantees the same
// contract: check-and-record is atomic, a write for an existing key is a
// no-op (not an error), and a fresh process sees every key persisted by a
// prior run.
package ledger

import (
	"context"

	"rollcall/internal/attendance"
)

// Ledger records attendance outcomes and sent notifications at most once per
// key. Record methods return true when this call inserted the record and
// false when the key already existed.
type Ledger interface {
	AlreadyRecorded(ctx context.Context, key attendance.Key) (bool, error)
	RecordAttendance(ctx context.Context, rec *attendance.Record) (bool, error)

	AlreadyNotified(ctx context.Context, key attendance.NotificationKey) (bool, error)
	RecordNotification(ctx context.Context, n *attendance.Notification) (bool, error)
}
