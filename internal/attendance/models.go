package attendance

import (
	"time"

	"github.com/google/uuid"
)

// Status is the terminal attendance outcome for a subject in a slot.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent:
		return true
	}
	return false
}

// dateLayout and slotLayout are the canonical key encodings shared by every
// ledger variant, so keys written by one variant reload in another.
const (
	dateLayout   = "2006-01-02"
	slotLayout   = "15:04"
	windowLayout = "2006-01-02T15:04"
)

// Key uniquely identifies one attendance record: one subject, one calendar
// date, one slot.
type Key struct {
	SubjectID string
	Date      string
	Slot      string
}

// NewKey derives the dedup key for a subject in the slot starting at slotStart.
func NewKey(subjectID string, slotStart time.Time) Key {
	return Key{
		SubjectID: subjectID,
		Date:      slotStart.Format(dateLayout),
		Slot:      slotStart.Format(slotLayout),
	}
}

// NotificationKey rate-limits absentee alerts: at most one per subject, date
// and notification window.
type NotificationKey struct {
	SubjectID string
	Date      string
	Window    string
}

// NewNotificationKey buckets now into the configured notification window.
func NewNotificationKey(subjectID string, now time.Time, window time.Duration) NotificationKey {
	start := SlotStart(now, window)
	return NotificationKey{
		SubjectID: subjectID,
		Date:      start.Format(dateLayout),
		Window:    start.Format(windowLayout),
	}
}

// Record is the durable attendance row for one (subject, date, slot).
type Record struct {
	ID         uuid.UUID
	SubjectID  string
	SlotStart  time.Time
	Status     Status
	FirstSeen  *time.Time // nil when the subject was never detected
	RecordedAt time.Time
}

// Key returns the dedup key for this record.
func (r *Record) Key() Key {
	return NewKey(r.SubjectID, r.SlotStart)
}

// Notification is the durable trace of one sent absentee alert.
type Notification struct {
	ID        uuid.UUID
	SubjectID string
	Window    NotificationKey
	SentAt    time.Time
}
