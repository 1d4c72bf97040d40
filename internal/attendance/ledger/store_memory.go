package ledger

import (
	"context"
	"sync"

	"rollcall/internal/attendance"
)

// MemoryLedger keeps dedup keys in process memory. Not durable: restarts
// lose everything. Used by tests and sessions explicitly run without a store.
type MemoryLedger struct {
	mu            sync.Mutex
	attendance    map[attendance.Key]struct{}
	notifications map[attendance.NotificationKey]struct{}
}

var _ Ledger = (*MemoryLedger)(nil)

func NewMemory() *MemoryLedger {
	return &MemoryLedger{
		attendance:    make(map[attendance.Key]struct{}),
		notifications: make(map[attendance.NotificationKey]struct{}),
	}
}

func (l *MemoryLedger) AlreadyRecorded(_ context.Context, key attendance.Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.attendance[key]
	return ok, nil
}

// RecordAttendance inserts the record's key unless present. Check and insert
// happen under one lock so concurrent callers cannot both win.
func (l *MemoryLedger) RecordAttendance(_ context.Context, rec *attendance.Record) (bool, error) {
	key := rec.Key()
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.attendance[key]; ok {
		return false, nil
	}
	l.attendance[key] = struct{}{}
	return true, nil
}

func (l *MemoryLedger) AlreadyNotified(_ context.Context, key attendance.NotificationKey) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.notifications[key]
	return ok, nil
}

func (l *MemoryLedger) RecordNotification(_ context.Context, n *attendance.Notification) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.notifications[n.Window]; ok {
		return false, nil
	}
	l.notifications[n.Window] = struct{}{}
	return true, nil
}
