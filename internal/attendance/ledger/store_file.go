package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"rollcall/internal/attendance"
)

const (
	attendanceFileName   = "attendance.csv"
	notificationFileName = "notification_log.csv"
)

var (
	attendanceHeader   = []string{"subject_id", "date", "slot", "status", "first_seen", "recorded_at"}
	notificationHeader = []string{"subject_id", "date", "window", "sent_at"}
)

// FileLedger persists records as append-only CSV files and keeps the dedup
// key-set in memory, rebuilt from the files at open. Appends are fsynced
// before the call returns so a crash after a successful send cannot lose the
// notification record.
type FileLedger struct {
	mu sync.Mutex

	attendanceFile   *os.File
	notificationFile *os.File

	attendance    map[attendance.Key]struct{}
	notifications map[attendance.NotificationKey]struct{}
}

var _ Ledger = (*FileLedger)(nil)

// OpenFile opens (creating if needed) the ledger files under dir and rebuilds
// the in-memory key-set from them. A malformed row fails the open: silently
// dropping durable keys would reintroduce duplicate writes.
func OpenFile(dir string) (*FileLedger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	l := &FileLedger{
		attendance:    make(map[attendance.Key]struct{}),
		notifications: make(map[attendance.NotificationKey]struct{}),
	}

	var err error
	l.attendanceFile, err = openAppend(filepath.Join(dir, attendanceFileName), attendanceHeader)
	if err != nil {
		return nil, err
	}
	l.notificationFile, err = openAppend(filepath.Join(dir, notificationFileName), notificationHeader)
	if err != nil {
		l.attendanceFile.Close()
		return nil, err
	}

	if err := l.loadAttendance(filepath.Join(dir, attendanceFileName)); err != nil {
		l.Close()
		return nil, err
	}
	if err := l.loadNotifications(filepath.Join(dir, notificationFileName)); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// Close releases the underlying files.
func (l *FileLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err1 := l.attendanceFile.Close()
	err2 := l.notificationFile.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func (l *FileLedger) AlreadyRecorded(_ context.Context, key attendance.Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.attendance[key]
	return ok, nil
}

func (l *FileLedger) RecordAttendance(_ context.Context, rec *attendance.Record) (bool, error) {
	key := rec.Key()
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.attendance[key]; ok {
		return false, nil
	}

	firstSeen := ""
	if rec.FirstSeen != nil {
		firstSeen = rec.FirstSeen.Format(time.RFC3339)
	}
	row := []string{
		key.SubjectID, key.Date, key.Slot,
		string(rec.Status), firstSeen, rec.RecordedAt.Format(time.RFC3339),
	}
	if err := appendRow(l.attendanceFile, row); err != nil {
		return false, fmt.Errorf("append attendance row: %w", err)
	}

	l.attendance[key] = struct{}{}
	return true, nil
}

func (l *FileLedger) AlreadyNotified(_ context.Context, key attendance.NotificationKey) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.notifications[key]
	return ok, nil
}

func (l *FileLedger) RecordNotification(_ context.Context, n *attendance.Notification) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.notifications[n.Window]; ok {
		return false, nil
	}

	row := []string{n.Window.SubjectID, n.Window.Date, n.Window.Window, n.SentAt.Format(time.RFC3339)}
	if err := appendRow(l.notificationFile, row); err != nil {
		return false, fmt.Errorf("append notification row: %w", err)
	}

	l.notifications[n.Window] = struct{}{}
	return true, nil
}

func openAppend(path string, header []string) (*os.File, error) {
	info, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr) || (statErr == nil && info.Size() == 0)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger file %s: %w", path, err)
	}
	if fresh {
		if err := appendRow(f, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header to %s: %w", path, err)
		}
	}
	return f, nil
}

func appendRow(f *os.File, row []string) error {
	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

func (l *FileLedger) loadAttendance(path string) error {
	return readRows(path, len(attendanceHeader), func(row []string) {
		l.attendance[attendance.Key{SubjectID: row[0], Date: row[1], Slot: row[2]}] = struct{}{}
	})
}

func (l *FileLedger) loadNotifications(path string) error {
	return readRows(path, len(notificationHeader), func(row []string) {
		l.notifications[attendance.NotificationKey{SubjectID: row[0], Date: row[1], Window: row[2]}] = struct{}{}
	})
}

func readRows(path string, wantFields int, visit func(row []string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = wantFields

	// Skip header.
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("read header of %s: %w", path, err)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("malformed row in %s: %w", path, err)
		}
		visit(row)
	}
}
