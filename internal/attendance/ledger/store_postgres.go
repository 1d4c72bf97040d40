package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"rollcall/internal/attendance"
)

// PostgresLedger persists dedup records in PostgreSQL. Uniqueness is enforced
// by the database, so concurrent writers for the same key resolve to exactly
// one inserted row without an application-level lock.
type PostgresLedger struct {
	db *sql.DB
}

var _ Ledger = (*PostgresLedger)(nil)

func NewPostgres(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Migrate creates the ledger tables when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS attendance_records (
			id UUID PRIMARY KEY,
			subject_id TEXT NOT NULL,
			date TEXT NOT NULL,
			slot TEXT NOT NULL,
			status TEXT NOT NULL,
			first_seen TIMESTAMPTZ,
			recorded_at TIMESTAMPTZ NOT NULL,
			UNIQUE (subject_id, date, slot)
		);
		CREATE TABLE IF NOT EXISTS notification_log (
			id UUID PRIMARY KEY,
			subject_id TEXT NOT NULL,
			date TEXT NOT NULL,
			window_key TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL,
			UNIQUE (subject_id, date, window_key)
		);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

func (l *PostgresLedger) AlreadyRecorded(ctx context.Context, key attendance.Key) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM attendance_records
			WHERE subject_id = $1 AND date = $2 AND slot = $3
		)
	`
	var exists bool
	if err := l.db.QueryRowContext(ctx, query, key.SubjectID, key.Date, key.Slot).Scan(&exists); err != nil {
		return false, fmt.Errorf("check attendance record: %w", err)
	}
	return exists, nil
}

// RecordAttendance inserts the record, ignoring conflicts on the dedup key.
// First write wins; a later write with a different status is a no-op.
func (l *PostgresLedger) RecordAttendance(ctx context.Context, rec *attendance.Record) (bool, error) {
	const query = `
		INSERT INTO attendance_records (id, subject_id, date, slot, status, first_seen, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (subject_id, date, slot) DO NOTHING
	`
	key := rec.Key()
	res, err := l.db.ExecContext(ctx, query,
		rec.ID, key.SubjectID, key.Date, key.Slot,
		string(rec.Status), rec.FirstSeen, rec.RecordedAt,
	)
	if err != nil {
		return false, fmt.Errorf("record attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record attendance rows affected: %w", err)
	}
	return n == 1, nil
}

func (l *PostgresLedger) AlreadyNotified(ctx context.Context, key attendance.NotificationKey) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM notification_log
			WHERE subject_id = $1 AND date = $2 AND window_key = $3
		)
	`
	var exists bool
	if err := l.db.QueryRowContext(ctx, query, key.SubjectID, key.Date, key.Window).Scan(&exists); err != nil {
		return false, fmt.Errorf("check notification record: %w", err)
	}
	return exists, nil
}

func (l *PostgresLedger) RecordNotification(ctx context.Context, n *attendance.Notification) (bool, error) {
	const query = `
		INSERT INTO notification_log (id, subject_id, date, window_key, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject_id, date, window_key) DO NOTHING
	`
	res, err := l.db.ExecContext(ctx, query,
		n.ID, n.Window.SubjectID, n.Window.Date, n.Window.Window, n.SentAt,
	)
	if err != nil {
		return false, fmt.Errorf("record notification: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record notification rows affected: %w", err)
	}
	return count == 1, nil
}
