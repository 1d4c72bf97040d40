package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rollcall/internal/attendance"
)

// RedisLedger keeps dedup keys in Redis. SETNX supplies the atomic
// check-and-set: concurrent writers for one key see exactly one true result.
// Intended for deployments that already run Redis with persistence enabled.
type RedisLedger struct {
	client *redis.Client

	// retention bounds key lifetime; dedup keys are date-scoped so holding
	// them much longer than a day buys nothing.
	retention time.Duration
}

var _ Ledger = (*RedisLedger)(nil)

func NewRedis(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client, retention: 48 * time.Hour}
}

func attendanceKey(key attendance.Key) string {
	return fmt.Sprintf("rollcall:att:%s:%s:%s", key.SubjectID, key.Date, key.Slot)
}

func notificationKey(key attendance.NotificationKey) string {
	return fmt.Sprintf("rollcall:alert:%s:%s:%s", key.SubjectID, key.Date, key.Window)
}

func (l *RedisLedger) AlreadyRecorded(ctx context.Context, key attendance.Key) (bool, error) {
	n, err := l.client.Exists(ctx, attendanceKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("check attendance key: %w", err)
	}
	return n == 1, nil
}

func (l *RedisLedger) RecordAttendance(ctx context.Context, rec *attendance.Record) (bool, error) {
	inserted, err := l.client.SetNX(ctx, attendanceKey(rec.Key()), string(rec.Status), l.retention).Result()
	if err != nil {
		return false, fmt.Errorf("record attendance key: %w", err)
	}
	return inserted, nil
}

func (l *RedisLedger) AlreadyNotified(ctx context.Context, key attendance.NotificationKey) (bool, error) {
	n, err := l.client.Exists(ctx, notificationKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("check notification key: %w", err)
	}
	return n == 1, nil
}

func (l *RedisLedger) RecordNotification(ctx context.Context, n *attendance.Notification) (bool, error) {
	inserted, err := l.client.SetNX(ctx, notificationKey(n.Window), n.SentAt.Format(time.RFC3339), l.retention).Result()
	if err != nil {
		return false, fmt.Errorf("record notification key: %w", err)
	}
	return inserted, nil
}
