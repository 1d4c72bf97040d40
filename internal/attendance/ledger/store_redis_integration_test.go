//go:build integration

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rollcall/internal/attendance"
	"rollcall/internal/attendance/ledger"
	"rollcall/pkg/testutil/containers"
)

type RedisLedgerSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	ledger *ledger.RedisLedger
}

func TestRedisLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLedgerSuite))
}

func (s *RedisLedgerSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.ledger = ledger.NewRedis(s.redis.Client)
}

func (s *RedisLedgerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLedgerSuite) TestAttendanceSetNX() {
	ctx := context.Background()
	rec := newRecord("s1", attendance.StatusPresent)

	inserted, err := s.ledger.RecordAttendance(ctx, rec)
	s.Require().NoError(err)
	s.True(inserted)

	inserted, err = s.ledger.RecordAttendance(ctx, newRecord("s1", attendance.StatusAbsent))
	s.Require().NoError(err)
	s.False(inserted)

	recorded, err := s.ledger.AlreadyRecorded(ctx, rec.Key())
	s.Require().NoError(err)
	s.True(recorded)
}

func (s *RedisLedgerSuite) TestNotificationSetNX() {
	ctx := context.Background()
	now := time.Date(2026, 3, 9, 9, 11, 0, 0, time.UTC)

	n := &attendance.Notification{
		ID:        uuid.New(),
		SubjectID: "s1",
		Window:    attendance.NewNotificationKey("s1", now, time.Hour),
		SentAt:    now,
	}

	inserted, err := s.ledger.RecordNotification(ctx, n)
	s.Require().NoError(err)
	s.True(inserted)

	inserted, err = s.ledger.RecordNotification(ctx, n)
	s.Require().NoError(err)
	s.False(inserted)

	notified, err := s.ledger.AlreadyNotified(ctx, n.Window)
	s.Require().NoError(err)
	s.True(notified)
}
