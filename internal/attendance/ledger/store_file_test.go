package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rollcall/internal/attendance"
)

type FileLedgerSuite struct {
	suite.Suite
	dir    string
	ledger *FileLedger
	ctx    context.Context
}

func TestFileLedgerSuite(t *testing.T) {
	suite.Run(t, new(FileLedgerSuite))
}

func (s *FileLedgerSuite) SetupTest() {
	s.dir = s.T().TempDir()
	var err error
	s.ledger, err = OpenFile(s.dir)
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func (s *FileLedgerSuite) TearDownTest() {
	s.ledger.Close()
}

func (s *FileLedgerSuite) TestIdempotentWrites() {
	rec := testRecord("s1", attendance.StatusPresent)

	inserted, err := s.ledger.RecordAttendance(s.ctx, rec)
	s.Require().NoError(err)
	s.True(inserted)

	inserted, err = s.ledger.RecordAttendance(s.ctx, rec)
	s.Require().NoError(err)
	s.False(inserted)

	n := testNotification("s1")
	inserted, err = s.ledger.RecordNotification(s.ctx, n)
	s.Require().NoError(err)
	s.True(inserted)

	inserted, err = s.ledger.RecordNotification(s.ctx, n)
	s.Require().NoError(err)
	s.False(inserted)
}

// TestRestartSafety reopens the ledger directory with a fresh instance and
// expects every key persisted by the first instance to be visible.
func (s *FileLedgerSuite) TestRestartSafety() {
	rec := testRecord("s1", attendance.StatusAbsent)
	firstSeen := rec.SlotStart.Add(12 * time.Minute)
	rec.FirstSeen = &firstSeen

	_, err := s.ledger.RecordAttendance(s.ctx, rec)
	s.Require().NoError(err)
	_, err = s.ledger.RecordNotification(s.ctx, testNotification("s1"))
	s.Require().NoError(err)
	s.Require().NoError(s.ledger.Close())

	reopened, err := OpenFile(s.dir)
	s.Require().NoError(err)
	defer reopened.Close()

	recorded, err := reopened.AlreadyRecorded(s.ctx, rec.Key())
	s.Require().NoError(err)
	s.True(recorded, "attendance key must survive restart")

	notified, err := reopened.AlreadyNotified(s.ctx, testNotification("s1").Window)
	s.Require().NoError(err)
	s.True(notified, "notification key must survive restart")

	// And the dedup contract still holds after reload.
	inserted, err := reopened.RecordAttendance(s.ctx, rec)
	s.Require().NoError(err)
	s.False(inserted)
}

func (s *FileLedgerSuite) TestMalformedRowRejectedAtOpen() {
	s.Require().NoError(s.ledger.Close())

	path := filepath.Join(s.dir, attendanceFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	s.Require().NoError(err)
	_, err = f.WriteString("only,three,fields\n")
	s.Require().NoError(err)
	s.Require().NoError(f.Close())

	broken, err := OpenFile(s.dir)
	s.Error(err)
	if broken != nil {
		broken.Close()
	}

	// Reopen a sane ledger for TearDownTest.
	s.dir = s.T().TempDir()
	s.ledger, err = OpenFile(s.dir)
	s.Require().NoError(err)
}

func (s *FileLedgerSuite) TestEmptyDirStartsClean() {
	recorded, err := s.ledger.AlreadyRecorded(s.ctx, attendance.NewKey("nobody", time.Now()))
	s.Require().NoError(err)
	s.False(recorded)
}
