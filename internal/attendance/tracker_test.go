package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TrackerSuite struct {
	suite.Suite
	slotStart time.Time
	tracker   *Tracker
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerSuite))
}

func (s *TrackerSuite) SetupTest() {
	s.slotStart = time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	s.tracker = NewTracker(s.slotStart, []string{"s1", "s2", "s3"})
}

func (s *TrackerSuite) TestObserve() {
	s.Run("first observation wins", func() {
		first := s.slotStart.Add(2 * time.Minute)
		second := s.slotStart.Add(4 * time.Minute)

		s.True(s.tracker.Observe("s1", first))
		s.False(s.tracker.Observe("s1", second))

		got := s.tracker.FirstSeen("s1")
		s.Require().NotNil(got)
		s.Equal(first, *got)
	})

	s.Run("unknown subject ignored", func() {
		s.False(s.tracker.Observe("ghost", s.slotStart))
		s.Nil(s.tracker.FirstSeen("ghost"))
	})

	s.Run("finalized entry no longer observable", func() {
		s.tracker.Finalize("s2")
		s.False(s.tracker.Observe("s2", s.slotStart.Add(time.Minute)))
		s.Nil(s.tracker.FirstSeen("s2"))
	})
}

func (s *TrackerSuite) TestUnfinalized() {
	s.Run("all entries start unfinalized in roster order", func() {
		snaps := s.tracker.Unfinalized()
		s.Require().Len(snaps, 3)
		s.Equal("s1", snaps[0].SubjectID)
		s.Equal("s2", snaps[1].SubjectID)
		s.Equal("s3", snaps[2].SubjectID)
		for _, snap := range snaps {
			s.Equal(NotSeen, snap.State)
			s.Nil(snap.FirstSeen)
		}
	})

	s.Run("seen and finalized reflected", func() {
		s.tracker.Observe("s1", s.slotStart.Add(time.Minute))
		s.tracker.Finalize("s3")

		snaps := s.tracker.Unfinalized()
		s.Require().Len(snaps, 2)
		s.Equal("s1", snaps[0].SubjectID)
		s.Equal(Seen, snaps[0].State)
		s.Require().NotNil(snaps[0].FirstSeen)
		s.Equal("s2", snaps[1].SubjectID)
		s.Equal(NotSeen, snaps[1].State)
	})

	s.Run("empty once everything finalized", func() {
		for _, id := range []string{"s1", "s2", "s3"} {
			s.tracker.Finalize(id)
		}
		s.Empty(s.tracker.Unfinalized())
	})
}

func (s *TrackerSuite) TestDuplicateRosterEntries() {
	tracker := NewTracker(s.slotStart, []string{"s1", "s1", "s2"})
	s.Len(tracker.Unfinalized(), 2)
}
