package session_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"rollcall/internal/attendance"
	"rollcall/internal/enrollment"
	"rollcall/internal/notify"
	"rollcall/internal/platform/sentinel"
	"rollcall/internal/recognition"
	"rollcall/internal/session"
	"rollcall/internal/session/metrics"
	"rollcall/internal/session/mocks"
)

// blockingSource never yields a frame; it waits for cancellation, like a
// camera with nobody in front of it.
type blockingSource struct{}

func (blockingSource) Next(ctx context.Context) (recognition.Frame, error) {
	<-ctx.Done()
	return recognition.Frame{}, ctx.Err()
}

func (blockingSource) Extract(_ context.Context, _ recognition.Frame) ([]recognition.Detection, error) {
	return nil, nil
}

type ManagerSuite struct {
	suite.Suite

	manager *session.Manager
	service *session.Service
	cfg     session.Config
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	roster := mocks.NewMockRoster(ctrl)
	roster.EXPECT().List(gomock.Any()).Return([]*enrollment.Student{alice()}, nil).AnyTimes()

	clock := newFakeClock(time.Date(2026, 3, 2, 9, 2, 0, 0, time.UTC))
	logger := slog.New(slog.DiscardHandler)

	src := blockingSource{}
	svc, err := session.New(roster, src, src, newRecordingLedger(), notify.NewCapture(),
		metrics.New(prometheus.NewRegistry()),
		session.WithLogger(logger),
		session.WithClock(clock),
	)
	s.Require().NoError(err)

	s.service = svc
	s.manager = session.NewManager(svc, logger)
	s.cfg = session.Config{
		Rules: attendance.Rules{
			SlotDuration:  time.Hour,
			PresentWindow: 5 * time.Minute,
			LateWindow:    10 * time.Minute,
			NotifyWindow:  time.Hour,
		},
		MatchThreshold: 0.70,
		SweepInterval:  time.Minute,
	}
}

func (s *ManagerSuite) TestStartStopLifecycle() {
	id, err := s.manager.Start(s.cfg)
	s.Require().NoError(err)
	s.NotEqual(uuid.Nil, id)

	info, lastErr := s.manager.Status()
	s.Require().NoError(lastErr)
	s.Equal(session.StateRunning, info.State)
	s.Equal(id, info.SessionID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(s.manager.Stop(ctx))

	info, lastErr = s.manager.Status()
	s.Require().NoError(lastErr)
	s.Equal(session.StateStopped, info.State)
}

func (s *ManagerSuite) TestSecondStartRejected() {
	_, err := s.manager.Start(s.cfg)
	s.Require().NoError(err)

	_, err = s.manager.Start(s.cfg)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(s.manager.Stop(ctx))
}

func (s *ManagerSuite) TestRestartAfterStop() {
	first, err := s.manager.Start(s.cfg)
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(s.manager.Stop(ctx))

	second, err := s.manager.Start(s.cfg)
	s.Require().NoError(err)
	s.NotEqual(first, second)
	s.Require().NoError(s.manager.Stop(ctx))
}

func (s *ManagerSuite) TestStopWithoutStartIsNoop() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.NoError(s.manager.Stop(ctx))

	info, lastErr := s.manager.Status()
	s.NoError(lastErr)
	s.Equal(session.StateIdle, info.State)
}
