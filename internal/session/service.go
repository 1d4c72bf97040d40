package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rollcall/internal/attendance"
	"rollcall/internal/enrollment"
	"rollcall/internal/events"
	"rollcall/internal/notify"
	"rollcall/internal/platform/sentinel"
	"rollcall/internal/recognition"
	"rollcall/internal/session/metrics"
)

// alertQueueSize bounds the async dispatch queue. Overflow falls back to the
// retry list so the frame loop never blocks on a slow transport.
const alertQueueSize = 64

// sendTimeout caps one gateway call inside the dispatcher.
const sendTimeout = 10 * time.Second

// Service runs recognition sessions. A single frame-processing goroutine
// owns all slot state; only the dedup ledger is shared with the alert
// dispatcher, and the ledger's check-and-record is atomic.
type Service struct {
	roster    Roster
	extractor Extractor
	frames    FrameSource
	matcher   *recognition.Matcher
	ledger    Ledger
	gateway   Gateway
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     Clock

	mu        sync.Mutex
	state     State
	sessionID uuid.UUID
	startedAt time.Time
	slotStart time.Time

	// pendingRetry holds alerts whose send failed; the next sweep re-queues
	// those still inside their notification window.
	retryMu      sync.Mutex
	pendingRetry []queuedAlert
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(clock Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func WithPublisher(publisher Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func New(roster Roster, extractor Extractor, frames FrameSource, ledger Ledger, gateway Gateway, m *metrics.Metrics, opts ...Option) (*Service, error) {
	if roster == nil {
		return nil, fmt.Errorf("roster is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if frames == nil {
		return nil, fmt.Errorf("frame source is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("notifier gateway is required")
	}
	if m == nil {
		return nil, fmt.Errorf("metrics are required")
	}

	s := &Service{
		roster:    roster,
		extractor: extractor,
		frames:    frames,
		ledger:    ledger,
		gateway:   gateway,
		publisher: events.NoopPublisher{},
		metrics:   m,
		logger:    slog.Default(),
		clock:     systemClock{},
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.matcher = recognition.NewMatcher(s.logger)
	return s, nil
}

// queuedAlert pairs an alert with its dedup window key.
type queuedAlert struct {
	alert notify.Alert
	key   attendance.NotificationKey
}

// runtime is the per-Run working state, owned by the frame loop.
type runtime struct {
	cfg      Config
	students map[string]*enrollment.Student
	enrolled []recognition.Enrolled
	rosterID []string
	tracker  *attendance.Tracker
	queue    chan<- queuedAlert
}

// Run executes one session to completion. It blocks until the context is
// cancelled, the configured session duration elapses, or the frame source
// ends; the active slot is finalized before it returns.
func (s *Service) Run(ctx context.Context, cfg Config) error {
	if _, err := s.start(); err != nil {
		return err
	}
	return s.run(ctx, cfg)
}

// run is Run minus the state transition; the Manager performs the
// transition synchronously before spawning the session goroutine.
func (s *Service) run(ctx context.Context, cfg Config) error {
	defer s.setState(StateStopped)

	students, err := s.roster.List(ctx)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	if len(students) == 0 {
		return errors.New("refusing to start session: no enrolled students")
	}

	rt := &runtime{
		cfg:      cfg,
		students: make(map[string]*enrollment.Student, len(students)),
		enrolled: make([]recognition.Enrolled, 0, len(students)),
		rosterID: make([]string, 0, len(students)),
	}
	for _, st := range students {
		if err := st.Validate(); err != nil {
			return fmt.Errorf("refusing to start session: %w", err)
		}
		rt.students[st.ID] = st
		rt.enrolled = append(rt.enrolled, recognition.Enrolled{SubjectID: st.ID, Embedding: st.Embedding})
		rt.rosterID = append(rt.rosterID, st.ID)
	}

	now := s.clock.Now()
	rt.tracker = attendance.NewTracker(attendance.SlotStart(now, cfg.Rules.SlotDuration), rt.rosterID)
	s.noteSlot(rt.tracker.SlotStart())

	s.logger.InfoContext(ctx, "session started",
		"session_id", s.SessionID(),
		"students", len(students),
		"slot_start", rt.tracker.SlotStart(),
	)

	queue := make(chan queuedAlert, alertQueueSize)
	rt.queue = queue

	// The dispatcher outlives context cancellation so alerts already queued
	// during the final sweep are still attempted on shutdown.
	dispatchCtx := context.WithoutCancel(ctx)

	g := new(errgroup.Group)
	g.Go(func() error {
		s.dispatchLoop(dispatchCtx, queue)
		return nil
	})
	g.Go(func() error {
		defer close(queue)
		return s.frameLoop(ctx, rt)
	})
	return g.Wait()
}

// frameLoop is the single logical stream driving all slot-state mutation.
func (s *Service) frameLoop(ctx context.Context, rt *runtime) error {
	start := s.clock.Now()
	var endAt time.Time
	if rt.cfg.SessionDuration > 0 {
		endAt = start.Add(rt.cfg.SessionDuration)
	}
	nextSweep := start.Add(rt.cfg.SweepInterval)

	for {
		// Cooperative cancellation point, checked once per iteration.
		select {
		case <-ctx.Done():
			s.finalizeOnShutdown(rt)
			return nil
		default:
		}

		now := s.clock.Now()
		if !endAt.IsZero() && !now.Before(endAt) {
			s.logger.Info("session duration elapsed")
			s.finalizeOnShutdown(rt)
			return nil
		}

		s.maybeRollover(ctx, rt, now)

		frame, err := s.frames.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			s.finalizeOnShutdown(rt)
			return nil
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			s.finalizeOnShutdown(rt)
			return nil
		case err != nil:
			// One bad frame never kills the session.
			s.logger.Warn("frame read failed", "error", err)
			continue
		}

		s.processFrame(ctx, rt, frame)

		now = s.clock.Now()
		if !now.Before(nextSweep) {
			s.sweep(ctx, rt, now)
			nextSweep = now.Add(rt.cfg.SweepInterval)
		}
	}
}

func (s *Service) processFrame(ctx context.Context, rt *runtime, frame recognition.Frame) {
	s.metrics.FramesProcessed.Inc()

	detections, err := s.extractor.Extract(ctx, frame)
	if err != nil {
		// No face in frame (or model hiccup): zero detections, not fatal.
		s.metrics.ExtractionFailures.Inc()
		s.logger.Debug("extraction failed", "error", err)
		return
	}

	at := frame.CapturedAt
	if at.IsZero() {
		at = s.clock.Now()
	}

	for _, d := range detections {
		subjectID, score := s.matcher.Match(d.Embedding, rt.enrolled)
		if subjectID == "" || score < rt.cfg.MatchThreshold {
			s.metrics.UnknownFaces.Inc()
			continue
		}
		s.metrics.MatchesAccepted.Inc()

		if rt.tracker.Observe(subjectID, at) {
			s.logger.Info("student first seen in slot",
				"subject_id", subjectID,
				"score", score,
				"at", at,
			)
		}
	}
}

// maybeRollover finalizes the outgoing slot and builds a fresh tracker when
// the wall clock has crossed a slot boundary. Every unfinalized entry is
// flushed before the old tracker is discarded.
func (s *Service) maybeRollover(ctx context.Context, rt *runtime, now time.Time) {
	newStart := attendance.SlotStart(now, rt.cfg.Rules.SlotDuration)
	if newStart.Equal(rt.tracker.SlotStart()) {
		return
	}

	s.logger.Info("slot rollover",
		"old_slot", rt.tracker.SlotStart(),
		"new_slot", newStart,
	)
	for _, snap := range rt.tracker.Unfinalized() {
		status := attendance.DecideFinal(snap.FirstSeen, rt.tracker.SlotStart(), rt.cfg.Rules)
		s.finalize(ctx, rt, snap, status, now)
	}

	rt.tracker = attendance.NewTracker(newStart, rt.rosterID)
	s.noteSlot(newStart)
}

// sweep finalizes every subject the decider can already classify: seen
// subjects immediately, unseen ones once the grace period has elapsed. It
// also re-queues failed alerts still inside their notification window.
func (s *Service) sweep(ctx context.Context, rt *runtime, now time.Time) {
	for _, snap := range rt.tracker.Unfinalized() {
		status, ok := attendance.Decide(snap.FirstSeen, rt.tracker.SlotStart(), now, rt.cfg.Rules)
		if !ok {
			continue
		}
		s.finalize(ctx, rt, snap, status, now)
	}
	s.requeueFailedAlerts(now, rt)
}

// finalizeOnShutdown flushes the in-progress slot before teardown. Seen
// subjects are always flushed; unseen subjects are recorded absent only once
// their grace period has elapsed, so stopping a session early does not mark
// the whole class absent.
func (s *Service) finalizeOnShutdown(rt *runtime) {
	ctx := context.Background()
	now := s.clock.Now()
	for _, snap := range rt.tracker.Unfinalized() {
		status, ok := attendance.Decide(snap.FirstSeen, rt.tracker.SlotStart(), now, rt.cfg.Rules)
		if !ok {
			if snap.FirstSeen == nil {
				continue
			}
			status = attendance.DecideFinal(snap.FirstSeen, rt.tracker.SlotStart(), rt.cfg.Rules)
		}
		s.finalize(ctx, rt, snap, status, now)
	}
	s.logger.Info("session finalized", "slot_start", rt.tracker.SlotStart())
}

// finalize converts one subject's in-slot state into a durable record and,
// for absences, queues the parent alert. The ledger write is idempotent:
// a duplicate key is a counted no-op.
func (s *Service) finalize(ctx context.Context, rt *runtime, snap attendance.Snapshot, status attendance.Status, now time.Time) {
	rec := &attendance.Record{
		ID:         uuid.New(),
		SubjectID:  snap.SubjectID,
		SlotStart:  rt.tracker.SlotStart(),
		Status:     status,
		FirstSeen:  snap.FirstSeen,
		RecordedAt: now,
	}

	inserted, err := s.ledger.RecordAttendance(ctx, rec)
	if err != nil {
		// Not finalized in the tracker: the next sweep retries the write.
		s.logger.Error("attendance write failed",
			"subject_id", snap.SubjectID,
			"error", err,
		)
		return
	}

	rt.tracker.Finalize(snap.SubjectID)

	if inserted {
		s.metrics.AttendanceRecorded.WithLabelValues(string(status)).Inc()
		s.publisher.AttendanceFinalized(ctx, rec)
		s.logger.Info("attendance recorded",
			"subject_id", snap.SubjectID,
			"status", status,
			"slot_start", rec.SlotStart,
		)
	} else {
		s.metrics.DuplicateWrites.Inc()
	}

	// Absence is the sole notification trigger. The alert is queued even on
	// a duplicate attendance write: after a restart the record may exist
	// while the alert was never sent, and the notification ledger dedups.
	if status == attendance.StatusAbsent {
		s.queueAlert(rt, snap.SubjectID, now)
	}
}

func (s *Service) queueAlert(rt *runtime, subjectID string, now time.Time) {
	student, ok := rt.students[subjectID]
	if !ok {
		return
	}
	qa := queuedAlert{
		alert: notify.Alert{
			StudentID:   student.ID,
			StudentName: student.Name,
			Class:       student.Class,
			Section:     student.Section,
			Contact:     student.Contact(),
			Status:      attendance.StatusAbsent,
			Date:        rt.tracker.SlotStart().Format("2006-01-02"),
		},
		key: attendance.NewNotificationKey(subjectID, now, rt.cfg.Rules.NotifyWindow),
	}

	select {
	case rt.queue <- qa:
	default:
		// Queue full: park it for the next sweep instead of blocking the
		// frame loop.
		s.parkAlert(qa)
	}
}

// dispatchLoop performs alert I/O off the frame loop. For each alert it
// checks the notification ledger, sends, and durably records the send before
// moving on; a crash between send and record is the only remaining
// duplicate-alert window.
func (s *Service) dispatchLoop(ctx context.Context, queue <-chan queuedAlert) {
	for qa := range queue {
		already, err := s.ledger.AlreadyNotified(ctx, qa.key)
		if err != nil {
			s.logger.Error("notification dedup check failed",
				"subject_id", qa.alert.StudentID,
				"error", err,
			)
			s.parkAlert(qa)
			continue
		}
		if already {
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err = s.gateway.Send(sendCtx, qa.alert)
		cancel()
		if err != nil {
			s.metrics.AlertFailures.Inc()
			s.logger.Warn("alert send failed",
				"subject_id", qa.alert.StudentID,
				"contact", qa.alert.Contact,
				"error", err,
			)
			s.parkAlert(qa)
			continue
		}

		n := &attendance.Notification{
			ID:        uuid.New(),
			SubjectID: qa.alert.StudentID,
			Window:    qa.key,
			SentAt:    s.clock.Now(),
		}
		inserted, err := s.ledger.RecordNotification(ctx, n)
		if err != nil {
			s.logger.Error("alert sent but not recorded; duplicate possible on restart",
				"subject_id", qa.alert.StudentID,
				"error", err,
			)
			continue
		}
		if inserted {
			s.metrics.AlertsSent.Inc()
			s.publisher.AlertSent(ctx, n)
			s.logger.Info("alert sent",
				"subject_id", qa.alert.StudentID,
				"window", qa.key.Window,
			)
		}
	}
}

func (s *Service) parkAlert(qa queuedAlert) {
	s.retryMu.Lock()
	defer s.retryMu.Unlock()
	s.pendingRetry = append(s.pendingRetry, qa)
}

// requeueFailedAlerts gives parked alerts another attempt while their
// notification window is still current; stale ones are dropped.
func (s *Service) requeueFailedAlerts(now time.Time, rt *runtime) {
	s.retryMu.Lock()
	parked := s.pendingRetry
	s.pendingRetry = nil
	s.retryMu.Unlock()

	for _, qa := range parked {
		current := attendance.NewNotificationKey(qa.alert.StudentID, now, rt.cfg.Rules.NotifyWindow)
		if current != qa.key {
			s.logger.Info("dropping stale alert",
				"subject_id", qa.alert.StudentID,
				"window", qa.key.Window,
			)
			continue
		}
		select {
		case rt.queue <- qa:
		default:
			s.parkAlert(qa)
		}
	}
}

func (s *Service) start() (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return uuid.Nil, fmt.Errorf("session already running: %w", sentinel.ErrInvalidState)
	}
	s.state = StateRunning
	s.sessionID = uuid.New()
	s.startedAt = s.clock.Now()
	return s.sessionID, nil
}

func (s *Service) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Service) noteSlot(slotStart time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slotStart = slotStart
}

// State reports the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID reports the identifier of the current (or last) session.
func (s *Service) SessionID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Info is a point-in-time view of the session for the status endpoint.
type Info struct {
	State     State
	SessionID uuid.UUID
	StartedAt time.Time
	SlotStart time.Time
}

// Status snapshots lifecycle state for the control surface.
func (s *Service) Status() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		State:     s.state,
		SessionID: s.sessionID,
		StartedAt: s.startedAt,
		SlotStart: s.slotStart,
	}
}
