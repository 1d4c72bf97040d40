// Package session drives the recognition loop: frames in, attendance records
// and absentee alerts out. One Service.Run call is one session; the Manager
// adapts the blocking Run to the start/stop/status control surface.
package session

import (
	"context"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/attendance/ledger"
	"rollcall/internal/enrollment"
	"rollcall/internal/events"
	"rollcall/internal/notify"
	"rollcall/internal/recognition"
)

// State is the top-level session lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// Type aliases for shared interfaces.
type (
	Ledger    = ledger.Ledger
	Gateway   = notify.Gateway
	Publisher = events.Publisher
	Extractor = recognition.Extractor
)

// Roster reads the enrolled student snapshot at session start.
type Roster interface {
	List(ctx context.Context) ([]*enrollment.Student, error)
}

// FrameSource yields captured camera frames. Next blocks until a frame is
// available; io.EOF ends the session cleanly.
type FrameSource interface {
	Next(ctx context.Context) (recognition.Frame, error)
}

// Clock abstracts wall-clock reads so slot logic is testable without real
// delays.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config bundles the per-session attendance rules.
type Config struct {
	Rules          attendance.Rules
	MatchThreshold float64
	SweepInterval  time.Duration

	// SessionDuration ends the session after a fixed runtime; zero means
	// run until stopped.
	SessionDuration time.Duration
}
