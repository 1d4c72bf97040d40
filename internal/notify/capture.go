package notify

import (
	"context"
	"sync"
)

// CaptureGateway records alerts for inspection and can be scripted to fail.
// Test double shared by session and handler tests.
type CaptureGateway struct {
	mu       sync.Mutex
	alerts   []Alert
	attempts int

	// FailNext makes the next N sends return an error.
	failNext int
	err      error
}

var _ Gateway = (*CaptureGateway)(nil)

func NewCapture() *CaptureGateway {
	return &CaptureGateway{}
}

// FailNext scripts the next n sends to fail with err.
func (g *CaptureGateway) FailNext(n int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = n
	g.err = err
}

func (g *CaptureGateway) Send(_ context.Context, alert Alert) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attempts++
	if g.failNext > 0 {
		g.failNext--
		return g.err
	}
	g.alerts = append(g.alerts, alert)
	return nil
}

// Attempts reports how many sends were tried, including failed ones.
func (g *CaptureGateway) Attempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

// Alerts returns a snapshot of successfully sent alerts.
func (g *CaptureGateway) Alerts() []Alert {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Alert, len(g.alerts))
	copy(out, g.alerts)
	return out
}
