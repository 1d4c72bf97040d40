// Package ingest is the boundary to the external embedding extractor. The
// vision sidecar posts per-frame detections over HTTP; the queue replays
// them to the session loop as a single ordered stream.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rollcall/internal/platform/sentinel"
	"rollcall/internal/recognition"
)

// queueSize bounds buffered frames. The sidecar is expected to back off when
// the engine falls behind rather than queue unbounded work.
const queueSize = 256

// Item is one captured frame's worth of detections.
type Item struct {
	CapturedAt time.Time
	Detections []recognition.Detection
}

// Queue adapts posted detections to the session's frame source and extractor.
// Next and Extract are called from the single frame-loop goroutine; Push may
// be called concurrently by HTTP handlers.
type Queue struct {
	mu       sync.Mutex
	ch       chan Item
	closed   bool
	idleTick time.Duration

	// cur holds the detections of the frame most recently returned by Next,
	// consumed by the immediately following Extract call.
	cur []recognition.Detection
}

// NewQueue builds an ingest queue. When idleTick is positive and no frame
// arrives within it, Next yields a synthetic empty frame so slot sweeps and
// rollover keep running through a quiet or disconnected sidecar.
func NewQueue(idleTick time.Duration) *Queue {
	return &Queue{ch: make(chan Item, queueSize), idleTick: idleTick}
}

// Push enqueues one frame's detections. A full queue rejects the frame so a
// stalled session cannot back-pressure the sidecar into timeouts.
func (q *Queue) Push(item Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("ingest queue closed: %w", sentinel.ErrUnavailable)
	}
	select {
	case q.ch <- item:
		return nil
	default:
		return fmt.Errorf("ingest queue full: %w", sentinel.ErrUnavailable)
	}
}

// Close stops the queue. Subsequent Push calls fail and Next drains what is
// buffered before reporting the context error.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Next blocks until a frame is available, the idle tick fires, or the
// context ends.
func (q *Queue) Next(ctx context.Context) (recognition.Frame, error) {
	var idle <-chan time.Time
	if q.idleTick > 0 {
		timer := time.NewTimer(q.idleTick)
		defer timer.Stop()
		idle = timer.C
	}

	select {
	case item, ok := <-q.ch:
		if !ok {
			return recognition.Frame{}, context.Canceled
		}
		q.cur = item.Detections
		at := item.CapturedAt
		if at.IsZero() {
			at = time.Now()
		}
		return recognition.Frame{CapturedAt: at}, nil
	case <-idle:
		q.cur = nil
		return recognition.Frame{CapturedAt: time.Now()}, nil
	case <-ctx.Done():
		return recognition.Frame{}, ctx.Err()
	}
}

// Extract returns the detections attached to the frame Next just yielded.
// The extraction itself happened in the sidecar; this side only replays it.
func (q *Queue) Extract(_ context.Context, _ recognition.Frame) ([]recognition.Detection, error) {
	return q.cur, nil
}
