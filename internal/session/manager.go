package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"rollcall/internal/platform/sentinel"
)

// Manager adapts the blocking Service.Run to the start/stop/status control
// surface. At most one session runs at a time.
type Manager struct {
	service *Service
	logger  *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

func NewManager(service *Service, logger *slog.Logger) *Manager {
	return &Manager{service: service, logger: logger}
}

// Start launches a session in the background and returns its ID.
// Returns sentinel.ErrInvalidState when a session is already running.
func (m *Manager) Start(cfg Config) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done != nil {
		select {
		case <-m.done:
			// Previous session finished on its own; fall through.
		default:
			return uuid.Nil, fmt.Errorf("session already running: %w", sentinel.ErrInvalidState)
		}
	}

	id, err := m.service.start()
	if err != nil {
		return uuid.Nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.lastErr = nil

	go func() {
		defer close(done)
		if err := m.service.run(ctx, cfg); err != nil {
			m.logger.Error("session ended with error", "error", err)
			m.mu.Lock()
			m.lastErr = err
			m.mu.Unlock()
		}
	}()

	return id, nil
}

// Stop signals the running session to finish and waits for its final sweep.
// Stopping an already-stopped manager is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for session shutdown: %w", ctx.Err())
	}
}

// Status reports the underlying service state plus the last session error.
func (m *Manager) Status() (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.service.Status(), m.lastErr
}
