package notify

import (
	"context"
	"log/slog"
)

// ConsoleGateway logs alerts instead of sending them. Used when no transport
// is configured, so local development exercises the full notification path.
type ConsoleGateway struct {
	logger *slog.Logger
}

var _ Gateway = (*ConsoleGateway)(nil)

func NewConsole(logger *slog.Logger) *ConsoleGateway {
	return &ConsoleGateway{logger: logger}
}

func (g *ConsoleGateway) Send(ctx context.Context, alert Alert) error {
	g.logger.InfoContext(ctx, "alert (console, not sent)",
		"student_id", alert.StudentID,
		"contact", alert.Contact,
		"status", alert.Status,
		"message", Message(alert),
	)
	return nil
}
