// Package notify delivers absentee alerts to parents. The engine decides
// when an alert is due; this package only formats and transports it.
package notify

import (
	"context"
	"fmt"
	"strings"

	"rollcall/internal/attendance"
)

// Alert is one absentee message to a parent.
type Alert struct {
	StudentID   string
	StudentName string
	Class       string
	Section     string
	Contact     string
	Status      attendance.Status
	Date        string
}

// Gateway sends a single alert. A returned error means not delivered: the
// caller leaves the notification unrecorded so a later pass may retry within
// the same window.
type Gateway interface {
	Send(ctx context.Context, alert Alert) error
}

// Subject renders the alert subject line.
func Subject(a Alert) string {
	return fmt.Sprintf("Attendance alert: %s marked %s", a.StudentName, a.Status)
}

// Message renders the deterministic alert body. Field order mirrors the SMS
// template parents already receive.
func Message(a Alert) string {
	return fmt.Sprintf(
		"Smart Attendance Alert\n\n"+
			"Student: %s\n"+
			"Class: %s-%s\n"+
			"Date: %s\n"+
			"Status: %s\n\n"+
			"If this is incorrect, please contact school.",
		a.StudentName, a.Class, a.Section, a.Date, strings.ToUpper(string(a.Status)),
	)
}
