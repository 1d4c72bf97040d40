package attendance

import "time"

// Rules are the per-session thresholds converting detection timing into a
// status. PresentWindow and LateWindow are offsets from slot start; a subject
// first seen within PresentWindow is present, within LateWindow late, and
// beyond that absent. NotifyWindow is the independent bucket used to
// rate-limit repeat absentee alerts.
type Rules struct {
	SlotDuration  time.Duration
	PresentWindow time.Duration
	LateWindow    time.Duration
	NotifyWindow  time.Duration
}

// Decide converts a subject's first-seen time (nil when never detected) into
// a status. The second return is false while no decision can be made yet:
// the subject has not been seen and the grace period has not elapsed.
func Decide(firstSeen *time.Time, slotStart, now time.Time, rules Rules) (Status, bool) {
	if firstSeen != nil {
		delta := firstSeen.Sub(slotStart)
		switch {
		case delta <= rules.PresentWindow:
			return StatusPresent, true
		case delta <= rules.LateWindow:
			return StatusLate, true
		default:
			// Detected too late to count, still logged with the real
			// first-seen time.
			return StatusAbsent, true
		}
	}

	if now.Sub(slotStart) > rules.LateWindow {
		return StatusAbsent, true
	}
	return "", false
}

// DecideFinal forces a terminal status at slot rollover or shutdown, when
// waiting out the grace period is no longer an option. A subject never seen
// is absent; a seen subject is classified by its first-seen time as usual.
func DecideFinal(firstSeen *time.Time, slotStart time.Time, rules Rules) Status {
	if firstSeen == nil {
		return StatusAbsent
	}
	status, _ := Decide(firstSeen, slotStart, slotStart, rules)
	return status
}
