package attendance

import "time"

// SlotStart truncates now down to the start of its enclosing slot, in local
// wall-clock terms: hourly slots start at the top of the hour regardless of
// the zone's UTC offset. Idempotent: SlotStart(SlotStart(t)) == SlotStart(t).
func SlotStart(now time.Time, granularity time.Duration) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	elapsed := now.Sub(midnight)
	return midnight.Add(elapsed - elapsed%granularity)
}

// SlotEnd returns the exclusive end of the slot containing now.
func SlotEnd(now time.Time, granularity time.Duration) time.Time {
	return SlotStart(now, granularity).Add(granularity)
}
