package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRules = Rules{
	SlotDuration:  time.Hour,
	PresentWindow: 5 * time.Minute,
	LateWindow:    10 * time.Minute,
	NotifyWindow:  time.Hour,
}

func TestDecide(t *testing.T) {
	slotStart := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	seenAt := func(offset time.Duration) *time.Time {
		ts := slotStart.Add(offset)
		return &ts
	}

	t.Run("status boundaries", func(t *testing.T) {
		cases := []struct {
			name   string
			offset time.Duration
			want   Status
		}{
			{"at slot start", 0, StatusPresent},
			{"exactly present window", 5 * time.Minute, StatusPresent},
			{"just past present window", 5*time.Minute + time.Second, StatusLate},
			{"seven minutes in", 7 * time.Minute, StatusLate},
			{"exactly late window", 10 * time.Minute, StatusLate},
			{"just past late window", 10*time.Minute + time.Second, StatusAbsent},
			{"eleven minutes in", 11 * time.Minute, StatusAbsent},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				status, ok := Decide(seenAt(tc.offset), slotStart, slotStart.Add(tc.offset), testRules)
				require.True(t, ok)
				assert.Equal(t, tc.want, status)
			})
		}
	})

	t.Run("never seen, grace elapsed", func(t *testing.T) {
		status, ok := Decide(nil, slotStart, slotStart.Add(11*time.Minute), testRules)
		require.True(t, ok)
		assert.Equal(t, StatusAbsent, status)
	})

	t.Run("never seen, grace not elapsed is pending", func(t *testing.T) {
		_, ok := Decide(nil, slotStart, slotStart.Add(9*time.Minute), testRules)
		assert.False(t, ok)
	})

	t.Run("never seen, exactly at grace boundary is still pending", func(t *testing.T) {
		_, ok := Decide(nil, slotStart, slotStart.Add(10*time.Minute), testRules)
		assert.False(t, ok)
	})
}

func TestDecideFinal(t *testing.T) {
	slotStart := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	t.Run("never seen forced absent", func(t *testing.T) {
		assert.Equal(t, StatusAbsent, DecideFinal(nil, slotStart, testRules))
	})

	t.Run("seen subject keeps timing-based status", func(t *testing.T) {
		early := slotStart.Add(2 * time.Minute)
		assert.Equal(t, StatusPresent, DecideFinal(&early, slotStart, testRules))

		lateTS := slotStart.Add(8 * time.Minute)
		assert.Equal(t, StatusLate, DecideFinal(&lateTS, slotStart, testRules))

		tooLate := slotStart.Add(20 * time.Minute)
		assert.Equal(t, StatusAbsent, DecideFinal(&tooLate, slotStart, testRules))
	})
}
