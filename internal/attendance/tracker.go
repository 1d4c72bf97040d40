package attendance

import "time"

// EntryState is the per-subject lifecycle within one active slot.
type EntryState int

const (
	NotSeen EntryState = iota
	Seen
	Finalized
)

type entry struct {
	firstSeen *time.Time
	state     EntryState
}

// Tracker holds per-subject first-seen state for the single active slot.
// It is not safe for concurrent use: one frame loop owns it exclusively.
// Durable outcomes live in the ledger; the tracker is discarded on rollover
// after every entry has been finalized.
type Tracker struct {
	slotStart time.Time
	entries   map[string]*entry
	order     []string
}

// NewTracker builds fresh NOT_SEEN entries for every enrolled subject.
func NewTracker(slotStart time.Time, roster []string) *Tracker {
	t := &Tracker{
		slotStart: slotStart,
		entries:   make(map[string]*entry, len(roster)),
		order:     make([]string, 0, len(roster)),
	}
	for _, id := range roster {
		if _, dup := t.entries[id]; dup {
			continue
		}
		t.entries[id] = &entry{}
		t.order = append(t.order, id)
	}
	return t
}

// SlotStart returns the start of the slot this tracker covers.
func (t *Tracker) SlotStart() time.Time {
	return t.slotStart
}

// Observe records a detection for a subject. Only the first detection in the
// slot sets first-seen; later ones are no-ops. Returns true on the first
// observation. Unknown subjects and already-finalized entries are ignored.
func (t *Tracker) Observe(subjectID string, at time.Time) bool {
	e, ok := t.entries[subjectID]
	if !ok || e.state != NotSeen {
		return false
	}
	seen := at
	e.firstSeen = &seen
	e.state = Seen
	return true
}

// Snapshot is a read-only view of one subject's in-slot state.
type Snapshot struct {
	SubjectID string
	FirstSeen *time.Time
	State     EntryState
}

// Unfinalized returns entries still awaiting a terminal record, in roster
// order.
func (t *Tracker) Unfinalized() []Snapshot {
	var out []Snapshot
	for _, id := range t.order {
		e := t.entries[id]
		if e.state == Finalized {
			continue
		}
		out = append(out, Snapshot{SubjectID: id, FirstSeen: e.firstSeen, State: e.state})
	}
	return out
}

// Finalize marks a subject's entry terminal. The caller has already flushed
// the outcome to the ledger.
func (t *Tracker) Finalize(subjectID string) {
	if e, ok := t.entries[subjectID]; ok {
		e.state = Finalized
	}
}

// FirstSeen exposes a subject's first detection time, nil when not seen.
func (t *Tracker) FirstSeen(subjectID string) *time.Time {
	if e, ok := t.entries[subjectID]; ok {
		return e.firstSeen
	}
	return nil
}
