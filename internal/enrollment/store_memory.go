package enrollment

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rollcall/internal/platform/sentinel"
)

// MemoryStore is the in-memory roster, used for dev sessions and tests, and
// as the backing for CSV-loaded rosters.
type MemoryStore struct {
	mu       sync.RWMutex
	students map[string]*Student
}

var _ Store = (*MemoryStore)(nil)

func NewMemory() *MemoryStore {
	return &MemoryStore{students: make(map[string]*Student)}
}

func (s *MemoryStore) Upsert(_ context.Context, student *Student) error {
	if err := student.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *student
	s.students[student.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	student, ok := s.students[id]
	if !ok {
		return nil, fmt.Errorf("student %q: %w", id, sentinel.ErrNotFound)
	}
	cp := *student
	return &cp, nil
}

// List returns students sorted by ID so matching order is stable.
func (s *MemoryStore) List(_ context.Context) ([]*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Student, 0, len(s.students))
	for _, student := range s.students {
		cp := *student
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
