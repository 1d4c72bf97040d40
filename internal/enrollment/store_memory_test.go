package enrollment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"rollcall/internal/platform/sentinel"
	"rollcall/internal/recognition"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
}

func newStudent(id string) *Student {
	return &Student{
		ID:          id,
		Name:        "Student " + id,
		Class:       "10",
		Section:     "A",
		ParentPhone: "+1555000" + id,
		Embedding:   recognition.Embedding{0.1, 0.2, 0.3},
	}
}

func (s *MemoryStoreSuite) TestUpsert() {
	s.Run("create then get", func() {
		s.Require().NoError(s.store.Upsert(s.ctx, newStudent("s1")))

		got, err := s.store.Get(s.ctx, "s1")
		s.Require().NoError(err)
		s.Equal("Student s1", got.Name)
	})

	s.Run("re-enrollment overwrites by id", func() {
		s.Require().NoError(s.store.Upsert(s.ctx, newStudent("s1")))

		updated := newStudent("s1")
		updated.Embedding = recognition.Embedding{0.9, 0.9, 0.9}
		s.Require().NoError(s.store.Upsert(s.ctx, updated))

		got, err := s.store.Get(s.ctx, "s1")
		s.Require().NoError(err)
		s.Equal(recognition.Embedding{0.9, 0.9, 0.9}, got.Embedding)
	})

	s.Run("invalid student rejected", func() {
		bad := newStudent("s2")
		bad.Name = ""
		s.Error(s.store.Upsert(s.ctx, bad))
	})
}

func (s *MemoryStoreSuite) TestGetUnknown() {
	_, err := s.store.Get(s.ctx, "ghost")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestListStableOrder() {
	for _, id := range []string{"s3", "s1", "s2"} {
		s.Require().NoError(s.store.Upsert(s.ctx, newStudent(id)))
	}

	students, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(students, 3)
	s.Equal("s1", students[0].ID)
	s.Equal("s2", students[1].ID)
	s.Equal("s3", students[2].ID)
}

func (s *MemoryStoreSuite) TestListReturnsCopies() {
	s.Require().NoError(s.store.Upsert(s.ctx, newStudent("s1")))

	students, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	students[0].Name = "mutated"

	got, err := s.store.Get(s.ctx, "s1")
	s.Require().NoError(err)
	s.Equal("Student s1", got.Name)
}
