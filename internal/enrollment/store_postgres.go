package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rollcall/internal/platform/sentinel"
)

// PostgresStore persists the roster in PostgreSQL. Embeddings are stored as
// float8 arrays; pq.Float64Array handles the conversion both ways.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the students table when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS students (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			class TEXT NOT NULL,
			section TEXT NOT NULL,
			parent_phone TEXT NOT NULL DEFAULT '',
			parent_email TEXT NOT NULL DEFAULT '',
			embedding FLOAT8[] NOT NULL
		);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate students schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, student *Student) error {
	if err := student.Validate(); err != nil {
		return err
	}
	const query = `
		INSERT INTO students (id, name, class, section, parent_phone, parent_email, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			class = EXCLUDED.class,
			section = EXCLUDED.section,
			parent_phone = EXCLUDED.parent_phone,
			parent_email = EXCLUDED.parent_email,
			embedding = EXCLUDED.embedding
	`
	_, err := s.db.ExecContext(ctx, query,
		student.ID, student.Name, student.Class, student.Section,
		student.ParentPhone, student.ParentEmail, pq.Float64Array(student.Embedding),
	)
	if err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Student, error) {
	const query = `
		SELECT id, name, class, section, parent_phone, parent_email, embedding
		FROM students WHERE id = $1
	`
	student, err := scanStudent(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("student %q: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return student, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Student, error) {
	const query = `
		SELECT id, name, class, section, parent_phone, parent_email, embedding
		FROM students ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []*Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*Student, error) {
	var student Student
	var embedding pq.Float64Array
	err := row.Scan(
		&student.ID, &student.Name, &student.Class, &student.Section,
		&student.ParentPhone, &student.ParentEmail, &embedding,
	)
	if err != nil {
		return nil, err
	}
	student.Embedding = []float64(embedding)
	return &student, nil
}
