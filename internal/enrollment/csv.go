package enrollment

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"rollcall/internal/recognition"
)

// csvHeader is the expected roster column layout. The embedding column holds
// the vector as semicolon-separated decimals.
var csvHeader = []string{"id", "name", "class", "section", "parent_phone", "parent_email", "embedding"}

// LoadCSV reads a roster file, validating every row. Any malformed or
// incomplete row fails the load: a session must refuse to start with partial
// subject data rather than silently skip students.
func LoadCSV(path string) ([]*Student, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read roster header: %w", err)
	}
	for i, want := range csvHeader {
		if header[i] != want {
			return nil, fmt.Errorf("roster %s: column %d is %q, want %q", path, i, header[i], want)
		}
	}

	var (
		students []*Student
		dim      int
		line     = 1
	)
	for {
		line++
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("roster %s line %d: %w", path, line, err)
		}

		embedding, err := parseEmbedding(row[6])
		if err != nil {
			return nil, fmt.Errorf("roster %s line %d: %w", path, line, err)
		}

		student := &Student{
			ID:          row[0],
			Name:        row[1],
			Class:       row[2],
			Section:     row[3],
			ParentPhone: row[4],
			ParentEmail: row[5],
			Embedding:   embedding,
		}
		if err := student.Validate(); err != nil {
			return nil, fmt.Errorf("roster %s line %d: %w", path, line, err)
		}

		// All embeddings must share the enrollment-time dimension.
		if dim == 0 {
			dim = len(embedding)
		} else if len(embedding) != dim {
			return nil, fmt.Errorf("roster %s line %d: embedding has %d dims, roster uses %d",
				path, line, len(embedding), dim)
		}

		students = append(students, student)
	}
	return students, nil
}

func parseEmbedding(field string) (recognition.Embedding, error) {
	if strings.TrimSpace(field) == "" {
		return nil, fmt.Errorf("empty embedding")
	}
	parts := strings.Split(field, ";")
	out := make(recognition.Embedding, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse embedding component %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// EncodeEmbedding renders a vector in the roster CSV encoding.
func EncodeEmbedding(e recognition.Embedding) string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ";")
}
