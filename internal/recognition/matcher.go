package recognition

import (
	"context"
	"log/slog"
)

// Extractor is the external face-model boundary: it finds faces in a frame
// and produces one embedding per face. Implementations may return an error
// when no face is detected; callers treat that as zero detections.
type Extractor interface {
	Extract(ctx context.Context, frame Frame) ([]Detection, error)
}

// Enrolled pairs a subject with its enrollment-time embedding. Matching
// iterates the slice in order, so a fixed snapshot matches deterministically.
type Enrolled struct {
	SubjectID string
	Embedding Embedding
}

// Matcher scores query embeddings against an enrolled set. It is
// threshold-agnostic; acceptance policy belongs to the caller.
type Matcher struct {
	logger *slog.Logger
}

func NewMatcher(logger *slog.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Match returns the best-scoring subject and its cosine similarity.
// An empty enrolled set yields ("", -1). Entries whose stored embedding does
// not score against the query (dimension mismatch, zero norm) are skipped
// with a warning so one corrupt enrollment cannot block everyone else.
func (m *Matcher) Match(query Embedding, enrolled []Enrolled) (string, float64) {
	bestID := ""
	bestScore := -1.0

	for _, e := range enrolled {
		score, err := Cosine(query, e.Embedding)
		if err != nil {
			m.logger.Warn("skipping enrollment entry",
				"subject_id", e.SubjectID,
				"error", err,
			)
			continue
		}
		if score > bestScore {
			bestScore = score
			bestID = e.SubjectID
		}
	}

	return bestID, bestScore
}
