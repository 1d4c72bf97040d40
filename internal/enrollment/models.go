package enrollment

import (
	"fmt"
	"strings"

	"rollcall/internal/recognition"
)

// Student is one enrolled subject. Immutable for the duration of a session;
// re-enrollment overwrites by ID and is observed at the next session start.
type Student struct {
	ID          string
	Name        string
	Class       string
	Section     string
	ParentPhone string
	ParentEmail string
	Embedding   recognition.Embedding
}

// Contact returns the notification address for this student, preferring
// email (deliverable without an SMS transport) and falling back to phone.
func (s *Student) Contact() string {
	if s.ParentEmail != "" {
		return s.ParentEmail
	}
	return s.ParentPhone
}

// Validate rejects partial subject data. A session running with gaps here
// would silently corrupt attendance for the affected students, so the
// boundary is strict.
func (s *Student) Validate() error {
	var missing []string
	if s.ID == "" {
		missing = append(missing, "id")
	}
	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.Class == "" {
		missing = append(missing, "class")
	}
	if s.Section == "" {
		missing = append(missing, "section")
	}
	if s.ParentPhone == "" && s.ParentEmail == "" {
		missing = append(missing, "contact")
	}
	if len(s.Embedding) == 0 {
		missing = append(missing, "embedding")
	}
	if len(missing) > 0 {
		return fmt.Errorf("student %q missing required fields: %s", s.ID, strings.Join(missing, ", "))
	}
	return nil
}
