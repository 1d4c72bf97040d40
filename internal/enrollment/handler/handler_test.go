package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/enrollment"
)

func newEnrollmentRouter() chi.Router {
	r := chi.NewRouter()
	New(enrollment.NewMemory(), slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func enrollPayload() EnrollRequest {
	return EnrollRequest{
		ID:          "s-100",
		Name:        "Priya Iyer",
		Class:       "9",
		Section:     "B",
		ParentEmail: "iyer@example.com",
		Embedding:   []float64{0.12, -0.5, 0.33},
	}
}

func TestEnrollAndFetchStudent(t *testing.T) {
	router := newEnrollmentRouter()

	body, _ := json.Marshal(enrollPayload())
	req := httptest.NewRequest(http.MethodPost, "/students", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 enrolling student, got %d: %s", rec.Code, rec.Body)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/students/s-100", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching student, got %d", getRec.Code)
	}

	var resp StudentResponse
	if err := json.NewDecoder(getRec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode student response: %v", err)
	}
	if resp.Name != "Priya Iyer" {
		t.Fatalf("expected enrolled name, got %q", resp.Name)
	}
	if resp.Dimensions != 3 {
		t.Fatalf("expected 3 embedding dimensions, got %d", resp.Dimensions)
	}
}

func TestEnrollRejectsIncompleteStudent(t *testing.T) {
	router := newEnrollmentRouter()

	payload := enrollPayload()
	payload.Embedding = nil
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/students", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing embedding, got %d", rec.Code)
	}
}

func TestReenrollmentOverwrites(t *testing.T) {
	router := newEnrollmentRouter()

	first, _ := json.Marshal(enrollPayload())
	req := httptest.NewRequest(http.MethodPost, "/students", bytes.NewReader(first))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	updated := enrollPayload()
	updated.Name = "Priya S Iyer"
	second, _ := json.Marshal(updated)
	req = httptest.NewRequest(http.MethodPost, "/students", bytes.NewReader(second))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 re-enrolling, got %d", rec.Code)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/students", nil)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)

	var students []StudentResponse
	if err := json.NewDecoder(listRec.Body).Decode(&students); err != nil {
		t.Fatalf("failed to decode roster: %v", err)
	}
	if len(students) != 1 {
		t.Fatalf("expected 1 student after re-enrollment, got %d", len(students))
	}
	if students[0].Name != "Priya S Iyer" {
		t.Fatalf("expected overwritten name, got %q", students[0].Name)
	}
}

func TestUnknownStudentIs404(t *testing.T) {
	router := newEnrollmentRouter()

	req := httptest.NewRequest(http.MethodGet, "/students/s-999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown student, got %d", rec.Code)
	}
}
