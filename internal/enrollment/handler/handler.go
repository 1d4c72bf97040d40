package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/enrollment"
	"rollcall/internal/platform/httputil"
	"rollcall/internal/recognition"
)

// Handler wires student enrollment endpoints to the roster store.
type Handler struct {
	store  enrollment.Store
	logger *slog.Logger
}

func New(store enrollment.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts enrollment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/students", h.HandleEnroll)
	r.Get("/students", h.HandleList)
	r.Get("/students/{id}", h.HandleGet)
}

// EnrollRequest is the wire shape for registering or re-registering a
// student. Re-enrollment with an existing ID overwrites the prior record.
type EnrollRequest struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Class       string    `json:"class"`
	Section     string    `json:"section"`
	ParentPhone string    `json:"parent_phone,omitempty"`
	ParentEmail string    `json:"parent_email,omitempty"`
	Embedding   []float64 `json:"embedding"`
}

// StudentResponse echoes enrollment without the embedding payload.
type StudentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Class       string `json:"class"`
	Section     string `json:"section"`
	ParentPhone string `json:"parent_phone,omitempty"`
	ParentEmail string `json:"parent_email,omitempty"`
	Dimensions  int    `json:"embedding_dimensions"`
}

// HandleEnroll handles POST /students requests.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[EnrollRequest](w, r)
	if !ok {
		return
	}

	student := &enrollment.Student{
		ID:          req.ID,
		Name:        req.Name,
		Class:       req.Class,
		Section:     req.Section,
		ParentPhone: req.ParentPhone,
		ParentEmail: req.ParentEmail,
		Embedding:   recognition.Embedding(req.Embedding),
	}
	if err := student.Validate(); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.store.Upsert(ctx, student); err != nil {
		h.logger.ErrorContext(ctx, "student enrollment failed",
			"student_id", student.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "student enrolled",
		"student_id", student.ID,
		"class", student.Class,
		"section", student.Section,
	)
	httputil.WriteJSON(w, http.StatusCreated, toResponse(student))
}

// HandleList handles GET /students requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "roster listing failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	resp := make([]StudentResponse, 0, len(students))
	for _, st := range students {
		resp = append(resp, toResponse(st))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /students/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	student, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(student))
}

func toResponse(st *enrollment.Student) StudentResponse {
	return StudentResponse{
		ID:          st.ID,
		Name:        st.Name,
		Class:       st.Class,
		Section:     st.Section,
		ParentPhone: st.ParentPhone,
		ParentEmail: st.ParentEmail,
		Dimensions:  len(st.Embedding),
	}
}
