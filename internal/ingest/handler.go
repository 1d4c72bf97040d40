package ingest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/platform/httputil"
	"rollcall/internal/recognition"
)

// Handler receives detection batches from the vision sidecar.
type Handler struct {
	queue  *Queue
	logger *slog.Logger
}

func NewHandler(queue *Queue, logger *slog.Logger) *Handler {
	return &Handler{queue: queue, logger: logger}
}

// Register mounts the ingest endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/frames", h.HandleFrame)
}

// FrameRequest is one frame's detections as posted by the sidecar. An empty
// detection list is valid: a frame with no recognizable face still advances
// the session clock.
type FrameRequest struct {
	CapturedAt time.Time          `json:"captured_at,omitempty"`
	Detections []DetectionPayload `json:"detections"`
}

type DetectionPayload struct {
	Embedding []float64 `json:"embedding"`
}

// HandleFrame handles POST /frames requests.
func (h *Handler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[FrameRequest](w, r)
	if !ok {
		return
	}

	item := Item{
		CapturedAt: req.CapturedAt,
		Detections: make([]recognition.Detection, 0, len(req.Detections)),
	}
	for _, d := range req.Detections {
		if len(d.Embedding) == 0 {
			httputil.WriteBadRequest(w, "detection with empty embedding")
			return
		}
		item.Detections = append(item.Detections, recognition.Detection{
			Embedding: recognition.Embedding(d.Embedding),
		})
	}

	if err := h.queue.Push(item); err != nil {
		h.logger.WarnContext(r.Context(), "frame rejected", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, nil)
}
