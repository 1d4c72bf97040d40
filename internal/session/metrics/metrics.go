package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the recognition engine.
type Metrics struct {
	FramesProcessed    prometheus.Counter
	ExtractionFailures prometheus.Counter
	MatchesAccepted    prometheus.Counter
	UnknownFaces       prometheus.Counter

	AttendanceRecorded *prometheus.CounterVec
	DuplicateWrites    prometheus.Counter
	AlertsSent         prometheus.Counter
	AlertFailures      prometheus.Counter
}

// New creates and registers all engine metrics on the given registerer.
// Tests pass a fresh registry; main passes the default one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FramesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_frames_processed_total",
			Help: "Total number of camera frames run through the pipeline",
		}),
		ExtractionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_extraction_failures_total",
			Help: "Frames on which face extraction failed (skipped, non-fatal)",
		}),
		MatchesAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_matches_accepted_total",
			Help: "Detections matched to an enrolled student above threshold",
		}),
		UnknownFaces: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_unknown_faces_total",
			Help: "Detections below the acceptance threshold",
		}),
		AttendanceRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_attendance_recorded_total",
			Help: "Attendance records written, by status",
		}, []string{"status"}),
		DuplicateWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_duplicate_writes_total",
			Help: "Attendance writes skipped because the ledger key existed",
		}),
		AlertsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_alerts_sent_total",
			Help: "Absentee alerts delivered and recorded",
		}),
		AlertFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_alert_failures_total",
			Help: "Absentee alert sends that failed (eligible for retry)",
		}),
	}
}
