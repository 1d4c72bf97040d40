// Package events publishes finalized attendance outcomes and sent alerts to
// a Kafka-compatible broker for downstream consumers (dashboards, exports).
// Publishing is best-effort and asynchronous: the frame loop never waits on
// the broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"rollcall/internal/attendance"
)

// Event types carried on the topic.
const (
	TypeAttendanceFinalized = "attendance.finalized"
	TypeAlertSent           = "alert.sent"
)

// Envelope is the wire shape of every published event.
type Envelope struct {
	Type       string     `json:"type"`
	SubjectID  string     `json:"subject_id"`
	Date       string     `json:"date"`
	Slot       string     `json:"slot,omitempty"`
	Window     string     `json:"window,omitempty"`
	Status     string     `json:"status,omitempty"`
	FirstSeen  *time.Time `json:"first_seen,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Publisher emits engine events. Implementations must not block the caller
// on broker I/O.
type Publisher interface {
	AttendanceFinalized(ctx context.Context, rec *attendance.Record)
	AlertSent(ctx context.Context, n *attendance.Notification)
	Close()
}

// KafkaPublisher produces events with franz-go. Delivery failures are logged
// and dropped; the ledger, not the topic, is the source of truth.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafka connects to the brokers and ensures the topic exists.
func NewKafka(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", topic, err)
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("ensure topic %s: %w", topic, res.Err)
		}
	}

	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

func (p *KafkaPublisher) AttendanceFinalized(ctx context.Context, rec *attendance.Record) {
	key := rec.Key()
	p.produce(ctx, rec.SubjectID, Envelope{
		Type:       TypeAttendanceFinalized,
		SubjectID:  rec.SubjectID,
		Date:       key.Date,
		Slot:       key.Slot,
		Status:     string(rec.Status),
		FirstSeen:  rec.FirstSeen,
		OccurredAt: rec.RecordedAt,
	})
}

func (p *KafkaPublisher) AlertSent(ctx context.Context, n *attendance.Notification) {
	p.produce(ctx, n.SubjectID, Envelope{
		Type:       TypeAlertSent,
		SubjectID:  n.SubjectID,
		Date:       n.Window.Date,
		Window:     n.Window.Window,
		OccurredAt: n.SentAt,
	})
}

func (p *KafkaPublisher) produce(ctx context.Context, key string, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal event", "type", env.Type, "error", err)
		return
	}

	record := &kgo.Record{Topic: p.topic, Key: []byte(key), Value: payload}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.WarnContext(ctx, "event publish failed",
				"type", env.Type,
				"subject_id", env.SubjectID,
				"error", err,
			)
		}
	})
}

// Close flushes pending records and releases the client.
func (p *KafkaPublisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) AttendanceFinalized(context.Context, *attendance.Record) {}

func (NoopPublisher) AlertSent(context.Context, *attendance.Notification) {}

func (NoopPublisher) Close() {}
