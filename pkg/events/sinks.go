package events

import (
	"context"
	"time"

	"orari/pkg/logger"
	"orari/pkg/model"
)

// NotificationSink receives booking lifecycle changes after they commit.
// Implementations are fire-and-forget: failures are logged, never
// propagated into the booking result.
type NotificationSink interface {
	OnBookingChanged(ctx context.Context, booking *model.Booking, kind model.ChangeKind)
}

// AuditSink receives booking deletions for external audit storage.
type AuditSink interface {
	OnBookingDeleted(ctx context.Context, booking *model.Booking, kind model.ChangeKind)
}

// BookingEvent is the wire payload for booking change events.
type BookingEvent struct {
	Kind      model.ChangeKind `json:"kind"`
	Booking   *model.Booking   `json:"booking"`
	EmittedAt time.Time        `json:"emitted_at"`
}

// KafkaSink publishes booking events to the booking-events topic. It
// serves as both the notification and the audit sink.
type KafkaSink struct {
	producer *Producer
	source   string
	log      *logger.Logger
}

func NewKafkaSink(producer *Producer, source string, log *logger.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, source: source, log: log}
}

func (s *KafkaSink) OnBookingChanged(ctx context.Context, booking *model.Booking, kind model.ChangeKind) {
	s.publish(ctx, booking, kind)
}

func (s *KafkaSink) OnBookingDeleted(ctx context.Context, booking *model.Booking, kind model.ChangeKind) {
	s.publish(ctx, booking, kind)
}

func (s *KafkaSink) publish(ctx context.Context, booking *model.Booking, kind model.ChangeKind) {
	msg := NewMessage(booking.OrgID, "booking."+string(kind), s.source, BookingEvent{
		Kind:      kind,
		Booking:   booking,
		EmittedAt: time.Now().UTC(),
	})
	if msg == nil {
		s.log.Error("Failed to encode booking event", "booking_id", booking.ID, "kind", kind)
		return
	}
	if err := s.producer.Publish(ctx, msg); err != nil {
		s.log.Error("Failed to publish booking event",
			"booking_id", booking.ID,
			"kind", kind,
			"error", err,
		)
	}
}

// NoopSink discards events. Used when no Kafka brokers are configured.
type NoopSink struct{}

func (NoopSink) OnBookingChanged(context.Context, *model.Booking, model.ChangeKind) {}
func (NoopSink) OnBookingDeleted(context.Context, *model.Booking, model.ChangeKind) {}
