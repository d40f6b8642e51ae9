package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is one event bound for the booking-events topic.
type Message struct {
	Key       string            // partition key (organization ID, for per-org ordering)
	Value     []byte            // JSON payload
	Headers   map[string]string // event metadata
	Timestamp time.Time
}

const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
	HeaderSource    = "source"
	HeaderTimestamp = "timestamp"
)

// NewMessage builds a message with a generated event ID and JSON-encoded
// payload. A nil return means the payload could not be encoded.
func NewMessage(key, eventType, source string, payload any) *Message {
	value, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	now := time.Now()
	return &Message{
		Key:       key,
		Value:     value,
		Timestamp: now,
		Headers: map[string]string{
			HeaderEventID:   uuid.New().String(),
			HeaderEventType: eventType,
			HeaderSource:    source,
			HeaderTimestamp: now.Format(time.RFC3339),
		},
	}
}

// DecodeValue decodes the message payload into v.
func (m *Message) DecodeValue(v any) error {
	return json.Unmarshal(m.Value, v)
}
