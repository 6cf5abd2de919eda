package shared

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the wire shape of every event exchanged on the bus
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEnvelope marshals payload as the data of an envelope tagged eventType
func NewEnvelope(eventType string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Envelope{Event: eventType, Data: data}, nil
}

// DecodeEnvelope parses raw bytes into an envelope. An unparseable body or a
// missing event tag is a malformed-input failure.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, Malformed(fmt.Errorf("failed to unmarshal envelope: %w", err))
	}
	if env.Event == "" {
		return Envelope{}, Malformed(fmt.Errorf("envelope has no event tag"))
	}
	return env, nil
}

// Message is one delivery received from a transport
type Message struct {
	// Key uniquely identifies the delivery on its transport (topic/partition/offset)
	Key        string
	Topic      string
	Partition  int
	Offset     int64
	Value      []byte
	ReceivedAt time.Time
}

// Timestamped is the payload of identity synchronisation events
type Timestamped struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}
