package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/erp/catalogsync/internal/domain/shared"
)

// MockEventHandler is a mock implementation of shared.EventHandler for testing.
type MockEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.Envelope
	err        error
}

// NewMockEventHandler creates a new mock event handler.
func NewMockEventHandler(eventTypes ...string) *MockEventHandler {
	return &MockEventHandler{eventTypes: eventTypes}
}

// EventTypes returns the event types this handler subscribes to.
func (h *MockEventHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records the envelope.
func (h *MockEventHandler) Handle(ctx context.Context, env shared.Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, env)
	return h.err
}

// Handled returns all handled envelopes.
func (h *MockEventHandler) Handled() []shared.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]shared.Envelope, len(h.handled))
	copy(result, h.handled)
	return result
}

// HandledCount returns the number of handled envelopes.
func (h *MockEventHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// SetError sets the error to return from Handle.
func (h *MockEventHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Published is one call recorded by RecordingPublisher
type Published struct {
	Key      string
	Envelope shared.Envelope
}

// RecordingPublisher is a shared.EventPublisher that keeps what it is given.
type RecordingPublisher struct {
	mu        sync.Mutex
	published []Published
	err       error
}

// NewRecordingPublisher creates a new RecordingPublisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// Publish records the envelopes, or returns the configured error.
func (p *RecordingPublisher) Publish(ctx context.Context, key string, envelopes ...shared.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for _, env := range envelopes {
		p.published = append(p.published, Published{Key: key, Envelope: env})
	}
	return nil
}

// SetError makes subsequent publishes fail with err.
func (p *RecordingPublisher) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Published returns every recorded envelope.
func (p *RecordingPublisher) Published() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]Published, len(p.published))
	copy(result, p.published)
	return result
}

// OfType returns the recorded envelopes tagged eventType.
func (p *RecordingPublisher) OfType(eventType string) []Published {
	var result []Published
	for _, pub := range p.Published() {
		if pub.Envelope.Event == eventType {
			result = append(result, pub)
		}
	}
	return result
}

// MustEnvelope builds an envelope or fails the test.
func MustEnvelope(t *testing.T, eventType string, payload any) shared.Envelope {
	t.Helper()
	env, err := shared.NewEnvelope(eventType, payload)
	if err != nil {
		t.Fatalf("failed to build %s envelope: %v", eventType, err)
	}
	return env
}

// MustMessage wraps an envelope in a transport message or fails the test.
func MustMessage(t *testing.T, env shared.Envelope, offset int64) shared.Message {
	t.Helper()
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}
	return shared.Message{
		Key:        fmt.Sprintf("test/0/%d", offset),
		Topic:      "test",
		Offset:     offset,
		Value:      raw,
		ReceivedAt: time.Now(),
	}
}

// WaitForCondition waits for a condition to become true.
// Returns true if the condition was met, false if timeout occurred.
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return false
}
