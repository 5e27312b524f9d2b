package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Notification is a message captured by RecordingMessenger.
type Notification struct {
	Key       string
	Recipient uuid.UUID
}

// RecordingMessenger implements service.Messenger by recording every call.
type RecordingMessenger struct {
	mu   sync.Mutex
	sent []Notification
}

// Notify records the message.
func (m *RecordingMessenger) Notify(_ context.Context, recipient uuid.UUID, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Notification{Recipient: recipient, Key: key})
}

// Sent returns a copy of the recorded messages.
func (m *RecordingMessenger) Sent() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.sent...)
}

// Keys returns the recorded message keys in order.
func (m *RecordingMessenger) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, len(m.sent))
	for i, n := range m.sent {
		keys[i] = n.Key
	}
	return keys
}

// MapResolver implements service.NameResolver from a fixed map and counts lookups.
type MapResolver struct {
	Names map[uuid.UUID]string
	mu    sync.Mutex
	calls int
}

// ResolveDisplayName returns the mapped name.
func (r *MapResolver) ResolveDisplayName(_ context.Context, id uuid.UUID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	name, ok := r.Names[id]
	return name, ok
}

// Calls returns how many lookups were made.
func (r *MapResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
