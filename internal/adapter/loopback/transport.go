// Package loopback provides a minimal in-memory ExternalPublishTransport,
// standing in for the real session/secure-channel Publish Engine so
// cmd/subscriptiond can run standalone. It parks a fixed number of "publish
// requests" for each subscription the first time it sees it and records, for
// Sent, every notification message that would have been sent back to the
// client, the same role the teacher's simulated device
// adapters play for a protocol it has no physical hardware to talk to.
package loopback

import (
	"sync"

	"github.com/nexus-edge/opcua-subscriptions/internal/domain"
)

// Transport is a concurrency-safe, in-memory ExternalPublishTransport.
type Transport struct {
	mu            sync.Mutex
	parked        map[uint32]int
	defaultParked int
	sent          []domain.NotificationMessagePayload
}

// NewTransport constructs a Transport that parks defaultParked publish
// requests for every subscription it first sees, replenishing one each time
// a notification or keep-alive consumes one — modelling a well-behaved
// client that immediately re-issues a Publish request after each response.
func NewTransport(defaultParked int) *Transport {
	if defaultParked <= 0 {
		defaultParked = 1
	}
	return &Transport{
		parked:        make(map[uint32]int),
		defaultParked: defaultParked,
	}
}

// PendingPublishRequestCount implements service.ExternalPublishTransport.
func (t *Transport) PendingPublishRequestCount(subscriptionID uint32) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count, ok := t.parked[subscriptionID]
	if !ok {
		count = t.defaultParked
		t.parked[subscriptionID] = count
	}
	return count
}

// SendNotificationMessage implements service.ExternalPublishTransport.
func (t *Transport) SendNotificationMessage(msg domain.NotificationMessagePayload) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consumeLocked(msg.SubscriptionID)
	t.sent = append(t.sent, msg)
	return nil
}

// SendKeepAliveResponse implements service.ExternalPublishTransport.
func (t *Transport) SendKeepAliveResponse(subscriptionID, futureSequenceNumber uint32) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.parked[subscriptionID] <= 0 {
		return false, nil
	}
	t.consumeLocked(subscriptionID)
	return true, nil
}

// consumeLocked takes one parked request for subscriptionID and immediately
// replenishes it, as a perpetually-subscribed client would.
func (t *Transport) consumeLocked(subscriptionID uint32) {
	if t.parked[subscriptionID] > 0 {
		t.parked[subscriptionID]--
	}
	t.parked[subscriptionID]++
}

// Sent returns every notification message delivered so far, for tests and
// diagnostics.
func (t *Transport) Sent() []domain.NotificationMessagePayload {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.NotificationMessagePayload, len(t.sent))
	copy(out, t.sent)
	return out
}
