package service

import (
	"errors"
	"testing"

	"github.com/nexus-edge/opcua-subscriptions/internal/domain"
	"github.com/rs/zerolog"
)

type scriptedTransport struct {
	pending      int
	failSend     bool
	keepAliveOK  bool
	sentCount    int
	keepAliveCnt int
}

func (t *scriptedTransport) PendingPublishRequestCount(uint32) int { return t.pending }

func (t *scriptedTransport) SendNotificationMessage(domain.NotificationMessagePayload) error {
	t.sentCount++
	if t.failSend {
		return errors.New("transport unavailable")
	}
	return nil
}

func (t *scriptedTransport) SendKeepAliveResponse(uint32, uint32) (bool, error) {
	t.keepAliveCnt++
	if t.failSend {
		return false, errors.New("transport unavailable")
	}
	return t.keepAliveOK, nil
}

func TestBreakerPublishEngine_PassesThroughWhenHealthy(t *testing.T) {
	transport := &scriptedTransport{pending: 3, keepAliveOK: true}
	engine := NewBreakerPublishEngine(transport, 1, zerolog.Nop(), nil)

	if got := engine.PendingPublishRequestCount(); got != 3 {
		t.Fatalf("expected pass-through pending count 3, got %d", got)
	}

	engine.SendNotificationMessage(domain.NotificationMessagePayload{SequenceNumber: 1})
	if transport.sentCount != 1 {
		t.Fatalf("expected the transport to receive the notification, got sentCount=%d", transport.sentCount)
	}

	if consumed := engine.SendKeepAliveResponse(1, 2); !consumed {
		t.Fatal("expected SendKeepAliveResponse to report consumed=true")
	}
}

func TestBreakerPublishEngine_OpensAfterConsecutiveFailures(t *testing.T) {
	transport := &scriptedTransport{pending: 1, failSend: true}
	engine := NewBreakerPublishEngine(transport, 1, zerolog.Nop(), nil)

	// ReadyToTrip fires once ConsecutiveFailures > 3, i.e. on the 4th failure.
	for i := 0; i < 4; i++ {
		engine.SendNotificationMessage(domain.NotificationMessagePayload{SequenceNumber: uint32(i)})
	}

	if got := engine.PendingPublishRequestCount(); got != 0 {
		t.Fatalf("expected an open breaker to report zero pending requests regardless of the transport, got %d", got)
	}
}

func TestBreakerPublishEngine_KeepAliveFailureReturnsFalse(t *testing.T) {
	transport := &scriptedTransport{pending: 1, failSend: true}
	engine := NewBreakerPublishEngine(transport, 1, zerolog.Nop(), nil)

	if consumed := engine.SendKeepAliveResponse(1, 5); consumed {
		t.Fatal("expected a failing transport call to report consumed=false")
	}
}
