package service

import (
	"fmt"
	"time"

	"github.com/nexus-edge/opcua-subscriptions/internal/domain"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ExternalPublishTransport is the real, out-of-process Publish Engine this
// service talks to — the session/secure-channel layer that actually owns
// parked client publish requests. It is the one part of spec.md's Publish
// Engine capability (§6) that can genuinely fail (a stalled channel, a
// disconnected session), which is why it is wrapped in a circuit breaker
// rather than handed to the domain core directly.
type ExternalPublishTransport interface {
	PendingPublishRequestCount(subscriptionID uint32) int
	SendNotificationMessage(msg domain.NotificationMessagePayload) error
	SendKeepAliveResponse(subscriptionID uint32, futureSequenceNumber uint32) (consumed bool, err error)
}

// BreakerPublishEngine adapts an ExternalPublishTransport into a
// domain.PublishEngine, guarding every call with a circuit breaker (spec
// §5/§6: the engine is "expected to return promptly"; the teacher's own
// modbus-pool circuit breaker is the pattern this generalizes). When the
// breaker is open, the subscription simply sees no pending requests and
// degrades to LATE on its own, rather than the tick loop blocking on a
// wedged engine.
type BreakerPublishEngine struct {
	transport      ExternalPublishTransport
	subscriptionID uint32
	breaker        *gobreaker.CircuitBreaker[bool]
	logger         zerolog.Logger
	metrics        publishBreakerMetrics
}

type publishBreakerMetrics interface {
	IncPublishBreakerTrips()
}

// NewBreakerPublishEngine constructs a BreakerPublishEngine for one
// subscription.
func NewBreakerPublishEngine(transport ExternalPublishTransport, subscriptionID uint32, logger zerolog.Logger, metrics publishBreakerMetrics) *BreakerPublishEngine {
	name := fmt.Sprintf("publish-engine-%d", subscriptionID)
	componentLogger := logger.With().Str("component", "publish-breaker").Uint32("subscription_id", subscriptionID).Logger()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			componentLogger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("publish engine circuit breaker state change")
			if to == gobreaker.StateOpen && metrics != nil {
				metrics.IncPublishBreakerTrips()
			}
		},
	}

	return &BreakerPublishEngine{
		transport:      transport,
		subscriptionID: subscriptionID,
		breaker:        gobreaker.NewCircuitBreaker[bool](settings),
		logger:         componentLogger,
		metrics:        metrics,
	}
}

// PendingPublishRequestCount implements domain.PublishEngine. An open
// breaker is reported as zero pending requests, the same posture the core
// already has for an engine that is simply out of parked requests.
func (b *BreakerPublishEngine) PendingPublishRequestCount() int {
	if b.breaker.State() == gobreaker.StateOpen {
		return 0
	}
	return b.transport.PendingPublishRequestCount(b.subscriptionID)
}

// SendNotificationMessage implements domain.PublishEngine.
func (b *BreakerPublishEngine) SendNotificationMessage(msg domain.NotificationMessagePayload) {
	_, err := b.breaker.Execute(func() (bool, error) {
		return true, b.transport.SendNotificationMessage(msg)
	})
	if err != nil {
		b.logger.Warn().Err(err).Uint32("sequence_number", msg.SequenceNumber).Msg("failed to send notification message")
	}
}

// SendKeepAliveResponse implements domain.PublishEngine.
func (b *BreakerPublishEngine) SendKeepAliveResponse(subscriptionID, futureSequenceNumber uint32) bool {
	consumed, err := b.breaker.Execute(func() (bool, error) {
		return b.transport.SendKeepAliveResponse(subscriptionID, futureSequenceNumber)
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to send keep-alive response")
		return false
	}
	return consumed
}

// OnTick implements domain.PublishEngine. The transport has no per-tick
// hook of its own; this is a deliberate no-op.
func (b *BreakerPublishEngine) OnTick() {}
