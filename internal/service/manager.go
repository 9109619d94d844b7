// Package service provides the runnable Manager that bridges the
// timer-agnostic subscription core to the wall clock, one instance per
// session (spec §9 "Per-subscription manager").
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexus-edge/opcua-subscriptions/internal/domain"
	"github.com/nexus-edge/opcua-subscriptions/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ManagerConfig configures one session's Manager.
type ManagerConfig struct {
	SessionID       string
	ShutdownTimeout time.Duration
}

// Manager owns the per-subscription *time.Timer the domain core deliberately
// does not (spec §9 design note): it arms one timer per subscription,
// drives Subscription.Tick on each firing, and reschedules immediately
// rather than waiting a full publishingInterval when Tick reports backlog.
type Manager struct {
	config       ManagerConfig
	registry     *SubscriptionRegistry
	addressSpace domain.AddressSpace
	transport    ExternalPublishTransport
	logger       zerolog.Logger
	metrics      *metrics.Registry

	started atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	timers map[uint32]*time.Timer
}

// NewManager constructs a Manager for one session.
func NewManager(config ManagerConfig, addressSpace domain.AddressSpace, transport ExternalPublishTransport, logger zerolog.Logger, metricsReg *metrics.Registry) *Manager {
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}
	return &Manager{
		config:       config,
		registry:     NewSubscriptionRegistry(),
		addressSpace: addressSpace,
		transport:    transport,
		logger:       logger.With().Str("component", "subscription-manager").Str("session_id", config.SessionID).Logger(),
		metrics:      metricsReg,
		timers:       make(map[uint32]*time.Timer),
	}
}

// Start marks the manager ready to accept subscriptions.
func (m *Manager) Start(ctx context.Context) error {
	if m.started.Load() {
		return nil
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.started.Store(true)
	m.logger.Info().Msg("subscription manager started")
	return nil
}

// Started reports whether Start has been called without a matching Stop.
func (m *Manager) Started() bool {
	return m.started.Load()
}

// Stop terminates every live subscription concurrently (errgroup fans the
// work out, mirroring the teacher's PollingService shutdown but with an
// aggregate error the caller can act on) and waits, bounded by
// ShutdownTimeout, for their timer goroutines to settle.
func (m *Manager) Stop(ctx context.Context) error {
	if !m.started.Load() {
		return nil
	}
	m.logger.Info().Int("subscriptions", m.registry.Len()).Msg("stopping subscription manager")

	g, _ := errgroup.WithContext(ctx)
	m.registry.ForEach(func(sub *domain.Subscription) {
		id := sub.ID()
		g.Go(func() error {
			m.terminateSubscription(id)
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("subscriptionmanager: stop: %w", err)
	}

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info().Msg("all subscription timers stopped")
	case <-time.After(m.config.ShutdownTimeout):
		m.logger.Warn().Msg("timeout waiting for subscription timers to stop")
	}

	m.started.Store(false)
	return nil
}

// CreateSubscription constructs, registers and activates a new subscription,
// arming its periodic timer (spec §9).
func (m *Manager) CreateSubscription(cfg domain.SubscriptionConfig, observer *domain.Observer) (*domain.Subscription, error) {
	if !m.started.Load() {
		return nil, domain.ErrManagerNotStarted
	}

	engine := NewBreakerPublishEngine(m.transport, cfg.ID, m.logger, m.metrics)
	sub := domain.NewSubscription(cfg, engine, m.addressSpace, observer)

	if err := m.registry.Add(sub); err != nil {
		return nil, err
	}

	sub.Activate()
	m.armTimer(sub)

	if m.metrics != nil {
		m.metrics.IncSubscriptionsCreated()
		m.metrics.SetActiveSubscriptions(m.registry.Len())
	}

	m.logger.Info().
		Uint32("subscription_id", cfg.ID).
		Float64("publishing_interval_ms", sub.PublishingInterval()).
		Msg("subscription created")

	return sub, nil
}

// GetSubscription looks up a registered subscription by id.
func (m *Manager) GetSubscription(id uint32) (*domain.Subscription, bool) {
	return m.registry.Get(id)
}

// ModifySubscription applies params to subscription id and rearms its timer
// at the revised publishing interval.
func (m *Manager) ModifySubscription(id uint32, params domain.ModifyParams) error {
	sub, ok := m.registry.Get(id)
	if !ok {
		return fmt.Errorf("subscriptionmanager: modify: unknown subscription %d", id)
	}

	sub.Modify(params)
	m.rearmTimer(sub)

	if m.metrics != nil {
		m.metrics.IncModifyRequests()
	}
	return nil
}

// CloseSubscription terminates and deregisters subscription id.
func (m *Manager) CloseSubscription(id uint32) {
	m.terminateSubscription(id)
}

// ActiveSubscriptionCount reports how many subscriptions are currently
// registered.
func (m *Manager) ActiveSubscriptionCount() int {
	return m.registry.Len()
}

// Diagnostics returns every live subscription's §4.9 snapshot.
func (m *Manager) Diagnostics() []any {
	var out []any
	m.registry.ForEach(func(sub *domain.Subscription) {
		out = append(out, sub.Diagnostics())
	})
	return out
}

func (m *Manager) armTimer(sub *domain.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.timers[sub.ID()]; exists {
		panic(domain.ErrTimerAlreadyArmed)
	}
	m.wg.Add(1)
	m.timers[sub.ID()] = time.AfterFunc(intervalDuration(sub.PublishingInterval()), func() { m.fire(sub) })
}

// rearmTimer stops and replaces sub's timer, used after Modify changes its
// publishing interval.
func (m *Manager) rearmTimer(sub *domain.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if timer, exists := m.timers[sub.ID()]; exists && timer.Stop() {
		m.wg.Done()
	}
	m.wg.Add(1)
	m.timers[sub.ID()] = time.AfterFunc(intervalDuration(sub.PublishingInterval()), func() { m.fire(sub) })
}

// fire is one timer firing. It never recurses: rescheduling happens by
// arming a fresh time.AfterFunc, so a subscription with a permanent backlog
// never grows the call stack (spec §9 design note on the tick/re-entrancy
// hazard).
func (m *Manager) fire(sub *domain.Subscription) {
	defer m.wg.Done()

	select {
	case <-m.ctx.Done():
		return
	default:
	}

	if _, ok := m.registry.Get(sub.ID()); !ok {
		// Already terminated and removed by an explicit Terminate call
		// that raced this firing; nothing left to reschedule.
		return
	}

	start := time.Now()
	result := sub.Tick()
	if m.metrics != nil {
		m.metrics.ObserveTickDuration(time.Since(start).Seconds())
	}

	if sub.State() == domain.StateClosed {
		m.clearTimer(sub.ID())
		m.onClosed(sub)
		return
	}

	delay := intervalDuration(sub.PublishingInterval())
	if result.Immediate {
		delay = 0
	}

	m.mu.Lock()
	m.wg.Add(1)
	m.timers[sub.ID()] = time.AfterFunc(delay, func() { m.fire(sub) })
	m.mu.Unlock()
}

func (m *Manager) onClosed(sub *domain.Subscription) {
	m.registry.Remove(sub.ID())
	if m.metrics != nil {
		m.metrics.IncSubscriptionsExpired()
		m.metrics.SetActiveSubscriptions(m.registry.Len())
	}
	m.logger.Info().Uint32("subscription_id", sub.ID()).Msg("subscription closed")
}

func (m *Manager) terminateSubscription(id uint32) {
	sub, ok := m.registry.Get(id)
	if !ok {
		return
	}
	sub.Terminate()

	m.mu.Lock()
	timer, exists := m.timers[id]
	delete(m.timers, id)
	m.mu.Unlock()

	if exists && timer.Stop() {
		m.wg.Done()
	}

	m.registry.Remove(id)
	if m.metrics != nil {
		m.metrics.IncSubscriptionsTerminated()
		m.metrics.SetActiveSubscriptions(m.registry.Len())
	}
	m.logger.Info().Uint32("subscription_id", id).Msg("subscription terminated")
}

func (m *Manager) clearTimer(id uint32) {
	m.mu.Lock()
	delete(m.timers, id)
	m.mu.Unlock()
}

func intervalDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
