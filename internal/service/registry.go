package service

import (
	"sync"

	"github.com/nexus-edge/opcua-subscriptions/internal/domain"
)

// SubscriptionRegistry tracks every live subscription a Manager owns,
// replacing the module-level map the core's design notes flag as a hazard
// (spec §9: "reimplement as an injected collaborator").
type SubscriptionRegistry struct {
	mu   sync.RWMutex
	subs map[uint32]*domain.Subscription
}

// NewSubscriptionRegistry constructs an empty registry.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{subs: make(map[uint32]*domain.Subscription)}
}

// Add registers sub under its own id. Returns ErrSubscriptionExists if the
// id is already registered.
func (r *SubscriptionRegistry) Add(sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.subs[sub.ID()]; exists {
		return domain.ErrSubscriptionExists
	}
	r.subs[sub.ID()] = sub
	return nil
}

// Get returns the subscription registered under id, if any.
func (r *SubscriptionRegistry) Get(id uint32) (*domain.Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[id]
	return sub, ok
}

// Remove deregisters id. A no-op if id was never registered.
func (r *SubscriptionRegistry) Remove(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
}

// Len reports how many subscriptions are currently registered.
func (r *SubscriptionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// ForEach calls fn for a snapshot of every registered subscription. fn is
// called outside the registry lock, so it may safely call back into the
// registry.
func (r *SubscriptionRegistry) ForEach(fn func(*domain.Subscription)) {
	r.mu.RLock()
	snapshot := make([]*domain.Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		snapshot = append(snapshot, sub)
	}
	r.mu.RUnlock()

	for _, sub := range snapshot {
		fn(sub)
	}
}
