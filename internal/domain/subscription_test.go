package domain

import (
	"testing"

	"github.com/gopcua/opcua/ua"
)

// fakeEngine is a scriptable domain.PublishEngine: pendingRequests is
// decremented on notification delivery (spec §4.8 "a publish response
// actually consumes a parked request") and consulted by keep-alive delivery
// too, mirroring one shared parked-request pool.
type fakeEngine struct {
	pendingRequests int
	keepAliveFails  bool

	sentNotifications []NotificationMessagePayload
	sentKeepAlives     []uint32
	ticks              int
}

func (e *fakeEngine) PendingPublishRequestCount() int { return e.pendingRequests }

func (e *fakeEngine) SendNotificationMessage(msg NotificationMessagePayload) {
	e.pendingRequests--
	e.sentNotifications = append(e.sentNotifications, msg)
}

func (e *fakeEngine) SendKeepAliveResponse(subscriptionID, futureSequenceNumber uint32) bool {
	if e.keepAliveFails || e.pendingRequests == 0 {
		return false
	}
	e.pendingRequests--
	e.sentKeepAlives = append(e.sentKeepAlives, futureSequenceNumber)
	return true
}

func (e *fakeEngine) OnTick() { e.ticks++ }

func newTestSubscription(t *testing.T, cfg SubscriptionConfig, engine PublishEngine) *Subscription {
	t.Helper()
	as := newFakeAddressSpace()
	sub := NewSubscription(cfg, engine, as, nil)
	sub.Activate()
	return sub
}

func TestNewSubscription_ClampsParameters(t *testing.T) {
	cfg := SubscriptionConfig{
		ID:                 1,
		PublishingInterval: 50,  // below the 100ms floor
		MaxKeepAliveCount:  1,   // below the minimum of 2
		LifeTimeCount:      2,   // below 3x the revised MaxKeepAliveCount
	}
	sub := newTestSubscription(t, cfg, &fakeEngine{})

	if sub.PublishingInterval() != 100 {
		t.Fatalf("expected publishingInterval clamped to 100, got %v", sub.PublishingInterval())
	}
	diag := sub.Diagnostics()
	if diag.MaxKeepAliveCount != 2 {
		t.Fatalf("expected maxKeepAliveCount clamped to 2, got %d", diag.MaxKeepAliveCount)
	}
	if diag.MaxLifetimeCount != 6 {
		t.Fatalf("expected lifeTimeCount floored to 3x maxKeepAliveCount (6), got %d", diag.MaxLifetimeCount)
	}
}

func TestTick_NoDataNoRequestsGoesLateAfterMaxKeepAliveCount(t *testing.T) {
	engine := &fakeEngine{pendingRequests: 0}
	sub := newTestSubscription(t, SubscriptionConfig{ID: 1, MaxKeepAliveCount: 3, PublishingEnabled: true}, engine)

	for i := 0; i < 3; i++ {
		sub.Tick()
	}

	if sub.State() != StateLate {
		t.Fatalf("expected LATE once keepAliveCounter reaches maxKeepAliveCount with no parked request, got %v", sub.State())
	}
	if len(engine.sentKeepAlives) != 0 {
		t.Fatal("expected no keep-alive to have been delivered, since no publish request was ever parked")
	}
}

func TestTick_KeepAliveEmittedExactlyOnceAtMaxCount(t *testing.T) {
	engine := &fakeEngine{pendingRequests: 1}
	sub := newTestSubscription(t, SubscriptionConfig{ID: 1, MaxKeepAliveCount: 3, PublishingEnabled: true}, engine)

	for i := 0; i < 3; i++ {
		sub.Tick()
	}

	if len(engine.sentKeepAlives) != 1 {
		t.Fatalf("expected exactly one keep-alive delivered by cycle 3, got %d", len(engine.sentKeepAlives))
	}
	if engine.sentKeepAlives[0] != 1 {
		t.Fatalf("expected futureSequenceNumber 1 on the keep-alive, got %d", engine.sentKeepAlives[0])
	}
	if sub.State() != StateNormal {
		t.Fatalf("expected state to fold back to NORMAL after the keep-alive, got %v", sub.State())
	}
}

func TestTick_PublishingDisabledWithPendingDataFallsToKeepAlivePath(t *testing.T) {
	as := newFakeAddressSpace()
	v := as.addVariable("v1", nil)
	engine := &fakeEngine{pendingRequests: 1}
	sub := NewSubscription(SubscriptionConfig{ID: 1, MaxKeepAliveCount: 2, PublishingEnabled: false}, engine, as, nil)
	sub.Activate()

	newItemWithExtractor(t, sub.registry, v.id, 1, func() []ExtractedNotification {
		return []ExtractedNotification{{DataChange: &ua.MonitoredItemNotification{}}}
	})

	sub.Tick()
	sub.Tick()

	if len(engine.sentNotifications) != 0 {
		t.Fatal("expected no notification to be sent while publishing is disabled")
	}
	if len(engine.sentKeepAlives) != 1 {
		t.Fatalf("expected a keep-alive once publishing-disabled reaches maxKeepAliveCount, got %d", len(engine.sentKeepAlives))
	}
}

func TestTick_DrainsOneChunkPerCycleWithMoreNotificationsFlag(t *testing.T) {
	as := newFakeAddressSpace()
	v := as.addVariable("v1", nil)
	engine := &fakeEngine{pendingRequests: 5}
	sub := NewSubscription(SubscriptionConfig{
		ID: 1, MaxKeepAliveCount: 10, PublishingEnabled: true, MaxNotificationsPerPublish: 1,
	}, engine, as, nil)
	sub.Activate()

	extracted := 0
	newItemWithExtractor(t, sub.registry, v.id, 1, func() []ExtractedNotification {
		if extracted > 0 {
			return nil
		}
		extracted++
		return []ExtractedNotification{
			{DataChange: &ua.MonitoredItemNotification{ClientHandle: 1}},
			{DataChange: &ua.MonitoredItemNotification{ClientHandle: 2}},
		}
	})

	result := sub.Tick()
	if len(engine.sentNotifications) != 1 {
		t.Fatalf("expected one notification sent on the first tick, got %d", len(engine.sentNotifications))
	}
	if !result.Immediate {
		t.Fatal("expected Immediate=true since a second chunk is still pending")
	}

	result = sub.Tick()
	if len(engine.sentNotifications) != 2 {
		t.Fatalf("expected the second chunk drained on the next tick, got %d total sent", len(engine.sentNotifications))
	}
	if result.Immediate {
		t.Fatal("expected Immediate=false once the pending queue is drained")
	}
}

func TestAckAndRepublish(t *testing.T) {
	as := newFakeAddressSpace()
	v := as.addVariable("v1", nil)
	engine := &fakeEngine{pendingRequests: 2}
	sub := NewSubscription(SubscriptionConfig{ID: 1, MaxKeepAliveCount: 10, PublishingEnabled: true}, engine, as, nil)
	sub.Activate()

	newItemWithExtractor(t, sub.registry, v.id, 1, func() []ExtractedNotification {
		return []ExtractedNotification{{DataChange: &ua.MonitoredItemNotification{}}}
	})
	sub.Tick()

	if status := sub.Ack(999); status != ua.StatusBadSequenceNumberUnknown {
		t.Fatalf("expected BadSequenceNumberUnknown for an unknown sequence, got %v", status)
	}

	msg, status := sub.Republish(1)
	if status != ua.StatusOK || msg == nil {
		t.Fatalf("expected a successful republish of sequence 1, got status %v", status)
	}

	if status := sub.Ack(1); status != ua.StatusOK {
		t.Fatalf("expected Ack(1) to succeed, got %v", status)
	}
	if _, ok := sub.sent.Lookup(1); ok {
		t.Fatal("expected the acked record to be removed from the retransmission queue")
	}
}

func TestCreateMonitoredItem_NonVariableNodeRejected(t *testing.T) {
	as := newFakeAddressSpace()
	obj := ua.NewStringNodeID(1, "obj")
	as.nodes[obj.String()] = &fakeNode{id: obj, class: NodeClassUnspecified}
	sub := newTestSubscription(t, SubscriptionConfig{ID: 1}, &fakeEngine{})

	// Swap in the address space that actually has the node registered.
	sub.addressSpace = as
	sub.registry = NewRegistry(as, nil)

	req := newCreateRequest(obj, ua.AttributeIDValue, 1)
	result := sub.CreateMonitoredItem(ua.TimestampsToReturnBoth, req)
	if result.StatusCode != ua.StatusBadAttributeIDInvalid {
		t.Fatalf("expected BadAttributeIdInvalid for a Value attribute on a non-Variable node, got %v", result.StatusCode)
	}
}

func TestLifeTimeExpiry_ClosesAndEnqueuesStatusChange(t *testing.T) {
	engine := &fakeEngine{pendingRequests: 0}
	sub := newTestSubscription(t, SubscriptionConfig{ID: 1, MaxKeepAliveCount: 2, LifeTimeCount: 2}, engine)

	terminated := false
	sub.observer = &Observer{OnTerminated: func() { terminated = true }}

	// MaxKeepAliveCount clamps to a minimum of 2, which floors lifeTimeCount
	// at 3x that (6) regardless of the smaller value requested here.
	for i := 0; i < 10 && sub.State() != StateClosed; i++ {
		sub.Tick()
	}

	if sub.State() != StateClosed {
		t.Fatalf("expected the subscription to self-terminate on life-time expiry, got %v", sub.State())
	}
	if !terminated {
		t.Fatal("expected OnTerminated to fire")
	}
	if sub.pending.Len() == 0 {
		t.Fatal("expected a final StatusChangeNotification record to be enqueued")
	}
	last := sub.pending.entries[sub.pending.Len()-1]
	if last.StatusChange == nil || last.StatusChange.Status != ua.StatusBadTimeout {
		t.Fatal("expected the final record to carry a BadTimeout StatusChangeNotification")
	}
}

func TestTerminate_IsIdempotent(t *testing.T) {
	sub := newTestSubscription(t, SubscriptionConfig{ID: 1}, &fakeEngine{})
	sub.Terminate()
	if sub.State() != StateClosed {
		t.Fatal("expected Terminate to close the subscription")
	}
	sub.Terminate() // must not panic or double-fire observer callbacks
	if sub.State() != StateClosed {
		t.Fatal("expected state to remain CLOSED")
	}
}

func TestTick_OnClosedSubscriptionIsNoOp(t *testing.T) {
	sub := newTestSubscription(t, SubscriptionConfig{ID: 1}, &fakeEngine{})
	sub.Terminate()
	result := sub.Tick()
	if result.Immediate {
		t.Fatal("expected a tick on a closed subscription to report Immediate=false")
	}
}
