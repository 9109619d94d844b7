package domain

import (
	"sync"
	"time"

	"github.com/gopcua/opcua/ua"
)

// State is the lifecycle state of a Subscription (spec §2). KEEPALIVE is
// folded back into NORMAL before tick() returns: it is only ever visible to
// an observer callback fired mid-tick, never to a caller reading State()
// afterwards.
type State int

const (
	StateCreating State = iota
	StateNormal
	StateLate
	StateKeepAlive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreating:
		return "CREATING"
	case StateNormal:
		return "NORMAL"
	case StateLate:
		return "LATE"
	case StateKeepAlive:
		return "KEEPALIVE"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Publishing interval and keep-alive/life-time clamps (spec §4.8 "Parameter
// revision on creation and on Modify").
const (
	minPublishingIntervalMS = 100.0
	maxPublishingIntervalMS = 30 * 24 * 60 * 60 * 1000.0 // 30 days
	minKeepAliveCount       = 2
	maxKeepAliveCountCap    = 12000
)

func clampPublishingInterval(ms float64) float64 {
	if ms < minPublishingIntervalMS {
		return minPublishingIntervalMS
	}
	if ms > maxPublishingIntervalMS {
		return maxPublishingIntervalMS
	}
	return ms
}

func clampMaxKeepAliveCount(n uint32) uint32 {
	if n < minKeepAliveCount {
		return minKeepAliveCount
	}
	if n > maxKeepAliveCountCap {
		return maxKeepAliveCountCap
	}
	return n
}

// deriveLifeTimeCount enforces "lifeTimeCount is at least 3x
// maxKeepAliveCount" (spec §4.8), taking whichever of the requested value
// and the floor is larger.
func deriveLifeTimeCount(requested, maxKeepAliveCount uint32) uint32 {
	floor := 3 * maxKeepAliveCount
	if requested < floor {
		return floor
	}
	return requested
}

// SubscriptionConfig is the client-requested parameter set a subscription is
// constructed from (spec §4.8 "Create").
type SubscriptionConfig struct {
	ID                         uint32
	SessionID                  string
	Priority                   byte
	PublishingInterval         float64
	MaxKeepAliveCount          uint32
	LifeTimeCount              uint32
	MaxNotificationsPerPublish uint32
	PublishingEnabled          bool
}

// ModifyParams is the parameter set accepted by Subscription.Modify (spec
// §4.8 "Modify"). Subject to the same clamps as construction.
type ModifyParams struct {
	Priority                   byte
	PublishingInterval         float64
	MaxKeepAliveCount          uint32
	LifeTimeCount              uint32
	MaxNotificationsPerPublish uint32
}

// TickResult reports whether the caller that owns this subscription's
// periodic timer (internal/service.Manager — spec §9 design note: the timer
// is an injected collaborator, not state the core owns) should rearm
// immediately instead of waiting a full publishingInterval, because the
// pending queue still has backlog (spec §4.8 "schedule another tick
// promptly").
type TickResult struct {
	Immediate bool
}

// Subscription is the server-side Subscription aggregate: the state machine,
// counters and queues described across spec §3-§4.9. All exported methods
// are safe for concurrent use; every operation is serialized by the
// subscription's own lock (spec §5).
type Subscription struct {
	mu sync.Mutex

	id                         uint32
	sessionID                  string
	priority                   byte
	publishingInterval         float64
	maxKeepAliveCount          uint32
	lifeTimeCount              uint32
	maxNotificationsPerPublish uint32
	publishingEnabled          bool

	state                State
	publishIntervalCount uint64
	keepAliveCounter     uint32
	lifeTimeCounter      uint32

	registry *Registry
	pending  PendingQueue
	sent     RetransmissionQueue
	seqGen   SequenceGenerator

	engine       PublishEngine
	addressSpace AddressSpace
	observer     *Observer

	modifyCount                  uint64
	enableCount                  uint64
	disableCount                 uint64
	republishRequestCount        uint64
	notificationsCount           uint64
	publishRequestCount          uint64
	dataChangeNotificationsCount uint64
	eventNotificationsCount      uint64
}

// NewSubscription constructs a subscription in CREATING state. Call
// Activate to move it to NORMAL once the owning service has armed a timer
// to drive its Tick method.
func NewSubscription(cfg SubscriptionConfig, engine PublishEngine, addressSpace AddressSpace, observer *Observer) *Subscription {
	s := &Subscription{
		id:                         cfg.ID,
		sessionID:                  cfg.SessionID,
		priority:                   cfg.Priority,
		publishingInterval:         clampPublishingInterval(cfg.PublishingInterval),
		maxKeepAliveCount:          clampMaxKeepAliveCount(cfg.MaxKeepAliveCount),
		maxNotificationsPerPublish: cfg.MaxNotificationsPerPublish,
		publishingEnabled:          cfg.PublishingEnabled,
		state:                      StateCreating,
		engine:                     engine,
		addressSpace:               addressSpace,
		observer:                   observer,
	}
	s.lifeTimeCount = deriveLifeTimeCount(cfg.LifeTimeCount, s.maxKeepAliveCount)
	s.registry = NewRegistry(addressSpace, func(item *monitoredItem, itemToMonitor *ua.ReadValueID) {
		s.observer.monitoredItemCreated(item, itemToMonitor)
	})
	return s
}

// ID returns the subscription's id.
func (s *Subscription) ID() uint32 { return s.id }

// Activate transitions CREATING -> NORMAL. The caller (internal/service.Manager)
// is responsible for then arming a periodic timer that calls Tick — the
// core itself holds no *time.Timer (spec §9 design note: timers are an
// injected collaborator, not state this aggregate owns).
func (s *Subscription) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateNormal
	// Force a keep-alive attempt at the end of the first cycle if nothing
	// else was produced, matching a freshly created subscription's posture.
	s.keepAliveCounter = s.maxKeepAliveCount - 1
}

// Tick runs exactly one cycle of the state machine and reports whether the
// owning timer driver should rearm immediately rather than wait a full
// publishingInterval (spec §4.8). It never recurses or reschedules
// anything itself — the caller owns all timing decisions.
func (s *Subscription) Tick() TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick()
}

func (s *Subscription) tick() TickResult {
	if s.state == StateClosed {
		return TickResult{}
	}
	s.observer.performUpdate()
	s.engine.OnTick()
	s.publishIntervalCount++

	s.assembleLocked()

	var responseProduced, immediate bool

	switch {
	case s.publishingEnabled && s.pending.Len() > 0:
		if s.engine.PendingPublishRequestCount() > 0 {
			rec := s.pending.Pop()
			s.sent.Append(rec)
			more := s.pending.Len() > 0

			s.engine.SendNotificationMessage(NotificationMessagePayload{
				SubscriptionID:           s.id,
				SequenceNumber:           rec.SequenceNumber,
				NotificationData:         rec.ToMessage().NotificationData,
				AvailableSequenceNumbers: s.availableSequenceNumbersLocked(),
				MoreNotifications:        more,
			})

			dc, ev := rec.NotificationDataCount()
			s.notificationsCount++
			s.publishRequestCount++
			s.dataChangeNotificationsCount += uint64(dc)
			s.eventNotificationsCount += uint64(ev)

			s.state = StateNormal
			responseProduced = true
			immediate = more
			s.observer.notification()
		} else {
			s.state = StateLate
			s.keepAliveCounter++
		}

	default:
		s.keepAliveCounter++
		if s.keepAliveCounter >= s.maxKeepAliveCount {
			future := s.seqGen.Future()
			if s.engine.SendKeepAliveResponse(s.id, future) {
				s.state = StateKeepAlive
				responseProduced = true
				s.observer.keepAlive(future)
				s.state = StateNormal
			} else {
				s.state = StateLate
			}
		}
	}

	if responseProduced {
		s.keepAliveCounter = 0
		s.lifeTimeCounter = 0
		return TickResult{Immediate: immediate}
	}

	s.lifeTimeCounter++
	if s.lifeTimeCounter >= s.lifeTimeCount {
		s.expireLocked()
	}
	return TickResult{}
}

// assembleLocked drains monitored items and pushes any resulting
// NotificationRecords onto the pending queue, burning sequence numbers only
// when the Publish Engine actually has a parked request (spec §4.7).
func (s *Subscription) assembleLocked() {
	if s.engine.PendingPublishRequestCount() == 0 {
		return
	}
	extracted := collectNotificationData(s.registry)
	if len(extracted) == 0 {
		return
	}
	now := time.Now()
	for _, chunk := range chunkNotifications(extracted, s.maxNotificationsPerPublish) {
		seq := s.seqGen.Next()
		rec := buildNotificationRecord(chunk, seq, now, s.publishIntervalCount)
		s.pending.Push(rec)
	}
}

// expireLocked handles life-time expiry: fire OnExpired before cleanup runs,
// then close exactly as Terminate would (spec §4.8 "Any state on life-time
// expiry").
func (s *Subscription) expireLocked() {
	s.observer.expired()
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	rec := &NotificationRecord{
		SequenceNumber: s.seqGen.Next(),
		PublishTime:    time.Now(),
		StatusChange:   &ua.StatusChangeNotification{Status: ua.StatusBadTimeout},
		StartTick:      s.publishIntervalCount,
	}
	// Best-effort: this record is never guaranteed delivery. If publishing
	// stops before a request arrives to carry it, it is discarded with the
	// rest of the pending queue (spec §9 Open Question).
	s.pending.Push(rec)

	s.registry.TerminateAll()
	s.state = StateClosed
	s.observer.terminated()
}

// Terminate closes the subscription immediately. Idempotent: calling it on
// an already-CLOSED subscription is a no-op.
func (s *Subscription) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.closeLocked()
}

// State returns the subscription's current lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Modify revises the subscription's timing parameters (spec §4.8
// "Modify"). A no-op once CLOSED. The caller is responsible for resetting
// its timer to PublishingInterval() afterwards — the core does not own one.
func (s *Subscription) Modify(params ModifyParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}

	s.publishingInterval = clampPublishingInterval(params.PublishingInterval)
	s.maxKeepAliveCount = clampMaxKeepAliveCount(params.MaxKeepAliveCount)
	s.lifeTimeCount = deriveLifeTimeCount(params.LifeTimeCount, s.maxKeepAliveCount)
	s.maxNotificationsPerPublish = params.MaxNotificationsPerPublish
	s.priority = params.Priority
	s.keepAliveCounter = 0
	s.lifeTimeCounter = 0
	s.modifyCount++
}

// PublishingInterval returns the current publishing interval in
// milliseconds, for the owning timer driver to pace itself by.
func (s *Subscription) PublishingInterval() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishingInterval
}

// SetPublishingMode enables or disables publishing (spec §4.8
// "SetPublishingMode").
func (s *Subscription) SetPublishingMode(enabled bool) ua.StatusCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ua.StatusBadSubscriptionIDInvalid
	}
	s.publishingEnabled = enabled
	if enabled {
		s.enableCount++
	} else {
		s.disableCount++
	}
	return ua.StatusOK
}

// Ack acknowledges receipt of the notification with the given sequence
// number, removing it from the retransmission queue and resetting the
// keep-alive/life-time counters on success (spec §4.2).
func (s *Subscription) Ack(seq uint32) ua.StatusCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.sent.Ack(seq)
	if status == ua.StatusOK {
		s.keepAliveCounter = 0
		s.lifeTimeCounter = 0
	}
	return status
}

// Republish re-sends a previously sent notification from the retransmission
// queue (spec §4.2). A hit resets the keep-alive/life-time counters exactly
// as a fresh publish response would.
func (s *Subscription) Republish(seq uint32) (*ua.NotificationMessage, ua.StatusCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.republishRequestCount++
	rec, ok := s.sent.Lookup(seq)
	if !ok {
		return nil, ua.StatusBadMessageNotAvailable
	}
	s.keepAliveCounter = 0
	s.lifeTimeCounter = 0
	return rec.ToMessage(), ua.StatusOK
}

// CreateMonitoredItem validates and registers a new monitored item on this
// subscription (spec §4.4).
func (s *Subscription) CreateMonitoredItem(timestampsToReturn ua.TimestampsToReturn, req *ua.MonitoredItemCreateRequest) *MonitoredItemCreateResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return &MonitoredItemCreateResult{StatusCode: ua.StatusBadSubscriptionIDInvalid}
	}
	return s.registry.Create(timestampsToReturn, req, s.publishingInterval)
}

// RemoveMonitoredItem deregisters a monitored item (spec §4.4).
func (s *Subscription) RemoveMonitoredItem(id uint32) ua.StatusCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Remove(id)
}

// GetMonitoredItems returns the parallel client/server handle arrays for
// every registered item (spec §4.4).
func (s *Subscription) GetMonitoredItems() (clientHandles, serverHandles []uint32, status ua.StatusCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.GetMonitoredItems()
}

// AvailableSequenceNumbers returns every sequence number currently held,
// whether already sent (retransmittable) or still pending.
func (s *Subscription) AvailableSequenceNumbers() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availableSequenceNumbersLocked()
}

func (s *Subscription) availableSequenceNumbersLocked() []uint32 {
	sent := s.sent.SequenceNumbers()
	pending := s.pending.SequenceNumbers()
	out := make([]uint32, 0, len(sent)+len(pending))
	out = append(out, sent...)
	out = append(out, pending...)
	return out
}

// Diagnostics returns a point-in-time snapshot of this subscription's
// parameters and counters (spec §4.9).
func (s *Subscription) Diagnostics() Diagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()

	disabled := 0
	s.registry.ForEach(func(_ uint32, item MonitoredItem) {
		if item.MonitoringMode() == ua.MonitoringModeDisabled {
			disabled++
		}
	})

	return Diagnostics{
		SessionID:                    s.sessionID,
		SubscriptionID:               s.id,
		Priority:                     s.priority,
		PublishingInterval:           s.publishingInterval,
		MaxLifetimeCount:             s.lifeTimeCount,
		MaxKeepAliveCount:            s.maxKeepAliveCount,
		MaxNotificationsPerPublish:   s.maxNotificationsPerPublish,
		PublishingEnabled:            s.publishingEnabled,
		State:                        s.state,
		MonitoredItemCount:           s.registry.Len(),
		DisabledMonitoredItemCount:   disabled,
		NextSequenceNumber:           s.seqGen.Future(),
		ModifyCount:                  s.modifyCount,
		EnableCount:                  s.enableCount,
		DisableCount:                 s.disableCount,
		RepublishRequestCount:        s.republishRequestCount,
		NotificationsCount:           s.notificationsCount,
		PublishRequestCount:          s.publishRequestCount,
		DataChangeNotificationsCount: s.dataChangeNotificationsCount,
		EventNotificationsCount:      s.eventNotificationsCount,
	}
}
