package domain

import "github.com/gopcua/opcua/ua"

// NotificationMessagePayload bundles what Subscription hands the Publish
// Engine capability when it has something to say (spec §6).
type NotificationMessagePayload struct {
	SubscriptionID           uint32
	SequenceNumber           uint32
	NotificationData         []*ua.ExtensionObject
	AvailableSequenceNumbers []uint32
	MoreNotifications        bool
}

// PublishEngine is the narrow capability this core consumes from the
// session-wide Publish Engine (spec §1, §6). The core never assumes
// exclusive access: PendingPublishRequestCount and the two send operations
// may be invoked concurrently by other subscriptions sharing the same
// engine, though this core's own calls into it are always serialized by its
// single-threaded operation model (spec §5).
type PublishEngine interface {
	// PendingPublishRequestCount returns the number of client publish
	// requests currently parked, awaiting a subscription with something to
	// report.
	PendingPublishRequestCount() int

	// SendNotificationMessage consumes one parked request and emits msg.
	SendNotificationMessage(msg NotificationMessagePayload)

	// SendKeepAliveResponse consumes one parked request to emit a
	// keep-alive carrying futureSequenceNumber. Returns true if a request
	// was consumed.
	SendKeepAliveResponse(subscriptionID uint32, futureSequenceNumber uint32) bool

	// OnTick is invoked at the start of each subscription tick, if non-nil
	// behavior is wired by the engine.
	OnTick()
}
