package domain

import "github.com/gopcua/opcua/ua"

// Observer is the explicit, edge-triggered event-listener capability a
// Subscription is constructed with (spec §9 design note: "reimplement as an
// explicit observer capability object... do not silently synchronously
// re-enter subscription operations from handlers"). Every method must
// return without calling back into the subscription that invoked it; a
// handler that needs to act on the subscription should defer that work
// (e.g. via a channel) rather than reaching back in synchronously.
//
// Any method left nil on the struct used by a caller is simply not invoked.
type Observer struct {
	// OnNotification fires when at least one pending message is available
	// and publishing is enabled.
	OnNotification func()

	// OnPerformUpdate fires at the start of every tick, before notification
	// assembly, so owners can poke data sources.
	OnPerformUpdate func()

	// OnKeepAlive fires when a keep-alive has been handed to the Publish
	// Engine.
	OnKeepAlive func(futureSequenceNumber uint32)

	// OnExpired fires when life-time runs out, before termination cleanup.
	OnExpired func()

	// OnTerminated fires once the subscription reaches CLOSED.
	OnTerminated func()

	// OnMonitoredItemCreated fires after a monitored item is registered,
	// before its monitoring mode is applied.
	OnMonitoredItemCreated func(item MonitoredItem, itemToMonitor *ua.ReadValueID)
}

func (o *Observer) notification() {
	if o != nil && o.OnNotification != nil {
		o.OnNotification()
	}
}

func (o *Observer) performUpdate() {
	if o != nil && o.OnPerformUpdate != nil {
		o.OnPerformUpdate()
	}
}

func (o *Observer) keepAlive(futureSeq uint32) {
	if o != nil && o.OnKeepAlive != nil {
		o.OnKeepAlive(futureSeq)
	}
}

func (o *Observer) expired() {
	if o != nil && o.OnExpired != nil {
		o.OnExpired()
	}
}

func (o *Observer) terminated() {
	if o != nil && o.OnTerminated != nil {
		o.OnTerminated()
	}
}

func (o *Observer) monitoredItemCreated(item MonitoredItem, itemToMonitor *ua.ReadValueID) {
	if o != nil && o.OnMonitoredItemCreated != nil {
		o.OnMonitoredItemCreated(item, itemToMonitor)
	}
}
