package domain

// Diagnostics is the read-only snapshot exposed by a Subscription (spec
// §4.9). It is built by copying counters under the subscription's lock;
// no cross-field atomicity is claimed for callers that poll it
// concurrently with ticks.
type Diagnostics struct {
	SessionID                    string
	SubscriptionID                uint32
	Priority                      byte
	PublishingInterval             float64
	MaxLifetimeCount               uint32
	MaxKeepAliveCount              uint32
	MaxNotificationsPerPublish     uint32
	PublishingEnabled              bool
	State                          State
	MonitoredItemCount             int
	DisabledMonitoredItemCount     int
	NextSequenceNumber             uint32
	ModifyCount                    uint64
	EnableCount                    uint64
	DisableCount                   uint64
	RepublishRequestCount          uint64
	NotificationsCount             uint64
	PublishRequestCount            uint64
	DataChangeNotificationsCount   uint64
	EventNotificationsCount        uint64
}
