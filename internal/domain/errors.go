package domain

import "errors"

// Sentinel errors returned by subscription operations. Wire-visible outcomes
// (the ones a client can observe via a status code) are reported as
// ua.StatusCode values instead — see monitoreditem.go and subscription.go.
// These sentinels cover programming and lifecycle errors internal to the
// core.
var (
	// ErrSubscriptionClosed names an operation attempted on a subscription
	// that has already transitioned to CLOSED. Subscription methods report
	// that case with a status code (BadSubscriptionIdInvalid) or as a no-op;
	// none of them returns this error.
	ErrSubscriptionClosed = errors.New("subscription: already closed")

	// ErrTimerAlreadyArmed is a fatal programming error: the periodic ticker
	// was armed while a previous timer was still running.
	ErrTimerAlreadyArmed = errors.New("subscription: timer already armed")

	// ErrUnknownNotificationVariant is a fatal programming error: ValidateFilter
	// panics with it when a monitoring filter is none of the three recognised
	// filter variants.
	ErrUnknownNotificationVariant = errors.New("subscription: unknown notification variant")

	// ErrMonitoredItemNotFound names an id that was never allocated or has
	// already been removed. Registry.Get reports that case with a false
	// result and Registry.Remove with BadMonitoredItemIdInvalid; neither
	// returns this error.
	ErrMonitoredItemNotFound = errors.New("monitoreditem: not found")

	// ErrManagerNotStarted is returned when a Manager operation requires the
	// tick loop to be running.
	ErrManagerNotStarted = errors.New("subscriptionmanager: not started")

	// ErrSubscriptionExists is returned by the registry when attempting to
	// register a subscription id that is already registered.
	ErrSubscriptionExists = errors.New("subscriptionregistry: subscription already registered")

	// ErrPublishEngineUnavailable names the case where the circuit protecting
	// the Publish Engine capability is open. BreakerPublishEngine reports
	// that case as zero pending requests and logs failed sends; it does not
	// return this error.
	ErrPublishEngineUnavailable = errors.New("publishengine: unavailable")
)
