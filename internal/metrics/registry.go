// Package metrics holds the process-wide Prometheus registry for the
// subscription core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every Prometheus metric this service exports.
type Registry struct {
	notificationsSent       prometheus.Counter
	keepAlivesSent          prometheus.Counter
	subscriptionsExpired    prometheus.Counter
	subscriptionsCreated    prometheus.Counter
	subscriptionsTerminated prometheus.Counter
	modifyRequests          prometheus.Counter
	republishRequests       prometheus.Counter
	publishBreakerTrips     prometheus.Counter
	tickDuration            prometheus.Histogram
	retransmissionQueueSize prometheus.Gauge
	pendingQueueSize        prometheus.Gauge
	activeSubscriptions     prometheus.Gauge
}

// NewRegistry constructs and registers every metric with the default
// Prometheus registerer.
func NewRegistry() *Registry {
	return &Registry{
		notificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opcua_subscriptions_notifications_sent_total",
			Help: "Total number of NotificationMessages handed to the Publish Engine",
		}),
		keepAlivesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opcua_subscriptions_keepalives_sent_total",
			Help: "Total number of keep-alive responses handed to the Publish Engine",
		}),
		subscriptionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opcua_subscriptions_expired_total",
			Help: "Total number of subscriptions that self-terminated on life-time expiry",
		}),
		subscriptionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opcua_subscriptions_created_total",
			Help: "Total number of subscriptions created",
		}),
		subscriptionsTerminated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opcua_subscriptions_terminated_total",
			Help: "Total number of subscriptions explicitly terminated",
		}),
		modifyRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opcua_subscriptions_modify_requests_total",
			Help: "Total number of Modify calls applied to subscriptions",
		}),
		republishRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opcua_subscriptions_republish_requests_total",
			Help: "Total number of Republish calls",
		}),
		publishBreakerTrips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opcua_subscriptions_publish_breaker_trips_total",
			Help: "Total number of times the Publish Engine circuit breaker opened",
		}),
		tickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "opcua_subscriptions_tick_duration_seconds",
			Help:    "Duration of one subscription tick cycle",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		retransmissionQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "opcua_subscriptions_retransmission_queue_size",
			Help: "Number of entries currently held across all retransmission queues",
		}),
		pendingQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "opcua_subscriptions_pending_queue_size",
			Help: "Number of notifications currently waiting to be published",
		}),
		activeSubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "opcua_subscriptions_active",
			Help: "Number of subscriptions currently registered",
		}),
	}
}

func (r *Registry) IncNotificationsSent()       { r.notificationsSent.Inc() }
func (r *Registry) IncKeepAlivesSent()          { r.keepAlivesSent.Inc() }
func (r *Registry) IncSubscriptionsExpired()    { r.subscriptionsExpired.Inc() }
func (r *Registry) IncSubscriptionsCreated()    { r.subscriptionsCreated.Inc() }
func (r *Registry) IncSubscriptionsTerminated() { r.subscriptionsTerminated.Inc() }
func (r *Registry) IncModifyRequests()          { r.modifyRequests.Inc() }
func (r *Registry) IncRepublishRequests()       { r.republishRequests.Inc() }
func (r *Registry) IncPublishBreakerTrips()     { r.publishBreakerTrips.Inc() }

func (r *Registry) ObserveTickDuration(seconds float64) { r.tickDuration.Observe(seconds) }

func (r *Registry) SetRetransmissionQueueSize(n int) { r.retransmissionQueueSize.Set(float64(n)) }
func (r *Registry) SetPendingQueueSize(n int)        { r.pendingQueueSize.Set(float64(n)) }
func (r *Registry) SetActiveSubscriptions(n int)     { r.activeSubscriptions.Set(float64(n)) }
