// Package health exposes the HTTP health/liveness/readiness surface, and the
// per-subscription diagnostics endpoint SPEC_FULL adds on top of it.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ManagerStatus is the narrow view this package needs from
// internal/service.Manager, kept small so health stays decoupled from the
// service package's full surface.
type ManagerStatus interface {
	Started() bool
	ActiveSubscriptionCount() int
	Diagnostics() []any
}

// Checker serves /health, /health/live, /health/ready and /subscriptions.
type Checker struct {
	serviceName    string
	serviceVersion string
	manager        ManagerStatus
	logger         zerolog.Logger
}

// NewChecker constructs a Checker bound to a Manager.
func NewChecker(serviceName, serviceVersion string, manager ManagerStatus, logger zerolog.Logger) *Checker {
	return &Checker{
		serviceName:    serviceName,
		serviceVersion: serviceVersion,
		manager:        manager,
		logger:         logger.With().Str("component", "health-checker").Logger(),
	}
}

type healthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Version       string `json:"version"`
	Timestamp     string `json:"timestamp"`
	Subscriptions int    `json:"subscriptions"`
}

// HealthHandler returns the overall health status.
func (c *Checker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !c.manager.Started() {
		status = "degraded"
	}

	resp := healthResponse{
		Status:        status,
		Service:       c.serviceName,
		Version:       c.serviceVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Subscriptions: c.manager.ActiveSubscriptionCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(resp)
}

// LiveHandler returns 200 if the process is running.
func (c *Checker) LiveHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadyHandler returns 200 once the manager has started accepting
// subscriptions.
func (c *Checker) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ready := c.manager.Started()

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "not_ready",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DiagnosticsHandler exposes every live subscription's §4.9 snapshot.
func (c *Checker) DiagnosticsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c.manager.Diagnostics())
}
