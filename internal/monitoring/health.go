package monitoring

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const maxHealthErrors = 10

// PingFunc checks a dependency such as the run store
type PingFunc func(ctx context.Context) error

// HealthChecker reports service health for the HTTP API
type HealthChecker struct {
	mu        sync.RWMutex
	startTime time.Time
	lastRun   time.Time
	lastRunID string
	runs      int
	errors    []string
	ping      PingFunc
}

// HealthStatus is the JSON body of the health endpoint
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastRunID string    `json:"last_run_id,omitempty"`
	Runs      int       `json:"runs"`
	Uptime    string    `json:"uptime"`
	Errors    []string  `json:"errors,omitempty"`
}

// NewHealthChecker creates a checker; ping may be nil
func NewHealthChecker(ping PingFunc) *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		errors:    make([]string, 0),
		ping:      ping,
	}
}

// RecordRun notes a successful run
func (h *HealthChecker) RecordRun(runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRun = time.Now()
	h.lastRunID = runID
	h.runs++
}

// RecordError keeps the most recent errors for the health report
func (h *HealthChecker) RecordError(err error) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, err.Error())
	if len(h.errors) > maxHealthErrors {
		h.errors = h.errors[1:]
	}
}

// Check builds the current status and the HTTP code to serve it with.
// A failing ping makes the service unhealthy; recent run errors only degrade it.
func (h *HealthChecker) Check(ctx context.Context) (HealthStatus, int) {
	h.mu.RLock()
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		LastRun:   h.lastRun,
		LastRunID: h.lastRunID,
		Runs:      h.runs,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Errors:    append([]string(nil), h.errors...),
	}
	ping := h.ping
	h.mu.RUnlock()

	code := http.StatusOK
	if len(status.Errors) > 0 {
		status.Status = "degraded"
	}
	if ping != nil {
		if err := ping(ctx); err != nil {
			status.Status = "unhealthy"
			status.Errors = append(status.Errors, "store: "+err.Error())
			code = http.StatusServiceUnavailable
		}
	}
	return status, code
}
