package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/solarblue/frametrics/internal/health"
)

var (
	version       = "dev"
	buildTime     = "unknown"
	startTime     = time.Now()
	healthChecker *health.HealthChecker
)

// SetVersion sets the global version and build time for handlers.
func SetVersion(v string, bt string) {
	version = v
	buildTime = bt
}

// SetHealthChecker sets the global health checker for handlers.
func SetHealthChecker(hc *health.HealthChecker) {
	healthChecker = hc
}

// HealthHandler reports process vitals and per-component health.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status := map[string]interface{}{
		"status":         "ok",
		"version":        version,
		"build_time":     buildTime,
		"timestamp":      time.Now().Unix(),
		"memory_mb":      m.Alloc / 1024 / 1024,
		"goroutines":     runtime.NumGoroutine(),
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
	}

	code := http.StatusOK
	if healthChecker != nil {
		hs := healthChecker.GetHealthStatus(r.Context())
		status["components"] = hs.Checks
		if hs.Overall != health.StatusHealthy {
			status["status"] = string(hs.Overall)
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// LivenessHandler answers Kubernetes-style liveness probes.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	if healthChecker != nil {
		if err := healthChecker.LivenessCheck(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ReadinessHandler answers readiness probes by checking all components.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if healthChecker != nil {
		if err := healthChecker.ReadinessCheck(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
