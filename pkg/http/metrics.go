// Package http serves the daemon's debug endpoints: counter snapshots
// as JSON, a health check and Prometheus-style text metrics.
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Vic92548/VCCE-Server/pkg/server"
)

// MetricsHandler provides HTTP endpoints for server metrics.
type MetricsHandler struct {
	metrics *server.Metrics
}

// NewMetricsHandler creates a new metrics HTTP handler.
func NewMetricsHandler(metrics *server.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// RegisterRoutes registers metrics endpoints with an HTTP mux.
func (h *MetricsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", h.handleMetrics)
	mux.HandleFunc("/metrics/health", h.handleHealth)
	mux.HandleFunc("/metrics/prometheus", h.handlePrometheus)
}

// handleMetrics returns the full counter snapshot as JSON.
func (h *MetricsHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	snapshot := h.metrics.Snapshot()
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleHealth returns a simple health check with basic counters.
func (h *MetricsHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	snapshot := h.metrics.Snapshot()
	health := struct {
		Status      string        `json:"status"`
		Uptime      time.Duration `json:"uptime"`
		Connections int64         `json:"connections"`
		ExecsActive int64         `json:"execsActive"`
	}{
		Status:      "healthy",
		Uptime:      snapshot.Uptime,
		Connections: snapshot.ConnectionsActive,
		ExecsActive: snapshot.ExecsActive,
	}

	if err := json.NewEncoder(w).Encode(health); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handlePrometheus returns metrics in Prometheus text format.
func (h *MetricsHandler) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	snapshot := h.metrics.Snapshot()

	fmt.Fprintf(w, "# HELP vcce_uptime_seconds Server uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE vcce_uptime_seconds gauge\n")
	fmt.Fprintf(w, "vcce_uptime_seconds %.2f\n", snapshot.Uptime.Seconds())

	fmt.Fprintf(w, "\n# HELP vcce_connections_total Total accepted connections\n")
	fmt.Fprintf(w, "# TYPE vcce_connections_total counter\n")
	fmt.Fprintf(w, "vcce_connections_total %d\n", snapshot.ConnectionsTotal)

	fmt.Fprintf(w, "\n# HELP vcce_connections_active Currently open connections\n")
	fmt.Fprintf(w, "# TYPE vcce_connections_active gauge\n")
	fmt.Fprintf(w, "vcce_connections_active %d\n", snapshot.ConnectionsActive)

	fmt.Fprintf(w, "\n# HELP vcce_malformed_frames_total Frames rejected as invalid JSON\n")
	fmt.Fprintf(w, "# TYPE vcce_malformed_frames_total counter\n")
	fmt.Fprintf(w, "vcce_malformed_frames_total %d\n", snapshot.MalformedFrames)

	fmt.Fprintf(w, "\n# HELP vcce_execs_total Total exec commands started\n")
	fmt.Fprintf(w, "# TYPE vcce_execs_total counter\n")
	fmt.Fprintf(w, "vcce_execs_total %d\n", snapshot.ExecsStarted)

	fmt.Fprintf(w, "\n# HELP vcce_execs_active Currently running exec commands\n")
	fmt.Fprintf(w, "# TYPE vcce_execs_active gauge\n")
	fmt.Fprintf(w, "vcce_execs_active %d\n", snapshot.ExecsActive)

	fmt.Fprintf(w, "\n# HELP vcce_command_calls_total Total calls per command\n")
	fmt.Fprintf(w, "# TYPE vcce_command_calls_total counter\n")
	for _, cm := range snapshot.Commands {
		name := sanitizeMetricName(cm.Command)
		fmt.Fprintf(w, "vcce_command_calls_total{command=\"%s\"} %d\n", name, cm.CallCount)
	}

	fmt.Fprintf(w, "\n# HELP vcce_command_errors_total Total failed calls per command\n")
	fmt.Fprintf(w, "# TYPE vcce_command_errors_total counter\n")
	for _, cm := range snapshot.Commands {
		name := sanitizeMetricName(cm.Command)
		fmt.Fprintf(w, "vcce_command_errors_total{command=\"%s\"} %d\n", name, cm.ErrorCount)
	}

	fmt.Fprintf(w, "\n# HELP vcce_command_duration_seconds Average command duration in seconds\n")
	fmt.Fprintf(w, "# TYPE vcce_command_duration_seconds gauge\n")
	for _, cm := range snapshot.Commands {
		name := sanitizeMetricName(cm.Command)
		fmt.Fprintf(w, "vcce_command_duration_seconds{command=\"%s\"} %.6f\n", name, cm.AverageDurationMs/1000.0)
	}
}

// sanitizeMetricName sanitizes a command name for Prometheus labels.
func sanitizeMetricName(name string) string {
	result := ""
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			result += string(r)
		} else {
			result += "_"
		}
	}
	if len(result) > 0 && result[0] >= '0' && result[0] <= '9' {
		result = "_" + result
	}
	return result
}
