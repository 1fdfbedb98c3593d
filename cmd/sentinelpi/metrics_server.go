package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "sentinelpi/internal/config"
	"sentinelpi/internal/dispatch"
)

// ChannelHealthResponse reports the health of every registered
// notification channel.
type ChannelHealthResponse struct {
	Healthy  bool                     `json:"healthy"`
	Channels []dispatch.ChannelHealth `json:"channels"`
}

// startMetricsServer exposes Prometheus metrics and channel health over
// HTTP, on METRICS_PORT (default config.yaml's metrics_port, itself
// defaulting to 9090). Returns the server so callers can shut it down
// during graceful termination.
func startMetricsServer(logger *slog.Logger, appCfg appconfig.AppConfig, dispatcher *dispatch.Dispatcher) *http.Server {
	port := envIntOr("METRICS_PORT", appCfg.MetricsPort)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/channels", channelHealthHandler(dispatcher))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	return server
}

// channelHealthHandler returns 503 if any enabled channel's circuit
// breaker has tripped open, so an orchestrator can treat a broken
// notification path as a degraded readiness signal.
func channelHealthHandler(dispatcher *dispatch.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channels := dispatcher.ChannelHealth()

		healthy := true
		for _, c := range channels {
			if c.Enabled && c.BreakerOpen {
				healthy = false
			}
		}

		statusCode := http.StatusOK
		if !healthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(ChannelHealthResponse{Healthy: healthy, Channels: channels})
	}
}
