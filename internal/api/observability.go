package api

import (
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mazewars/internal/config"
	"mazewars/internal/game"
)

// Metrics with bounded cardinality (no per-client labels)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "maze_tick_duration_seconds",
		Help:    "Time spent in a simulation tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "maze_player_count",
		Help: "Current number of registered players",
	})

	roundTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maze_round_transitions_total",
		Help: "Round phase transitions by the phase entered",
	}, []string{"phase"}) // Bounded: Lobby, InRound, Intermission

	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "maze_event_log_total",
		Help: "Events accepted by the event log since start",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "maze_event_log_dropped",
		Help: "Events dropped by rate limiting or buffer overflow since start",
	})

	inboundDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maze_inbound_dropped_total",
		Help: "Client messages dropped before reaching the simulation",
	}, []string{"reason"}) // Bounded: malformed, unknown, rate_limit

	inboundAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maze_inbound_accepted_total",
		Help: "Client messages queued for the simulation",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter, origin check or capacity",
	}, []string{"reason"}) // Bounded: rate_limit, origin, ws_total_limit, ws_ip_limit, slow_consumer

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages queued for sending",
	})
)

// StartDebugServer serves pprof, /metrics and /health on a loopback address.
// A non-loopback address is forced to 127.0.0.1 unless ALLOW_DEBUG_EXTERNAL=true.
func StartDebugServer(cfg config.ObservabilityConfig, logger *zap.Logger) *http.Server {
	if cfg.Disabled {
		logger.Info("debug server disabled")
		return nil
	}

	addr := cfg.DebugAddr
	if !isLoopback(addr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		logger.Warn("debug server forced to localhost", zap.String("requested", addr))
		addr = "127.0.0.1:6060"
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("debug server starting",
			zap.String("pprof", "http://"+addr+"/debug/pprof/"),
			zap.String("metrics", "http://"+addr+"/metrics"))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("debug server error", zap.Error(err))
		}
	}()

	return srv
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// RecordTick records tick timing and the player gauge
func RecordTick(duration time.Duration, players int) {
	tickDuration.Observe(duration.Seconds())
	playerCount.Set(float64(players))
}

// RecordRoundTransition counts a phase change
func RecordRoundTransition(r game.Round) {
	roundTransitions.WithLabelValues(r.Phase.String()).Inc()
}

// UpdateEventLogStats mirrors the event log counters
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Set(float64(total))
	eventLogDropped.Set(float64(dropped))
}

// RecordInboundDropped counts a discarded client message
// reason must be one of: "malformed", "unknown", "rate_limit"
func RecordInboundDropped(reason string) {
	inboundDropped.WithLabelValues(reason).Inc()
}

// RecordInboundAccepted counts a message handed to the engine
func RecordInboundAccepted() {
	inboundAccepted.Inc()
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// AddWSMessages counts messages queued to clients
func AddWSMessages(n int) {
	wsMessagesTotal.Add(float64(n))
}
