// Package metrics provides Prometheus instrumentation for the Chipvault service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chipvault",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chipvault",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// GamesCreatedTotal counts game escrow records created by mode.
	GamesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chipvault",
			Name:      "games_created_total",
			Help:      "Total game escrow records created by mode.",
		},
		[]string{"mode"},
	)

	// JoinsTotal counts buy-ins escrowed into game pots.
	JoinsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chipvault",
		Name:      "joins_total",
		Help:      "Total player joins (buy-ins escrowed).",
	})

	// PayoutsTotal counts pot distributions.
	PayoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chipvault",
		Name:      "payouts_total",
		Help:      "Total pot distributions.",
	})

	// RefundsTotal counts emergency refunds returned to players.
	RefundsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chipvault",
		Name:      "refunds_total",
		Help:      "Total emergency refunds.",
	})

	// AbandonedTotal counts games marked abandoned.
	AbandonedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chipvault",
		Name:      "abandoned_total",
		Help:      "Total games marked abandoned.",
	})

	// ChipsEscrowed observes pot sizes at distribution time.
	ChipsEscrowed = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chipvault",
		Name:      "pot_size_chips",
		Help:      "Pot size in chips at distribution time.",
		Buckets:   []float64{10, 100, 1000, 10000, 100000, 1000000, 10000000},
	})

	// ActiveGames tracks games currently accepting play.
	ActiveGames = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chipvault",
		Name:      "active_games",
		Help:      "Number of games currently pending or active.",
	})

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chipvault",
		Name:      "active_websocket_clients",
		Help:      "Number of currently connected WebSocket clients.",
	})

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chipvault", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chipvault", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chipvault", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// DBWaitCount tracks the total number of connections waited for.
	DBWaitCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chipvault", Name: "db_wait_count_total",
		Help: "Total number of connections waited for.",
	})
	// DBWaitDuration tracks total time waited for connections.
	DBWaitDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chipvault", Name: "db_wait_duration_seconds_total",
		Help: "Total time waited for connections in seconds.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chipvault", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GamesCreatedTotal,
		JoinsTotal,
		PayoutsTotal,
		RefundsTotal,
		AbandonedTotal,
		ChipsEscrowed,
		ActiveGames,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		DBWaitCount,
		DBWaitDuration,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			DBWaitCount.Set(float64(stats.WaitCount))
			DBWaitDuration.Set(stats.WaitDuration.Seconds())
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
