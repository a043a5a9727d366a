package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SessionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_sessions_recorded_total",
			Help: "Session completion events accepted by the ranking engine",
		},
		[]string{"result"},
	)

	StreakTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_streak_transitions_total",
			Help: "Streak state transitions by status",
		},
		[]string{"status"},
	)

	RefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_refresh_total",
			Help: "Leaderboard refresh cycles by result",
		},
		[]string{"result"},
	)

	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ranking_refresh_duration_seconds",
			Help:    "Duration of leaderboard refresh cycles",
			Buckets: []float64{0.5, 1, 5, 15, 60, 300},
		},
	)

	UsersRanked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ranking_users_ranked",
			Help: "Number of users ranked by the last successful refresh",
		},
	)

	BackgroundTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_background_tasks_total",
			Help: "Background units of work by task name and result",
		},
		[]string{"task", "result"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ranking_background_queue_depth",
			Help: "Number of background tasks waiting to run",
		},
	)

	initOnce sync.Once
)

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SessionsRecorded,
			StreakTransitions,
			RefreshTotal,
			RefreshDuration,
			UsersRanked,
			BackgroundTasks,
			QueueDepth,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
