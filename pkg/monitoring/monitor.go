package monitoring

import (
	"strconv"
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

	StakeVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stake_verifications_total",
			Help: "Stake transaction verifications by result",
		},
		[]string{"result"},
	)

	RewardPayouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_payouts_total",
			Help: "Reward distribution outcomes",
		},
		[]string{"result"},
	)

	PayoutAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reward_payout_attempts",
			Help:    "Ledger submissions needed per settled payout",
			Buckets: []float64{1, 2, 3},
		},
	)

	SweepOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_sweep_outcomes_total",
			Help: "Per-record outcomes of the scheduled challenge sweep",
		},
		[]string{"outcome"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(StakeVerifications)
	prometheus.MustRegister(RewardPayouts)
	prometheus.MustRegister(PayoutAttempts)
	prometheus.MustRegister(SweepOutcomes)
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
