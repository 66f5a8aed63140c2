package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

var (
	// VerificationAttempts counts public verify/activate calls by outcome
	VerificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_server_verification_attempts_total",
			Help: "Total number of license verification attempts",
		},
		[]string{"action", "outcome"},
	)

	// NotificationsSent counts outbound WhatsApp attempts by type and outcome
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_server_notifications_total",
			Help: "Total number of WhatsApp notification attempts",
		},
		[]string{"type", "outcome"},
	)

	// RateLimitRejections counts requests denied by the rate limiter
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_server_rate_limit_rejections_total",
			Help: "Total number of rate limited requests",
		},
		[]string{"action"},
	)

	// LicensesActive is refreshed from the stats query
	LicensesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "license_server_licenses_active",
			Help: "Number of licenses with stored status active",
		},
	)
)

// Handler exposes the prometheus scrape endpoint as a gin handler
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
