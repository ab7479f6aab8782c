package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apptbook",
			Name:      "book_attempts_total",
			Help:      "Count of booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	otpVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apptbook",
			Name:      "otp_verifications_total",
			Help:      "Count of OTP verification attempts by result.",
		},
		[]string{"result"},
	)

	cancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apptbook",
			Name:      "appointments_cancelled_total",
			Help:      "Count of appointments cancelled by users.",
		},
	)

	rescheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apptbook",
			Name:      "appointments_rescheduled_total",
			Help:      "Count of appointments rescheduled by users.",
		},
	)

	swept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apptbook",
			Name:      "holds_swept_total",
			Help:      "Count of expired pending holds reclaimed by the sweeper.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookAttempts, otpVerifications, cancelled, rescheduled, swept)
	})
}

func IncBookAttempt(outcome string) {
	bookAttempts.WithLabelValues(outcome).Inc()
}

func IncOTPVerification(result string) {
	otpVerifications.WithLabelValues(result).Inc()
}

func IncCancelled() {
	cancelled.Inc()
}

func IncRescheduled() {
	rescheduled.Inc()
}

func AddSwept(n int) {
	swept.Add(float64(n))
}
