package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics структура для метрик Prometheus
type Metrics struct {
	MessagesProcessed    prometheus.Counter
	CommandsProcessed    *prometheus.CounterVec
	CallbacksProcessed   *prometheus.CounterVec
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
	BookingsCreated      *prometheus.CounterVec
	NotificationsSent    *prometheus.CounterVec
}

// NewMetrics создает новые метрики в reg. Tests pass a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_messages_processed_total",
			Help: "Total number of text messages handled",
		}),

		CommandsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_commands_processed_total",
			Help: "Commands by the page they resolved to",
		}, []string{"page"}),

		CallbacksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_callbacks_processed_total",
			Help: "Inline button presses by kind",
		}, []string{"kind"}),

		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_errors_total",
			Help: "Panics recovered in update handlers",
		}),

		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "telegram_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),

		BookingsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_bookings_created_total",
			Help: "Total number of bookings created",
		}, []string{"service_type"}),

		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_notifications_sent_total",
			Help: "Push notifications by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) command(page string) {
	if m != nil {
		m.CommandsProcessed.WithLabelValues(page).Inc()
	}
}

func (m *Metrics) callback(kind string) {
	if m != nil {
		m.CallbacksProcessed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) notified(reason string) {
	if m != nil {
		m.NotificationsSent.WithLabelValues(reason).Inc()
	}
}
