package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry metrics
	InteractionsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "interactions_registry_size",
			Help: "Interactions in the current session registry",
		},
	)

	RegistryRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_registry_rejections_total",
			Help: "Sources or entries rejected or overwritten while building the registry",
		},
		[]string{"kind"}, // config_decode_error, validation_rejected, duplicate_identifier
	)

	// Relay metrics
	Triggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_triggers_total",
			Help: "Interaction triggers by outcome",
		},
		[]string{"outcome"}, // dispatched, invalid_input, service_not_ready, send_failed
	)

	RelayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_relay_messages_total",
			Help: "Relay messages received by outcome",
		},
		[]string{"outcome"}, // handled, invalid, duplicate, service_not_ready
	)

	NotificationsShown = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interactions_notifications_shown_total",
			Help: "Radio calls shown to the local observer",
		},
	)

	CommandsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_commands_sent_total",
			Help: "Behavior commands handed to the executor",
		},
		[]string{"status"}, // ok, error
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
