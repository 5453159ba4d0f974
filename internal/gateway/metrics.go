package gateway

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pandacare_chat_ws_connections",
			Help: "Current number of active websocket connections.",
		},
	)
	wsRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pandacare_chat_ws_rooms",
			Help: "Current number of rooms with history.",
		},
	)
	wsMessagesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pandacare_chat_ws_messages_delivered_total",
			Help: "Total websocket frames delivered to connections.",
		},
	)
	wsSlowDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pandacare_chat_ws_slow_connections_dropped_total",
			Help: "Connections closed because their send buffer was full.",
		},
	)
	wsFramesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pandacare_chat_ws_frames_rejected_total",
			Help: "Client frames dropped by the gateway, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsRooms, wsMessagesDelivered, wsSlowDropped, wsFramesRejected)
}

func incConnections() {
	wsConnections.Inc()
}

func decConnections() {
	wsConnections.Dec()
}

func setRooms(count int) {
	wsRooms.Set(float64(count))
}

func addDelivered(count int) {
	wsMessagesDelivered.Add(float64(count))
}

func incSlowDropped() {
	wsSlowDropped.Inc()
}

func incRejected(reason string) {
	wsFramesRejected.WithLabelValues(reason).Inc()
}
