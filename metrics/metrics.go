package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the room hub.
type Metrics struct {
	registry            *prometheus.Registry
	playbackEventsTotal *prometheus.CounterVec
	chatMessagesTotal   prometheus.Counter
	joinsTotal          prometheus.Counter
	leavesTotal         prometheus.Counter
	activeRooms         prometheus.Gauge
	participants        prometheus.Gauge
}

// New creates and registers Prometheus metrics for the hub and relay.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	playbackEventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "watchparty_playback_events_total",
		Help: "Total number of playback events fanned out, by kind",
	}, []string{"kind"})
	chatMessagesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_chat_messages_total",
		Help: "Total number of chat messages relayed",
	})
	joinsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_joins_total",
		Help: "Total number of room joins",
	})
	leavesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_leaves_total",
		Help: "Total number of room leaves",
	})
	activeRooms := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "watchparty_active_rooms",
		Help: "Number of rooms with at least one open connection",
	})
	participants := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "watchparty_participants",
		Help: "Number of open connections across all rooms",
	})

	registry.MustRegister(
		playbackEventsTotal,
		chatMessagesTotal,
		joinsTotal,
		leavesTotal,
		activeRooms,
		participants,
	)

	return &Metrics{
		registry:            registry,
		playbackEventsTotal: playbackEventsTotal,
		chatMessagesTotal:   chatMessagesTotal,
		joinsTotal:          joinsTotal,
		leavesTotal:         leavesTotal,
		activeRooms:         activeRooms,
		participants:        participants,
	}
}

// IncPlaybackEvents increments the playback event counter for a kind.
func (m *Metrics) IncPlaybackEvents(kind string) {
	if m == nil {
		return
	}
	m.playbackEventsTotal.WithLabelValues(kind).Inc()
}

// IncChatMessages increments the relayed chat message counter.
func (m *Metrics) IncChatMessages() {
	if m == nil {
		return
	}
	m.chatMessagesTotal.Inc()
}

// IncJoins increments the join counter.
func (m *Metrics) IncJoins() {
	if m == nil {
		return
	}
	m.joinsTotal.Inc()
}

// IncLeaves increments the leave counter.
func (m *Metrics) IncLeaves() {
	if m == nil {
		return
	}
	m.leavesTotal.Inc()
}

// SetActiveRooms sets the active rooms gauge.
func (m *Metrics) SetActiveRooms(n int) {
	if m == nil {
		return
	}
	m.activeRooms.Set(float64(n))
}

// SetParticipants sets the open connections gauge.
func (m *Metrics) SetParticipants(n int) {
	if m == nil {
		return
	}
	m.participants.Set(float64(n))
}

// Handler returns an http.Handler serving the registry. updateGauges is
// called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
