package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCountersAndRefreshesGauges(t *testing.T) {
	m := New()
	m.IncPlaybackEvents("play")
	m.IncPlaybackEvents("play")
	m.IncPlaybackEvents("seek")
	m.IncChatMessages()
	m.IncJoins()
	m.IncLeaves()

	refreshed := false
	handler := m.Handler(func() {
		refreshed = true
		m.SetActiveRooms(3)
		m.SetParticipants(7)
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, refreshed, "gauges are refreshed per scrape")

	body := rec.Body.String()
	assert.Contains(t, body, `watchparty_playback_events_total{kind="play"} 2`)
	assert.Contains(t, body, `watchparty_playback_events_total{kind="seek"} 1`)
	assert.Contains(t, body, "watchparty_chat_messages_total 1")
	assert.Contains(t, body, "watchparty_active_rooms 3")
	assert.Contains(t, body, "watchparty_participants 7")
	assert.True(t, strings.Contains(body, "watchparty_joins_total 1"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncPlaybackEvents("play")
	m.IncChatMessages()
	m.IncJoins()
	m.IncLeaves()
	m.SetActiveRooms(1)
	m.SetParticipants(1)
}
