package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
)

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub(4, nil)
	a, b := hub.Subscribe(), hub.Subscribe()
	assert.Equal(t, 2, hub.Subscribers())

	hub.Publish(SummaryEvent(&contracts.FleetSummary{TotalVehicles: 3}))

	for _, sub := range []*Subscription{a, b} {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, EventFleetSummary, ev.Type)
			assert.Equal(t, 3, ev.Summary.TotalVehicles)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	a.Close()
	_, open := <-a.Events()
	assert.False(t, open)
	assert.Equal(t, 1, hub.Subscribers())
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(2, nil)
	slow := hub.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(AlertEvent(&contracts.Alert{ID: int64(i)}))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Equal(t, int64(8), hub.Dropped())
	assert.Equal(t, int64(0), (<-slow.Events()).Alert.ID)
}

func TestHub_LatestSummaryReplayed(t *testing.T) {
	hub := NewHub(4, nil)
	hub.Publish(SummaryEvent(&contracts.FleetSummary{ActiveAlerts: 2}))
	hub.Publish(AlertEvent(&contracts.Alert{ID: 9}))

	sub := hub.Subscribe()
	ev := <-sub.Events()
	assert.Equal(t, EventFleetSummary, ev.Type)
	assert.Equal(t, 2, ev.Summary.ActiveAlerts)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(1, nil)
	sub := hub.Subscribe()
	hub.Close()
	hub.Close()

	_, open := <-sub.Events()
	assert.False(t, open)

	hub.Publish(SummaryEvent(&contracts.FleetSummary{}))
	late := hub.Subscribe()
	_, open = <-late.Events()
	assert.False(t, open)
	late.Close()
}

func TestServeWS(t *testing.T) {
	hub := NewHub(4, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(SummaryEvent(&contracts.FleetSummary{TotalVehicles: 3, AverageSoC: 55.5}))

	var ev Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventFleetSummary, ev.Type)
	assert.Equal(t, 55.5, ev.Summary.AverageSoC)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWS_CheckOrigin(t *testing.T) {
	hub := NewHub(4, nil).AllowOrigins([]string{"https://ops.example.com"})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	dial := func(origin string) (*http.Response, error) {
		header := http.Header{}
		if origin != "" {
			header.Set("Origin", origin)
		}
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		if conn != nil {
			conn.Close()
		}
		return resp, err
	}

	resp, err := dial("https://evil.example.com")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	for _, origin := range []string{"", "https://ops.example.com", srv.URL} {
		_, err := dial(origin)
		assert.NoError(t, err, "origin %q", origin)
	}
}
