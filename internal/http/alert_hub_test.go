package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/evaluator"
)

var _ evaluator.Notifier = (*AlertHub)(nil)

func TestAlertHub_BroadcastsToConnectedClients(t *testing.T) {
	hub := NewAlertHub(zap.NewNop(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	asset := &domain.Asset{ID: "a-1", AssetCode: "CC001", Name: "Crash Cart", Location: "ER"}
	alert := &domain.Alert{
		ID: "al-1", AssetID: "a-1", Type: domain.AlertOveruse, Severity: domain.SeverityMedium,
		Message: "Asset Crash Cart was used for 1.0 hours (max: 0.5)", CreatedAt: testNow,
	}
	require.NoError(t, hub.NotifyAlert(context.Background(), asset, alert))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var update AlertUpdate
	require.NoError(t, json.Unmarshal(data, &update))
	assert.Equal(t, "ALERT_CREATED", update.Type)
	assert.Equal(t, "CC001", update.Alert.AssetCode)
	assert.Equal(t, domain.AlertOveruse, update.Alert.Type)
	assert.Equal(t, "ER", update.Alert.Location)
}

func TestAlertHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewAlertHub(zap.NewNop(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestAlertHub_RestrictsCrossOriginUpgrades(t *testing.T) {
	hub := NewAlertHub(zap.NewNop(), []string{"https://dashboard.wisefido.example/"})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	cases := []struct {
		origin string
		ok     bool
	}{
		{origin: "", ok: true},
		{origin: srv.URL, ok: true},
		{origin: "https://dashboard.wisefido.example", ok: true},
		{origin: "https://evil.example", ok: false},
		{origin: "https://dashboard.wisefido.example.evil.example", ok: false},
	}
	for _, tc := range cases {
		header := http.Header{}
		if tc.origin != "" {
			header.Set("Origin", tc.origin)
		}
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		if tc.ok {
			require.NoError(t, err, tc.origin)
			conn.Close()
			continue
		}
		require.ErrorIs(t, err, websocket.ErrBadHandshake, tc.origin)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, tc.origin)
	}
}
