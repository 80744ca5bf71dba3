package statusapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/alert"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/clock"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/metrics"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/riskgate"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/rollingwindow"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/statusapi"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/tracker"
)

func setupTestServer(t *testing.T) (*statusapi.Server, *httptest.Server, *alert.ChannelSink) {
	t.Helper()
	logger := zap.NewNop()

	tr := tracker.New()
	fc := clock.NewFake(time.Now())
	rg := riskgate.New(logger, riskgate.Config{
		MaxLossPerSetupPct: 0.02,
		DailyLossLimitPct:  0.05,
		MarginLevelFloor:   150,
		SessionStartHHMM:   "00:00",
		SessionEndHHMM:     "23:59",
	}, fc, decimal.NewFromInt(10000))
	win := rollingwindow.New(5, time.Minute)
	met := metrics.New()
	snk := alert.NewChannelSink(logger, 8)

	server := statusapi.New(logger, statusapi.Config{}, tr, rg, win, met, snk)
	ts := httptest.NewServer(server.Router())
	return server, ts, snk
}

func TestHealthzEndpoint(t *testing.T) {
	_, ts, _ := setupTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatusEndpoint(t *testing.T) {
	_, ts, _ := setupTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(0), body["open_spreads"])
	assert.Contains(t, body, "risk")
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts, _ := setupTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketAlertFanOut(t *testing.T) {
	_, ts, snk := setupTestServer(t)
	defer ts.Close()

	wsURL := "ws" + ts.URL[len("http"):] + "/ws/alerts"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give handleWebSocket time to add the upgraded connection to the
	// client set before publishing, since fanOutAlerts only sends to
	// clients already in that set.
	time.Sleep(20 * time.Millisecond)

	snk.Publish(alert.Event{Severity: alert.SeverityWarning, Code: "test_alert", Message: "hello"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt alert.Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, "test_alert", evt.Code)
}
