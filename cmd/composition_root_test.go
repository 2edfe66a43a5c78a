package cmd_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/cmd"
	trackerhttp "tracker/internal/adapters/in/http"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/generated/servers"
)

func memoryConfig() cmd.Config {
	config := cmd.DefaultConfig()
	config.StorageBackend = cmd.StorageMemory
	config.JWTSecret = "secret"
	config.GeocoderURL = ""
	config.Accounts = []cmd.AccountSeed{
		{ID: "courier-1", Name: "Alice", Role: "courier"},
		{ID: "customer-1", Name: "Carol", Role: "customer"},
	}
	return config
}

func TestCompositionRoot_MemoryBackendEndToEnd(t *testing.T) {
	// Arrange
	config := memoryConfig()
	app, err := cmd.NewCompositionRoot(t.Context(), config, nil, prometheus.NewRegistry(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	fanout, err := app.CreateFanout()
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fanout.Run(t.Context())
	}()

	router, err := app.CreateRouter()
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		app.Shutdown()
		<-done
		srv.Close()
	})

	relayRunner, err := app.CreateRelay()
	require.NoError(t, err)
	assert.Nil(t, relayRunner)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	courier, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer courier.Close()

	// Act
	require.NoError(t, courier.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"announceIdentity","data":{"agentId":"courier-1"}}`)))
	require.NoError(t, courier.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, identified, err := courier.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(identified), `"identified"`)
	require.NoError(t, courier.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"reportCoordinate","data":{"latitude":50,"longitude":10}}`)))

	// Assert
	token, err := trackerhttp.NewAuthenticator(config.JWTSecret, false).
		IssueToken(trackerhttp.Principal{AgentID: "customer-1", Role: agent.RoleCustomer}, time.Hour)
	require.NoError(t, err)

	var couriers []servers.NearbyCourier
	require.Eventually(t, func() bool {
		req, reqErr := http.NewRequestWithContext(t.Context(), http.MethodGet,
			srv.URL+"/api/v1/couriers/nearby?longitude=10.0005&latitude=50.0005&radius=1000", nil)
		if reqErr != nil {
			return false
		}
		req.Header.Set("Authorization", "Bearer "+token)
		res, doErr := http.DefaultClient.Do(req)
		if doErr != nil {
			return false
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return false
		}
		couriers = nil
		return json.NewDecoder(res.Body).Decode(&couriers) == nil && len(couriers) == 1
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, "courier-1", couriers[0].AgentId)
	assert.Equal(t, "Alice", couriers[0].Name)
	assert.InDelta(t, 66.1, couriers[0].Distance, 0.1)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
}

func TestCompositionRoot_RejectsBadSeed(t *testing.T) {
	config := memoryConfig()
	config.Accounts = append(config.Accounts, cmd.AccountSeed{ID: "x", Role: "pilot"})

	_, err := cmd.NewCompositionRoot(t.Context(), config, nil, prometheus.NewRegistry(), slog.New(slog.DiscardHandler))

	require.Error(t, err)
}

func TestCompositionRoot_PostgresRelayNeedsDatabase(t *testing.T) {
	config := memoryConfig()
	config.RelayBackend = cmd.RelayPostgres

	app, err := cmd.NewCompositionRoot(t.Context(), config, nil, prometheus.NewRegistry(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	_, err = app.CreateRelay()
	require.Error(t, err)
}
