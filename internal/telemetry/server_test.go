package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBroadcastDeliversSnapshotToConnectedClient(t *testing.T) {
	srv := NewServer(zap.NewNop())
	httpSrv := httptest.NewServer(http.HandlerFunc(srv.Handler))
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	srv.Broadcast(Snapshot{Role: "consumer", State: "Connected", RingOccupancy: 512})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"Connected"`)
}

func TestClientCountDropsAfterDisconnect(t *testing.T) {
	srv := NewServer(zap.NewNop())
	httpSrv := httptest.NewServer(http.HandlerFunc(srv.Handler))
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return srv.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
