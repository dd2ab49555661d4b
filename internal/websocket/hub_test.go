package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	hub := NewHub(logger, []string{"http://allowed.example"})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws/optimization-progress/:optimization_id", hub.HandleWebSocket)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, id string, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/optimization-progress/" + id
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestBroadcastToRun(t *testing.T) {
	hub, server := newTestServer(t)
	id := uuid.NewString()
	other := uuid.NewString()

	conn, _, err := dial(t, server, id, "")
	require.NoError(t, err)
	defer conn.Close()

	otherConn, _, err := dial(t, server, other, "")
	require.NoError(t, err)
	defer otherConn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers(id) == 1 && hub.Subscribers(other) == 1 },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, hub.GetConnectionCount())

	hub.BroadcastToRun(id, "optimization_progress", map[string]int{"accepted": 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "optimization_progress", msg.Type)
	assert.Equal(t, id, msg.OptimizationID)
	assert.Equal(t, map[string]interface{}{"accepted": float64(3)}, msg.Data)

	otherConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = otherConn.ReadMessage()
	assert.Error(t, err, "other runs receive nothing")
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub, server := newTestServer(t)
	id := uuid.NewString()

	conn, _, err := dial(t, server, id, "")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Subscribers(id) == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers(id) == 0 }, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastToRun(id, "optimization_progress", nil)
}

func TestHandleWebSocketRejects(t *testing.T) {
	_, server := newTestServer(t)

	_, resp, err := dial(t, server, "not-a-uuid", "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, resp, err = dial(t, server, uuid.NewString(), "http://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, server, uuid.NewString(), "http://allowed.example")
	require.NoError(t, err)
	conn.Close()
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, originAllowed("", []string{"http://a"}))
	assert.True(t, originAllowed("http://b", nil))
	assert.True(t, originAllowed("http://b", []string{"*"}))
	assert.True(t, originAllowed("http://a", []string{"http://a"}))
	assert.False(t, originAllowed("http://b", []string{"http://a"}))
}
