package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoss/lantern/internal/models"
	"github.com/avoss/lantern/internal/types"
	"github.com/avoss/lantern/pkg/session"
	"github.com/avoss/lantern/pkg/updater"
)

type echoResponder struct{}

func (echoResponder) GenerateReply(_ context.Context, _ []models.ChatMessage, input string, _ []string) (string, error) {
	return "echo: " + input, nil
}

func newTestServer(t *testing.T) *WSServer {
	t.Helper()

	// Closed server makes the connectivity probe report offline.
	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	probeURL := probe.URL
	probe.Close()

	up, err := updater.NewWithConfig(updater.Config{
		ManifestURL:  "http://localhost:0/latest.json",
		MetadataPath: t.TempDir() + "/metadata.json",
		CheckURL:     probeURL,
		ProbeTimeout: 500 * time.Millisecond,
		NewResponder: func(context.Context, string) (types.Responder, error) { return echoResponder{}, nil },
		NewKnowledge: func(context.Context, string, []byte) (types.Retriever, error) { return nil, nil },
	})
	require.NoError(t, err)

	return New(Config{
		Session: session.New(session.Config{Responder: echoResponder{}}),
		Updater: up,
	})
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

func TestWebSocketChat(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(Message{Type: "chat", Content: "hello"}))

	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "response", reply.Type)
	assert.Equal(t, "echo: hello", reply.Content)
}

func TestWebSocketSearchQueuedOffline(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(Message{Type: "chat", Content: "/search weather"}))

	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "search", reply.Type)
	assert.Contains(t, reply.Content, "queued")
}

func TestWebSocketSearchWithoutQuery(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(Message{Type: "chat", Content: "/search"}))

	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "Usage: /search <query>", reply.Content)
}

func TestWebSocketUnknownType(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(Message{Type: "bogus"}))

	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Content, "unknown message type")
}

func TestSearchQuery(t *testing.T) {
	tests := []struct {
		input string
		query string
		ok    bool
	}{
		{"/search weather today", "weather today", true},
		{"  /SEARCH weather", "weather", true},
		{"/search", "", true},
		{"tell me about /search", "", false},
		{"plain question", "", false},
	}

	for _, tt := range tests {
		query, ok := searchQuery(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.query, query, tt.input)
	}
}
