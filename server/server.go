// Package server exposes the chat session over a WebSocket, mirroring the
// terminal REPL for browser front ends.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/avoss/lantern/pkg/session"
	"github.com/avoss/lantern/pkg/updater"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local single-user deployment
	},
}

// Message is the JSON envelope for both directions. Types sent by clients:
// "chat", "update". Types sent back: "response", "search", "status", "error".
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Config struct {
	Addr    string
	Session *session.Session
	Updater *updater.Updater
	Logger  *zap.Logger
}

type WSServer struct {
	config  Config
	session *session.Session
	updater *updater.Updater
	logger  *zap.Logger
}

func New(config Config) *WSServer {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &WSServer{
		config:  config,
		session: config.Session,
		updater: config.Updater,
		logger:  config.Logger,
	}
}

// Handler returns the HTTP mux with the /ws and /health endpoints.
func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *WSServer) Run() error {
	s.logger.Info("starting WebSocket server", zap.String("addr", s.config.Addr))
	return http.ListenAndServe(s.config.Addr, s.Handler())
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Messages are handled in arrival order; the session is single-threaded.
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			s.logger.Debug("connection closed", zap.Error(err))
			break
		}
		s.handleMessage(r.Context(), conn, msg)
	}
}

func (s *WSServer) handleMessage(ctx context.Context, conn *websocket.Conn, msg Message) {
	switch msg.Type {
	case "chat":
		s.handleChat(ctx, conn, msg.Content)
	case "update":
		result := s.updater.Check(ctx)
		s.session.SetResponder(result.Responder)
		s.session.SetRetriever(result.Knowledge)
		s.send(conn, "status", result.Message)
	default:
		s.send(conn, "error", "unknown message type: "+msg.Type)
	}
}

func (s *WSServer) handleChat(ctx context.Context, conn *websocket.Conn, input string) {
	online := s.updater.IsOnline(ctx)

	if online {
		for _, text := range s.session.DrainPending(ctx) {
			s.send(conn, "search", text)
		}
	}

	if query, ok := searchQuery(input); ok {
		if query == "" {
			s.send(conn, "error", "Usage: /search <query>")
			return
		}
		s.send(conn, "search", s.session.HandleSearch(ctx, input, query, online))
		return
	}

	s.send(conn, "response", s.session.HandleChat(ctx, input))
}

func (s *WSServer) send(conn *websocket.Conn, msgType, content string) {
	if err := conn.WriteJSON(Message{Type: msgType, Content: content}); err != nil {
		s.logger.Warn("error sending message", zap.Error(err))
	}
}

func searchQuery(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(strings.ToLower(trimmed), "/search") {
		return "", false
	}
	return strings.TrimSpace(trimmed[len("/search"):]), true
}
