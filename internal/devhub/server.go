// Package devhub is a local stand-in for the dashboard backend's push
// and notification endpoints. The production backend lives in another
// repository; this server gives the agent and the end-to-end tests a
// real counterpart: the negotiate handshake, the websocket hub speaking
// the same frame protocol, and the two REST endpoints.
package devhub

import (
	"bytes"
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const recordSeparator byte = 0x1e

// UserNotification is the wire shape the backend serves and pushes.
type UserNotification struct {
	NotificationID interface{} `json:"notificationId"`
	Description    string      `json:"description"`
	DepartmentID   string      `json:"departmentId,omitempty"`
	KpiID          string      `json:"kpiId,omitempty"`
	CommentID      interface{} `json:"commentId,omitempty"`
	ActionType     string      `json:"actionType"`
	UserID         string      `json:"userId"`
	IsRead         bool        `json:"isRead"`
	ReadAt         *string     `json:"readAt"`
	CreatedAt      string      `json:"createdAt"`
}

type Server struct {
	app *fiber.App
	log *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	notifs  []*UserNotification
}

func New(log *zap.Logger) *Server {
	s := &Server{
		app:     fiber.New(fiber.Config{DisableStartupMessage: true}),
		log:     log,
		clients: make(map[*websocket.Conn]struct{}),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Post("/notificationHub/negotiate", s.negotiate)

	s.app.Use("/notificationHub", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if bearer(c) == "" {
			return fiber.ErrUnauthorized
		}
		return c.Next()
	})
	s.app.Get("/notificationHub", websocket.New(s.handleSocket))

	s.app.Get("/api/v1/notifications", s.listNotifications)
	s.app.Put("/api/v1/notifications/:id/mark-read", s.markRead)
	s.app.Post("/publish", s.publish)
}

// Seed loads fixture notifications served by the REST endpoint.
func (s *Server) Seed(ns ...*UserNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifs = append(s.notifs, ns...)
}

func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

// Listener serves on an existing listener; tests use this with a
// random port.
func (s *Server) Listener(ln net.Listener) error { return s.app.Listener(ln) }

func (s *Server) Shutdown() error { return s.app.Shutdown() }

func bearer(c *fiber.Ctx) string {
	if h := c.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("access_token")
}

func (s *Server) negotiate(c *fiber.Ctx) error {
	if bearer(c) == "" {
		return fiber.ErrUnauthorized
	}
	id := uuid.NewString()
	return c.JSON(fiber.Map{
		"connectionId":     id,
		"connectionToken":  uuid.NewString(),
		"negotiateVersion": 1,
		"availableTransports": []fiber.Map{
			{"transport": "WebSockets", "transferFormats": []string{"Text"}},
		},
	})
}

func (s *Server) listNotifications(c *fiber.Ctx) error {
	userID := c.Query("userId")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*UserNotification, 0, len(s.notifs))
	for _, n := range s.notifs {
		if userID == "" || n.UserID == userID {
			out = append(out, n)
		}
	}
	return c.JSON(fiber.Map{"success": true, "message": "", "data": out})
}

func (s *Server) markRead(c *fiber.Ctx) error {
	id := c.Params("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifs {
		if idString(n.NotificationID) == id {
			n.IsRead = true
			now := time.Now().UTC().Format(time.RFC3339)
			n.ReadAt = &now
			return c.JSON(fiber.Map{"success": true})
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "unknown notification"})
}

// publish accepts a notification, stores it, and fans it out to every
// connected socket as a ReceiveNotification invocation.
func (s *Server) publish(c *fiber.Ctx) error {
	var n UserNotification
	if err := c.BodyParser(&n); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	if n.CreatedAt == "" {
		n.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	s.mu.Lock()
	s.notifs = append([]*UserNotification{&n}, s.notifs...)
	s.mu.Unlock()

	s.Push(&n)
	return c.JSON(fiber.Map{"success": true})
}

// Push fans a notification out to all connected clients.
func (s *Server) Push(n *UserNotification) {
	frame, err := invocationFrame(n)
	if err != nil {
		s.log.Error("encoding push frame", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.log.Warn("push write failed, dropping client", zap.Error(err))
			_ = conn.Close()
			delete(s.clients, conn)
		}
	}
}

func invocationFrame(n *UserNotification) ([]byte, error) {
	b, err := json.Marshal(map[string]interface{}{
		"type":      1,
		"target":    "ReceiveNotification",
		"arguments": []interface{}{n},
	})
	if err != nil {
		return nil, err
	}
	return append(b, recordSeparator), nil
}

func (s *Server) handleSocket(conn *websocket.Conn) {
	// first message must be the protocol handshake
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return
	}
	var hs struct {
		Protocol string `json:"protocol"`
		Version  int    `json:"version"`
	}
	data = bytes.TrimSuffix(data, []byte{recordSeparator})
	if err := json.Unmarshal(data, &hs); err != nil || hs.Protocol != "json" {
		resp, _ := json.Marshal(map[string]string{"error": "unsupported protocol"})
		_ = conn.WriteMessage(websocket.TextMessage, append(resp, recordSeparator))
		_ = conn.Close()
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte{'{', '}', recordSeparator}); err != nil {
		_ = conn.Close()
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()
	s.log.Info("hub client connected", zap.Int("clients", s.clientCount()))

	// drain inbound frames (client pings) until the socket drops
	_ = conn.SetReadDeadline(time.Time{})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	_ = conn.Close()
	s.log.Info("hub client disconnected", zap.Int("clients", s.clientCount()))
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func idString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		b, _ := json.Marshal(v)
		return strings.Trim(string(b), `"`)
	}
}
