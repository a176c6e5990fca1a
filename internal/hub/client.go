package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/notification"
)

// TokenSource yields the bearer token for a connection attempt. It is
// invoked at dial time, never cached, so a refreshed login is used on
// the next attempt.
type TokenSource func() string

type connectMode int

const (
	// modeDirect dials the websocket straight away, skipping negotiation.
	modeDirect connectMode = iota
	// modeNegotiated runs the negotiate handshake first and lets the
	// server pick the transport.
	modeNegotiated
)

func (m connectMode) String() string {
	if m == modeDirect {
		return "direct"
	}
	return "negotiated"
}

type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateConnected
	// stateReconnecting covers the whole automatic retry loop, backoff
	// waits included, so Start stays a no-op for its duration.
	stateReconnecting
)

type Config struct {
	// URL of the hub endpoint, http(s) or ws(s) scheme.
	URL   string
	Token TokenSource

	PingInterval     time.Duration // default 25s
	WriteDeadline    time.Duration // default 10s
	ReadTimeout      time.Duration // default 60s
	HandshakeTimeout time.Duration // default 10s
	Buffer           int           // event channel depth, default 256
}

// Connector maintains at most one live push connection per session.
// Start is idempotent and never returns an error; both connection
// attempts failing leaves the connector idle until the next Start.
// Once connected, reconnection is automatic with exponential backoff
// (1s doubling, capped at 30s, unbounded attempts).
//
// Inbound ReceiveNotification events surface on two channels: the raw
// payload as a string, and the normalized record. Neither channel is
// ever closed; consumers stop reading when they shut down.
type Connector struct {
	cfg    Config
	log    *zap.Logger
	httpc  *http.Client
	dialer *websocket.Dialer

	raw    chan string
	notifs chan notification.Notification

	onClosed       func(err error)
	onReconnecting func(err error)
	onReconnected  func(connectionID string)

	mu     sync.Mutex
	conn   *websocket.Conn
	state  connState
	mode   connectMode
	connID string
	cancel context.CancelFunc
	// gen identifies the session a goroutine belongs to. Start and Stop
	// bump it; a goroutine holding a stale gen must not touch state.
	gen uint64

	wmu sync.Mutex
}

func NewConnector(cfg Config, log *zap.Logger) *Connector {
	if cfg.PingInterval == 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.WriteDeadline == 0 {
		cfg.WriteDeadline = 10 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.Buffer == 0 {
		cfg.Buffer = 256
	}
	if cfg.Token == nil {
		cfg.Token = func() string { return "" }
	}
	return &Connector{
		cfg:    cfg,
		log:    log,
		httpc:  &http.Client{Timeout: cfg.HandshakeTimeout},
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		raw:    make(chan string, cfg.Buffer),
		notifs: make(chan notification.Notification, cfg.Buffer),
	}
}

// Raw is the stream of inbound payloads as delivered, stringified.
func (c *Connector) Raw() <-chan string { return c.raw }

// Notifications is the stream of normalized inbound notifications.
func (c *Connector) Notifications() <-chan notification.Notification { return c.notifs }

// OnClosed registers a hook fired when the connection is torn down for
// good. Hooks must be registered before Start.
func (c *Connector) OnClosed(f func(error)) { c.onClosed = f }

// OnReconnecting fires when a live connection drops and the retry loop
// begins.
func (c *Connector) OnReconnecting(f func(error)) { c.onReconnecting = f }

// OnReconnected fires after the retry loop re-establishes the
// connection, with the new connection id.
func (c *Connector) OnReconnected(f func(connectionID string)) { c.onReconnected = f }

// Start begins a connection attempt. It is a no-op while a connection
// exists or an attempt is in flight; no duplicate connections are ever
// created. Failures are logged, never returned.
func (c *Connector) Start() {
	c.mu.Lock()
	switch c.state {
	case stateConnected:
		c.mu.Unlock()
		c.log.Debug("hub connection already exists")
		return
	case stateConnecting, stateReconnecting:
		c.mu.Unlock()
		c.log.Debug("hub connection attempt already in progress")
		return
	}
	c.state = stateConnecting
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	go c.connectWithFallback(ctx, gen)
}

// Stop tears down the connection if one exists; safe to call when none
// does.
func (c *Connector) Stop() {
	c.mu.Lock()
	c.gen++
	cancel := c.cancel
	conn := c.conn
	c.cancel = nil
	c.conn = nil
	c.state = stateIdle
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
}

// connectWithFallback tries the direct transport first, then falls back
// to a negotiated connection once. A second failure ends the attempt.
func (c *Connector) connectWithFallback(ctx context.Context, gen uint64) {
	mode := modeDirect
	conn, connID, err := c.dial(ctx, mode)
	if err != nil {
		c.log.Warn("direct websocket connect failed, falling back to negotiation",
			zap.String("url", c.cfg.URL), zap.Error(err))
		mode = modeNegotiated
		conn, connID, err = c.dial(ctx, mode)
	}
	if err != nil {
		c.log.Error("hub connection failed", zap.String("mode", mode.String()), zap.Error(err))
		c.idle(gen)
		return
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.connID = connID
	c.mode = mode
	c.state = stateConnected
	c.mu.Unlock()

	c.log.Info("hub connected",
		zap.String("mode", mode.String()), zap.String("connectionId", connID))
	go c.readPump(ctx, gen, conn)
	go c.pingLoop(ctx, conn)
}

// idle resets the connector so a later Start can run. A stale gen means
// a newer Start or Stop owns the state now; leave it alone.
func (c *Connector) idle(gen uint64) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = stateIdle
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// dial opens the websocket for the given mode and completes the hub
// protocol handshake.
func (c *Connector) dial(ctx context.Context, mode connectMode) (*websocket.Conn, string, error) {
	token := c.cfg.Token()
	connID := uuid.NewString()

	u, err := wsURL(c.cfg.URL)
	if err != nil {
		return nil, "", err
	}
	q := u.Query()
	if mode == modeNegotiated {
		neg, err := negotiate(ctx, c.httpc, httpURL(c.cfg.URL), token)
		if err != nil {
			return nil, "", err
		}
		if !neg.supportsWebsockets() {
			return nil, "", fmt.Errorf("server offered no websocket transport")
		}
		q.Set("id", neg.ConnectionToken)
		connID = neg.ConnectionID
	}
	if token != "" {
		q.Set("access_token", token)
	}
	u.RawQuery = q.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, "", fmt.Errorf("dial %s: %w (status %d)", mode, err, resp.StatusCode)
		}
		return nil, "", fmt.Errorf("dial %s: %w", mode, err)
	}

	if err := c.handshake(conn); err != nil {
		_ = conn.Close()
		return nil, "", err
	}
	return conn, connID, nil
}

func (c *Connector) handshake(conn *websocket.Conn) error {
	frame, err := encodeFrame(handshakeRequest{Protocol: "json", Version: 1})
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteDeadline))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("handshake write: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("handshake read: %w", err)
	}
	frames, err := splitFrames(data)
	if err != nil || len(frames) == 0 {
		return fmt.Errorf("handshake read: bad frame")
	}
	return parseHandshakeResponse(frames[0])
}

func (c *Connector) readPump(ctx context.Context, gen uint64, conn *websocket.Conn) {
	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(ctx, gen, err)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))

		frames, err := splitFrames(data)
		if err != nil {
			c.log.Warn("dropping undecodable hub message", zap.Error(err))
			continue
		}
		for _, frame := range frames {
			var msg hubMessage
			if err := json.Unmarshal(frame, &msg); err != nil {
				c.log.Warn("dropping undecodable hub frame", zap.Error(err))
				continue
			}
			switch msg.Type {
			case typeInvocation:
				if msg.Target == receiveEvent && len(msg.Arguments) > 0 {
					c.publish(msg.Arguments[0])
				}
			case typePing:
				// keepalive only; read deadline already extended
			case typeClose:
				err := errors.New("server closed connection")
				if msg.Error != "" {
					err = fmt.Errorf("server closed connection: %s", msg.Error)
				}
				_ = conn.Close()
				if msg.AllowReconnect {
					c.handleDisconnect(ctx, gen, err)
				} else {
					c.idle(gen)
					c.finalClose(err)
				}
				return
			}
		}
	}
}

// publish fans one inbound payload out: the raw string form first, then
// the normalized record. Slow consumers lose events rather than stall
// the read loop.
func (c *Connector) publish(arg json.RawMessage) {
	payload := []byte(arg)
	if len(payload) > 0 && payload[0] == '"' {
		// payload arrived double-encoded as a JSON string
		var s string
		if err := json.Unmarshal(payload, &s); err == nil {
			payload = []byte(s)
		}
	}

	select {
	case c.raw <- string(payload):
	default:
		c.log.Warn("raw stream full, dropping payload")
	}

	n, err := notification.DecodePush(payload)
	if err != nil {
		if !errors.Is(err, notification.ErrMissingID) {
			c.log.Warn("dropping malformed push payload", zap.Error(err))
			return
		}
		c.log.Warn("push payload missing id, synthesized one", zap.String("id", n.ID))
	}
	select {
	case c.notifs <- n:
	default:
		c.log.Warn("notification stream full, dropping", zap.String("id", n.ID))
	}
}

func (c *Connector) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	ping, err := encodeFrame(hubMessage{Type: typePing})
	if err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.wmu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteDeadline))
			err := conn.WriteMessage(websocket.TextMessage, ping)
			c.wmu.Unlock()
			if err != nil {
				// read pump observes the broken socket and reconnects
				return
			}
		}
	}
}

// handleDisconnect runs the automatic reconnect loop after a live
// connection drops: retry delay doubles from 1s up to a 30s ceiling,
// with no attempt limit, until the connector is stopped.
func (c *Connector) handleDisconnect(ctx context.Context, gen uint64, cause error) {
	c.mu.Lock()
	if c.gen != gen {
		// Stop or a newer Start took over this session
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = stateReconnecting
	mode := c.mode
	c.mu.Unlock()

	if ctx.Err() != nil {
		c.idle(gen)
		c.finalClose(nil)
		return
	}

	c.log.Warn("hub connection lost, reconnecting", zap.Error(cause))
	if c.onReconnecting != nil {
		c.onReconnecting(cause)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	var conn *websocket.Conn
	var connID string
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			c.idle(gen)
			c.finalClose(nil)
			return
		case <-time.After(b.NextBackOff()):
		}
		var err error
		conn, connID, err = c.dial(ctx, mode)
		if err == nil {
			break
		}
		c.log.Warn("reconnect attempt failed",
			zap.Int("attempt", attempt), zap.Error(err))
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.connID = connID
	c.state = stateConnected
	c.mu.Unlock()

	c.log.Info("hub reconnected", zap.String("connectionId", connID))
	if c.onReconnected != nil {
		c.onReconnected(connID)
	}
	go c.readPump(ctx, gen, conn)
	go c.pingLoop(ctx, conn)
}

func (c *Connector) finalClose(err error) {
	if err != nil {
		c.log.Error("hub connection closed", zap.Error(err))
	} else {
		c.log.Info("hub connection closed")
	}
	if c.onClosed != nil {
		c.onClosed(err)
	}
}

// httpURL maps a ws(s) hub endpoint back to its http(s) form for the
// negotiate call.
func httpURL(raw string) string {
	if strings.HasPrefix(raw, "ws://") {
		return "http://" + strings.TrimPrefix(raw, "ws://")
	}
	if strings.HasPrefix(raw, "wss://") {
		return "https://" + strings.TrimPrefix(raw, "wss://")
	}
	return raw
}

func wsURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("hub url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("hub url: unsupported scheme %q", u.Scheme)
	}
	return u, nil
}
