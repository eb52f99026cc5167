// Package stream keeps a DingTalk Stream connection open and forwards pushed
// events to the host.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/gorilla/websocket"

	"github.com/sflowg/dingtalk/runtime"
)

const (
	DefaultGatewayURL     = "https://api.dingtalk.com/v1.0/gateway/connections/open"
	DefaultUserAgent      = "sflowg-dingtalk-stream"
	DefaultHeartbeatSpec  = "*/30 * * * * *"
	DefaultReconnectDelay = time.Second

	writeTimeout = 10 * time.Second
)

// Config tunes a Session. Zero values fall back to the defaults.
type Config struct {
	GatewayURL     string
	UserAgent      string
	HeartbeatSpec  string
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
}

func (c Config) withDefaults() Config {
	if c.GatewayURL == "" {
		c.GatewayURL = DefaultGatewayURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.HeartbeatSpec == "" {
		c.HeartbeatSpec = DefaultHeartbeatSpec
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	return c
}

// Host is the part of the trigger execution a Session needs.
type Host interface {
	context.Context
	Logger() *slog.Logger
	HTTPRequest(ctx context.Context, req *runtime.HTTPRequest) (any, error)
	Emit(items []runtime.Item) error
	RegisterCron(spec string, fn func()) (func(), error)
}

// State is the connection state of a Session.
type State int

const (
	Disconnected State = iota
	Connecting
	Open
	ReconnectScheduled
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Open:
		return "OPEN"
	case ReconnectScheduled:
		return "RECONNECT_SCHEDULED"
	case Closed:
		return "CLOSED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// conn is one established socket. Writes are serialized; reads happen on a
// single goroutine.
type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

func (c *conn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout))
}

func (c *conn) close() {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	_ = c.ws.Close()
}

// Session subscribes to all EVENT topics with the application's client
// credentials. At most one socket is open and at most one reconnect is
// pending at any time.
type Session struct {
	cfg          Config
	host         Host
	logger       *slog.Logger
	clientID     string
	clientSecret string

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	stay       bool
	connecting bool
	conn       *conn
	reconnect  *time.Timer
	stopCron   func()
	waiters    []chan struct{}
	reconnects int
}

func NewSession(host Host, clientID, clientSecret string, cfg Config) *Session {
	ctx, cancel := context.WithCancel(host)
	return &Session{
		cfg:          cfg.withDefaults(),
		host:         host,
		logger:       host.Logger().With("component", "dingtalk.stream"),
		clientID:     clientID,
		clientSecret: clientSecret,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start registers the heartbeat and makes the first connection attempt.
// A failed attempt is retried in the background; Start only fails when the
// heartbeat cannot be scheduled.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return errors.New("stream session already closed")
	}
	s.stay = true
	s.mu.Unlock()

	stop, err := s.host.RegisterCron(s.cfg.HeartbeatSpec, s.heartbeat)
	if err != nil {
		return fmt.Errorf("failed to schedule stream heartbeat: %w", err)
	}
	s.mu.Lock()
	s.stopCron = stop
	s.mu.Unlock()

	s.logger.DebugContext(s.ctx, "Stream trigger initialized", "heartbeat", s.cfg.HeartbeatSpec)
	s.connect()
	return nil
}

// State reports the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops reconnecting, cancels the heartbeat and closes any socket.
// It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.stay = false
	s.state = Closed
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	stopCron := s.stopCron
	s.stopCron = nil
	c := s.conn
	s.conn = nil
	s.releaseWaitersLocked()
	s.mu.Unlock()

	// aborts an in-flight gateway request or dial
	s.cancel()
	if stopCron != nil {
		stopCron()
	}
	if c != nil {
		s.logger.DebugContext(ctx, "Closing stream socket")
		c.close()
	}
	return nil
}

// WaitForEvent blocks until the next event was emitted, the session is
// closed, or ctx is done.
func (s *Session) WaitForEvent(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return nil
	}
	// a new wait supersedes an older one
	s.releaseWaitersLocked()
	ch := make(chan struct{})
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) releaseWaitersLocked() {
	for _, ch := range s.waiters {
		close(ch)
	}
	s.waiters = nil
}

// connect fetches a ticket and dials the endpoint. Failures schedule a
// reconnect.
func (s *Session) connect() {
	s.mu.Lock()
	if !s.stay || s.connecting {
		s.mu.Unlock()
		return
	}
	s.connecting = true
	s.state = Connecting
	s.mu.Unlock()

	ws, err := s.dial()

	s.mu.Lock()
	s.connecting = false
	if err != nil {
		s.mu.Unlock()
		s.logger.WarnContext(s.ctx, "Failed to connect stream websocket", "error", err)
		s.scheduleReconnect("connect-failed")
		return
	}
	if !s.stay {
		s.mu.Unlock()
		s.logger.DebugContext(s.ctx, "Stream connect aborted, trigger stopping")
		_ = ws.Close()
		return
	}

	c := &conn{ws: ws}
	old := s.conn
	s.conn = c
	s.state = Open
	s.mu.Unlock()

	if old != nil {
		old.close()
	}
	s.logger.InfoContext(s.ctx, "Stream connected")
	go s.read(c)
}

func (s *Session) dial() (*websocket.Conn, error) {
	resp, err := s.host.HTTPRequest(s.ctx, &runtime.HTTPRequest{
		Method: http.MethodPost,
		URL:    s.cfg.GatewayURL,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: map[string]any{
			"clientId":      s.clientID,
			"clientSecret":  s.clientSecret,
			"ua":            s.cfg.UserAgent,
			"subscriptions": []map[string]string{{"type": TypeEvent, "topic": "*"}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}

	endpoint, ticket := gatewayTicket(resp)
	if endpoint == "" || ticket == "" {
		return nil, errors.New("did not receive stream endpoint information")
	}

	target, err := ticketURL(endpoint, ticket)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(s.ctx, "Dialing stream endpoint", "endpoint", endpoint)
	ws, _, err := s.cfg.Dialer.DialContext(s.ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return ws, nil
}

func gatewayTicket(resp any) (endpoint, ticket string) {
	container := gabs.Wrap(resp)
	endpoint, _ = container.Path("endpoint").Data().(string)
	ticket, _ = container.Path("ticket").Data().(string)
	return strings.TrimSpace(endpoint), strings.TrimSpace(ticket)
}

func ticketURL(endpoint, ticket string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid stream endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	q.Set("ticket", ticket)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// read runs until the socket fails. Only the current socket schedules a
// reconnect when it goes away.
func (s *Session) read(c *conn) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			s.mu.Lock()
			current := s.conn == c
			if current {
				s.conn = nil
				s.state = Disconnected
			}
			s.mu.Unlock()
			_ = c.ws.Close()

			if current {
				s.logger.InfoContext(s.ctx, "Stream socket closed", "error", err)
				s.scheduleReconnect("socket-close")
			}
			return
		}
		s.handle(c, data)
	}
}

func (s *Session) scheduleReconnect(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stay || s.reconnect != nil {
		return
	}
	if s.ctx.Err() != nil {
		s.state = Disconnected
		s.logger.DebugContext(s.ctx, "Stream reconnect skipped, host context done", "reason", reason)
		return
	}
	s.state = ReconnectScheduled
	s.reconnects++
	s.logger.DebugContext(s.ctx, "Stream reconnect queued", "reason", reason, "delay", s.cfg.ReconnectDelay)
	s.reconnect = time.AfterFunc(s.cfg.ReconnectDelay, func() {
		s.mu.Lock()
		s.reconnect = nil
		s.mu.Unlock()
		s.connect()
	})
}

// heartbeat pings the open socket and reconnects when nothing is open or
// being opened.
func (s *Session) heartbeat() {
	s.mu.Lock()
	if !s.stay {
		s.mu.Unlock()
		return
	}
	c := s.conn
	idle := c == nil && !s.connecting && s.reconnect == nil
	s.mu.Unlock()

	if c != nil {
		if err := c.ping(); err != nil {
			s.logger.DebugContext(s.ctx, "Stream ping failed, closing socket", "error", err)
			_ = c.ws.Close()
		}
		return
	}
	if idle && s.ctx.Err() == nil {
		s.logger.DebugContext(s.ctx, "Stream reconnect due, starting new connection")
		go s.connect()
	}
}

func (s *Session) handle(c *conn, data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		s.logger.ErrorContext(s.ctx, "Failed to parse stream payload", "error", err, "payload", string(data))
		return
	}

	switch f.Type {
	case TypeSystem:
		s.logger.DebugContext(s.ctx, "Stream system message received", "topic", f.Topic(), "message_id", f.MessageID())
		if strings.EqualFold(f.Topic(), "ping") {
			s.reply(c, pong(f))
		}
	case TypeEvent:
		s.logger.DebugContext(s.ctx, "Stream event received", "topic", f.Topic(), "message_id", f.MessageID())
		status, message := StatusSuccess, ""
		if err := s.emit(f); err != nil {
			s.logger.ErrorContext(s.ctx, "Stream event handling failed", "error", err, "topic", f.Topic())
			status, message = StatusLater, err.Error()
		}
		if id := f.MessageID(); id != "" {
			s.reply(c, ack(id, status, message))
		}
	default:
		s.logger.WarnContext(s.ctx, "Unknown stream message type", "type", f.Type)
	}
}

func (s *Session) emit(f Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("emit panicked: %v", r)
		}
	}()
	if err := s.host.Emit(runtime.JSONItems(EventPayload(f, time.Now()))); err != nil {
		return err
	}

	s.mu.Lock()
	s.releaseWaitersLocked()
	s.mu.Unlock()
	return nil
}

func (s *Session) reply(c *conn, r Response) {
	if err := c.writeJSON(r); err != nil {
		s.logger.WarnContext(s.ctx, "Failed to write stream reply", "error", err)
	}
}
