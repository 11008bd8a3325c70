// Package transport maintains the WebSocket channel between a webchat
// visitor and the support backend.
//
// A Channel moves through Closed → Connecting → Open → Closed. Whenever a
// connection drops while a session is active, exactly one reconnect is
// scheduled after ReconnectDelay; a later Open cancels it. Nothing is queued
// while the channel is down.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/livedesk/livedesk/internal/logging"
	"github.com/livedesk/livedesk/internal/protocol"
)

// ErrNotConnected is returned by Send when the channel is not open.
var ErrNotConnected = errors.New("channel not connected")

// State is the connection state of a Channel.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Defaults mirror the widget's observed timing.
const (
	DefaultReconnectDelay    = 3 * time.Second
	DefaultHeartbeatInterval = 25 * time.Second
	DefaultKickInterval      = time.Second
	DefaultWriteWait         = 10 * time.Second
)

// Config configures a Channel. URL is required.
type Config struct {
	// URL maps a session id to the WebSocket endpoint.
	URL func(sessionID string) string

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// ReconnectDelay is the wait between a drop and the next attempt.
	ReconnectDelay time.Duration

	// MaxReconnectDelay enables capped exponential backoff when greater
	// than ReconnectDelay. Zero keeps the delay fixed.
	MaxReconnectDelay time.Duration

	// HeartbeatInterval is the period of the ping frame while open.
	HeartbeatInterval time.Duration

	// KickInterval limits how often Reconnect may force an attempt.
	KickInterval time.Duration

	// WriteWait bounds each frame write.
	WriteWait time.Duration

	// OnState is called on every state transition.
	OnState func(State)

	// OnEvent receives decoded server frames in arrival order.
	OnEvent func(protocol.ServerEvent)

	Logger *slog.Logger
}

// Channel is a self-reconnecting WebSocket channel bound to one session at a
// time. It is safe for concurrent use.
type Channel struct {
	cfg    Config
	logger *slog.Logger
	kick   *rate.Limiter

	// notifyMu serialises OnState callbacks.
	notifyMu sync.Mutex

	mu        sync.Mutex
	state     State
	sessionID string // empty when no session is active
	gen       uint64 // bumped whenever the current connection is superseded
	conn      *websocket.Conn
	cancel    context.CancelFunc // aborts an in-flight dial
	stopBeat  chan struct{}
	timer     *time.Timer
	failures  int

	writeMu sync.Mutex
}

// New creates a closed channel.
func New(cfg Config) *Channel {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.KickInterval <= 0 {
		cfg.KickInterval = DefaultKickInterval
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = DefaultWriteWait
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Transport()
	}
	return &Channel{
		cfg:    cfg,
		logger: logger,
		kick:   rate.NewLimiter(rate.Every(cfg.KickInterval), 1),
		state:  StateClosed,
	}
}

// State returns the current state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the active session id, or "" after Close.
func (c *Channel) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Open binds the channel to sessionID and starts connecting. Any previous
// connection is disarmed before it is closed, so its close handler cannot
// schedule a competing reconnect, and a pending reconnect is cancelled.
func (c *Channel) Open(sessionID string) {
	c.mu.Lock()
	c.sessionID = sessionID
	c.failures = 0
	c.startLocked()
	c.mu.Unlock()
	c.notify(StateConnecting)
}

// Reconnect forces an attempt when the channel is closed but a session is
// still active. Calls are rate limited; it reports whether an attempt was
// started.
func (c *Channel) Reconnect() bool {
	c.mu.Lock()
	if c.sessionID == "" || c.state != StateClosed || !c.kick.Allow() {
		c.mu.Unlock()
		return false
	}
	c.logger.Debug("reconnect requested", "session_id", c.sessionID)
	c.startLocked()
	c.mu.Unlock()
	c.notify(StateConnecting)
	return true
}

// Close tears the channel down and forgets the session. No reconnect is
// attempted until Open is called again.
func (c *Channel) Close() {
	c.mu.Lock()
	c.sessionID = ""
	wasClosed := c.state == StateClosed
	c.supersedeLocked()
	c.state = StateClosed
	c.mu.Unlock()

	if !wasClosed {
		c.notify(StateClosed)
	}
}

// Send writes one frame. It never queues: when the channel is not open it
// returns ErrNotConnected and does nothing else.
func (c *Channel) Send(ev protocol.ClientEvent) error {
	data, err := protocol.EncodeClientEvent(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn, gen := c.conn, c.gen
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		return ErrNotConnected
	}
	if err := c.write(conn, data); err != nil {
		// The read loop sees the broken socket and runs the close path.
		conn.Close()
		c.logger.Debug("write failed", "error", err, "gen", gen)
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// startLocked supersedes the current connection and dials a new one.
// c.mu must be held.
func (c *Channel) startLocked() {
	c.supersedeLocked()
	c.state = StateConnecting

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx, c.gen, c.sessionID)
}

// supersedeLocked disarms the current connection: it bumps the generation so
// stale goroutines ignore their own close, cancels the reconnect timer and
// any dial in flight, and closes the socket. c.mu must be held.
func (c *Channel) supersedeLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.stopBeat != nil {
		close(c.stopBeat)
		c.stopBeat = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// run dials, then reads until the connection fails.
func (c *Channel) run(ctx context.Context, gen uint64, sessionID string) {
	url := c.cfg.URL(sessionID)
	log := logging.WithSession(c.logger, sessionID)

	conn, _, err := c.cfg.Dialer.DialContext(ctx, url, nil)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.mu.Unlock()
		log.Debug("dial failed", "url", url, "error", err)
		c.dropped(gen, err)
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.failures = 0
	stop := make(chan struct{})
	c.stopBeat = stop
	c.mu.Unlock()

	log.Info("channel open")
	c.notify(StateOpen)

	go c.heartbeat(conn, stop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.dropped(gen, err)
			return
		}

		ev, err := protocol.DecodeServerEvent(data)
		if err != nil {
			log.Debug("dropping frame", "error", err)
			continue
		}
		if c.cfg.OnEvent != nil {
			c.cfg.OnEvent(ev)
		}
	}
}

// dropped runs the close path for connection gen: stop the heartbeat, mark
// the channel closed and schedule a single reconnect if a session is still
// active. Superseded generations are ignored.
func (c *Channel) dropped(gen uint64, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.stopBeat != nil {
		close(c.stopBeat)
		c.stopBeat = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateClosed

	sessionID := c.sessionID
	var delay time.Duration
	if sessionID != "" {
		delay = c.nextDelayLocked()
		c.failures++
		c.timer = time.AfterFunc(delay, func() { c.retry(gen) })
	}
	c.mu.Unlock()

	if sessionID != "" {
		c.logger.Info("channel closed, reconnect scheduled",
			"session_id", sessionID, "delay", delay, "error", cause)
	}
	c.notify(StateClosed)
}

// retry fires from the reconnect timer. It only acts if nothing has
// superseded the connection that scheduled it.
func (c *Channel) retry(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateClosed || c.sessionID == "" {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.startLocked()
	c.mu.Unlock()
	c.notify(StateConnecting)
}

// nextDelayLocked returns the reconnect delay for the current failure count.
func (c *Channel) nextDelayLocked() time.Duration {
	delay := c.cfg.ReconnectDelay
	limit := c.cfg.MaxReconnectDelay
	if limit <= delay {
		return delay
	}
	for i := 0; i < c.failures && delay < limit; i++ {
		delay *= 2
	}
	return min(delay, limit)
}

func (c *Channel) heartbeat(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	ping, _ := protocol.EncodeClientEvent(protocol.Ping{})
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.write(conn, ping); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (c *Channel) write(conn *websocket.Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Channel) notify(s State) {
	if c.cfg.OnState == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.cfg.OnState(s)
}
