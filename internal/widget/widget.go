// Package widget implements the visitor side of the webchat widget.
//
// A Widget owns the live session: it restores or starts a session through
// the REST API, keeps the transport channel open while mounted, feeds inbound
// events into the message buffer and publishes every state change on an
// events.Bus for views to render.
//
// Views never drive the channel directly. They call Mount when shown and
// Unmount when torn down; everything else follows from those two calls.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/livedesk/livedesk/internal/events"
	"github.com/livedesk/livedesk/internal/logging"
	"github.com/livedesk/livedesk/internal/messages"
	"github.com/livedesk/livedesk/internal/protocol"
	"github.com/livedesk/livedesk/internal/sessionstore"
	"github.com/livedesk/livedesk/internal/transport"
)

var (
	// ErrNameRequired is returned by SubmitName for a blank name.
	ErrNameRequired = errors.New("visitor name is required")

	// ErrEmptyMessage is returned by Send for blank text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNotInChat is returned by Send before a session is established.
	ErrNotInChat = errors.New("no active chat session")

	// ErrNotMounted is returned when the widget was unmounted or reset while
	// the call was in flight.
	ErrNotMounted = errors.New("widget not mounted")
)

// Phase is the visible step of the widget.
type Phase int

const (
	PhaseNameEntry Phase = iota
	PhaseChat
)

func (p Phase) String() string {
	if p == PhaseChat {
		return "chat"
	}
	return "name-entry"
}

// ConnectionStatus is published whenever the channel changes state.
type ConnectionStatus struct {
	State       transport.State
	AgentOnline bool
}

// Reconnecting reports whether a view should show the passive
// "reconnecting" banner.
func (s ConnectionStatus) Reconnecting() bool {
	return s.State != transport.StateOpen
}

// Topics published by a Widget.
var (
	TopicPhase       = events.NewTopic[Phase]("widget.phase")
	TopicConnection  = events.NewTopic[ConnectionStatus]("widget.connection")
	TopicMessages    = events.NewTopic[[]protocol.ChatMessage]("widget.messages")
	TopicAgentTyping = events.NewTopic[bool]("widget.agent_typing")
)

// SessionAPI is the part of the REST client the widget needs.
type SessionAPI interface {
	StartSession(ctx context.Context, visitorName string) (*protocol.SessionResponse, error)
	ResumeSession(ctx context.Context, sessionID, visitorName string) (*protocol.SessionResponse, error)
	WebSocketURL(sessionID string) string
}

// Options configures a Widget. API and Store are required.
type Options struct {
	API   SessionAPI
	Store *sessionstore.Store

	// Bus receives state changes. A private bus is created when nil.
	Bus *events.Bus

	// Transport tunes the channel. URL, OnState and OnEvent are set by the
	// widget and ignored here.
	Transport transport.Config

	Logger *slog.Logger
}

// Widget is one webchat widget instance. It is safe for concurrent use.
type Widget struct {
	id      string
	api     SessionAPI
	store   *sessionstore.Store
	bus     *events.Bus
	buf     *messages.Buffer
	channel *transport.Channel
	logger  *slog.Logger

	mu          sync.Mutex
	mounted     bool
	epoch       uint64 // bumped by Unmount and Reset; older results are discarded
	phase       Phase
	session     protocol.Session
	branding    protocol.Branding
	agentOnline bool
	agentTyping bool
	connection  transport.State
}

// New creates an unmounted widget in the name-entry phase.
func New(opts Options) *Widget {
	w := &Widget{
		id:    uuid.New().String(),
		api:   opts.API,
		store: opts.Store,
		bus:   opts.Bus,
		buf:   messages.NewBuffer(),
	}
	if w.bus == nil {
		w.bus = events.NewBus()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Widget()
	}
	w.logger = logger.With("client_id", w.id)

	cfg := opts.Transport
	cfg.URL = w.api.WebSocketURL
	cfg.OnState = w.onState
	cfg.OnEvent = w.onEvent
	if cfg.Logger == nil {
		cfg.Logger = logging.Transport().With("client_id", w.id)
	}
	w.channel = transport.New(cfg)
	return w
}

// ID returns the widget instance id.
func (w *Widget) ID() string { return w.id }

// Bus returns the bus state changes are published on.
func (w *Widget) Bus() *events.Bus { return w.bus }

// Mount shows the widget. Without a saved session it stays in name entry.
// With one it resumes silently; if the backend rejects the saved session the
// stored keys are cleared and the widget falls back to name entry. Resume
// failures are not returned.
func (w *Widget) Mount(ctx context.Context) error {
	w.mu.Lock()
	if w.mounted {
		w.mu.Unlock()
		return nil
	}
	w.mounted = true
	w.epoch++
	epoch := w.epoch
	w.mu.Unlock()

	saved, ok := w.store.Load()
	if !ok {
		w.setPhase(epoch, PhaseNameEntry)
		return nil
	}

	log := logging.WithSession(w.logger, saved.SessionID)
	resp, err := w.api.ResumeSession(ctx, saved.SessionID, saved.VisitorName)
	if !w.current(epoch) {
		log.Debug("resume result ignored after unmount")
		return nil
	}
	if err != nil {
		log.Warn("session resume failed, returning to name entry", "error", err)
		if err := w.store.Clear(); err != nil {
			log.Error("failed to clear stored session", "error", err)
		}
		w.setPhase(epoch, PhaseNameEntry)
		return nil
	}

	w.begin(epoch, saved.VisitorName, resp)
	return nil
}

// SubmitName starts a new session for visitorName. A blank name returns
// ErrNameRequired and leaves the widget unchanged.
func (w *Widget) SubmitName(ctx context.Context, visitorName string) error {
	visitorName = strings.TrimSpace(visitorName)
	if visitorName == "" {
		return ErrNameRequired
	}

	w.mu.Lock()
	mounted, epoch := w.mounted, w.epoch
	w.mu.Unlock()
	if !mounted {
		return ErrNotMounted
	}

	resp, err := w.api.StartSession(ctx, visitorName)
	if !w.current(epoch) {
		return ErrNotMounted
	}
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	if err := w.store.Save(resp.SessionID, visitorName); err != nil {
		// The session still works for this run.
		w.logger.Warn("failed to persist session", "session_id", resp.SessionID, "error", err)
	}
	w.begin(epoch, visitorName, resp)
	return nil
}

// begin enters the chat phase for a started or resumed session.
func (w *Widget) begin(epoch uint64, visitorName string, resp *protocol.SessionResponse) {
	w.mu.Lock()
	if epoch != w.epoch {
		w.mu.Unlock()
		return
	}
	w.session = protocol.Session{
		SessionID:      resp.SessionID,
		VisitorName:    visitorName,
		ConversationID: resp.ConversationID,
	}
	w.branding = resp.Branding
	w.agentOnline = resp.AgentOnline
	w.agentTyping = false
	w.phase = PhaseChat
	w.buf.Replace(resp.Messages)
	w.mu.Unlock()

	logging.WithClient(w.logger, w.id, resp.SessionID).Info("chat session ready",
		"conversation_id", resp.ConversationID,
		"history", len(resp.Messages))

	events.Publish(w.bus, TopicPhase, PhaseChat)
	events.Publish(w.bus, TopicMessages, w.buf.Snapshot())
	w.channel.Open(resp.SessionID)
}

// Send shows text immediately as a pending bubble and sends it. While the
// channel is down nothing is queued: a reconnect is kicked and the bubble
// stays pending.
func (w *Widget) Send(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	w.mu.Lock()
	if !w.mounted || w.phase != PhaseChat {
		w.mu.Unlock()
		return ErrNotInChat
	}
	sender := w.session.VisitorName
	w.mu.Unlock()

	w.buf.AppendPending(text, sender)
	events.Publish(w.bus, TopicMessages, w.buf.Snapshot())

	err := w.channel.Send(protocol.SendMessage{Text: text})
	if errors.Is(err, transport.ErrNotConnected) {
		if w.channel.Reconnect() {
			w.logger.Debug("send while disconnected, reconnect kicked")
		}
		return nil
	}
	return err
}

// SetTyping reports the visitor typing state. It is best effort.
func (w *Widget) SetTyping(typing bool) {
	if w.Phase() != PhaseChat {
		return
	}
	if err := w.channel.Send(protocol.Typing{IsTyping: typing}); err != nil && !errors.Is(err, transport.ErrNotConnected) {
		w.logger.Debug("typing signal failed", "error", err)
	}
}

// Unmount tears the channel down. Results of calls still in flight are
// discarded when they arrive.
func (w *Widget) Unmount() {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return
	}
	w.mounted = false
	w.epoch++
	w.mu.Unlock()

	w.channel.Close()
	w.logger.Debug("widget unmounted")
}

// Reset forgets the session: it closes the channel, clears the stored keys
// and the message list, and returns to name entry.
func (w *Widget) Reset() error {
	w.mu.Lock()
	w.epoch++
	epoch := w.epoch
	w.session = protocol.Session{}
	w.agentTyping = false
	w.mu.Unlock()

	w.channel.Close()
	w.buf.Replace(nil)
	err := w.store.Clear()

	events.Publish(w.bus, TopicMessages, w.buf.Snapshot())
	w.setPhase(epoch, PhaseNameEntry)
	return err
}

// onEvent dispatches inbound frames in receive order.
func (w *Widget) onEvent(ev protocol.ServerEvent) {
	w.mu.Lock()
	mounted := w.mounted
	w.mu.Unlock()
	if !mounted {
		return
	}

	switch e := ev.(type) {
	case protocol.PongEvent:
	case protocol.MessageEvent:
		if e.IsAgent {
			w.setAgentTyping(false)
			w.buf.Append(e.ChatMessage())
		} else if !w.buf.Reconcile(e) {
			w.logger.Debug("dropping unmatched echo", "message_id", e.ID)
			return
		}
		events.Publish(w.bus, TopicMessages, w.buf.Snapshot())
	case protocol.AgentTypingEvent:
		w.setAgentTyping(e.IsTyping)
	default:
		w.logger.Debug("unhandled event", "type", protocol.EventType(ev))
	}
}

func (w *Widget) onState(s transport.State) {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return
	}
	w.connection = s
	if s == transport.StateOpen {
		w.agentOnline = true
	}
	status := ConnectionStatus{State: s, AgentOnline: w.agentOnline}
	w.mu.Unlock()

	events.Publish(w.bus, TopicConnection, status)
}

func (w *Widget) setAgentTyping(typing bool) {
	w.mu.Lock()
	changed := w.agentTyping != typing
	w.agentTyping = typing
	w.mu.Unlock()

	if changed {
		events.Publish(w.bus, TopicAgentTyping, typing)
	}
}

func (w *Widget) setPhase(epoch uint64, p Phase) {
	w.mu.Lock()
	if epoch != w.epoch {
		w.mu.Unlock()
		return
	}
	w.phase = p
	w.mu.Unlock()

	events.Publish(w.bus, TopicPhase, p)
}

func (w *Widget) current(epoch uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mounted && epoch == w.epoch
}

// Phase returns the current phase.
func (w *Widget) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// Session returns the active session, zero in name entry.
func (w *Widget) Session() protocol.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// Branding returns the branding of the active session.
func (w *Widget) Branding() protocol.Branding {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.branding
}

// Connection returns the last published channel status.
func (w *Widget) Connection() ConnectionStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ConnectionStatus{State: w.connection, AgentOnline: w.agentOnline}
}

// AgentTyping reports whether the agent typing indicator is on.
func (w *Widget) AgentTyping() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.agentTyping
}

// Messages returns a copy of the message list.
func (w *Widget) Messages() []protocol.ChatMessage {
	return w.buf.Snapshot()
}
