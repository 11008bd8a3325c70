// Package protocol defines the data model and the WebSocket frames exchanged
// with the support backend.
//
// # WebSocket Frames
//
// Every frame is a flat JSON object carrying a "type" discriminator:
//
//	{"type": "message", "text": "hello"}
//
// Client frames implement ClientEvent and server frames implement
// ServerEvent. Both interfaces are sealed, so a type switch over the concrete
// types listed here covers every frame the channel can carry.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownEvent is returned when a frame carries a type this client does
// not understand.
var ErrUnknownEvent = errors.New("unknown event type")

// =============================================================================
// Client → Server
// =============================================================================

const (
	// EventTypeMessage carries a chat message in either direction.
	// Client data: { "text": string }
	// Server data: { "id": int, "text": string, "sender": string, "isAgent": bool, "timestamp": string }
	EventTypeMessage = "message"

	// EventTypeTyping tells the agent whether the visitor is typing.
	// Data: { "isTyping": bool }
	EventTypeTyping = "typing"

	// EventTypePing is the keep-alive heartbeat.
	EventTypePing = "ping"
)

// ClientEvent is a frame sent from the visitor to the server.
type ClientEvent interface {
	clientEventType() string
}

// SendMessage submits a visitor chat message.
type SendMessage struct {
	Text string
}

// Typing reports the visitor typing state.
type Typing struct {
	IsTyping bool
}

// Ping is the heartbeat frame.
type Ping struct{}

func (SendMessage) clientEventType() string { return EventTypeMessage }
func (Typing) clientEventType() string      { return EventTypeTyping }
func (Ping) clientEventType() string        { return EventTypePing }

// EncodeClientEvent serializes ev into a flat JSON frame.
func EncodeClientEvent(ev ClientEvent) ([]byte, error) {
	switch e := ev.(type) {
	case SendMessage:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{EventTypeMessage, e.Text})
	case Typing:
		return json.Marshal(struct {
			Type     string `json:"type"`
			IsTyping bool   `json:"isTyping"`
		}{EventTypeTyping, e.IsTyping})
	case Ping:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{EventTypePing})
	case nil:
		return nil, fmt.Errorf("encode event: nil event")
	default:
		return nil, fmt.Errorf("encode event %q: %w", ev.clientEventType(), ErrUnknownEvent)
	}
}

// =============================================================================
// Server → Client
// =============================================================================

const (
	// EventTypeAgentTyping toggles the "agent is typing" indicator.
	// Data: { "isTyping": bool }
	EventTypeAgentTyping = "agentTyping"

	// EventTypePong acknowledges a ping.
	EventTypePong = "pong"
)

// ServerEvent is a frame received from the server.
type ServerEvent interface {
	serverEventType() string
}

// MessageEvent is an authoritative chat message. With IsAgent false it is the
// echo of a message this visitor sent.
type MessageEvent struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	IsAgent   bool   `json:"isAgent"`
	Timestamp string `json:"timestamp"`
}

// AgentTypingEvent carries the agent typing state.
type AgentTypingEvent struct {
	IsTyping bool `json:"isTyping"`
}

// PongEvent acknowledges a heartbeat.
type PongEvent struct{}

func (MessageEvent) serverEventType() string     { return EventTypeMessage }
func (AgentTypingEvent) serverEventType() string { return EventTypeAgentTyping }
func (PongEvent) serverEventType() string        { return EventTypePong }

// EventType returns the wire discriminator of a server event.
func EventType(ev ServerEvent) string {
	if ev == nil {
		return ""
	}
	return ev.serverEventType()
}

// ChatMessage converts the event into a confirmed buffer entry.
func (e MessageEvent) ChatMessage() ChatMessage {
	return ChatMessage{
		ID:        e.ID,
		Text:      e.Text,
		Sender:    e.Sender,
		IsAgent:   e.IsAgent,
		Timestamp: e.Timestamp,
	}
}

// DecodeServerEvent parses a raw frame into its concrete event type.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch head.Type {
	case EventTypeMessage:
		var ev MessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		return ev, nil
	case EventTypeAgentTyping:
		var ev AgentTypingEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		return ev, nil
	case EventTypePong:
		return PongEvent{}, nil
	default:
		return nil, fmt.Errorf("decode event %q: %w", head.Type, ErrUnknownEvent)
	}
}
