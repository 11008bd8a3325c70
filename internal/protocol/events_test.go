package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeServerEvent(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ServerEvent
		wantErr error
	}{
		{
			name:  "agent message",
			input: `{"type":"message","id":7,"text":"hello","sender":"Ana","isAgent":true,"timestamp":"2024-01-01T10:00:00Z"}`,
			want: MessageEvent{
				ID: 7, Text: "hello", Sender: "Ana", IsAgent: true, Timestamp: "2024-01-01T10:00:00Z",
			},
		},
		{
			name:  "visitor echo",
			input: `{"type":"message","id":8,"text":"hi","sender":"Bob","isAgent":false}`,
			want:  MessageEvent{ID: 8, Text: "hi", Sender: "Bob"},
		},
		{
			name:  "agent typing",
			input: `{"type":"agentTyping","isTyping":true}`,
			want:  AgentTypingEvent{IsTyping: true},
		},
		{
			name:  "pong",
			input: `{"type":"pong"}`,
			want:  PongEvent{},
		},
		{
			name:    "unknown type",
			input:   `{"type":"transfer"}`,
			wantErr: ErrUnknownEvent,
		},
		{
			name:    "missing type",
			input:   `{"text":"x"}`,
			wantErr: ErrUnknownEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeServerEvent([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeServerEvent() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeServerEvent() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeServerEvent() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeServerEvent_Malformed(t *testing.T) {
	if _, err := DecodeServerEvent([]byte(`{invalid`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := DecodeServerEvent([]byte(`{"type":"message","id":"seven"}`)); err == nil {
		t.Error("expected error for wrongly typed id")
	}
}

func TestEncodeClientEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   ClientEvent
		want map[string]any
	}{
		{"message", SendMessage{Text: "hello"}, map[string]any{"type": "message", "text": "hello"}},
		{"typing", Typing{IsTyping: true}, map[string]any{"type": "typing", "isTyping": true}},
		{"ping", Ping{}, map[string]any{"type": "ping"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeClientEvent(tt.ev)
			if err != nil {
				t.Fatalf("EncodeClientEvent() error: %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d fields (%s), want %d", len(got), data, len(tt.want))
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("field %q = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestEncodeClientEvent_Nil(t *testing.T) {
	if _, err := EncodeClientEvent(nil); err == nil {
		t.Error("expected error for nil event")
	}
}

func TestMessageEvent_ChatMessage(t *testing.T) {
	ev := MessageEvent{ID: 3, Text: "ok", Sender: "Ana", IsAgent: true, Timestamp: "t"}
	m := ev.ChatMessage()
	if m.Pending {
		t.Error("server messages must not be pending")
	}
	if m.ID != 3 || m.Text != "ok" || !m.IsAgent {
		t.Errorf("ChatMessage() = %+v", m)
	}
}

func TestTicketStatusAndPriority(t *testing.T) {
	if !TicketForwarded.Valid() || TicketStatus("open").Valid() {
		t.Error("TicketStatus.Valid() mismatch")
	}
	if !PriorityUrgent.Valid() || TicketPriority("critical").Valid() {
		t.Error("TicketPriority.Valid() mismatch")
	}
}

func TestTicket_JSON(t *testing.T) {
	raw := `{"id":2,"ticketNumber":"T-2","parentTicketId":1,"status":"pending","priority":"high",
		"createdAt":"2024-03-01T09:00:00Z","phoneNumber":"+100","customerName":null,"appTypeData":{"channel":"voice"}}`
	var tk Ticket
	if err := json.Unmarshal([]byte(raw), &tk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	parent, ok := tk.ParentID()
	if !ok || parent != 1 {
		t.Errorf("ParentID() = %d, %v; want 1, true", parent, ok)
	}
	if tk.IsOrigin() {
		t.Error("ticket with parent reported as origin")
	}
	if tk.Customer() != "" {
		t.Errorf("Customer() = %q, want empty", tk.Customer())
	}
	if tk.AppTypeData["channel"] != "voice" {
		t.Errorf("AppTypeData = %v", tk.AppTypeData)
	}
}
