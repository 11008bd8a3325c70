// Package messages holds the visitor-side chat message list and reconciles
// optimistic local messages with the server's authoritative echoes.
package messages

import (
	"sync"
	"time"

	"github.com/livedesk/livedesk/internal/protocol"
)

// Buffer is the ordered message list of one chat widget.
// It is safe for concurrent use.
type Buffer struct {
	mu   sync.RWMutex
	msgs []protocol.ChatMessage
	now  func() time.Time
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{now: time.Now}
}

// AppendPending adds a locally created message that has not been confirmed
// yet and returns it.
func (b *Buffer) AppendPending(text, sender string) protocol.ChatMessage {
	m := protocol.ChatMessage{
		Text:      text,
		Sender:    sender,
		Timestamp: b.now().UTC().Format(time.RFC3339),
		Pending:   true,
	}

	b.mu.Lock()
	b.msgs = append(b.msgs, m)
	b.mu.Unlock()
	return m
}

// Append adds a confirmed message, typically an agent message.
func (b *Buffer) Append(m protocol.ChatMessage) {
	m.Pending = false

	b.mu.Lock()
	b.msgs = append(b.msgs, m)
	b.mu.Unlock()
}

// Reconcile confirms the most recent pending message whose text equals the
// echo text: it takes the echo's id and timestamp and stops being pending.
// It returns false when no pending message matches, in which case the echo
// is dropped.
//
// Matching is by text only. Two pending messages with the same text are
// confirmed newest first.
func (b *Buffer) Reconcile(echo protocol.MessageEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := len(b.msgs) - 1; i >= 0; i-- {
		m := &b.msgs[i]
		if !m.Pending || m.Text != echo.Text {
			continue
		}
		m.ID = echo.ID
		m.Timestamp = echo.Timestamp
		m.Pending = false
		return true
	}
	return false
}

// Replace swaps the whole list for server-provided history.
func (b *Buffer) Replace(history []protocol.ChatMessage) {
	msgs := make([]protocol.ChatMessage, len(history))
	copy(msgs, history)

	b.mu.Lock()
	b.msgs = msgs
	b.mu.Unlock()
}

// Snapshot returns a copy of the current list.
func (b *Buffer) Snapshot() []protocol.ChatMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]protocol.ChatMessage, len(b.msgs))
	copy(out, b.msgs)
	return out
}

// Len returns the number of messages.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.msgs)
}

// PendingCount returns how many messages are still awaiting their echo.
func (b *Buffer) PendingCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, m := range b.msgs {
		if m.Pending {
			n++
		}
	}
	return n
}
