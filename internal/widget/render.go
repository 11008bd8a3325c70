package widget

import (
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/livedesk/livedesk/internal/protocol"
)

// pendingSuffix annotates messages still waiting for their echo.
const pendingSuffix = " (sending…)"

var textPolicy = bluemonday.StrictPolicy()

// CleanText strips markup from message text and leaves it as plain text.
func CleanText(s string) string {
	return html.UnescapeString(textPolicy.Sanitize(s))
}

// FormatMessage renders one message as a single terminal line.
// Pending messages are dimmed and annotated.
func FormatMessage(m protocol.ChatMessage) string {
	var sb strings.Builder
	if ts := formatTime(m.Timestamp); ts != "" {
		sb.WriteString("[" + ts + "] ")
	}
	who := CleanText(m.Sender)
	if m.IsAgent {
		who += " (agent)"
	}
	sb.WriteString(who + ": " + CleanText(m.Text))

	if m.Pending {
		return "\x1b[2m" + sb.String() + pendingSuffix + "\x1b[0m"
	}
	return sb.String()
}

// Render writes the message list, one line per message.
func Render(w io.Writer, msgs []protocol.ChatMessage) error {
	for _, m := range msgs {
		if _, err := fmt.Fprintln(w, FormatMessage(m)); err != nil {
			return err
		}
	}
	return nil
}

// StatusLine summarises the widget state for a prompt or banner. It is empty
// when there is nothing to report.
func StatusLine(phase Phase, conn ConnectionStatus, agentTyping bool) string {
	if phase != PhaseChat {
		return ""
	}
	if conn.Reconnecting() {
		return "reconnecting…"
	}
	if agentTyping {
		return "agent is typing…"
	}
	return ""
}

func formatTime(ts string) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("15:04")
}
