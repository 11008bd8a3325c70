package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/reeflective/readline"
	"github.com/spf13/cobra"

	"github.com/livedesk/livedesk/internal/events"
	"github.com/livedesk/livedesk/internal/protocol"
	"github.com/livedesk/livedesk/internal/widget"
)

var (
	// chat-specific flags
	visitorName string
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start or resume a webchat session as a visitor",
	Long: `Start an interactive webchat session with the support desk.

A saved session is resumed silently. Otherwise you are asked for
your name first. The connection is re-established automatically
when it drops; messages typed while offline are shown as
"sending…" and are not queued.

Commands:
  /quit, /exit  - Exit (the session is kept for next time)
  /reset        - Forget the session and start over
  /status       - Show session and connection details
  /help         - Show available commands`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&visitorName, "name", "", "Visitor name to use when starting a new session")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openSessionStore()
	if err != nil {
		return err
	}

	w := widget.New(widget.Options{
		API:       newAPIClient(),
		Store:     store,
		Transport: cfg.TransportOptions(),
	})

	out := cmd.OutOrStdout()
	view := newChatView(out, w)
	detach := view.attach(w.Bus())
	defer detach()

	if err := w.Mount(ctx); err != nil {
		return err
	}
	defer w.Unmount()

	if visitorName != "" && w.Phase() == widget.PhaseNameEntry {
		if err := w.SubmitName(ctx, visitorName); err != nil {
			fmt.Fprintf(out, "❌ Could not start session: %v\n", err)
		}
	}

	rl := readline.NewShell()
	rl.Prompt.Primary(func() string { return chatPrompt(w) })
	rl.History.Add("default", readline.NewInMemoryHistory())
	rl.Completer = func(line []rune, cursor int) readline.Completions {
		return completeInput(string(line), cursor)
	}

	fmt.Fprintln(out, "📝 Type your message and press Enter. Use /help for commands.")

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				fmt.Fprintln(out, "\n👋 Goodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := handleCommand(w, line, out); quit {
				fmt.Fprintln(out, "👋 Goodbye!")
				return nil
			}
			continue
		}

		switch w.Phase() {
		case widget.PhaseNameEntry:
			if err := w.SubmitName(ctx, line); err != nil {
				if errors.Is(err, widget.ErrNameRequired) {
					fmt.Fprintln(out, "⚠️  Please enter your name.")
				} else {
					fmt.Fprintf(out, "❌ Could not start session: %v\n", err)
				}
			}
		case widget.PhaseChat:
			if err := w.Send(line); err != nil {
				fmt.Fprintf(out, "❌ %v\n", err)
			}
		}
	}
}

func chatPrompt(w *widget.Widget) string {
	phase := w.Phase()
	if phase == widget.PhaseNameEntry {
		return "name> "
	}
	prefix := ""
	if status := widget.StatusLine(phase, w.Connection(), w.AgentTyping()); status != "" {
		prefix = "[" + status + "] "
	}
	return prefix + w.Session().VisitorName + "> "
}

// handleCommand runs a slash command and reports whether the loop should exit.
func handleCommand(w *widget.Widget, line string, out io.Writer) bool {
	parts := strings.Fields(strings.ToLower(strings.TrimPrefix(line, "/")))
	if len(parts) == 0 {
		return false
	}

	switch parts[0] {
	case "quit", "exit", "q":
		return true
	case "reset":
		if err := w.Reset(); err != nil {
			fmt.Fprintf(out, "❌ Reset error: %v\n", err)
		} else {
			fmt.Fprintln(out, "🔄 Session cleared.")
		}
	case "status":
		printStatus(w, out)
	case "help", "h", "?":
		printHelp(out)
	default:
		fmt.Fprintf(out, "❓ Unknown command: %s (use /help for available commands)\n", parts[0])
	}
	return false
}

func printStatus(w *widget.Widget, out io.Writer) {
	s := w.Session()
	conn := w.Connection()
	if s.SessionID == "" {
		fmt.Fprintln(out, "No active session.")
		return
	}
	pending := 0
	for _, m := range w.Messages() {
		if m.Pending {
			pending++
		}
	}
	fmt.Fprintf(out, "Session:      %s (conversation %d)\n", s.SessionID, s.ConversationID)
	fmt.Fprintf(out, "Visitor:      %s\n", s.VisitorName)
	fmt.Fprintf(out, "Connection:   %s\n", conn.State)
	fmt.Fprintf(out, "Agent online: %v\n", conn.AgentOnline)
	fmt.Fprintf(out, "Unconfirmed:  %d\n", pending)
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `
Available commands:
  /quit, /exit, /q  - Exit (the session is kept)
  /reset            - Forget the session and start over
  /status           - Show session and connection details
  /help, /h, /?     - Show this help message

Tips:
  - Messages sent while reconnecting stay marked "sending…"
  - Use Ctrl+C to exit gracefully
  - Use up/down arrows for history`)
}

// slashCommands defines the available slash commands with their descriptions.
var slashCommands = []struct {
	name        string
	description string
}{
	{"/help", "Show available commands"},
	{"/h", "Show available commands (alias)"},
	{"/?", "Show available commands (alias)"},
	{"/quit", "Exit the chat"},
	{"/exit", "Exit the chat (alias)"},
	{"/q", "Exit the chat (alias)"},
	{"/reset", "Forget the session and start over"},
	{"/status", "Show session and connection details"},
}

// matchCommands returns the slash commands starting with text.
func matchCommands(text string) (names, descriptions []string) {
	if !strings.HasPrefix(text, "/") {
		return nil, nil
	}
	for _, cmd := range slashCommands {
		if strings.HasPrefix(cmd.name, text) {
			names = append(names, cmd.name)
			descriptions = append(descriptions, cmd.description)
		}
	}
	return names, descriptions
}

// completeInput provides tab completion for slash commands.
func completeInput(line string, cursor int) readline.Completions {
	if cursor > len(line) {
		cursor = len(line)
	}

	names, descriptions := matchCommands(line[:cursor])
	if len(names) == 0 {
		return readline.Completions{}
	}

	// Format: value1, desc1, value2, desc2, ...
	pairs := make([]string, 0, len(names)*2)
	for i, name := range names {
		pairs = append(pairs, name, descriptions[i])
	}

	return readline.CompleteValuesDescribed(pairs...).
		Tag("commands").
		NoSpace('/')
}

// chatView prints widget state changes to the terminal.
type chatView struct {
	w *widget.Widget

	mu           sync.Mutex
	out          io.Writer
	transcript   transcript
	reconnecting bool
}

func newChatView(out io.Writer, w *widget.Widget) *chatView {
	return &chatView{out: out, w: w}
}

// attach subscribes the view and returns a function that detaches it.
func (v *chatView) attach(bus *events.Bus) func() {
	unsubs := []func(){
		events.Subscribe(bus, widget.TopicPhase, v.onPhase),
		events.Subscribe(bus, widget.TopicMessages, v.onMessages),
		events.Subscribe(bus, widget.TopicConnection, v.onConnection),
		events.Subscribe(bus, widget.TopicAgentTyping, v.onTyping),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

func (v *chatView) onPhase(p widget.Phase) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch p {
	case widget.PhaseNameEntry:
		v.reconnecting = false
		fmt.Fprintln(v.out, "👤 Please enter your name to start chatting.")
	case widget.PhaseChat:
		b := v.w.Branding()
		if b.CompanyName != "" {
			fmt.Fprintf(v.out, "💬 %s\n", widget.CleanText(b.CompanyName))
		}
		if b.WelcomeText != "" {
			fmt.Fprintln(v.out, widget.CleanText(b.WelcomeText))
		}
	}
}

func (v *chatView) onMessages(msgs []protocol.ChatMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, line := range v.transcript.update(msgs) {
		fmt.Fprintln(v.out, line)
	}
}

func (v *chatView) onConnection(s widget.ConnectionStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.w.Phase() != widget.PhaseChat {
		return
	}
	reconnecting := s.Reconnecting()
	if reconnecting == v.reconnecting {
		return
	}
	v.reconnecting = reconnecting
	if reconnecting {
		fmt.Fprintln(v.out, "⚠️  Connection lost, reconnecting…")
	} else {
		fmt.Fprintln(v.out, "✅ Connected")
	}
}

func (v *chatView) onTyping(typing bool) {
	if !typing {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, "… agent is typing")
}

// transcript turns successive message snapshots into terminal lines: new
// messages are printed once, and pending messages get a delivery line when
// their echo arrives.
type transcript struct {
	printed int
	pending map[int]bool
}

func (t *transcript) update(msgs []protocol.ChatMessage) []string {
	if t.pending == nil || len(msgs) < t.printed {
		t.printed = 0
		t.pending = make(map[int]bool)
	}

	var lines []string
	for i := 0; i < t.printed; i++ {
		if t.pending[i] && !msgs[i].Pending {
			delete(t.pending, i)
			lines = append(lines, "  ✓ delivered: "+widget.CleanText(msgs[i].Text))
		}
	}
	for i := t.printed; i < len(msgs); i++ {
		lines = append(lines, widget.FormatMessage(msgs[i]))
		if msgs[i].Pending {
			t.pending[i] = true
		}
	}
	t.printed = len(msgs)
	return lines
}
