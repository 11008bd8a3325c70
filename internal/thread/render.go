package thread

import (
	"fmt"
	"io"
	"strings"

	"github.com/livedesk/livedesk/internal/protocol"
)

const timeLayout = "2006-01-02 15:04"

// Render writes threads as indented cards. Each follow-up is prefixed with
// its sequence number within the thread.
func Render(w io.Writer, threads []Thread) error {
	for i, th := range threads {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := renderThread(w, th); err != nil {
			return err
		}
	}
	return nil
}

func renderThread(w io.Writer, th Thread) error {
	var header string
	if th.Origin != nil {
		header = card(*th.Origin)
	} else {
		header = fmt.Sprintf("#%d (origin not loaded)", th.RootID)
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for seq, f := range th.FollowUps {
		if _, err := fmt.Fprintf(w, "    ↳ %d. %s\n", seq+1, card(f)); err != nil {
			return err
		}
	}
	return nil
}

func card(t protocol.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d", t.ID)
	if t.TicketNumber != "" {
		fmt.Fprintf(&b, " %s", t.TicketNumber)
	}
	fmt.Fprintf(&b, "  %s/%s", t.Status, t.Priority)
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "  %s", t.CreatedAt.Local().Format(timeLayout))
	}
	who := t.Customer()
	switch {
	case who != "" && t.PhoneNumber != "":
		fmt.Fprintf(&b, "  %s (%s)", who, t.PhoneNumber)
	case who != "":
		fmt.Fprintf(&b, "  %s", who)
	case t.PhoneNumber != "":
		fmt.Fprintf(&b, "  %s", t.PhoneNumber)
	}
	return b.String()
}
