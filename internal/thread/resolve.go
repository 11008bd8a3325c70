package thread

import (
	"context"
	"fmt"

	"github.com/livedesk/livedesk/internal/logging"
	"github.com/livedesk/livedesk/internal/protocol"
)

// FetchFunc loads the tickets of the thread containing ticketID.
type FetchFunc func(ctx context.Context, ticketID int64) ([]protocol.Ticket, error)

// ResolveOrphans fetches the missing roots of orphaned threads and merges
// them into tickets. A fetched root may itself be a follow-up of another
// absent ticket, so this repeats for up to maxRounds rounds. Each id is
// fetched at most once; a failed fetch leaves that thread orphaned. Only
// context errors abort.
func ResolveOrphans(ctx context.Context, tickets []protocol.Ticket, fetch FetchFunc, maxRounds int) ([]protocol.Ticket, error) {
	logger := logging.Thread()
	tried := make(map[int64]bool)

	for round := 0; round < maxRounds; round++ {
		var pending []int64
		for _, id := range MissingRoots(Reconstruct(tickets)) {
			if !tried[id] {
				pending = append(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}

		for _, id := range pending {
			tried[id] = true
			fetched, err := fetch(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return tickets, fmt.Errorf("resolve orphans: %w", ctx.Err())
				}
				logger.Warn("could not fetch missing root", "ticket_id", id, "error", err)
				continue
			}
			logger.Debug("fetched missing root", "ticket_id", id, "tickets", len(fetched))
			tickets = Merge(tickets, fetched)
		}
	}
	return tickets, nil
}
