package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/livedesk/livedesk/internal/logging"
	"github.com/livedesk/livedesk/internal/protocol"
	"github.com/livedesk/livedesk/internal/thread"
	"github.com/livedesk/livedesk/internal/ticketcache"
)

var (
	historyOffline        bool
	historyResolveOrphans bool
	historyMaxRounds      int
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history <phone>",
	Short: "Show a customer's tickets grouped into threads",
	Long: `Fetch the ticket history of a customer and group it into threads.

Each thread starts at an origin ticket, followed by its follow-ups in
creation order. A follow-up whose origin is not part of the history
is shown under an "(origin not loaded)" header; use --resolve-orphans
to fetch the missing origins.

Fetched tickets are stored in the local cache, which --offline reads
instead of the backend.

Examples:
  livedesk history +34600111222
  livedesk history +34600111222 --resolve-orphans
  livedesk history +34600111222 --offline`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

// threadCmd represents the thread command
var threadCmd = &cobra.Command{
	Use:   "thread <ticket-id>",
	Short: "Show the full thread containing a ticket",
	Args:  cobra.ExactArgs(1),
	RunE:  runThread,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(threadCmd)

	historyCmd.Flags().BoolVar(&historyOffline, "offline", false, "Read tickets from the local cache only")
	historyCmd.Flags().BoolVar(&historyResolveOrphans, "resolve-orphans", false, "Fetch the missing origins of orphaned threads")
	historyCmd.Flags().IntVar(&historyMaxRounds, "max-rounds", 3, "Maximum fetch rounds when resolving orphans")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	phone := args[0]
	logger := logging.Client()

	cache, err := openTicketCache()
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	var (
		tickets []protocol.Ticket
		fetch   thread.FetchFunc
	)
	if historyOffline {
		if cache == nil {
			return errors.New("--offline needs the ticket cache (cache.enabled is false)")
		}
		if tickets, err = cache.ListByPhone(ctx, phone); err != nil {
			return err
		}
		fetch = cache.Thread
	} else {
		api := newAPIClient()
		tickets, err = api.TicketHistory(ctx, phone)
		if err != nil {
			if cache == nil {
				return err
			}
			logger.Warn("history fetch failed, using cache", "phone", phone, "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  Backend unavailable, showing cached tickets: %v\n", err)
			if tickets, err = cache.ListByPhone(ctx, phone); err != nil {
				return err
			}
		}
		fetch = api.TicketThread
	}

	if historyResolveOrphans {
		tickets, err = thread.ResolveOrphans(ctx, tickets, fetch, historyMaxRounds)
		if err != nil {
			return err
		}
	}

	if !historyOffline {
		cacheTickets(ctx, cache, tickets)
	}

	out := cmd.OutOrStdout()
	if len(tickets) == 0 {
		fmt.Fprintf(out, "No tickets found for %s\n", phone)
		return nil
	}
	return printThreads(out, tickets)
}

func runThread(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid ticket id %q", args[0])
	}

	cache, err := openTicketCache()
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	tickets, err := newAPIClient().TicketThread(ctx, id)
	switch {
	case err == nil:
		cacheTickets(ctx, cache, tickets)
	case cache != nil:
		logging.Client().Warn("thread fetch failed, using cache", "ticket_id", id, "error", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  Backend unavailable, showing cached tickets: %v\n", err)
		if tickets, err = cache.Thread(ctx, id); err != nil {
			if errors.Is(err, ticketcache.ErrTicketNotFound) {
				return fmt.Errorf("ticket %d is not cached", id)
			}
			return err
		}
	default:
		return err
	}

	return printThreads(cmd.OutOrStdout(), tickets)
}

// cacheTickets stores tickets for offline use. Failures are logged only.
func cacheTickets(ctx context.Context, cache *ticketcache.Cache, tickets []protocol.Ticket) {
	if cache == nil || len(tickets) == 0 {
		return
	}
	if err := cache.Save(ctx, tickets...); err != nil {
		logging.Cache().Warn("failed to cache tickets", "count", len(tickets), "error", err)
	}
}

func printThreads(out io.Writer, tickets []protocol.Ticket) error {
	threads := thread.Reconstruct(tickets)
	if err := thread.Render(out, threads); err != nil {
		return err
	}
	if missing := thread.MissingRoots(threads); len(missing) > 0 {
		fmt.Fprintf(out, "\n%d thread(s) with an origin outside this history; try --resolve-orphans\n", len(missing))
	}
	return nil
}
