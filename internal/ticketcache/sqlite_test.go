package ticketcache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/livedesk/livedesk/internal/protocol"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "tickets.db"))
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func ticket(id, parent int64, minutes int, phone string) protocol.Ticket {
	t := protocol.Ticket{
		ID:           id,
		TicketNumber: "T-" + phone,
		Status:       protocol.TicketPending,
		Priority:     protocol.PriorityNormal,
		CreatedAt:    base.Add(time.Duration(minutes) * time.Minute),
		PhoneNumber:  phone,
	}
	if parent != 0 {
		p := parent
		t.ParentTicketID = &p
	}
	return t
}

func ids(tickets []protocol.Ticket) []int64 {
	out := make([]int64, len(tickets))
	for i, t := range tickets {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSaveAndGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	name := "Jane"
	tk := ticket(2, 1, 5, "+100")
	tk.CustomerName = &name
	tk.Priority = protocol.PriorityUrgent
	tk.AppTypeData = map[string]any{"channel": "voice"}

	if err := c.Save(ctx, tk); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := c.Get(ctx, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Customer() != "Jane" || got.Priority != protocol.PriorityUrgent {
		t.Errorf("got %+v", got)
	}
	if parent, ok := got.ParentID(); !ok || parent != 1 {
		t.Errorf("ParentID() = %d, %v", parent, ok)
	}
	if !got.CreatedAt.Equal(tk.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, tk.CreatedAt)
	}
	if got.AppTypeData["channel"] != "voice" {
		t.Errorf("AppTypeData = %v", got.AppTypeData)
	}
}

func TestGet_NotFound(t *testing.T) {
	c := newTestCache(t)
	if _, err := c.Get(context.Background(), 42); !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("Get() error = %v, want ErrTicketNotFound", err)
	}
}

func TestSave_Upsert(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	tk := ticket(1, 0, 0, "+100")
	c.Save(ctx, tk)
	tk.Status = protocol.TicketSolved
	if err := c.Save(ctx, tk); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, _ := c.Get(ctx, 1)
	if got.Status != protocol.TicketSolved {
		t.Errorf("Status = %q, want solved", got.Status)
	}
	if got.CustomerName != nil {
		t.Error("nil customer name should stay NULL")
	}
}

func TestListByPhone(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	late := ticket(3, 1, 30, "+100")
	late.CreatedAt = late.CreatedAt.Add(500 * time.Millisecond)
	c.Save(ctx,
		late,
		ticket(1, 0, 0, "+100"),
		ticket(2, 1, 30, "+100"),
		ticket(9, 0, 1, "+200"),
	)

	got, err := c.ListByPhone(ctx, "+100")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !equalIDs(ids(got), []int64{1, 2, 3}) {
		t.Errorf("ListByPhone() = %v, want [1 2 3]", ids(got))
	}

	none, err := c.ListByPhone(ctx, "+999")
	if err != nil || len(none) != 0 {
		t.Errorf("ListByPhone(unknown) = %v, %v", none, err)
	}
}

func TestThread(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Save(ctx,
		ticket(1, 0, 0, "+100"),
		ticket(2, 1, 1, "+100"),
		ticket(3, 2, 2, "+300"),
		ticket(4, 1, 3, "+100"),
		ticket(8, 0, 4, "+100"),
	)

	for _, start := range []int64{1, 3, 4} {
		got, err := c.Thread(ctx, start)
		if err != nil {
			t.Fatalf("Thread(%d): %v", start, err)
		}
		if !equalIDs(ids(got), []int64{1, 2, 4, 3}) {
			t.Errorf("Thread(%d) = %v, want [1 2 4 3]", start, ids(got))
		}
	}
}

func TestThread_MissingAncestorAndCycle(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Save(ctx,
		ticket(11, 10, 0, "+100"), // parent 10 never cached
		ticket(12, 11, 1, "+100"),
		ticket(20, 21, 0, "+100"),
		ticket(21, 20, 1, "+100"),
	)

	got, err := c.Thread(ctx, 12)
	if err != nil {
		t.Fatalf("Thread(12): %v", err)
	}
	if !equalIDs(ids(got), []int64{11, 12}) {
		t.Errorf("Thread(12) = %v, want [11 12]", ids(got))
	}

	done := make(chan []protocol.Ticket, 1)
	go func() {
		got, _ := c.Thread(ctx, 20)
		done <- got
	}()
	select {
	case got := <-done:
		if len(got) != 2 {
			t.Errorf("Thread(cycle) = %v, want both tickets", ids(got))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Thread did not terminate on a cycle")
	}

	if _, err := c.Thread(ctx, 99); !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("Thread(99) error = %v, want ErrTicketNotFound", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c.Save(context.Background(), ticket(1, 0, 0, "+100"))
	c.Close()

	c, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c.Close()
	if _, err := c.Get(context.Background(), 1); err != nil {
		t.Errorf("ticket lost across reopen: %v", err)
	}
}
