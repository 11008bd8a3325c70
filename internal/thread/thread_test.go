package thread

import (
	"bytes"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/livedesk/livedesk/internal/protocol"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func ticket(id int64, parent int64, minutes int) protocol.Ticket {
	t := protocol.Ticket{
		ID:        id,
		Status:    protocol.TicketPending,
		Priority:  protocol.PriorityNormal,
		CreatedAt: base.Add(time.Duration(minutes) * time.Minute),
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

func TestFindRoot_Origin(t *testing.T) {
	tickets := []protocol.Ticket{ticket(1, 0, 0), ticket(5, 0, 1), ticket(2, 1, 2)}
	idx := NewIndex(tickets)
	for _, tk := range tickets {
		if !tk.IsOrigin() {
			continue
		}
		if got := idx.FindRoot(tk); got != tk.ID {
			t.Errorf("FindRoot(%d) = %d, want itself", tk.ID, got)
		}
	}
}

func TestFindRoot_Chain(t *testing.T) {
	tickets := []protocol.Ticket{ticket(1, 0, 0), ticket(2, 1, 1), ticket(3, 2, 2)}

	if got := NewIndex(tickets).FindRoot(tickets[2]); got != 1 {
		t.Errorf("FindRoot(3) = %d, want 1", got)
	}

	reversed := slices.Clone(tickets)
	slices.Reverse(reversed)
	if got := NewIndex(reversed).FindRoot(tickets[2]); got != 1 {
		t.Errorf("FindRoot(3) on reversed input = %d, want 1", got)
	}
}

func TestFindRoot_DeepChain(t *testing.T) {
	var tickets []protocol.Ticket
	tickets = append(tickets, ticket(1, 0, 0))
	for id := int64(2); id <= 50; id++ {
		tickets = append(tickets, ticket(id, id-1, int(id)))
	}
	idx := NewIndex(tickets)
	for _, tk := range tickets {
		if got := idx.FindRoot(tk); got != 1 {
			t.Fatalf("FindRoot(%d) = %d, want 1", tk.ID, got)
		}
	}
}

func TestFindRoot_DanglingParent(t *testing.T) {
	tickets := []protocol.Ticket{ticket(10, 99, 0), ticket(11, 10, 1)}
	idx := NewIndex(tickets)
	if got := idx.FindRoot(tickets[1]); got != 99 {
		t.Errorf("FindRoot(11) = %d, want dangling parent 99", got)
	}
}

func TestFindRoot_Cycle(t *testing.T) {
	tickets := []protocol.Ticket{ticket(4, 6, 0), ticket(5, 4, 1), ticket(6, 5, 2), ticket(7, 6, 3)}
	idx := NewIndex(tickets)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, tk := range tickets {
			if got := idx.FindRoot(tk); got != 4 {
				t.Errorf("FindRoot(%d) = %d, want 4", tk.ID, got)
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("FindRoot did not terminate on a cycle")
	}
}

func TestFindRoot_SelfParent(t *testing.T) {
	tk := ticket(3, 3, 0)
	if got := NewIndex([]protocol.Ticket{tk}).FindRoot(tk); got != 3 {
		t.Errorf("FindRoot(self loop) = %d, want 3", got)
	}
}

func TestReconstruct_Chain(t *testing.T) {
	threads := Reconstruct([]protocol.Ticket{ticket(3, 2, 2), ticket(1, 0, 0), ticket(2, 1, 1)})

	if len(threads) != 1 {
		t.Fatalf("got %d threads, want 1", len(threads))
	}
	th := threads[0]
	if th.Origin == nil || th.Origin.ID != 1 {
		t.Fatalf("origin = %v, want ticket 1", th.Origin)
	}
	if got := ids(th.FollowUps); !slices.Equal(got, []int64{2, 3}) {
		t.Errorf("follow-ups = %v, want [2 3]", got)
	}
	if th.Len() != 3 {
		t.Errorf("Len() = %d, want 3", th.Len())
	}
}

func TestReconstruct_ChronologicalGroups(t *testing.T) {
	tickets := []protocol.Ticket{
		ticket(20, 0, 10),
		ticket(21, 20, 30),
		ticket(10, 0, 0),
		ticket(12, 11, 25),
		ticket(11, 10, 5),
		ticket(22, 20, 15),
	}
	threads := Reconstruct(tickets)

	if len(threads) != 2 {
		t.Fatalf("got %d threads, want 2", len(threads))
	}
	if threads[0].RootID != 10 || threads[1].RootID != 20 {
		t.Errorf("origin order = %d, %d; want 10, 20", threads[0].RootID, threads[1].RootID)
	}
	if got := ids(threads[0].FollowUps); !slices.Equal(got, []int64{11, 12}) {
		t.Errorf("thread 10 follow-ups = %v, want [11 12]", got)
	}
	if got := ids(threads[1].FollowUps); !slices.Equal(got, []int64{22, 21}) {
		t.Errorf("thread 20 follow-ups = %v, want [22 21]", got)
	}
}

func TestReconstruct_DoesNotMutateInput(t *testing.T) {
	tickets := []protocol.Ticket{ticket(2, 1, 5), ticket(1, 0, 0)}
	Reconstruct(tickets)
	if tickets[0].ID != 2 {
		t.Error("Reconstruct reordered the caller's slice")
	}
}

func TestReconstruct_Orphans(t *testing.T) {
	tickets := []protocol.Ticket{
		ticket(1, 0, 0),
		ticket(31, 30, 5),
		ticket(32, 31, 6),
		ticket(41, 40, 2),
	}
	threads := Reconstruct(tickets)

	if len(threads) != 3 {
		t.Fatalf("got %d threads, want 3", len(threads))
	}
	if threads[0].Orphaned() {
		t.Error("first thread should be the origin card")
	}
	if !threads[1].Orphaned() || threads[1].RootID != 40 {
		t.Errorf("threads[1] = root %d orphaned=%v, want orphaned root 40", threads[1].RootID, threads[1].Orphaned())
	}
	if !threads[2].Orphaned() || threads[2].RootID != 30 {
		t.Errorf("threads[2] = root %d, want orphaned root 30", threads[2].RootID)
	}
	if got := ids(threads[2].FollowUps); !slices.Equal(got, []int64{31, 32}) {
		t.Errorf("orphan follow-ups = %v, want [31 32]", got)
	}

	missing := MissingRoots(threads)
	if !slices.Equal(missing, []int64{40, 30}) {
		t.Errorf("MissingRoots() = %v, want [40 30]", missing)
	}
}

func TestReconstruct_CycleIsNotMissing(t *testing.T) {
	threads := Reconstruct([]protocol.Ticket{ticket(4, 5, 0), ticket(5, 4, 1)})
	if len(threads) != 1 || threads[0].RootID != 4 {
		t.Fatalf("threads = %+v, want single group rooted at 4", threads)
	}
	if missing := MissingRoots(threads); len(missing) != 0 {
		t.Errorf("MissingRoots() = %v, want none", missing)
	}
}

func TestReconstruct_Empty(t *testing.T) {
	if threads := Reconstruct(nil); len(threads) != 0 {
		t.Errorf("Reconstruct(nil) = %v, want empty", threads)
	}
}

func TestMerge(t *testing.T) {
	a := []protocol.Ticket{ticket(1, 0, 0), ticket(2, 1, 1)}
	b := []protocol.Ticket{ticket(2, 1, 9), ticket(3, 0, 2)}
	merged := Merge(a, b)
	if got := ids(merged); !slices.Equal(got, []int64{1, 2, 3}) {
		t.Errorf("Merge() ids = %v, want [1 2 3]", got)
	}
	if !merged[1].CreatedAt.Equal(a[1].CreatedAt) {
		t.Error("Merge() should keep the first occurrence")
	}
}

func TestRender(t *testing.T) {
	name := "Jane"
	origin := ticket(1, 0, 0)
	origin.TicketNumber = "T-1"
	origin.CustomerName = &name
	origin.PhoneNumber = "+100"

	threads := Reconstruct([]protocol.Ticket{origin, ticket(2, 1, 1), ticket(3, 2, 2), ticket(8, 7, 3)})

	var buf bytes.Buffer
	if err := Render(&buf, threads); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"#1 T-1  pending/normal",
		"Jane (+100)",
		"↳ 1. #2",
		"↳ 2. #3",
		"#7 (origin not loaded)",
		"↳ 1. #8",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
