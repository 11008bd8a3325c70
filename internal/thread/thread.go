// Package thread rebuilds support threads from flat ticket lists.
//
// A thread is an origin ticket followed by every ticket whose parent chain
// leads back to it, in creation order. Parent chains may be arbitrarily
// deep; cycles are tolerated.
package thread

import (
	"slices"

	"github.com/livedesk/livedesk/internal/protocol"
)

// Thread is one origin ticket and its follow-ups.
type Thread struct {
	// RootID is the id every follow-up in the group resolves to.
	RootID int64

	// Origin is the head ticket. It is nil for orphaned threads whose root
	// is not part of the reconstructed set.
	Origin *protocol.Ticket

	// FollowUps are ordered by CreatedAt.
	FollowUps []protocol.Ticket
}

// Orphaned reports whether the thread has no origin card.
func (t Thread) Orphaned() bool {
	return t.Origin == nil
}

// Len returns the number of tickets in the thread, origin included.
func (t Thread) Len() int {
	n := len(t.FollowUps)
	if t.Origin != nil {
		n++
	}
	return n
}

// Index maps ticket ids to tickets.
type Index map[int64]protocol.Ticket

// NewIndex builds a lookup map. Later duplicates replace earlier ones.
func NewIndex(tickets []protocol.Ticket) Index {
	idx := make(Index, len(tickets))
	for _, t := range tickets {
		idx[t.ID] = t
	}
	return idx
}

// FindRoot follows parent pointers from t until it reaches a ticket without
// a parent and returns that ticket's id.
//
// When a parent id is missing from the index the dangling parent id is
// returned, so follow-ups of the same absent root group together. When the
// chain loops, the smallest id in the loop is returned; every member of the
// loop therefore resolves to the same key.
func (idx Index) FindRoot(t protocol.Ticket) int64 {
	visited := map[int64]int{t.ID: 0}
	path := []int64{t.ID}

	cur := t
	for {
		parent, ok := cur.ParentID()
		if !ok {
			return cur.ID
		}
		next, ok := idx[parent]
		if !ok {
			return parent
		}
		if pos, seen := visited[next.ID]; seen {
			return slices.Min(path[pos:])
		}
		visited[next.ID] = len(path)
		path = append(path, next.ID)
		cur = next
	}
}

// Reconstruct groups tickets into threads.
//
// Origins are returned in creation order, followed by orphaned threads
// ordered by their earliest follow-up. The input slice is not modified.
func Reconstruct(tickets []protocol.Ticket) []Thread {
	sorted := slices.Clone(tickets)
	slices.SortStableFunc(sorted, func(a, b protocol.Ticket) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	idx := NewIndex(sorted)

	var threads []Thread
	byRoot := make(map[int64]int)

	for i := range sorted {
		t := sorted[i]
		if !t.IsOrigin() {
			continue
		}
		if _, dup := byRoot[t.ID]; dup {
			continue
		}
		origin := t
		byRoot[t.ID] = len(threads)
		threads = append(threads, Thread{RootID: t.ID, Origin: &origin})
	}

	var orphans []Thread
	orphanByRoot := make(map[int64]int)

	for _, t := range sorted {
		if t.IsOrigin() {
			continue
		}
		root := idx.FindRoot(t)
		if i, ok := byRoot[root]; ok {
			threads[i].FollowUps = append(threads[i].FollowUps, t)
			continue
		}
		i, ok := orphanByRoot[root]
		if !ok {
			i = len(orphans)
			orphanByRoot[root] = i
			orphans = append(orphans, Thread{RootID: root})
		}
		orphans[i].FollowUps = append(orphans[i].FollowUps, t)
	}

	return append(threads, orphans...)
}

// MissingRoots returns the root ids of orphaned threads whose root ticket is
// not among the reconstructed tickets. Roots that are themselves part of a
// parent cycle are present in the set and are not reported.
func MissingRoots(threads []Thread) []int64 {
	present := make(map[int64]bool)
	for _, th := range threads {
		if th.Origin != nil {
			present[th.Origin.ID] = true
		}
		for _, f := range th.FollowUps {
			present[f.ID] = true
		}
	}

	var missing []int64
	for _, th := range threads {
		if th.Orphaned() && !present[th.RootID] {
			missing = append(missing, th.RootID)
		}
	}
	return missing
}

// Merge combines ticket sets, keeping the first occurrence of each id.
func Merge(sets ...[]protocol.Ticket) []protocol.Ticket {
	seen := make(map[int64]bool)
	var out []protocol.Ticket
	for _, set := range sets {
		for _, t := range set {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
		}
	}
	return out
}
