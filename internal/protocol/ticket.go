package protocol

import "time"

// TicketStatus represents the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketPending   TicketStatus = "pending"
	TicketForwarded TicketStatus = "forwarded"
	TicketSolved    TicketStatus = "solved"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketPending, TicketForwarded, TicketSolved:
		return true
	}
	return false
}

// TicketPriority is the urgency assigned to a ticket.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityNormal TicketPriority = "normal"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Ticket is a support ticket as returned by the history and thread endpoints.
// A ticket without ParentTicketID is an origin; every other ticket is a
// follow-up somewhere below an origin.
type Ticket struct {
	ID             int64          `json:"id"`
	TicketNumber   string         `json:"ticketNumber"`
	ParentTicketID *int64         `json:"parentTicketId"`
	Status         TicketStatus   `json:"status"`
	Priority       TicketPriority `json:"priority"`
	CreatedAt      time.Time      `json:"createdAt"`
	PhoneNumber    string         `json:"phoneNumber"`
	CustomerName   *string        `json:"customerName"`
	AppTypeData    map[string]any `json:"appTypeData,omitempty"`
}

// IsOrigin reports whether the ticket heads its own thread.
func (t Ticket) IsOrigin() bool {
	return t.ParentTicketID == nil
}

// ParentID returns the parent ticket id and whether one is set.
func (t Ticket) ParentID() (int64, bool) {
	if t.ParentTicketID == nil {
		return 0, false
	}
	return *t.ParentTicketID, true
}

// Customer returns the customer name, or an empty string when unknown.
func (t Ticket) Customer() string {
	if t.CustomerName == nil {
		return ""
	}
	return *t.CustomerName
}
