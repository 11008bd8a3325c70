// Package client provides a Go client for the support backend REST API.
//
// The backend owns sessions, branding and tickets; this package only
// consumes it.
//
// # Basic Usage
//
// Start a visitor session:
//
//	c := client.New("https://support.example.com/api")
//	resp, err := c.StartSession(ctx, "Jane")
//
// Resume a stored one. A rejected id comes back as a *StatusError:
//
//	resp, err := c.ResumeSession(ctx, saved.SessionID, saved.VisitorName)
//	if errors.Is(err, client.ErrNotFound) {
//	    // stored session expired
//	}
//
// # Tickets
//
//	tickets, err := c.TicketHistory(ctx, "+15551234")
//	thread, err := c.TicketThread(ctx, 42)
//
// # WebSocket Endpoint
//
// WebSocketURL maps a session id to the channel endpoint. It is derived from
// the base URL (http→ws, https→wss) unless WithWebSocketURL is given:
//
//	url := c.WebSocketURL(resp.SessionID) // wss://support.example.com/api/ws/<id>
package client
