package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/livedesk/livedesk/internal/logging"
	"github.com/livedesk/livedesk/internal/protocol"
)

// ErrNotFound matches a *StatusError for a 404 response.
var ErrNotFound = errors.New("not found")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Is reports 404 responses as ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client provides HTTP methods for the support backend REST API.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	wsURL      string // explicit WebSocket base, derived from baseURL when empty
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithWebSocketURL overrides the WebSocket base URL (e.g. "wss://chat.example.com").
func WithWebSocketURL(u string) Option {
	return func(client *Client) {
		client.wsURL = strings.TrimRight(u, "/")
	}
}

// New creates a new client.
// baseURL is the REST API root (e.g., "https://support.example.com/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logging.Client(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the REST base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WebSocketURL returns the channel endpoint for sessionID.
func (c *Client) WebSocketURL(sessionID string) string {
	base := c.wsURL
	if base == "" {
		switch {
		case strings.HasPrefix(c.baseURL, "https://"):
			base = "wss://" + strings.TrimPrefix(c.baseURL, "https://")
		case strings.HasPrefix(c.baseURL, "http://"):
			base = "ws://" + strings.TrimPrefix(c.baseURL, "http://")
		default:
			base = c.baseURL
		}
	}
	return base + "/ws/" + url.PathEscape(sessionID)
}

// StartSession starts a new visitor session.
func (c *Client) StartSession(ctx context.Context, visitorName string) (*protocol.SessionResponse, error) {
	return c.postSession(ctx, "start session", protocol.SessionRequest{VisitorName: visitorName})
}

// ResumeSession resumes a stored session. A rejected session id surfaces as
// a *StatusError.
func (c *Client) ResumeSession(ctx context.Context, sessionID, visitorName string) (*protocol.SessionResponse, error) {
	return c.postSession(ctx, "resume session", protocol.SessionRequest{
		SessionID:   sessionID,
		VisitorName: visitorName,
	})
}

func (c *Client) postSession(ctx context.Context, op string, req protocol.SessionRequest) (*protocol.SessionResponse, error) {
	var resp protocol.SessionResponse
	if err := c.do(ctx, op, http.MethodPost, "/session", req, &resp); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("%s: response without session id", op)
	}
	return &resp, nil
}

// Branding returns the public display branding.
func (c *Client) Branding(ctx context.Context) (*protocol.Branding, error) {
	var b protocol.Branding
	if err := c.do(ctx, "get branding", http.MethodGet, "/branding", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// TicketHistory returns every ticket recorded for a phone number.
func (c *Client) TicketHistory(ctx context.Context, phoneNumber string) ([]protocol.Ticket, error) {
	var tickets []protocol.Ticket
	path := "/tickets/history/" + url.PathEscape(phoneNumber)
	if err := c.do(ctx, "ticket history", http.MethodGet, path, nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// TicketThread returns the tickets in the thread containing ticketID.
func (c *Client) TicketThread(ctx context.Context, ticketID int64) ([]protocol.Ticket, error) {
	var tickets []protocol.Ticket
	path := "/tickets/" + strconv.FormatInt(ticketID, 10) + "/thread"
	if err := c.do(ctx, "ticket thread", http.MethodGet, path, nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// do performs one JSON request. in is marshalled when non-nil; out receives
// the decoded body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
