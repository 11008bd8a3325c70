// Package ticketcache keeps the tickets fetched from the backend in a local
// SQLite database so history and thread views keep working offline.
package ticketcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/livedesk/livedesk/internal/logging"
	"github.com/livedesk/livedesk/internal/protocol"
)

// ErrTicketNotFound is returned when a ticket is not in the cache.
var ErrTicketNotFound = errors.New("ticket not in cache")

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const ticketColumns = `id, ticket_number, parent_ticket_id, status, priority, created_at,
	phone_number, customer_name, app_type_data`

// Cache stores tickets in SQLite.
type Cache struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the cache database and runs migrations.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ticket cache: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket cache: wal: %w", err)
	}

	c := &Cache{db: db, logger: logging.Cache()}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id               INTEGER PRIMARY KEY,
			ticket_number    TEXT NOT NULL DEFAULT '',
			parent_ticket_id INTEGER,
			status           TEXT NOT NULL,
			priority         TEXT NOT NULL,
			created_at       TEXT NOT NULL,
			phone_number     TEXT NOT NULL DEFAULT '',
			customer_name    TEXT,
			app_type_data    TEXT NOT NULL DEFAULT '{}',
			fetched_at       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_phone ON tickets(phone_number);
		CREATE INDEX IF NOT EXISTS idx_tickets_parent ON tickets(parent_ticket_id);
	`)
	if err != nil {
		return fmt.Errorf("ticket cache: migrate: %w", err)
	}
	return nil
}

// Save upserts tickets in one transaction.
func (c *Cache) Save(ctx context.Context, tickets ...protocol.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ticket cache: save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tickets (id, ticket_number, parent_ticket_id, status, priority, created_at,
			phone_number, customer_name, app_type_data, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ticket_number=excluded.ticket_number, parent_ticket_id=excluded.parent_ticket_id,
			status=excluded.status, priority=excluded.priority, created_at=excluded.created_at,
			phone_number=excluded.phone_number, customer_name=excluded.customer_name,
			app_type_data=excluded.app_type_data, fetched_at=excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("ticket cache: save: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, t := range tickets {
		data := []byte("{}")
		if t.AppTypeData != nil {
			if data, err = json.Marshal(t.AppTypeData); err != nil {
				return fmt.Errorf("ticket cache: save %d: %w", t.ID, err)
			}
		}
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.TicketNumber, t.ParentTicketID, string(t.Status), string(t.Priority),
			t.CreatedAt.UTC().Format(timeLayout), t.PhoneNumber, t.CustomerName,
			string(data), now,
		); err != nil {
			return fmt.Errorf("ticket cache: save %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ticket cache: save: %w", err)
	}
	c.logger.Debug("tickets cached", "count", len(tickets))
	return nil
}

// Get returns one ticket.
func (c *Cache) Get(ctx context.Context, id int64) (protocol.Ticket, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return protocol.Ticket{}, fmt.Errorf("ticket %d: %w", id, ErrTicketNotFound)
	}
	if err != nil {
		return protocol.Ticket{}, fmt.Errorf("ticket cache: get: %w", err)
	}
	return t, nil
}

// ListByPhone returns the cached tickets of a phone number, oldest first.
func (c *Cache) ListByPhone(ctx context.Context, phoneNumber string) ([]protocol.Ticket, error) {
	return c.query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE phone_number = ? ORDER BY created_at, id`, phoneNumber)
}

// Thread returns every cached ticket in the thread containing id: the walk
// goes up parent links to the top-most cached ancestor, then collects all of
// its descendants. Both walks stop at tickets already visited.
func (c *Cache) Thread(ctx context.Context, id int64) ([]protocol.Ticket, error) {
	start, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	top := start
	seen := map[int64]bool{top.ID: true}
	for {
		parentID, ok := top.ParentID()
		if !ok || seen[parentID] {
			break
		}
		parent, err := c.Get(ctx, parentID)
		if errors.Is(err, ErrTicketNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		seen[parent.ID] = true
		top = parent
	}

	out := []protocol.Ticket{top}
	collected := map[int64]bool{top.ID: true}
	frontier := []int64{top.ID}
	for len(frontier) > 0 {
		parentID := frontier[0]
		frontier = frontier[1:]

		children, err := c.query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE parent_ticket_id = ? ORDER BY created_at, id`, parentID)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if collected[child.ID] {
				continue
			}
			collected[child.ID] = true
			out = append(out, child)
			frontier = append(frontier, child.ID)
		}
	}
	return out, nil
}

func (c *Cache) query(ctx context.Context, query string, args ...any) ([]protocol.Ticket, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ticket cache: query: %w", err)
	}
	defer rows.Close()

	var tickets []protocol.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ticket cache: scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTicket(s scanner) (protocol.Ticket, error) {
	var (
		t            protocol.Ticket
		parent       sql.NullInt64
		status       string
		priority     string
		createdAt    string
		customerName sql.NullString
		appTypeData  string
	)
	if err := s.Scan(&t.ID, &t.TicketNumber, &parent, &status, &priority, &createdAt,
		&t.PhoneNumber, &customerName, &appTypeData); err != nil {
		return t, err
	}

	t.Status = protocol.TicketStatus(status)
	t.Priority = protocol.TicketPriority(priority)
	if parent.Valid {
		p := parent.Int64
		t.ParentTicketID = &p
	}
	if customerName.Valid {
		name := customerName.String
		t.CustomerName = &name
	}
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return t, fmt.Errorf("ticket %d created_at: %w", t.ID, err)
	}
	t.CreatedAt = created
	if appTypeData != "" && appTypeData != "{}" {
		if err := json.Unmarshal([]byte(appTypeData), &t.AppTypeData); err != nil {
			return t, fmt.Errorf("ticket %d app_type_data: %w", t.ID, err)
		}
	}
	return t, nil
}
