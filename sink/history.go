package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/inqwatch/dbopen"
	"github.com/hazyhaar/inqwatch/inquiry"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	inquiry_id TEXT,
	url        TEXT,
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_events_inquiry ON events(inquiry_id);
CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
`

// History is an append-only SQLite sink. Every envelope is stored as a
// row, so operators can replay what the driver saw and published.
type History struct {
	db *sql.DB
}

// OpenHistory opens (or creates) the history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(historySchema))
	if err != nil {
		return nil, fmt.Errorf("sink: open history: %w", err)
	}
	return &History{db: db}, nil
}

// NewHistory wraps an already-opened database. The events schema is
// applied if missing.
func NewHistory(db *sql.DB) (*History, error) {
	if _, err := db.Exec(historySchema); err != nil {
		return nil, fmt.Errorf("sink: history schema: %w", err)
	}
	return &History{db: db}, nil
}

func (h *History) SendInquiry(ctx context.Context, d *inquiry.Data) error {
	env := newEnvelope(TypeInquiry, d)
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("sink: history marshal: %w", err)
	}
	var inquiryID string
	if d != nil {
		inquiryID = d.InquiryID
	}
	_, err = dbopen.Exec(ctx, h.db,
		`INSERT INTO events (id, type, inquiry_id, payload) VALUES (?, ?, ?, ?)`,
		env.ID, env.Type, inquiryID, string(payload))
	if err != nil {
		return fmt.Errorf("sink: history insert: %w", err)
	}
	return nil
}

func (h *History) SendPageChange(ctx context.Context, pc PageChange) error {
	env := newEnvelope(TypePageChange, pc)
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("sink: history marshal: %w", err)
	}
	_, err = dbopen.Exec(ctx, h.db,
		`INSERT INTO events (id, type, url, payload) VALUES (?, ?, ?, ?)`,
		env.ID, env.Type, pc.URL, string(payload))
	if err != nil {
		return fmt.Errorf("sink: history insert: %w", err)
	}
	return nil
}

// Event is a stored envelope row.
type Event struct {
	ID        string
	Type      string
	InquiryID string
	URL       string
	Payload   string
	CreatedAt string
}

// Recent returns the most recent events, newest first. If inquiryID is
// non-empty, only events for that inquiry are returned.
func (h *History) Recent(ctx context.Context, inquiryID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, type, COALESCE(inquiry_id,''), COALESCE(url,''), payload, created_at
		FROM events`
	args := []any{}
	if inquiryID != "" {
		query += ` WHERE inquiry_id = ?`
		args = append(args, inquiryID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sink: history query: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Type, &e.InquiryID, &e.URL, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sink: history scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes events older than the retention window. The sweep runs in
// a transaction so it retries as a unit when an append holds the write lock.
func (h *History) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).Format("2006-01-02T15:04:05.000Z")
	var n int64
	err := dbopen.RunTx(ctx, h.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("sink: history prune: %w", err)
	}
	return n, nil
}

func (h *History) Close() error { return h.db.Close() }
