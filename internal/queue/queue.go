// Package queue provides durable FIFO queues backed by SQLite. The
// degradation monitor parks writes and interactions here while a
// dependency is down, and drains them on recovery. Items survive
// process restart.
package queue

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Item is one queued payload with its enqueue timestamp.
type Item struct {
	ID         int64
	Payload    []byte
	EnqueuedAt time.Time
}

// DB wraps the shared SQLite handle behind the queues.
type DB struct {
	db *sql.DB
}

// OpenDB opens (or creates) the queue database at path and applies the
// WAL pragmas needed for concurrent access.
func OpenDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("queue: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("queue: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("queue: apply pragma: %w", err)
		}
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Queue is one named durable FIFO queue. Safe for concurrent use.
type Queue struct {
	db   *sql.DB
	name string
	mu   sync.Mutex
}

// New creates (or attaches to) the named queue in the database.
func (d *DB) New(name string) (*Queue, error) {
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS queue_%s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		payload BLOB NOT NULL,
		enqueued_at TEXT NOT NULL
	)`, name)
	if _, err := d.db.Exec(schema); err != nil {
		return nil, fmt.Errorf("queue: create table %s: %w", name, err)
	}
	return &Queue{db: d.db, name: name}, nil
}

// Enqueue appends a payload to the tail of the queue.
func (q *Queue) Enqueue(payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, err := q.db.Exec(
		fmt.Sprintf("INSERT INTO queue_%s (payload, enqueued_at) VALUES (?, ?)", q.name),
		payload, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("queue: enqueue into %s: %w", q.name, err)
	}
	return nil
}

// Len returns the number of queued items.
func (q *Queue) Len() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var n int
	err := q.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM queue_%s", q.name)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("queue: count %s: %w", q.name, err)
	}
	return n, nil
}

// Drain delivers every queued item to sink, oldest first, and removes
// delivered items in the same transaction. If sink returns an error
// the transaction rolls back: nothing is lost, and the next drain
// redelivers all items from the start, so the sink must be idempotent.
// A drain of an empty queue is a no-op.
func (q *Queue) Drain(sink func(Item) error) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	tx, err := q.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("queue: begin drain of %s: %w", q.name, err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(fmt.Sprintf("SELECT id, payload, enqueued_at FROM queue_%s ORDER BY id", q.name))
	if err != nil {
		return 0, fmt.Errorf("queue: read %s: %w", q.name, err)
	}

	var items []Item
	for rows.Next() {
		var it Item
		var ts string
		if err := rows.Scan(&it.ID, &it.Payload, &ts); err != nil {
			rows.Close()
			return 0, fmt.Errorf("queue: scan %s: %w", q.name, err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			it.EnqueuedAt = parsed
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("queue: iterate %s: %w", q.name, err)
	}
	rows.Close()

	delivered := 0
	for _, it := range items {
		if err := sink(it); err != nil {
			return delivered, fmt.Errorf("queue: sink rejected item %d: %w", it.ID, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM queue_%s WHERE id = ?", q.name), it.ID); err != nil {
			return delivered, fmt.Errorf("queue: delete item %d: %w", it.ID, err)
		}
		delivered++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("queue: commit drain of %s: %w", q.name, err)
	}
	return delivered, nil
}
