package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const memoryDSN = ":memory:"

// Run events are kept in a single append-only table. recorded_at is unix
// milliseconds so range scans stay integer comparisons.
const runEventsSchema = `
CREATE TABLE IF NOT EXISTS run_events (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT    NOT NULL,
	event_type  TEXT    NOT NULL,
	recorded_at INTEGER NOT NULL,
	payload     BLOB    NOT NULL,
	metadata    TEXT
);
CREATE INDEX IF NOT EXISTS run_events_run ON run_events(run_id, seq);
CREATE INDEX IF NOT EXISTS run_events_time ON run_events(recorded_at);
`

const selectRunEvents = `SELECT seq, run_id, event_type, recorded_at, payload, metadata FROM run_events`

// SQLiteStore is the run event log on top of modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the event log at path. ":memory:" keeps
// the log in process memory, which is what the tests use.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ErrOpen.WithCause(err).WithContext("path", path)
	}
	// One connection: a memory database is private to its connection and a
	// file database only ever has a single writer here.
	db.SetMaxOpenConns(1)

	if path != memoryDSN {
		if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
			_ = db.Close()
			return nil, ErrOpen.WithCause(err).WithContext("path", path)
		}
	}
	if _, err := db.Exec(runEventsSchema); err != nil {
		_ = db.Close()
		return nil, ErrSchema.WithCause(err).WithContext("path", path)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Append records one event for runID. A nil payload is stored as "{}".
func (s *SQLiteStore) Append(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) error {
	if eventType == "" {
		return ErrNoEvent.WithContext("run_id", runID)
	}
	var meta []byte
	if len(metadata) > 0 {
		var err error
		if meta, err = json.Marshal(metadata); err != nil {
			return ErrEncode.WithCause(err).WithContext("run_id", runID)
		}
	}
	if payload == nil {
		payload = []byte("{}")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_events (run_id, event_type, recorded_at, payload, metadata) VALUES (?, ?, ?, ?, ?)`,
		runID, eventType, s.now().UnixMilli(), payload, meta)
	if err != nil {
		return ErrAppend.WithCause(err).WithContext("run_id", runID).WithContext("event_type", eventType)
	}
	return nil
}

// GetByRunID returns the events of one run in the order they were appended.
func (s *SQLiteStore) GetByRunID(ctx context.Context, runID string) ([]Event, error) {
	events, err := s.query(ctx, selectRunEvents+` WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, ErrQuery.WithCause(err).WithContext("run_id", runID)
	}
	return events, nil
}

// GetRange returns the events recorded between start and end, inclusive.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	events, err := s.query(ctx, selectRunEvents+` WHERE recorded_at BETWEEN ? AND ? ORDER BY seq`,
		start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, ErrQuery.WithCause(err)
	}
	return events, nil
}

// Prune deletes every event recorded before cutoff and reports how many
// rows went away.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM run_events WHERE recorded_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, ErrPrune.WithCause(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, ErrPrune.WithCause(err)
	}
	return n, nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var (
			e    BaseEvent
			at   int64
			meta []byte
		)
		if err := rows.Scan(&e.EventID, &e.EventRunID, &e.EventType, &at, &e.EventPayload, &meta); err != nil {
			return nil, ErrDecode.WithCause(err)
		}
		e.EventTimestamp = time.UnixMilli(at)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.EventMetadata); err != nil {
				return nil, ErrDecode.WithCause(err).WithContext("seq", e.EventID)
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrDecode.WithCause(err)
	}
	return events, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
