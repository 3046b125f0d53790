// Package sqlite provides the SQLite event log behind the live query.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/dagview/internal/core/domain"
	"github.com/tjfontaine/dagview/internal/core/ports"
)

// Store is a SQLite implementation of ports.EventStore.
type Store struct {
	db   *sqlx.DB
	path string
}

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// eventRecord is one row of rowsQuery.
type eventRecord struct {
	ParentID sql.NullInt64  `db:"parent_id"`
	EventID  int64          `db:"event_id"`
	Type     string         `db:"type"`
	ItemID   sql.NullString `db:"item_id"`
	Value    any            `db:"value"`
}

// eventInsert binds the named parameters of insertEvent.
type eventInsert struct {
	ID        sql.NullInt64  `db:"id"`
	ItemID    sql.NullString `db:"item_id"`
	Type      string         `db:"type"`
	Value     any            `db:"value"`
	CreatedAt time.Time      `db:"created_at"`
}

// Ensure Store implements ports.EventStore at compile time.
var _ ports.EventStore = (*Store)(nil)

// rowsQuery selects every event with its parent link and payload.
const rowsQuery = `SELECT
	event_dag.parent_id AS parent_id,
	event_dag.event_id AS event_id,
	event.type AS type,
	event.item_id AS item_id,
	event.value AS value
FROM event_dag
JOIN event ON event.id = event_dag.event_id
ORDER BY event_dag.event_id`

const insertEvent = `INSERT INTO event (id, item_id, type, value, created_at)
VALUES (:id, :item_id, :type, :value, :created_at)`

// New opens (creating if needed) the event log at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db, path: dbPath}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS event (
			id INTEGER PRIMARY KEY,
			item_id TEXT,
			type TEXT NOT NULL,
			value,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS event_dag (
			event_id INTEGER PRIMARY KEY REFERENCES event(id) ON DELETE CASCADE,
			parent_id INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_dag_parent ON event_dag(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_event_item ON event(item_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Rows returns every event joined with its DAG link, in event id order.
// A NULL parent_id yields an absent parent reference.
func (s *Store) Rows(ctx context.Context) ([]domain.EventRow, error) {
	var records []eventRecord
	if err := s.db.SelectContext(ctx, &records, rowsQuery); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	out := make([]domain.EventRow, 0, len(records))
	for _, rec := range records {
		row := domain.EventRow{
			EventID: rec.EventID,
			ItemID:  rec.ItemID.String,
			Type:    domain.EventType(rec.Type),
			Value:   rec.Value,
		}
		if rec.ParentID.Valid {
			row.ParentID = domain.Parent(rec.ParentID.Int64)
		}
		out = append(out, row)
	}
	return out, nil
}

// Append stores ev and its parent link in one transaction and returns the
// event id. A zero ev.ID lets SQLite assign the next id.
func (s *Store) Append(ctx context.Context, ev *domain.NewEvent) (int64, error) {
	if ev.Type == "" {
		return 0, fmt.Errorf("event type is required")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, insertEvent, eventInsert{
		ID:        sql.NullInt64{Int64: ev.ID, Valid: ev.ID != 0},
		ItemID:    sql.NullString{String: ev.ItemID, Valid: ev.ItemID != ""},
		Type:      string(ev.Type),
		Value:     ev.Value,
		CreatedAt: ev.CreatedAt,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	eventID := ev.ID
	if eventID == 0 {
		if eventID, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to read event id: %w", err)
		}
	}

	var parent sql.NullInt64
	if ev.Parent.Valid {
		parent = sql.NullInt64{Int64: ev.Parent.ID, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO event_dag (event_id, parent_id) VALUES (?, ?)`,
		eventID, parent); err != nil {
		return 0, fmt.Errorf("failed to insert event link: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit event: %w", err)
	}

	ev.ID = eventID
	return eventID, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
