// Package ports defines the core interfaces of the viewer.
// Adapters under internal/adapters implement them.
package ports

import (
	"context"

	"github.com/tjfontaine/dagview/internal/core/domain"
)

// DataSource is a live query over the event log. Subscribers receive the
// full current row set on subscription and again after every change.
// Implementations: livequery (default).
type DataSource interface {
	Subscribe(ctx context.Context) (<-chan []domain.EventRow, error)
}

// EventStore is the persistence layer behind the data source.
// Implementations: SQLite (default).
type EventStore interface {
	// Rows returns every stored event joined with its DAG link.
	Rows(ctx context.Context) ([]domain.EventRow, error)

	// Append stores an event and its parent link, returning the event id.
	Append(ctx context.Context, ev *domain.NewEvent) (int64, error)

	Close() error
}
