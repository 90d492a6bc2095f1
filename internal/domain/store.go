package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PositionStore persists positions.
//
// CloseIfOpen must implement conditional "only if still open" semantics: the
// update applies atomically to a row whose status is open, returns
// ErrPositionClosed when the row exists but is no longer open, and
// ErrNotFound when there is no such row. This is what makes concurrent
// double-close impossible.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	GetByID(ctx context.Context, id string) (Position, error)
	ListOpen(ctx context.Context) ([]Position, error)
	CountOpen(ctx context.Context) (int64, error)
	CloseIfOpen(ctx context.Context, id string, close PositionClose) error
	ListHistory(ctx context.Context, opts ListOpts) ([]Position, error)
	ListClosedBefore(ctx context.Context, before time.Time) ([]Position, error)
}

// SignalStore persists received webhook signals.
type SignalStore interface {
	Create(ctx context.Context, sig Signal) error
	GetByID(ctx context.Context, id string) (Signal, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]Signal, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
