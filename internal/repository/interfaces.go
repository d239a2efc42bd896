// Package repository defines the persistence port for memories.
//
// The Store interface mirrors what the managed backend offers: equality-filtered,
// ordered selects over a single table and single-row inserts. It carries rows in the
// store's own naming convention; translation to domain.Memory happens only through
// Row.ToMemory and RowFromMemory so the rest of the code stays row-agnostic.
//
// Adapters live in sub-packages:
//   - supabase: PostgREST through supabase-go (default)
//   - ddb: DynamoDB single-table layout
//   - mocks: in-memory, for tests and local development
package repository

import (
	"context"

	"memorygrid-backend/internal/domain"
)

// Store is the row-oriented query interface of the external data store.
type Store interface {
	// SelectMemories returns rows matching every non-empty filter in q,
	// newest first by creation timestamp.
	SelectMemories(ctx context.Context, q Query) ([]Row, error)

	// InsertMemory writes a single row and returns it as stored.
	// The store assigns the id when row.ID is empty.
	InsertMemory(ctx context.Context, row Row) (Row, error)
}

// Query holds the equality filters used by the read paths.
type Query struct {
	Visibility domain.Visibility
	OwnerID    string
}

// PublicQuery selects every public memory.
func PublicQuery() Query {
	return Query{Visibility: domain.VisibilityPublic}
}

// PrivateQuery selects the private memories of one owner.
func PrivateQuery(ownerID string) Query {
	return Query{Visibility: domain.VisibilityPrivate, OwnerID: ownerID}
}

// Matches reports whether row satisfies the filters of q.
// Used by adapters that filter in process.
func (q Query) Matches(row Row) bool {
	if q.Visibility != "" && row.Visibility != string(q.Visibility) {
		return false
	}
	if q.OwnerID != "" && row.UserID != q.OwnerID {
		return false
	}
	return true
}
