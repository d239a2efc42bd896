// Package mocks provides an in-memory implementation of the repository.Store port.
// It backs unit tests and the "memory" store provider used for local development.
package mocks

import (
	"context"
	"sync"

	"memorygrid-backend/internal/repository"

	"github.com/google/uuid"
)

// MemoryStore keeps rows in a slice guarded by a mutex.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []repository.Row

	// For testing error scenarios
	shouldFailOn map[string]error
	calls        map[string]int
	queries      []repository.Query
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shouldFailOn: make(map[string]error),
		calls:        make(map[string]int),
	}
}

// SetError configures the store to return an error for a specific method.
func (m *MemoryStore) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (m *MemoryStore) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn = make(map[string]error)
}

// Calls returns how many times method was invoked, failed calls included.
func (m *MemoryStore) Calls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

// Queries returns the filters received by SelectMemories, in call order.
func (m *MemoryStore) Queries() []repository.Query {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]repository.Query(nil), m.queries...)
}

// Rows returns a copy of everything stored.
func (m *MemoryStore) Rows() []repository.Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]repository.Row(nil), m.rows...)
}

// Seed stores rows as-is, bypassing id assignment and call counting.
func (m *MemoryStore) Seed(rows ...repository.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
}

// SelectMemories implements repository.Store.
func (m *MemoryStore) SelectMemories(ctx context.Context, q repository.Query) ([]repository.Row, error) {
	m.mu.Lock()
	m.calls["SelectMemories"]++
	m.queries = append(m.queries, q)
	err := m.shouldFailOn["SelectMemories"]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]repository.Row, 0)
	for _, row := range m.rows {
		if q.Matches(row) {
			out = append(out, row)
		}
	}
	repository.SortNewestFirst(out)
	return out, nil
}

// InsertMemory implements repository.Store.
func (m *MemoryStore) InsertMemory(ctx context.Context, row repository.Row) (repository.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["InsertMemory"]++

	if err := m.shouldFailOn["InsertMemory"]; err != nil {
		return repository.Row{}, err
	}
	if err := ctx.Err(); err != nil {
		return repository.Row{}, err
	}

	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	m.rows = append(m.rows, row)
	return row, nil
}

var _ repository.Store = (*MemoryStore)(nil)
