package persistence

import (
	"context"
	"time"

	"memorygrid-backend/internal/repository"
)

// OperationRecorder receives one sample per store call.
type OperationRecorder interface {
	RecordStoreOperation(op string, d time.Duration, err error)
}

// MetricsStore records count, outcome and latency of every store call.
type MetricsStore struct {
	inner    repository.Store
	recorder OperationRecorder
}

// NewMetricsStore wraps inner.
func NewMetricsStore(inner repository.Store, recorder OperationRecorder) *MetricsStore {
	return &MetricsStore{inner: inner, recorder: recorder}
}

// SelectMemories implements repository.Store.
func (s *MetricsStore) SelectMemories(ctx context.Context, q repository.Query) ([]repository.Row, error) {
	start := time.Now()
	rows, err := s.inner.SelectMemories(ctx, q)
	s.recorder.RecordStoreOperation("select_"+string(q.Visibility), time.Since(start), err)
	return rows, err
}

// InsertMemory implements repository.Store.
func (s *MetricsStore) InsertMemory(ctx context.Context, row repository.Row) (repository.Row, error) {
	start := time.Now()
	stored, err := s.inner.InsertMemory(ctx, row)
	s.recorder.RecordStoreOperation("insert", time.Since(start), err)
	return stored, err
}
