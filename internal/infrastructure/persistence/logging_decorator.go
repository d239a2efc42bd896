package persistence

import (
	"context"
	"time"

	"memorygrid-backend/internal/repository"

	"go.uber.org/zap"
)

// LoggingStore logs every store call at debug level, failures at error level and
// calls slower than SlowThreshold at warn level. Row content is never logged.
type LoggingStore struct {
	inner         repository.Store
	logger        *zap.Logger
	slowThreshold time.Duration
}

// NewLoggingStore wraps inner.
func NewLoggingStore(inner repository.Store, logger *zap.Logger, slowThreshold time.Duration) *LoggingStore {
	return &LoggingStore{inner: inner, logger: logger.Named("store"), slowThreshold: slowThreshold}
}

// SelectMemories implements repository.Store.
func (s *LoggingStore) SelectMemories(ctx context.Context, q repository.Query) ([]repository.Row, error) {
	start := time.Now()
	rows, err := s.inner.SelectMemories(ctx, q)
	s.log("select", time.Since(start), err,
		zap.String("visibility", string(q.Visibility)),
		zap.String("user_id", q.OwnerID),
		zap.Int("rows", len(rows)))
	return rows, err
}

// InsertMemory implements repository.Store.
func (s *LoggingStore) InsertMemory(ctx context.Context, row repository.Row) (repository.Row, error) {
	start := time.Now()
	stored, err := s.inner.InsertMemory(ctx, row)
	s.log("insert", time.Since(start), err,
		zap.String("visibility", row.Visibility),
		zap.String("user_id", row.UserID),
		zap.String("memory_id", stored.ID))
	return stored, err
}

func (s *LoggingStore) log(op string, d time.Duration, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("operation", op), zap.Duration("duration", d))
	switch {
	case err != nil:
		s.logger.Error("store operation failed", append(fields, zap.Error(err))...)
	case s.slowThreshold > 0 && d > s.slowThreshold:
		s.logger.Warn("slow store operation", fields...)
	default:
		s.logger.Debug("store operation", fields...)
	}
}
