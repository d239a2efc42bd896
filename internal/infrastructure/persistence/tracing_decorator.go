package persistence

import (
	"context"

	"memorygrid-backend/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingStore opens a client span around every store call.
type TracingStore struct {
	inner  repository.Store
	tracer trace.Tracer
	system string
}

// NewTracingStore wraps inner; system names the backend ("supabase", "dynamodb").
func NewTracingStore(inner repository.Store, tracer trace.Tracer, system string) *TracingStore {
	return &TracingStore{inner: inner, tracer: tracer, system: system}
}

// SelectMemories implements repository.Store.
func (s *TracingStore) SelectMemories(ctx context.Context, q repository.Query) ([]repository.Row, error) {
	ctx, span := s.tracer.Start(ctx, "store.SelectMemories",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", s.system),
			attribute.String("memory.visibility", string(q.Visibility)),
			attribute.Bool("memory.owner_filter", q.OwnerID != ""),
		))
	defer span.End()

	rows, err := s.inner.SelectMemories(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("memory.rows", len(rows)))
	return rows, nil
}

// InsertMemory implements repository.Store.
func (s *TracingStore) InsertMemory(ctx context.Context, row repository.Row) (repository.Row, error) {
	ctx, span := s.tracer.Start(ctx, "store.InsertMemory",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", s.system),
			attribute.String("memory.visibility", row.Visibility),
			attribute.String("memory.category", row.Category),
		))
	defer span.End()

	stored, err := s.inner.InsertMemory(ctx, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return repository.Row{}, err
	}
	span.SetAttributes(attribute.String("memory.id", stored.ID))
	return stored, nil
}
