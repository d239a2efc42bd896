// Package memory is the data-access layer for memories. It enforces the visibility and
// ownership rules on top of a row store and derives the acting identity from the
// session source, never from caller input.
package memory

import (
	"context"
	"strings"
	"time"

	"memorygrid-backend/internal/domain"
	"memorygrid-backend/internal/events"
	"memorygrid-backend/internal/export"
	"memorygrid-backend/internal/repository"
	"memorygrid-backend/internal/session"
	appErrors "memorygrid-backend/pkg/errors"

	"go.uber.org/zap"
)

// Operation names used in logs, metrics and wrapped errors.
const (
	OpFetchPublic  = "fetch public memories"
	OpFetchPrivate = "fetch private memories"
	OpCreate       = "create memory"
	OpExport       = "export memories"
)

// Service defines the memory operations.
type Service interface {
	// FetchPublicMemories returns every public memory, newest first. Store failures
	// are logged and yield an empty list.
	FetchPublicMemories(ctx context.Context) []domain.Memory

	// FetchPrivateMemories returns the private memories of ownerID, newest first.
	// A blank owner yields an empty list without touching the store.
	FetchPrivateMemories(ctx context.Context, ownerID string) []domain.Memory

	// FetchAllVisible returns public memories followed by the private memories of
	// ownerID when one is given. It is a convenience over the two focused reads.
	FetchAllVisible(ctx context.Context, ownerID string) []domain.Memory

	// CreateMemory validates draft and stores it on behalf of the current session.
	CreateMemory(ctx context.Context, draft domain.Draft) (*domain.Memory, error)

	// ExportVisible writes everything visible to ownerID to sink and returns the file name.
	ExportVisible(ctx context.Context, ownerID string, sink export.Sink) (string, error)
}

// Metrics receives the service's counters.
type Metrics interface {
	RecordReadFailure(op string)
	RecordMemoryCreated(visibility string)
}

type nopMetrics struct{}

func (nopMetrics) RecordReadFailure(string)   {}
func (nopMetrics) RecordMemoryCreated(string) {}

// Option configures the service.
type Option func(*service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithPublisher sets where MemoryCreated events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *service) {
		if p != nil {
			s.publisher = p
		}
	}
}

type service struct {
	store     repository.Store
	sessions  session.Source
	logger    *zap.Logger
	metrics   Metrics
	publisher events.Publisher
	now       func() time.Time
}

// NewService creates the memory service.
func NewService(store repository.Store, sessions session.Source, opts ...Option) Service {
	s := &service{
		store:     store,
		sessions:  sessions,
		logger:    zap.NewNop(),
		metrics:   nopMetrics{},
		publisher: events.NopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) FetchPublicMemories(ctx context.Context) []domain.Memory {
	return s.lenient(ctx, OpFetchPublic, repository.PublicQuery())
}

func (s *service) FetchPrivateMemories(ctx context.Context, ownerID string) []domain.Memory {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return []domain.Memory{}
	}
	return s.lenient(ctx, OpFetchPrivate, repository.PrivateQuery(ownerID))
}

func (s *service) FetchAllVisible(ctx context.Context, ownerID string) []domain.Memory {
	all := s.FetchPublicMemories(ctx)
	return append(all, s.FetchPrivateMemories(ctx, ownerID)...)
}

// lenient runs q and turns a failure into an empty result.
func (s *service) lenient(ctx context.Context, op string, q repository.Query) []domain.Memory {
	rows, err := s.store.SelectMemories(ctx, q)
	if err != nil {
		s.logger.Error("memory read failed",
			zap.String("operation", op),
			zap.String("user_id", q.OwnerID),
			zap.Error(err))
		s.metrics.RecordReadFailure(op)
		return []domain.Memory{}
	}
	return repository.ToMemories(rows)
}

// strict runs q and wraps a failure as a store error.
func (s *service) strict(ctx context.Context, op string, q repository.Query) ([]domain.Memory, error) {
	rows, err := s.store.SelectMemories(ctx, q)
	if err != nil {
		return nil, appErrors.NewStore(op, err)
	}
	return repository.ToMemories(rows), nil
}

func (s *service) CreateMemory(ctx context.Context, draft domain.Draft) (*domain.Memory, error) {
	who, err := s.sessions.Session(ctx)
	if err != nil {
		return nil, appErrors.NewStore("resolve session", err)
	}
	if who == nil || strings.TrimSpace(who.UserID) == "" {
		return nil, appErrors.NewUnauthenticated("")
	}

	m, err := s.build(draft, who)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.InsertMemory(ctx, repository.RowFromMemory(m))
	if err != nil {
		s.logger.Error("memory insert failed", zap.String("user_id", m.OwnerID), zap.Error(err))
		return nil, appErrors.NewStore(OpCreate, err)
	}

	created := stored.ToMemory()
	s.metrics.RecordMemoryCreated(string(created.Visibility))
	s.logger.Info("memory created",
		zap.String("memory_id", created.ID),
		zap.String("user_id", created.OwnerID),
		zap.String("visibility", string(created.Visibility)))

	if err := s.publisher.Publish(ctx, events.NewMemoryCreated(created, s.now())); err != nil {
		s.logger.Warn("memory created event not published",
			zap.String("memory_id", created.ID),
			zap.Error(err))
	}
	return &created, nil
}

// build validates draft in field order and returns the memory to insert.
func (s *service) build(draft domain.Draft, who *session.Session) (domain.Memory, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return domain.Memory{}, appErrors.NewInvalidInput("title", "title is required")
	}
	content := strings.TrimSpace(draft.Content)
	if content == "" {
		return domain.Memory{}, appErrors.NewInvalidInput("content", "content is required")
	}
	if !draft.Category.Valid() {
		return domain.Memory{}, appErrors.NewInvalidInput("category", "category must be one of Knowledge, Experience, Lesson, Mistake")
	}
	visibility := draft.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}
	if !visibility.Valid() {
		return domain.Memory{}, appErrors.NewInvalidInput("visibility", "visibility must be private or public")
	}

	now := s.now()
	m := domain.Memory{
		Title:            title,
		Category:         draft.Category,
		Content:          content,
		Visibility:       visibility,
		OwnerID:          who.UserID,
		CreatedAtEpoch:   now.UnixMilli(),
		CreatedAtDisplay: now.Format(domain.DisplayDateLayout),
	}
	if m.IsPublic() && who.Email != "" {
		email := who.Email
		m.AuthorLabel = &email
	}
	return m, nil
}

func (s *service) ExportVisible(ctx context.Context, ownerID string, sink export.Sink) (string, error) {
	memories, err := s.strict(ctx, OpFetchPublic, repository.PublicQuery())
	if err != nil {
		return "", err
	}
	if owner := strings.TrimSpace(ownerID); owner != "" {
		private, err := s.strict(ctx, OpFetchPrivate, repository.PrivateQuery(owner))
		if err != nil {
			return "", err
		}
		memories = append(memories, private...)
	}

	data, err := export.Encode(memories)
	if err != nil {
		return "", appErrors.NewInternal(OpExport, err)
	}
	name := export.FileName(s.now())
	if err := sink.Save(ctx, name, data); err != nil {
		return "", appErrors.Wrap(err, OpExport)
	}

	s.logger.Info("memories exported",
		zap.String("user_id", ownerID),
		zap.Int("count", len(memories)),
		zap.String("file", name))
	return name, nil
}
