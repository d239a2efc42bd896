package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"memorygrid-backend/internal/domain"
	"memorygrid-backend/internal/events"
	"memorygrid-backend/internal/export"
	"memorygrid-backend/internal/repository"
	"memorygrid-backend/internal/repository/mocks"
	"memorygrid-backend/internal/session"
	appErrors "memorygrid-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

type staticSource struct {
	s   *session.Session
	err error
}

func (f staticSource) Session(context.Context) (*session.Session, error) { return f.s, f.err }

func signedIn(id, email string) staticSource {
	return staticSource{s: &session.Session{UserID: id, Email: email}}
}

type countingMetrics struct {
	readFailures map[string]int
	created      []string
}

func (m *countingMetrics) RecordReadFailure(op string) {
	if m.readFailures == nil {
		m.readFailures = map[string]int{}
	}
	m.readFailures[op]++
}

func (m *countingMetrics) RecordMemoryCreated(v string) { m.created = append(m.created, v) }

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, e events.MemoryCreated) error {
	return m.Called(ctx, e).Error(0)
}

func strPtr(s string) *string { return &s }

func seedRows() []repository.Row {
	return []repository.Row{
		{ID: "p1", Title: "Old public", Category: "Lesson", Content: "c", Visibility: "public", UserID: "u2", AuthorEmail: strPtr("b@x.com"), Timestamp: 100},
		{ID: "p2", Title: "New public", Category: "Knowledge", Content: "c", Visibility: "public", UserID: "u1", AuthorEmail: strPtr("a@x.com"), Timestamp: 300},
		{ID: "s1", Title: "Mine", Category: "Mistake", Content: "c", Visibility: "private", UserID: "u1", Timestamp: 200},
		{ID: "s2", Title: "Theirs", Category: "Experience", Content: "c", Visibility: "private", UserID: "u2", Timestamp: 250},
		{ID: "s3", Title: "Mine too", Category: "Lesson", Content: "c", Visibility: "private", UserID: "u1", Timestamp: 400},
	}
}

func newTestService(store repository.Store, src session.Source, opts ...Option) Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(store, src, opts...)
}

func ids(ms []domain.Memory) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestFetchPublicMemories(t *testing.T) {
	t.Run("Should return public memories newest first", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		store.Seed(seedRows()...)

		got := newTestService(store, staticSource{}).FetchPublicMemories(context.Background())
		assert.Equal(t, []string{"p2", "p1"}, ids(got))
		assert.Equal(t, []repository.Query{repository.PublicQuery()}, store.Queries())
	})

	t.Run("Should degrade to an empty list and report the failure", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		store.SetError("SelectMemories", errors.New("connection refused"))
		core, logs := observer.New(zapcore.ErrorLevel)
		metrics := &countingMetrics{}

		got := newTestService(store, staticSource{}, WithLogger(zap.New(core)), WithMetrics(metrics)).
			FetchPublicMemories(context.Background())

		require.NotNil(t, got)
		assert.Empty(t, got)
		assert.Equal(t, 1, metrics.readFailures[OpFetchPublic])
		entries := logs.FilterMessage("memory read failed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, OpFetchPublic, entries[0].ContextMap()["operation"])
	})

	t.Run("Should return an empty non-nil list for an empty store", func(t *testing.T) {
		got := newTestService(mocks.NewMemoryStore(), staticSource{}).FetchPublicMemories(context.Background())
		require.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestFetchPrivateMemories(t *testing.T) {
	t.Run("Should return only the owner's private memories", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		store.Seed(seedRows()...)

		got := newTestService(store, staticSource{}).FetchPrivateMemories(context.Background(), "u1")
		assert.Equal(t, []string{"s3", "s1"}, ids(got))
		for _, m := range got {
			assert.Equal(t, "u1", m.OwnerID)
			assert.Equal(t, domain.VisibilityPrivate, m.Visibility)
			assert.Nil(t, m.AuthorLabel)
		}
	})

	t.Run("Should not query without an owner", func(t *testing.T) {
		for _, owner := range []string{"", "   "} {
			store := mocks.NewMemoryStore()
			store.Seed(seedRows()...)

			got := newTestService(store, staticSource{}).FetchPrivateMemories(context.Background(), owner)
			require.NotNil(t, got)
			assert.Empty(t, got)
			assert.Zero(t, store.Calls("SelectMemories"))
		}
	})

	t.Run("Should swallow store errors", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		store.SetError("SelectMemories", errors.New("timeout"))
		metrics := &countingMetrics{}

		got := newTestService(store, staticSource{}, WithMetrics(metrics)).FetchPrivateMemories(context.Background(), "u1")
		assert.Empty(t, got)
		assert.Equal(t, 1, metrics.readFailures[OpFetchPrivate])
	})
}

func TestFetchAllVisible(t *testing.T) {
	store := mocks.NewMemoryStore()
	store.Seed(seedRows()...)
	svc := newTestService(store, staticSource{})

	t.Run("Should return exactly the public set without an owner", func(t *testing.T) {
		assert.Equal(t, []string{"p2", "p1"}, ids(svc.FetchAllVisible(context.Background(), "")))
	})

	t.Run("Should append the owner's private memories after the public ones", func(t *testing.T) {
		assert.Equal(t, []string{"p2", "p1", "s3", "s1"}, ids(svc.FetchAllVisible(context.Background(), "u1")))
	})
}

func TestCreateMemory(t *testing.T) {
	fire := domain.Draft{Title: "Fire", Category: domain.CategoryKnowledge, Content: "It burns", Visibility: domain.VisibilityPublic}

	t.Run("Should attribute public memories to the acting identity", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		metrics := &countingMetrics{}
		svc := newTestService(store, signedIn("u1", "a@x.com"), WithMetrics(metrics))

		m, err := svc.CreateMemory(context.Background(), fire)
		require.NoError(t, err)

		assert.NotEmpty(t, m.ID)
		assert.Equal(t, "u1", m.OwnerID)
		assert.Equal(t, domain.VisibilityPublic, m.Visibility)
		require.NotNil(t, m.AuthorLabel)
		assert.Equal(t, "a@x.com", *m.AuthorLabel)
		assert.Equal(t, fixedNow.UnixMilli(), m.CreatedAtEpoch)
		assert.Equal(t, "March 5, 2024", m.CreatedAtDisplay)

		rows := store.Rows()
		require.Len(t, rows, 1)
		assert.Equal(t, "u1", rows[0].UserID)
		assert.Equal(t, "public", rows[0].Visibility)
		require.NotNil(t, rows[0].AuthorEmail)
		assert.Equal(t, "a@x.com", *rows[0].AuthorEmail)
		assert.Equal(t, 1, store.Calls("InsertMemory"))
		assert.Equal(t, []string{"public"}, metrics.created)
	})

	t.Run("Should default to private without an author", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		draft := fire
		draft.Visibility = ""

		m, err := newTestService(store, signedIn("u1", "a@x.com")).CreateMemory(context.Background(), draft)
		require.NoError(t, err)

		assert.Equal(t, domain.VisibilityPrivate, m.Visibility)
		assert.Nil(t, m.AuthorLabel)
		rows := store.Rows()
		require.Len(t, rows, 1)
		assert.Equal(t, "private", rows[0].Visibility)
		assert.Nil(t, rows[0].AuthorEmail)
	})

	t.Run("Should store trimmed text", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		draft := domain.Draft{Title: "  Fire ", Category: domain.CategoryLesson, Content: "\tIt burns\n"}

		m, err := newTestService(store, signedIn("u1", "a@x.com")).CreateMemory(context.Background(), draft)
		require.NoError(t, err)
		assert.Equal(t, "Fire", m.Title)
		assert.Equal(t, "It burns", m.Content)
	})

	t.Run("Should return what the store echoes back", func(t *testing.T) {
		echo := &echoStore{transform: func(r repository.Row) repository.Row {
			r.ID = "db-assigned"
			r.Title = r.Title + " (normalized)"
			return r
		}}

		m, err := newTestService(echo, signedIn("u1", "a@x.com")).CreateMemory(context.Background(), fire)
		require.NoError(t, err)
		assert.Equal(t, "db-assigned", m.ID)
		assert.Equal(t, "Fire (normalized)", m.Title)
		assert.Empty(t, echo.inserted[0].ID)
	})

	t.Run("Should validate in order and never write", func(t *testing.T) {
		tests := []struct {
			name  string
			src   session.Source
			draft domain.Draft
			kind  appErrors.ErrorType
			field string
		}{
			{"no session", staticSource{}, fire, appErrors.ErrorTypeUnauthenticated, ""},
			{"blank user id", signedIn(" ", "a@x.com"), fire, appErrors.ErrorTypeUnauthenticated, ""},
			{"session failure", staticSource{err: errors.New("auth down")}, fire, appErrors.ErrorTypeStore, ""},
			{"unauthenticated before invalid input", staticSource{}, domain.Draft{}, appErrors.ErrorTypeUnauthenticated, ""},
			{"empty title", signedIn("u1", "a@x.com"), domain.Draft{Title: "", Category: "Knowledge", Content: "c"}, appErrors.ErrorTypeInvalidInput, "title"},
			{"whitespace title", signedIn("u1", "a@x.com"), domain.Draft{Title: " \t\n", Category: "Knowledge", Content: "c"}, appErrors.ErrorTypeInvalidInput, "title"},
			{"title before content", signedIn("u1", "a@x.com"), domain.Draft{Category: "Knowledge"}, appErrors.ErrorTypeInvalidInput, "title"},
			{"empty content", signedIn("u1", "a@x.com"), domain.Draft{Title: "t", Category: "Knowledge", Content: ""}, appErrors.ErrorTypeInvalidInput, "content"},
			{"content before category", signedIn("u1", "a@x.com"), domain.Draft{Title: "t", Category: "Bogus", Content: " "}, appErrors.ErrorTypeInvalidInput, "content"},
			{"empty category", signedIn("u1", "a@x.com"), domain.Draft{Title: "t", Content: "c"}, appErrors.ErrorTypeInvalidInput, "category"},
			{"unknown category", signedIn("u1", "a@x.com"), domain.Draft{Title: "t", Category: "knowledge", Content: "c"}, appErrors.ErrorTypeInvalidInput, "category"},
			{"unknown visibility", signedIn("u1", "a@x.com"), domain.Draft{Title: "t", Category: "Lesson", Content: "c", Visibility: "friends"}, appErrors.ErrorTypeInvalidInput, "visibility"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := mocks.NewMemoryStore()

				m, err := newTestService(store, tt.src).CreateMemory(context.Background(), tt.draft)
				require.Error(t, err)
				assert.Nil(t, m)
				assert.Equal(t, tt.kind, appErrors.TypeOf(err))
				assert.Equal(t, tt.field, appErrors.FieldOf(err))
				assert.Zero(t, store.Calls("InsertMemory"))
				assert.Zero(t, store.Calls("SelectMemories"))
			})
		}
	})

	t.Run("Should wrap store failures with the operation", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		cause := errors.New("duplicate key")
		store.SetError("InsertMemory", cause)

		_, err := newTestService(store, signedIn("u1", "a@x.com")).CreateMemory(context.Background(), fire)
		require.Error(t, err)
		assert.True(t, appErrors.IsStore(err))
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), OpCreate)
	})

	t.Run("Should read the identity at call time", func(t *testing.T) {
		var b session.Broadcaster
		mirror := session.NewMirror()
		_, err := mirror.Attach(&b)
		require.NoError(t, err)
		store := mocks.NewMemoryStore()
		svc := newTestService(store, mirror)

		b.Notify(&session.Session{UserID: "u1", Email: "a@x.com"})
		first, err := svc.CreateMemory(context.Background(), fire)
		require.NoError(t, err)

		b.Notify(&session.Session{UserID: "u2", Email: "b@x.com"})
		second, err := svc.CreateMemory(context.Background(), fire)
		require.NoError(t, err)

		b.Notify(nil)
		_, err = svc.CreateMemory(context.Background(), fire)
		assert.True(t, appErrors.IsUnauthenticated(err))

		assert.Equal(t, "u1", first.OwnerID)
		assert.Equal(t, "u2", second.OwnerID)
		assert.Equal(t, "b@x.com", *second.AuthorLabel)
		assert.Equal(t, 2, store.Calls("InsertMemory"))
	})

	t.Run("Should publish an event without failing on publish errors", func(t *testing.T) {
		pub := new(mockPublisher)
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(e events.MemoryCreated) bool {
			return e.OwnerID == "u1" && e.Visibility == domain.VisibilityPublic && e.Title == "Fire"
		})).Return(errors.New("bus unavailable")).Once()
		core, logs := observer.New(zapcore.WarnLevel)

		m, err := newTestService(mocks.NewMemoryStore(), signedIn("u1", "a@x.com"),
			WithPublisher(pub), WithLogger(zap.New(core))).CreateMemory(context.Background(), fire)

		require.NoError(t, err)
		assert.NotNil(t, m)
		pub.AssertExpectations(t)
		assert.Equal(t, 1, logs.FilterMessage("memory created event not published").Len())
	})
}

func TestExportVisible(t *testing.T) {
	t.Run("Should round trip the visible set", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		store.Seed(seedRows()...)
		svc := newTestService(store, staticSource{})
		sink := &export.MemorySink{}

		name, err := svc.ExportVisible(context.Background(), "u1", sink)
		require.NoError(t, err)
		assert.Equal(t, "humanity-memory-grid-2024-03-05.json", name)
		assert.Equal(t, name, sink.Filename)

		decoded, err := export.Decode(sink.Data)
		require.NoError(t, err)
		assert.Equal(t, svc.FetchAllVisible(context.Background(), "u1"), decoded)
	})

	t.Run("Should export only public memories without an owner", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		store.Seed(seedRows()...)
		sink := &export.MemorySink{}

		_, err := newTestService(store, staticSource{}).ExportVisible(context.Background(), "", sink)
		require.NoError(t, err)

		decoded, err := export.Decode(sink.Data)
		require.NoError(t, err)
		assert.Equal(t, []string{"p2", "p1"}, ids(decoded))
	})

	t.Run("Should propagate store failures instead of exporting nothing", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		store.SetError("SelectMemories", errors.New("timeout"))
		sink := &export.MemorySink{}

		_, err := newTestService(store, staticSource{}).ExportVisible(context.Background(), "u1", sink)
		require.Error(t, err)
		assert.True(t, appErrors.IsStore(err))
		assert.Nil(t, sink.Data)
	})

	t.Run("Should propagate sink failures", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		sinkErr := errors.New("disk full")

		_, err := newTestService(store, staticSource{}).ExportVisible(context.Background(), "", &export.MemorySink{Err: sinkErr})
		assert.ErrorIs(t, err, sinkErr)
	})
}

// echoStore returns a transformed copy of each inserted row.
type echoStore struct {
	transform func(repository.Row) repository.Row
	inserted  []repository.Row
}

func (e *echoStore) SelectMemories(context.Context, repository.Query) ([]repository.Row, error) {
	return nil, nil
}

func (e *echoStore) InsertMemory(_ context.Context, r repository.Row) (repository.Row, error) {
	e.inserted = append(e.inserted, r)
	return e.transform(r), nil
}
