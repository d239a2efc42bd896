// Package supabase implements repository.Store on top of Supabase's PostgREST API.
package supabase

import (
	"context"
	"fmt"

	"memorygrid-backend/internal/repository"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

// DefaultTable is the table memories live in.
const DefaultTable = "memories"

// Store queries one PostgREST table through the supabase-go client.
type Store struct {
	client *supa.Client
	table  string
}

// NewStore wraps an initialised client.
func NewStore(client *supa.Client, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{client: client, table: table}
}

// NewClient builds a supabase-go client for url and key.
func NewClient(url, key string) (*supa.Client, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return client, nil
}

// NewUserClient builds a client that authenticates as the holder of accessToken, so
// row level security applies to that user. The project key is still sent as apikey.
func NewUserClient(url, key, accessToken string) (*supa.Client, error) {
	client, err := supa.NewClient(url, key, &supa.ClientOptions{
		Headers: map[string]string{"Authorization": "Bearer " + accessToken},
	})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return client, nil
}

// SelectMemories implements repository.Store.
//
// The PostgREST client does not accept a context, so cancellation is only honoured
// before the request is dispatched.
func (s *Store) SelectMemories(ctx context.Context, q repository.Query) ([]repository.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := s.client.From(s.table).Select("*", "", false)
	if q.Visibility != "" {
		query = query.Eq("visibility", string(q.Visibility))
	}
	if q.OwnerID != "" {
		query = query.Eq("user_id", q.OwnerID)
	}
	query = query.Order("timestamp", &postgrest.OrderOpts{Ascending: false})

	var rows []repository.Row
	if _, err := query.ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("select from %s: %w", s.table, err)
	}
	if rows == nil {
		rows = []repository.Row{}
	}
	return rows, nil
}

// InsertMemory implements repository.Store. The database assigns the id.
func (s *Store) InsertMemory(ctx context.Context, row repository.Row) (repository.Row, error) {
	if err := ctx.Err(); err != nil {
		return repository.Row{}, err
	}

	var echoed []repository.Row
	_, err := s.client.From(s.table).
		Insert(row, false, "", "representation", "").
		ExecuteTo(&echoed)
	if err != nil {
		return repository.Row{}, fmt.Errorf("insert into %s: %w", s.table, err)
	}
	if len(echoed) == 0 {
		return repository.Row{}, repository.ErrNoRowReturned
	}
	return echoed[0], nil
}

var _ repository.Store = (*Store)(nil)
