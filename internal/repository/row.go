package repository

import (
	"sort"

	"memorygrid-backend/internal/domain"
)

// Row is a memory in the store's naming convention.
type Row struct {
	ID          string  `json:"id,omitempty" dynamodbav:"id"`
	Title       string  `json:"title" dynamodbav:"title"`
	Category    string  `json:"category" dynamodbav:"category"`
	Content     string  `json:"content" dynamodbav:"content"`
	Visibility  string  `json:"visibility" dynamodbav:"visibility"`
	UserID      string  `json:"user_id" dynamodbav:"user_id"`
	AuthorEmail *string `json:"author_email" dynamodbav:"author_email,omitempty"`
	Timestamp   int64   `json:"timestamp" dynamodbav:"timestamp"`
	DateAdded   string  `json:"date_added" dynamodbav:"date_added"`
}

// RowFromMemory maps an entity to its row.
func RowFromMemory(m domain.Memory) Row {
	return Row{
		ID:          m.ID,
		Title:       m.Title,
		Category:    string(m.Category),
		Content:     m.Content,
		Visibility:  string(m.Visibility),
		UserID:      m.OwnerID,
		AuthorEmail: copyString(m.AuthorLabel),
		Timestamp:   m.CreatedAtEpoch,
		DateAdded:   m.CreatedAtDisplay,
	}
}

// ToMemory maps a row to its entity.
// A stored author label on a private row is dropped.
func (r Row) ToMemory() domain.Memory {
	m := domain.Memory{
		ID:               r.ID,
		Title:            r.Title,
		Category:         domain.Category(r.Category),
		Content:          r.Content,
		Visibility:       domain.Visibility(r.Visibility),
		OwnerID:          r.UserID,
		CreatedAtEpoch:   r.Timestamp,
		CreatedAtDisplay: r.DateAdded,
	}
	if m.IsPublic() {
		m.AuthorLabel = copyString(r.AuthorEmail)
	}
	return m
}

// ToMemories maps rows in order. The result is never nil.
func ToMemories(rows []Row) []domain.Memory {
	out := make([]domain.Memory, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToMemory())
	}
	return out
}

// SortNewestFirst orders rows by timestamp descending, keeping insertion order on ties.
func SortNewestFirst(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp > rows[j].Timestamp
	})
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
