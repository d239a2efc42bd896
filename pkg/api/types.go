package api

import "memorygrid-backend/internal/domain"

// CredentialsRequest is the body of sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// CreateMemoryRequest is the body of POST /api/v1/memories. The owner always comes
// from the authenticated session. Field rules are left to the memory service so
// failures are reported in title, content, category, visibility order.
type CreateMemoryRequest struct {
	Title      string `json:"title"`
	Category   string `json:"category"`
	Content    string `json:"content"`
	Visibility string `json:"visibility,omitempty"`
}

// Draft converts the request to the repository input.
func (r CreateMemoryRequest) Draft() domain.Draft {
	return domain.Draft{
		Title:      r.Title,
		Category:   domain.Category(r.Category),
		Content:    r.Content,
		Visibility: domain.Visibility(r.Visibility),
	}
}

// SessionResponse describes the signed-in user.
type SessionResponse struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	AccessToken string `json:"accessToken,omitempty"`
	ExpiresAt   int64  `json:"expiresAt,omitempty"`
}

// SignUpResponse is returned by sign-up; Session is nil while email confirmation is pending.
type SignUpResponse struct {
	Session              *SessionResponse `json:"session"`
	ConfirmationRequired bool             `json:"confirmationRequired"`
}

// MemoryListResponse is a flat list of memories.
type MemoryListResponse struct {
	Memories []domain.Memory `json:"memories"`
	Count    int             `json:"count"`
	Label    string          `json:"label"`
}

// NewMemoryList wraps memories with their count label.
func NewMemoryList(memories []domain.Memory) MemoryListResponse {
	if memories == nil {
		memories = []domain.Memory{}
	}
	return MemoryListResponse{Memories: memories, Count: len(memories), Label: domain.CountLabel(len(memories))}
}

// GridResponse groups everything visible to the caller.
type GridResponse struct {
	Public  MemoryListResponse  `json:"public"`
	Private *MemoryListResponse `json:"private,omitempty"`
}

// ErrorResponse is a standardized error message for API responses.
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Field    string `json:"field,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment,omitempty"`
	Store       string `json:"store,omitempty"`
}
