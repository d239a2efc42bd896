package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"memorygrid-backend/pkg/auth"
)

// ErrInvalidToken is returned by verifiers for tokens that do not resolve to a user.
var ErrInvalidToken = errors.New("invalid access token")

// Verifier turns a bearer token into a session.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Session, error)
}

// JWTVerifier validates access tokens locally with the project JWT secret.
type JWTVerifier struct {
	validator *auth.JWTValidator
}

// NewJWTVerifier wraps validator.
func NewJWTVerifier(validator *auth.JWTValidator) *JWTVerifier {
	return &JWTVerifier{validator: validator}
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Session, error) {
	claims, err := v.validator.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	s := &Session{
		UserID:      claims.UserID(),
		Email:       claims.Email,
		AccessToken: bareToken(token),
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// RemoteVerifier asks the auth service who owns the token.
type RemoteVerifier struct {
	api AuthAPI
}

// NewRemoteVerifier creates a verifier backed by api.
func NewRemoteVerifier(api AuthAPI) *RemoteVerifier {
	return &RemoteVerifier{api: api}
}

// Verify implements Verifier.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Session, error) {
	token = bareToken(token)
	if token == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, auth.ErrMissingToken)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user, err := v.api.User(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return &Session{UserID: user.ID, Email: user.Email, AccessToken: token}, nil
}

func bareToken(token string) string {
	return strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
}
