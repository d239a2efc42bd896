package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/supabase-community/gotrue-go/types"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

// AuthUser is the user record returned by the auth service.
type AuthUser struct {
	ID    string
	Email string
}

// AuthGrant is the outcome of a password sign-in or sign-up. An empty AccessToken
// means the account exists but no session was issued yet (email confirmation pending).
type AuthGrant struct {
	AccessToken string
	ExpiresAt   time.Time
	User        AuthUser
}

// AuthAPI is the subset of the auth service used by the provider.
type AuthAPI interface {
	SignIn(email, password string) (*AuthGrant, error)
	SignUp(email, password string) (*AuthGrant, error)
	SignOut(accessToken string) error
	User(accessToken string) (*AuthUser, error)
}

// supabaseAuth adapts the supabase-go client. The shared client is never switched to a
// user token; every per-user call goes through WithToken.
type supabaseAuth struct {
	client *supa.Client
}

// NewSupabaseAuth adapts client to AuthAPI.
func NewSupabaseAuth(client *supa.Client) AuthAPI {
	return &supabaseAuth{client: client}
}

func (a *supabaseAuth) SignIn(email, password string) (*AuthGrant, error) {
	resp, err := a.client.Auth.Token(types.TokenRequest{
		GrantType: "password",
		Email:     email,
		Password:  password,
	})
	if err != nil {
		return nil, err
	}
	return grantFromSession(resp.Session), nil
}

func (a *supabaseAuth) SignUp(email, password string) (*AuthGrant, error) {
	resp, err := a.client.Auth.Signup(types.SignupRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	if resp.Session.AccessToken != "" {
		return grantFromSession(resp.Session), nil
	}
	return &AuthGrant{User: userFrom(resp.User)}, nil
}

func (a *supabaseAuth) SignOut(accessToken string) error {
	return a.client.Auth.WithToken(accessToken).Logout()
}

func (a *supabaseAuth) User(accessToken string) (*AuthUser, error) {
	resp, err := a.client.Auth.WithToken(accessToken).GetUser()
	if err != nil {
		return nil, err
	}
	u := userFrom(resp.User)
	return &u, nil
}

func grantFromSession(s types.Session) *AuthGrant {
	g := &AuthGrant{AccessToken: s.AccessToken, User: userFrom(s.User)}
	switch {
	case s.ExpiresAt > 0:
		g.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		g.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return g
}

func userFrom(u types.User) AuthUser {
	return AuthUser{ID: u.ID.String(), Email: u.Email}
}

// ErrCredentialsRequired is returned when email or password is blank.
var ErrCredentialsRequired = errors.New("email and password are required")

// SupabaseProvider keeps the signed-in session of a single client and notifies
// subscribers of every change. It satisfies both Source and Notifier.
type SupabaseProvider struct {
	api    AuthAPI
	logger *zap.Logger
	bus    Broadcaster
	now    func() time.Time

	mu      sync.RWMutex
	current *Session
}

// NewSupabaseProvider creates a provider with nobody signed in.
func NewSupabaseProvider(api AuthAPI, logger *zap.Logger) *SupabaseProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupabaseProvider{api: api, logger: logger, now: time.Now}
}

// SignIn authenticates with email and password.
func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrCredentialsRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	grant, err := p.api.SignIn(email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if grant.AccessToken == "" {
		return nil, errors.New("sign in: no session issued")
	}

	s := sessionFromGrant(grant)
	p.set(s)
	p.logger.Info("signed in", zap.String("user_id", s.UserID))
	return s.clone(), nil
}

// SignUp registers a new account. When the service issues a session right away the
// provider signs in; otherwise it returns a nil session and the caller should ask the
// user to confirm their email.
func (p *SupabaseProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrCredentialsRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	grant, err := p.api.SignUp(email, password)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if grant.AccessToken == "" {
		p.logger.Info("sign up pending confirmation", zap.String("user_id", grant.User.ID))
		return nil, nil
	}

	s := sessionFromGrant(grant)
	p.set(s)
	p.logger.Info("signed up", zap.String("user_id", s.UserID))
	return s.clone(), nil
}

// SignOut clears the local session even when the remote call fails; the remote
// error is still returned.
func (p *SupabaseProvider) SignOut(ctx context.Context) error {
	p.mu.RLock()
	cur := p.current
	p.mu.RUnlock()
	if cur == nil {
		return nil
	}

	var remoteErr error
	if err := ctx.Err(); err != nil {
		remoteErr = err
	} else if err := p.api.SignOut(cur.AccessToken); err != nil {
		remoteErr = fmt.Errorf("sign out: %w", err)
		p.logger.Warn("remote sign out failed", zap.String("user_id", cur.UserID), zap.Error(err))
	}

	p.set(nil)
	return remoteErr
}

// Restore resumes a session from a previously issued access token.
func (p *SupabaseProvider) Restore(ctx context.Context, accessToken string, expiresAt time.Time) (*Session, error) {
	accessToken = bareToken(accessToken)
	if accessToken == "" {
		return nil, ErrInvalidToken
	}
	if !expiresAt.IsZero() && !p.now().Before(expiresAt) {
		return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user, err := p.api.User(accessToken)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	s := &Session{UserID: user.ID, Email: user.Email, AccessToken: accessToken, ExpiresAt: expiresAt}
	p.set(s)
	return s.clone(), nil
}

// Session implements Source.
func (p *SupabaseProvider) Session(ctx context.Context) (*Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil || p.current.Expired(p.now()) {
		return nil, nil
	}
	return p.current.clone(), nil
}

// Subscribe implements Notifier.
func (p *SupabaseProvider) Subscribe(l Listener) func() {
	return p.bus.Subscribe(l)
}

func (p *SupabaseProvider) set(s *Session) {
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
	p.bus.Notify(s)
}

func sessionFromGrant(g *AuthGrant) *Session {
	return &Session{
		UserID:      g.User.ID,
		Email:       g.User.Email,
		AccessToken: g.AccessToken,
		ExpiresAt:   g.ExpiresAt,
	}
}
