package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"memorygrid-backend/internal/export"
	"memorygrid-backend/internal/middleware"
	"memorygrid-backend/internal/repository"
	"memorygrid-backend/internal/repository/mocks"
	"memorygrid-backend/internal/service/memory"
	"memorygrid-backend/internal/session"
	"memorygrid-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

type stubVerifier map[string]*session.Session

func (v stubVerifier) Verify(_ context.Context, token string) (*session.Session, error) {
	if s, ok := v[token]; ok {
		return s, nil
	}
	return nil, session.ErrInvalidToken
}

type stubAuth struct {
	signedOut []string
	signOut   error
}

func (a *stubAuth) SignIn(email, password string) (*session.AuthGrant, error) {
	if password != "secret1" {
		return nil, errors.New("invalid login credentials")
	}
	return &session.AuthGrant{
		AccessToken: "token-u1",
		ExpiresAt:   fixedNow.Add(time.Hour),
		User:        session.AuthUser{ID: "u1", Email: email},
	}, nil
}

func (a *stubAuth) SignUp(email, _ string) (*session.AuthGrant, error) {
	if strings.HasPrefix(email, "taken") {
		return nil, errors.New("user already registered")
	}
	return &session.AuthGrant{User: session.AuthUser{ID: "u9", Email: email}}, nil
}

func (a *stubAuth) SignOut(token string) error {
	a.signedOut = append(a.signedOut, token)
	return a.signOut
}

func (a *stubAuth) User(string) (*session.AuthUser, error) { return nil, errors.New("unused") }

func strPtr(s string) *string { return &s }

type fixture struct {
	store  *mocks.MemoryStore
	auth   *stubAuth
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := mocks.NewMemoryStore()
	store.Seed(
		repository.Row{ID: "p1", Title: "Shared", Category: "Lesson", Content: "c", Visibility: "public", UserID: "u2", AuthorEmail: strPtr("b@x.com"), Timestamp: 100},
		repository.Row{ID: "s1", Title: "Mine", Category: "Mistake", Content: "c", Visibility: "private", UserID: "u1", Timestamp: 200},
		repository.Row{ID: "s2", Title: "Theirs", Category: "Experience", Content: "c", Visibility: "private", UserID: "u2", Timestamp: 300},
	)
	svc := memory.NewService(store, session.ContextSource{}, memory.WithClock(func() time.Time { return fixedNow }))
	auth := &stubAuth{}

	authn := middleware.NewAuthenticator(stubVerifier{
		"good": {UserID: "u1", Email: "a@x.com", AccessToken: "good"},
	}, zap.NewNop())
	mh := NewMemoryHandler(svc, zap.NewNop())
	ah := NewAuthHandler(auth, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/health", NewHealthHandler("test", "memory").Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", ah.SignUp)
			r.Post("/signin", ah.SignIn)
			r.With(authn.Required).Post("/signout", ah.SignOut)
			r.With(authn.Required).Get("/session", ah.Me)
		})
		r.Route("/memories", func(r chi.Router) {
			r.Use(authn.Optional)
			r.Get("/", mh.Grid)
			r.Get("/public", mh.ListPublic)
			r.Get("/categories", mh.Categories)
			r.Get("/export", mh.Export)
			r.With(authn.Required).Get("/private", mh.ListPrivate)
			r.With(authn.Required).Post("/", mh.Create)
		})
	})
	return &fixture{store: store, auth: auth, router: r}
}

func (f *fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGrid(t *testing.T) {
	t.Run("Should show only public memories to anonymous callers", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("GET", "/api/v1/memories", "", "")
		require.Equal(t, http.StatusOK, w.Code)

		grid := decode[api.GridResponse](t, w)
		assert.Equal(t, 1, grid.Public.Count)
		assert.Equal(t, "1 memory", grid.Public.Label)
		assert.Nil(t, grid.Private)
	})

	t.Run("Should add the caller's private memories", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("GET", "/api/v1/memories", "good", "")
		require.Equal(t, http.StatusOK, w.Code)

		grid := decode[api.GridResponse](t, w)
		require.NotNil(t, grid.Private)
		require.Len(t, grid.Private.Memories, 1)
		assert.Equal(t, "s1", grid.Private.Memories[0].ID)
	})

	t.Run("Should degrade to empty lists when the store fails", func(t *testing.T) {
		f := newFixture(t)
		f.store.SetError("SelectMemories", errors.New("boom"))
		w := f.do("GET", "/api/v1/memories/public", "", "")
		require.Equal(t, http.StatusOK, w.Code)

		list := decode[api.MemoryListResponse](t, w)
		assert.Equal(t, "0 memories", list.Label)
		assert.NotNil(t, list.Memories)
	})
}

func TestListPrivate(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/api/v1/memories/private", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.SignInPath, decode[api.ErrorResponse](t, w).Redirect)

	w = f.do("GET", "/api/v1/memories/private", "good", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[api.MemoryListResponse](t, w)
	require.Len(t, list.Memories, 1)
	assert.Equal(t, "u1", list.Memories[0].OwnerID)
}

func TestCreate(t *testing.T) {
	t.Run("Should store the memory for the verified user", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("POST", "/api/v1/memories", "good",
			`{"title":" First ","category":"Lesson","content":"text","visibility":"public"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		rows := f.store.Rows()
		last := rows[len(rows)-1]
		assert.Equal(t, "u1", last.UserID)
		assert.Equal(t, "First", last.Title)
		require.NotNil(t, last.AuthorEmail)
		assert.Equal(t, "a@x.com", *last.AuthorEmail)
		assert.Equal(t, "March 5, 2024", last.DateAdded)
		assert.Equal(t, "/api/v1/memories/"+last.ID, w.Header().Get("Location"))
	})

	t.Run("Should refuse an owner in the body", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("POST", "/api/v1/memories", "good",
			`{"title":"t","category":"Lesson","content":"c","ownerId":"u2"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, f.store.Calls("InsertMemory"))
	})

	t.Run("Should name the invalid field", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("POST", "/api/v1/memories", "good", `{"title":"t","category":"Hobby","content":"c"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "category", decode[api.ErrorResponse](t, w).Field)
	})

	t.Run("Should report the title before a long content", func(t *testing.T) {
		f := newFixture(t)
		body := `{"title":"  ","category":"Lesson","content":"` + strings.Repeat("x", 10001) + `"}`
		w := f.do("POST", "/api/v1/memories", "good", body)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "title", decode[api.ErrorResponse](t, w).Field)
		assert.Zero(t, f.store.Calls("InsertMemory"))
	})

	t.Run("Should require a session", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("POST", "/api/v1/memories", "", `{"title":"t","category":"Lesson","content":"c"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Should report store failures as 502", func(t *testing.T) {
		f := newFixture(t)
		f.store.SetError("InsertMemory", errors.New("connection refused"))
		w := f.do("POST", "/api/v1/memories", "good", `{"title":"t","category":"Lesson","content":"c"}`)
		require.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "STORE", decode[api.ErrorResponse](t, w).Code)
	})
}

func TestExport(t *testing.T) {
	t.Run("Should download everything visible as an attachment", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("GET", "/api/v1/memories/export", "good", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `attachment; filename="humanity-memory-grid-2024-03-05.json"`, w.Header().Get("Content-Disposition"))

		memories, err := export.Decode(w.Body.Bytes())
		require.NoError(t, err)
		require.Len(t, memories, 2)
		assert.Equal(t, "p1", memories[0].ID)
		assert.Equal(t, "s1", memories[1].ID)
	})

	t.Run("Should fail loudly when the store is down", func(t *testing.T) {
		f := newFixture(t)
		f.store.SetError("SelectMemories", errors.New("boom"))
		w := f.do("GET", "/api/v1/memories/export", "", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Empty(t, w.Header().Get("Content-Disposition"))
	})
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	w := f.do("GET", "/api/v1/memories/categories", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"categories":["Knowledge","Experience","Lesson","Mistake"]}`, w.Body.String())
}

func TestAuthHandler(t *testing.T) {
	t.Run("Sign in should return the session", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("POST", "/api/v1/auth/signin", "", `{"email":"a@x.com","password":"secret1"}`)
		require.Equal(t, http.StatusOK, w.Code)

		s := decode[api.SessionResponse](t, w)
		assert.Equal(t, "u1", s.UserID)
		assert.Equal(t, "token-u1", s.AccessToken)
		assert.Equal(t, fixedNow.Add(time.Hour).Unix(), s.ExpiresAt)
	})

	t.Run("Sign in should reject bad credentials", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("POST", "/api/v1/auth/signin", "", `{"email":"a@x.com","password":"wrong12"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHENTICATED", decode[api.ErrorResponse](t, w).Code)
	})

	t.Run("Sign in should validate the body", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("POST", "/api/v1/auth/signin", "", `{"email":"not-an-email","password":"secret1"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "email", decode[api.ErrorResponse](t, w).Field)
	})

	t.Run("Sign up should report pending confirmation", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("POST", "/api/v1/auth/signup", "", `{"email":"new@x.com","password":"secret1"}`)
		require.Equal(t, http.StatusCreated, w.Code)

		resp := decode[api.SignUpResponse](t, w)
		assert.True(t, resp.ConfirmationRequired)
		assert.Nil(t, resp.Session)
	})

	t.Run("Sign up should surface rejections", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("POST", "/api/v1/auth/signup", "", `{"email":"taken@x.com","password":"secret1"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Sign out should revoke the bearer token", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("POST", "/api/v1/auth/signout", "good", "")
		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, []string{"good"}, f.auth.signedOut)

		f.auth.signOut = errors.New("network down")
		w = f.do("POST", "/api/v1/auth/signout", "good", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("Session should describe the caller without the token", func(t *testing.T) {
		f := newFixture(t)
		w := f.do("GET", "/api/v1/auth/session", "good", "")
		require.Equal(t, http.StatusOK, w.Code)
		s := decode[api.SessionResponse](t, w)
		assert.Equal(t, "a@x.com", s.Email)
		assert.Empty(t, s.AccessToken)
	})
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do("GET", "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[api.HealthResponse](t, w).Status)
}
