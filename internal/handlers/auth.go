package handlers

import (
	"errors"
	"net/http"

	"memorygrid-backend/internal/logging"
	"memorygrid-backend/internal/session"
	"memorygrid-backend/pkg/api"
	appErrors "memorygrid-backend/pkg/errors"

	"go.uber.org/zap"
)

// AuthHandler exposes password sign-up, sign-in and sign-out. It keeps no state;
// clients hold the access token.
type AuthHandler struct {
	auth   session.AuthAPI
	logger *zap.Logger
}

// NewAuthHandler creates an auth handler backed by the auth service.
func NewAuthHandler(auth session.AuthAPI, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: auth, logger: logger}
}

// SignUp handles POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req api.CredentialsRequest
	if err := api.Decode(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	s, err := h.provider(r).SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		h.credentialError(w, r, http.StatusBadRequest, "Sign up failed", err)
		return
	}

	resp := api.SignUpResponse{ConfirmationRequired: s == nil}
	if s != nil {
		resp.Session = sessionResponse(s, true)
	}
	api.Success(w, http.StatusCreated, resp)
}

// SignIn handles POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req api.CredentialsRequest
	if err := api.Decode(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	s, err := h.provider(r).SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.credentialError(w, r, http.StatusUnauthorized, "Invalid email or password", err)
		return
	}
	api.Success(w, http.StatusOK, sessionResponse(s, true))
}

// SignOut handles POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(r)
	if !ok {
		handleServiceError(w, r, h.logger, appErrors.NewUnauthenticated(""))
		return
	}
	if s.AccessToken != "" {
		if err := h.auth.SignOut(s.AccessToken); err != nil {
			logging.FromContext(r.Context(), h.logger).Warn("remote sign out failed",
				zap.String("user_id", s.UserID), zap.Error(err))
			api.Error(w, http.StatusBadGateway, "Sign out failed")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/session
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(r)
	if !ok {
		handleServiceError(w, r, h.logger, appErrors.NewUnauthenticated(""))
		return
	}
	api.Success(w, http.StatusOK, sessionResponse(s, false))
}

// provider is request-scoped so concurrent callers never share a signed-in session.
func (h *AuthHandler) provider(r *http.Request) *session.SupabaseProvider {
	return session.NewSupabaseProvider(h.auth, logging.FromContext(r.Context(), h.logger))
}

func (h *AuthHandler) credentialError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if errors.Is(err, session.ErrCredentialsRequired) {
		handleServiceError(w, r, h.logger, appErrors.NewInvalidInput("email", err.Error()))
		return
	}
	logging.FromContext(r.Context(), h.logger).Info("credential request rejected", zap.Error(err))
	code := string(appErrors.ErrorTypeInvalidInput)
	if status == http.StatusUnauthorized {
		code = string(appErrors.ErrorTypeUnauthenticated)
	}
	api.JSONError(w, status, api.ErrorResponse{Error: message, Code: code})
}

func sessionResponse(s *session.Session, withToken bool) *api.SessionResponse {
	resp := &api.SessionResponse{UserID: s.UserID, Email: s.Email}
	if withToken {
		resp.AccessToken = s.AccessToken
	}
	if !s.ExpiresAt.IsZero() {
		resp.ExpiresAt = s.ExpiresAt.Unix()
	}
	return resp
}
