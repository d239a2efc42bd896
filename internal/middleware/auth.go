package middleware

import (
	"net/http"
	"strings"

	"memorygrid-backend/internal/session"
	"memorygrid-backend/pkg/api"
	appErrors "memorygrid-backend/pkg/errors"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"go.uber.org/zap"
)

// SignInPath is where unauthenticated clients are sent.
const SignInPath = "/api/v1/auth/signin"

// Authenticator resolves bearer tokens into sessions on the request context.
type Authenticator struct {
	verifier session.Verifier
	logger   *zap.Logger
}

// NewAuthenticator creates auth middleware backed by verifier.
func NewAuthenticator(verifier session.Verifier, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{verifier: verifier, logger: logger}
}

// Optional attaches the session when a valid token is present and otherwise lets
// the request through anonymously.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := a.resolve(r); s != nil {
			r = r.WithContext(session.NewContext(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}

// Required rejects requests without a valid token with 401.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := a.resolve(r)
		if s == nil {
			Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
	})
}

func (a *Authenticator) resolve(r *http.Request) *session.Session {
	token := bearerToken(r)
	if token == "" {
		return fromAuthorizer(r)
	}
	s, err := a.verifier.Verify(r.Context(), token)
	if err != nil {
		a.logger.Debug("rejected access token",
			zap.String("request_id", GetRequestIDFromRequest(r)),
			zap.Error(err))
		return nil
	}
	return s
}

// Unauthorized writes the 401 body that points clients at sign-in.
func Unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="memorygrid"`)
	api.JSONError(w, http.StatusUnauthorized, api.ErrorResponse{
		Error:    "Authentication required",
		Code:     string(appErrors.ErrorTypeUnauthenticated),
		Redirect: SignInPath,
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// fromAuthorizer reads the identity an API Gateway Lambda authorizer already verified.
func fromAuthorizer(r *http.Request) *session.Session {
	proxyCtx, ok := core.GetAPIGatewayV2ContextFromContext(r.Context())
	if !ok || proxyCtx.Authorizer == nil || proxyCtx.Authorizer.Lambda == nil {
		return nil
	}
	userID, _ := proxyCtx.Authorizer.Lambda["sub"].(string)
	if userID == "" {
		return nil
	}
	email, _ := proxyCtx.Authorizer.Lambda["email"].(string)
	return &session.Session{UserID: userID, Email: email}
}
