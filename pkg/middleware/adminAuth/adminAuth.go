package adminAuth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"trainer-booking/pkg/response"
	"trainer-booking/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

type ctxKey struct{}

// Email returns the administrator resolved by the middleware, or "".
func Email(ctx context.Context) string {
	email, _ := ctx.Value(ctxKey{}).(string)
	return email
}

// WithEmail is exported for handler tests.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxKey{}, email)
}

// BearerToken extracts the credential from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// New rejects requests without a valid admin session.
func New(log *slog.Logger, auth Authenticator) func(next http.Handler) http.Handler {
	log = log.With(slog.String("component", "middleware/adminAuth"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, err := auth.Authenticate(r.Context(), BearerToken(r))
			if err != nil {
				reject(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithEmail(r.Context(), email)))
		})
	}
}

// Optional resolves the session when a credential is present and lets
// anonymous requests through. A present but invalid credential is rejected.
func Optional(log *slog.Logger, auth Authenticator) func(next http.Handler) http.Handler {
	log = log.With(slog.String("component", "middleware/adminAuth"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			email, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				reject(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithEmail(r.Context(), email)))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log = log.With(slog.String("request_id", middleware.GetReqID(r.Context())))

	if errors.Is(err, response.ErrUnauthorized) {
		log.Info("admin session rejected")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "unauthorized"))
		return
	}

	log.Error("failed to authenticate", sl.Err(err))
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to authenticate"))
}
