// Package bearer authenticates requests carrying an access token in the
// Authorization header.
package bearer

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"auth_api/internal/http_server/handlers/errs"
	"auth_api/internal/lib/jwt"
	"auth_api/internal/models"

	"github.com/go-chi/chi/middleware"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, jwt.Claims, error)
}

type Session struct {
	User   models.User
	Claims jwt.Claims
	Token  string
}

type ctxKey struct{}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func New(log *slog.Logger, a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.bearer"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := tokenFromHeader(r.Header.Get("Authorization"))
			if !ok {
				errs.Write(w, r, log, errNotAuthenticated)
				return
			}

			user, claims, err := a.Authenticate(r.Context(), token)
			if err != nil {
				log.Info("access token rejected", slog.String("reason", err.Error()))
				errs.Write(w, r, log, err)
				return
			}

			ctx := WithSession(r.Context(), Session{
				User:   user,
				Claims: claims,
				Token:  token,
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func tokenFromHeader(h string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(h), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}
