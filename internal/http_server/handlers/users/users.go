package users

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"auth_api/internal/auth"
	"auth_api/internal/http_server/handlers/errs"
	"auth_api/internal/middleware/bearer"
	"auth_api/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// UserResponse never carries the password hash.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Lister interface {
	Users(ctx context.Context) ([]models.User, error)
}

func toResponse(u models.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

// Me serves the authenticated user's profile. Must be mounted behind bearer.New.
func Me(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := bearer.FromContext(r.Context())
		if !ok {
			errs.Write(w, r, log, auth.ErrTokenInvalid)
			return
		}

		render.JSON(w, r, toResponse(session.User))
	}
}

func All(log *slog.Logger, lister Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.All"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := lister.Users(ctx)
		if err != nil {
			errs.Write(w, r, log, err)
			return
		}

		out := make([]UserResponse, 0, len(list))
		for _, u := range list {
			out = append(out, toResponse(u))
		}

		render.JSON(w, r, out)
	}
}
