package status

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"auth_api/internal/auth"
	"auth_api/internal/http_server/handlers/errs"
	"auth_api/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	UserID          int64   `json:"user_id"`
	IsOnline        bool    `json:"is_online"`
	OfflineDuration *string `json:"offline_duration"`
}

type StatusProvider interface {
	Status(ctx context.Context, userID int64) (models.Presence, error)
}

// New serves GET /users/status/{id}.
func New(
	log *slog.Logger,
	provider StatusProvider,
	now func() time.Time,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.status.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			errs.BadRequest(w, r, "invalid user id")

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		p, err := provider.Status(ctx, userID)
		if err != nil {
			errs.Write(w, r, log, err)

			return
		}

		render.JSON(w, r, Response{
			UserID:          userID,
			IsOnline:        p.IsOnline,
			OfflineDuration: auth.OfflineDuration(p, now()),
		})
	}
}
