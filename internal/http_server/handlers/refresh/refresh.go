package refresh

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"auth_api/internal/auth"
	"auth_api/internal/http_server/handlers/errs"
	sl "auth_api/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type Response struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService Refresher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			errs.BadRequest(w, r, "Failed to decode request")

			return
		}

		if err := validate.Struct(req); err != nil {
			log.Error("Invalid request", sl.Err(err))

			errs.Validation(w, r, err)

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		accessToken, err := authService.Refresh(ctx, req.RefreshToken)
		if err != nil {
			errs.Write(w, r, log, err)

			return
		}

		log.Info("Access token refreshed")

		render.JSON(w, r, Response{
			AccessToken: accessToken,
			TokenType:   auth.TokenType,
		})
	}
}
