package login

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
	Username string `json:"username" validate:"required"`
	Pass     string `json:"password" validate:"required"`
}

type UserStatus struct {
	IsOnline  bool   `json:"is_online"`
	LastLogin string `json:"last_login"`
}

type Response struct {
	Message      string     `json:"message"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	UserStatus   UserStatus `json:"user_status"`
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (auth.LoginResult, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService Authenticator,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

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

		res, err := authService.Login(ctx, req.Username, req.Pass)
		if err != nil {
			errs.Write(w, r, log, err)

			return
		}

		log.Info("User logged in successfully", slog.Int64("uid", res.User.ID))

		render.JSON(w, r, Response{
			Message:      "Login successful",
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			TokenType:    auth.TokenType,
			UserStatus: UserStatus{
				IsOnline:  true,
				LastLogin: res.LastLogin.Format(time.RFC3339),
			},
		})
	}
}
