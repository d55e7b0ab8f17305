package register

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"auth_api/internal/http_server/handlers/errs"
	sl "auth_api/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const msgRegistered = "User registered successfully"

type Request struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Pass     string `json:"password" validate:"required,max=72"`
}

type Response struct {
	Message string `json:"message"`
}

type Registerer interface {
	RegisterNewUser(ctx context.Context, username, email, pass string) (int64, error)
}

// New godoc
// @Summary      Register a user
// @Description  Creates an account. Username and email must both be unused.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        user  body  object{username=string,email=string,password=string}  true  "New account"
// @Success      201  {object}  object{message=string}
// @Failure      400  {object}  object{status=string,error=string}  "Validation error"
// @Failure      409  {object}  object{status=string,error=string}  "Email or username taken"
// @Failure      500  {object}  object{status=string,error=string}
// @Router       /auth/register [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService Registerer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

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

		log.Info("Request body decoded")

		if err := validate.Struct(req); err != nil {
			log.Error("Invalid request", sl.Err(err))

			errs.Validation(w, r, err)

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		userID, err := authService.RegisterNewUser(ctx, req.Username, req.Email, req.Pass)
		if err != nil {
			errs.Write(w, r, log, err)

			return
		}

		log.Info("User registered", slog.Int64("id", userID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{Message: msgRegistered})
	}
}
