package logout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"auth_api/internal/auth"
	"auth_api/internal/http_server/handlers/errs"
	"auth_api/internal/lib/jwt"
	"auth_api/internal/middleware/bearer"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type UserStatus struct {
	IsOnline     bool   `json:"is_online"`
	OfflineSince string `json:"offline_since"`
}

type Response struct {
	Message    string     `json:"message"`
	UserStatus UserStatus `json:"user_status"`
}

type LogoutService interface {
	Logout(ctx context.Context, accessToken string, claims jwt.Claims) (time.Time, error)
}

// New must be mounted behind bearer.New.
//
// @Summary      Log out
// @Description  Revokes the presented access token until its natural expiry and marks the user offline.
// @Description  The refresh token is not revoked.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  object{message=string,user_status=object{is_online=bool,offline_since=string}}
// @Failure      401  {object}  object{status=string,error=string}  "Missing, invalid, expired or revoked token"
// @Failure      500  {object}  object{status=string,error=string}
// @Router       /auth/logout [post]
func New(
	log *slog.Logger,
	authService LogoutService,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		session, ok := bearer.FromContext(r.Context())
		if !ok {
			errs.Write(w, r, log, auth.ErrTokenInvalid)

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		offlineSince, err := authService.Logout(ctx, session.Token, session.Claims)
		if err != nil {
			errs.Write(w, r, log, err)

			return
		}

		log.Info("user logged out successfully", slog.Int64("uid", session.User.ID))

		render.JSON(w, r, Response{
			Message: "User logged out successfully",
			UserStatus: UserStatus{
				IsOnline:     false,
				OfflineSince: offlineSince.Format(time.RFC3339),
			},
		})
	}
}
