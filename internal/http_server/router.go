package http_server

import (
	"log/slog"
	"net/http"
	"time"

	"auth_api/internal/auth"
	"auth_api/internal/http_server/handlers/items"
	"auth_api/internal/http_server/handlers/login"
	"auth_api/internal/http_server/handlers/logout"
	"auth_api/internal/http_server/handlers/refresh"
	"auth_api/internal/http_server/handlers/register"
	"auth_api/internal/http_server/handlers/status"
	"auth_api/internal/http_server/handlers/users"
	"auth_api/internal/middleware/bearer"
	rateLimit "auth_api/internal/middleware/ratelimit"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Deps struct {
	Log      *slog.Logger
	Validate *validator.Validate
	Auth     *auth.Auth
	Users    users.Lister
	Items    items.Service
	Now      func() time.Time

	// DisableRateLimit turns the per-IP limits off, for tests.
	DisableRateLimit bool
}

type message struct {
	Message string `json:"message"`
}

func NewRouter(d Deps) *chi.Mux {
	if d.Now == nil {
		d.Now = time.Now
	}

	limit := func(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
		if d.DisableRateLimit {
			return func(next http.Handler) http.Handler { return next }
		}
		return mw
	}

	requireToken := bearer.New(d.Log, d.Auth)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, message{Message: "Welcome to the Auth API!"})
	})
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, message{Message: "pong"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.With(limit(rateLimit.Register())).Post("/register",
			register.New(d.Log, d.Validate, d.Auth),
		)
		r.With(limit(rateLimit.Login())).Post("/login",
			login.New(d.Log, d.Validate, d.Auth),
		)
		r.With(limit(rateLimit.Refresh())).Post("/token/refresh",
			refresh.New(d.Log, d.Validate, d.Auth),
		)
		r.With(limit(rateLimit.Logout()), requireToken).Post("/logout",
			logout.New(d.Log, d.Auth),
		)
	})

	r.Route("/users", func(r chi.Router) {
		r.With(limit(rateLimit.Status())).Get("/status/{id}", status.New(d.Log, d.Auth, d.Now))
		r.With(requireToken).Get("/me", users.Me(d.Log))
		r.Get("/all", users.All(d.Log, d.Users))
	})

	r.Route("/items", items.New(d.Log, d.Validate, d.Items).Routes)

	return r
}
