package items

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"auth_api/internal/http_server/handlers/errs"
	sl "auth_api/internal/lib/logger"
	"auth_api/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Name string `json:"name" validate:"required"`
}

type DetailResponse struct {
	Detail string       `json:"detail"`
	Item   *models.Item `json:"item,omitempty"`
}

type Service interface {
	Create(ctx context.Context, name string) (models.Item, error)
	Get(ctx context.Context, id int64) (models.Item, error)
	List(ctx context.Context) ([]models.Item, error)
	Update(ctx context.Context, id int64, name string) (models.Item, error)
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	log      *slog.Logger
	validate *validator.Validate
	service  Service
}

func New(log *slog.Logger, validate *validator.Validate, service Service) *Handler {
	return &Handler{
		log:      log,
		validate: validate,
		service:  service,
	}
}

// Routes mounts the handlers on a sub-router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.items.Create")

	req, ok := h.decode(w, r, log)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	it, err := h.service.Create(ctx, req.Name)
	if err != nil {
		errs.Write(w, r, log, err)
		return
	}

	log.Info("item created", slog.Int64("id", it.ID))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, DetailResponse{Detail: "Item created successfully", Item: &it})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.items.Get")

	id, ok := itemID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	it, err := h.service.Get(ctx, id)
	if err != nil {
		errs.Write(w, r, log, err)
		return
	}

	render.JSON(w, r, it)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.items.List")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.service.List(ctx)
	if err != nil {
		errs.Write(w, r, log, err)
		return
	}

	render.JSON(w, r, list)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.items.Update")

	id, ok := itemID(w, r)
	if !ok {
		return
	}

	req, ok := h.decode(w, r, log)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	it, err := h.service.Update(ctx, id, req.Name)
	if err != nil {
		errs.Write(w, r, log, err)
		return
	}

	render.JSON(w, r, DetailResponse{Detail: "Item updated successfully", Item: &it})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.items.Delete")

	id, ok := itemID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		errs.Write(w, r, log, err)
		return
	}

	render.JSON(w, r, DetailResponse{Detail: "Item deleted successfully"})
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger) (Request, bool) {
	var req Request

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("Failed to decode request body", sl.Err(err))
		errs.BadRequest(w, r, "Failed to decode request")
		return Request{}, false
	}

	if err := h.validate.Struct(req); err != nil {
		errs.Validation(w, r, err)
		return Request{}, false
	}

	return req, true
}

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		errs.BadRequest(w, r, "invalid item id")
		return 0, false
	}

	return id, true
}
