// Package errs maps service errors onto HTTP answers.
package errs

import (
	"errors"
	"log/slog"
	"net/http"
	"unicode"
	"unicode/utf8"

	"auth_api/internal/auth"
	"auth_api/internal/items"
	resp "auth_api/internal/lib/api/response"
	sl "auth_api/internal/lib/logger"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

func Status(err error) int {
	if errors.Is(err, items.ErrItemNotFound) {
		return http.StatusNotFound
	}

	switch auth.KindOf(err) {
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Write renders err. Internal failures are logged and hidden from the client.
func Write(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := Status(err)

	msg := sentence(err.Error())
	if status == http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
		msg = "Internal error"
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	render.Status(r, status)
	render.JSON(w, r, resp.Error(msg))
}

// sentence upper-cases the first letter of a client-facing message.
func sentence(msg string) string {
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return msg
	}

	return string(unicode.ToUpper(r)) + msg[size:]
}

// Validation renders a 400 for a request that failed struct validation.
func Validation(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusBadRequest)

	var validateErr validator.ValidationErrors
	if errors.As(err, &validateErr) {
		render.JSON(w, r, resp.ValidationError(validateErr))
		return
	}

	render.JSON(w, r, resp.Error("Invalid request"))
}

func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, resp.Error(sentence(msg)))
}
