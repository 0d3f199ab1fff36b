package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/resaller-shop/internal/domain/catalog"
	"github.com/xenking/resaller-shop/internal/domain/checkout"
	"github.com/xenking/resaller-shop/internal/domain/product"
	"github.com/xenking/resaller-shop/internal/domain/session"
	"github.com/xenking/resaller-shop/internal/visitor"
)

// catalogPath is where a visitor is sent when the requested page cannot be
// shown.
const catalogPath = "/api/catalog"

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func errBadRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// validate runs struct validation and turns failures into a 400 error.
func (h *Handler) validate(v any) error {
	err := h.validator.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return errors.Wrap(err, "validate")
	}
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = fmt.Sprintf("%s: failed %q", strings.ToLower(f.Field()), f.Tag())
	}
	return &badRequestError{msg: "invalid request: " + strings.Join(msgs, ", ")}
}

// fail maps err to an API error response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var bad *badRequestError
	switch {
	case errors.As(err, &bad):
		writeError(w, http.StatusBadRequest, bad.msg)
	case errors.Is(err, product.ErrNotFound):
		writeErrorRedirect(w, http.StatusNotFound, "product not found", catalogPath)
	case errors.Is(err, catalog.ErrUnknownSort),
		errors.Is(err, session.ErrEmptyEmail):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrMissingDetails):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, checkout.ErrTerminal),
		errors.Is(err, visitor.ErrNoCheckout):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
