package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/resaller-shop/internal/domain/session"
)

type assistantRequest struct {
	Query string `validate:"required,max=2000"`
}

// AdminDashboard serves the analytics overview to admins only.
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Resolve(w, r)
	v.Lock()
	role := v.Session.Role()
	v.Unlock()

	if role != session.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin access required")
		return
	}

	d, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeDashboard(e, d)
	})
}

// Assistant answers a free-form shopping question.
func (h *Handler) Assistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	err := readObject(r, func(d *jx.Decoder, key string) error {
		if key != "query" {
			return d.Skip()
		}
		s, err := d.Str()
		req.Query = s
		return err
	})
	if err == nil {
		err = h.validate(req)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	answer := h.insight.AnswerShoppingQuery(r.Context(), req.Query)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("answer", func(e *jx.Encoder) { e.Str(answer) })
	})
}
