package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/resaller-shop/internal/domain/analytics"
	"github.com/xenking/resaller-shop/internal/domain/session"
)

type signInRequest struct {
	Email string `validate:"required,email"`
}

func writeSession(w http.ResponseWriter, s *session.State) {
	id, ok := s.Identity()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeIdentityFields(e, id, ok)
		if ok {
			encodeProfileOrders(e, analytics.ProfileOrders())
		}
	})
}

// GetSession serves the signed-in identity, if any, with its order history.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Resolve(w, r)
	v.Lock()
	defer v.Unlock()
	writeSession(w, &v.Session)
}

// SignIn performs the mock email sign-in.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	err := readObject(r, func(d *jx.Decoder, key string) error {
		if key != "email" {
			return d.Skip()
		}
		s, err := d.Str()
		req.Email = s
		return err
	})
	if err == nil {
		err = h.validate(req)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	v := h.visitors.Resolve(w, r)
	v.Lock()
	defer v.Unlock()
	if _, err := v.Session.SignIn(req.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSession(w, &v.Session)
}

// SignOut clears the identity. The cart is kept.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Resolve(w, r)
	v.Lock()
	defer v.Unlock()
	v.Session.SignOut()
	writeSession(w, &v.Session)
}
