package supplier

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/oilprice-ni/internal/common"
)

// Handler exposes the public supplier directory.
type Handler struct {
	Store Store
}

// List handles GET /api/v1/suppliers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "supplier store not configured", nil)
		return
	}
	rows, err := h.Store.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, rows)
}

// Get handles GET /api/v1/suppliers/{slug}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "supplier store not configured", nil)
		return
	}
	sup, err := h.Store.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "supplier not found", nil)
		return
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, sup)
}
