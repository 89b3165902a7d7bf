package moneyhttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers totals endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Post("/compute", h.handleCompute)
}
