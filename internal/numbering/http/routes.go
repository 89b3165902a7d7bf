package numberinghttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers numbering endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Post("/allocate", h.handleAllocate)
	r.Get("/types", h.handleTypes)
}
