package derivationhttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers document endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Post("/derive", h.handleDerive)
	r.Post("/", h.handleCreate)
	r.Get("/derivations", h.handleCatalog)
	r.Get("/{kind}/{id}", h.handleGet)
}
