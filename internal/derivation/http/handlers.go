package derivationhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-energy/meridian-docs/internal/derivation"
	"github.com/meridian-energy/meridian-docs/internal/docstore"
	"github.com/meridian-energy/meridian-docs/internal/money"
	"github.com/meridian-energy/meridian-docs/internal/numbering"
	"github.com/meridian-energy/meridian-docs/internal/observability"
	"github.com/meridian-energy/meridian-docs/internal/platform/httpx"
)

// Service exposes the derivation operations required by the handler.
type Service interface {
	Supported() []derivation.Pair
	Draft(ctx context.Context, sourceKind docstore.Kind, sourceID string, targetKind docstore.Kind) (*derivation.Draft, error)
	CreateFromSource(ctx context.Context, sourceKind docstore.Kind, sourceID string, targetKind docstore.Kind) (*docstore.Document, error)
	Get(ctx context.Context, kind docstore.Kind, id string) (*docstore.Document, error)
}

// Handler serves document derivation and retrieval endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Service
	validator *validator.Validate
	metrics   *observability.Metrics
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service Service, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		metrics:   metrics,
	}
}

type deriveRequest struct {
	SourceKind string `json:"sourceKind" validate:"required"`
	SourceID   string `json:"sourceId" validate:"required"`
	TargetKind string `json:"targetKind" validate:"required"`
}

func (h *Handler) decodeDerive(w http.ResponseWriter, r *http.Request) (deriveRequest, bool) {
	var req deriveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) handleDerive(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeDerive(w, r)
	if !ok {
		return
	}
	draft, err := h.service.Draft(r.Context(), docstore.Kind(req.SourceKind), req.SourceID, docstore.Kind(req.TargetKind))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.metrics.RecordDerivation(req.SourceKind, req.TargetKind)
	httpx.JSON(w, http.StatusOK, map[string]any{"draft": draft})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeDerive(w, r)
	if !ok {
		return
	}
	doc, err := h.service.CreateFromSource(r.Context(), docstore.Kind(req.SourceKind), req.SourceID, docstore.Kind(req.TargetKind))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.metrics.RecordDerivation(req.SourceKind, req.TargetKind)
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"derivations": h.service.Supported()})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	kind := docstore.Kind(chi.URLParam(r, "kind"))
	id := chi.URLParam(r, "id")
	doc, err := h.service.Get(r.Context(), kind, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "source document no longer exists")
	case errors.Is(err, derivation.ErrUnsupportedDerivation):
		httpx.Problem(w, http.StatusBadRequest, "Unsupported Derivation", err.Error())
	case errors.Is(err, numbering.ErrInvalidDocumentType):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Document Type", err.Error())
	case errors.Is(err, numbering.ErrAllocationConflict):
		httpx.RetryProblem(w, "number allocation is contended, retry the request", 1)
	case errors.Is(err, money.ErrMalformedLineItem):
		httpx.Problem(w, http.StatusBadRequest, "Malformed Line Item", err.Error())
	case errors.Is(err, docstore.ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "document write conflicted, derive again")
	default:
		h.logger.Error("derivation request", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
