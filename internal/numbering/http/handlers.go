package numberinghttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
	"github.com/meridian-energy/meridian-docs/internal/numbering"
	"github.com/meridian-energy/meridian-docs/internal/observability"
	"github.com/meridian-energy/meridian-docs/internal/platform/httpx"
)

// Service exposes the allocator operations required by the handler.
type Service interface {
	Allocate(ctx context.Context, docType docstore.Kind, ref time.Time) (string, error)
}

// Handler serves the number allocation endpoint.
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

type allocateRequest struct {
	DocumentType  string `json:"documentType" validate:"required"`
	ReferenceDate string `json:"referenceDate" validate:"required,datetime=2006-01-02"`
}

type allocateResponse struct {
	Number string `json:"number"`
}

func (h *Handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ref, err := time.Parse("2006-01-02", req.ReferenceDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "referenceDate must be YYYY-MM-DD")
		return
	}

	number, err := h.service.Allocate(r.Context(), docstore.Kind(req.DocumentType), ref)
	if err != nil {
		switch {
		case errors.Is(err, numbering.ErrInvalidDocumentType):
			httpx.Problem(w, http.StatusBadRequest, "Invalid Document Type", err.Error())
		case errors.Is(err, numbering.ErrAllocationConflict):
			h.metrics.RecordAllocation(req.DocumentType, true)
			h.logger.Warn("allocation conflict", slog.String("doc_type", req.DocumentType))
			httpx.RetryProblem(w, "number allocation is contended, retry the request", 1)
		default:
			h.logger.Error("allocate number", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	h.metrics.RecordAllocation(req.DocumentType, false)
	httpx.JSON(w, http.StatusOK, allocateResponse{Number: number})
}

func (h *Handler) handleTypes(w http.ResponseWriter, r *http.Request) {
	types := numbering.DocumentTypes()
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documentTypes": out})
}
