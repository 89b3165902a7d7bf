// Package moneyhttp exposes the totals calculator over HTTP so branch
// tooling can recompute document totals without persisting anything.
package moneyhttp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-energy/meridian-docs/internal/money"
	"github.com/meridian-energy/meridian-docs/internal/platform/httpx"
)

// Handler serves totals computation.
type Handler struct {
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, validator: validator.New()}
}

type computeLine struct {
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   float64  `json:"unitPrice"`
	LineTotal   *float64 `json:"lineTotal,omitempty"`
}

type computeRequest struct {
	Lines   []computeLine `json:"lines" validate:"required"`
	TaxRate float64       `json:"taxRate" validate:"gte=0"`
	// Strict rejects malformed lines instead of clamping them.
	Strict bool `json:"strict"`
}

type computeResponse struct {
	Lines  []money.LineItem `json:"lines"`
	Totals money.Totals     `json:"totals"`
}

func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if req.Strict {
		for i, line := range req.Lines {
			raw := money.LineItem{
				Description: line.Description,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
			}
			if line.LineTotal != nil {
				raw.LineTotal = *line.LineTotal
			}
			if err := money.CheckLine(raw); err != nil {
				if errors.Is(err, money.ErrMalformedLineItem) {
					httpx.Problem(w, http.StatusBadRequest, "Malformed Line Item",
						err.Error())
					return
				}
				h.logger.Error("check line", slog.Int("line", i), slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
		}
	}

	lines := make([]money.LineItem, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, money.NewLineItem(line.Description, line.Quantity, line.UnitPrice, line.LineTotal))
	}
	httpx.JSON(w, http.StatusOK, computeResponse{
		Lines:  lines,
		Totals: money.ComputeTotals(lines, req.TaxRate),
	})
}
