package reportinghttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/meridian-energy/meridian-docs/internal/platform/httpx"
	"github.com/meridian-energy/meridian-docs/internal/reporting"
)

const requestTimeout = 5 * time.Second

// Service exposes the aggregation required by the handler.
type Service interface {
	Aggregate(ctx context.Context, filters reporting.Filters) ([]reporting.Bucket, error)
}

// Handler serves the aggregate report endpoint.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	// identical in-flight report requests collapse to one computation
	key := fmt.Sprintf("%s:%s:%s:%s",
		filters.GroupBy, filters.Branch,
		filters.From.Format("2006-01-02"), filters.To.Format("2006-01-02"))
	result, err, _ := singleflightAggregate(ctx, key, func(ctx context.Context) (any, error) {
		return h.service.Aggregate(ctx, filters)
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidGroupBy) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("aggregate report", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	buckets, _ := result.([]reporting.Bucket)
	httpx.JSON(w, http.StatusOK, map[string]any{"buckets": buckets})
}

func parseFilters(r *http.Request) (reporting.Filters, error) {
	q := r.URL.Query()

	groupBy := reporting.GroupBy(strings.TrimSpace(q.Get("groupBy")))
	if groupBy == "" {
		groupBy = reporting.GroupByMonth
	}
	if groupBy != reporting.GroupByMonth && groupBy != reporting.GroupByQuarter {
		return reporting.Filters{}, fmt.Errorf("groupBy must be month or quarter")
	}

	from, err := parseDate(q.Get("from"))
	if err != nil {
		return reporting.Filters{}, fmt.Errorf("from must be YYYY-MM-DD")
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		return reporting.Filters{}, fmt.Errorf("to must be YYYY-MM-DD")
	}
	if from.IsZero() || to.IsZero() {
		return reporting.Filters{}, fmt.Errorf("from and to are required")
	}
	if from.After(to) {
		return reporting.Filters{}, fmt.Errorf("from must not be after to")
	}

	return reporting.Filters{
		GroupBy: groupBy,
		Branch:  strings.TrimSpace(q.Get("branch")),
		From:    from,
		To:      to,
	}, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", value, time.UTC)
}
