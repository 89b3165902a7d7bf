// Package reporting rolls stored documents up into monthly or quarterly
// sales/expense/profit buckets per branch.
package reporting

import (
	"errors"
	"fmt"
	"time"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
)

// ErrInvalidGroupBy indicates an unrecognized grouping granularity.
var ErrInvalidGroupBy = errors.New("reporting: groupBy must be month or quarter")

// GroupBy selects the period granularity.
type GroupBy string

const (
	GroupByMonth   GroupBy = "month"
	GroupByQuarter GroupBy = "quarter"
)

// Filters narrows an aggregation run. Branch empty means all branches; the
// result then still keeps one bucket stream per branch and currency, since
// figures in different currencies are never summed together.
type Filters struct {
	GroupBy GroupBy
	Branch  string
	From    time.Time
	To      time.Time
}

// Bucket is one aggregated period for one branch and currency. Margin is a
// ratio of profit to sales, zero when there are no sales.
type Bucket struct {
	Branch       string  `json:"branch"`
	Currency     string  `json:"currency"`
	Period       string  `json:"period"`
	Sales        float64 `json:"sales"`
	Expenses     float64 `json:"expenses"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profitMargin"`
	Documents    int     `json:"documents"`
}

// revenueKinds and expenseKinds classify which stored documents carry sales
// and which carry costs. Everything else is ignored by aggregation.
var revenueKinds = []docstore.Kind{docstore.KindInvoice, docstore.KindSalesContract}
var expenseKinds = []docstore.Kind{docstore.KindExpenseVoucher}

func isRevenue(kind docstore.Kind) bool {
	for _, k := range revenueKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// periodLabel buckets a date at the requested granularity.
func periodLabel(groupBy GroupBy, t time.Time) string {
	t = t.UTC()
	if groupBy == GroupByQuarter {
		quarter := (int(t.Month())-1)/3 + 1
		return fmt.Sprintf("%d-Q%d", t.Year(), quarter)
	}
	return t.Format("2006-01")
}
