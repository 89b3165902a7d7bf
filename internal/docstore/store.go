// Package docstore defines the persistence collaborator for business
// documents and sequence counters, with Postgres, Redis, and in-memory
// implementations.
package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/meridian-energy/meridian-docs/internal/money"
)

// Kind tags a business document family. The same tag keys sequence counters,
// derivation tables, and stored records.
type Kind string

const (
	KindQuotation       Kind = "quotation"
	KindDeliveryNote    Kind = "delivery_note"
	KindPreInstallation Kind = "pre_installation"
	KindInvoice         Kind = "invoice"
	KindFollowup        Kind = "followup"
	KindEquipmentTest   Kind = "equipment_test"
	KindSiteInspection  Kind = "site_inspection"
	KindSalesContract   Kind = "sales_contract"
	KindExpenseVoucher  Kind = "expense_voucher"
)

// Kinds lists every known document kind.
func Kinds() []Kind {
	return []Kind{
		KindQuotation,
		KindDeliveryNote,
		KindPreInstallation,
		KindInvoice,
		KindFollowup,
		KindEquipmentTest,
		KindSiteInspection,
		KindSalesContract,
		KindExpenseVoucher,
	}
}

// Known reports whether the tag is a recognized kind.
func Known(kind Kind) bool {
	for _, k := range Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

var (
	// ErrNotFound indicates the referenced document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrConflict indicates a conflicting concurrent write. Counter callers
	// may retry; document writers must not.
	ErrConflict = errors.New("docstore: conflicting write")
)

// Document is one persisted business record. Fields carries the
// heterogeneous per-kind field bag; the typed columns are the minimum every
// kind shares.
type Document struct {
	ID        string           `json:"id"`
	Kind      Kind             `json:"kind"`
	Number    string           `json:"number"`
	PeriodKey string           `json:"periodKey"`
	Date      time.Time        `json:"date"`
	Branch    string           `json:"branch"`
	Currency  string           `json:"currency"`
	Fields    map[string]any   `json:"fields"`
	Lines     []money.LineItem `json:"lines"`
	Totals    money.Totals     `json:"totals"`
	CreatedAt time.Time        `json:"createdAt"`
}

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	Kinds  []Kind
	From   time.Time
	To     time.Time
	Branch string
}

// Store is the document persistence contract consumed by derivation and
// reporting.
type Store interface {
	Get(ctx context.Context, kind Kind, id string) (*Document, error)
	Put(ctx context.Context, doc *Document) error
	List(ctx context.Context, filter ListFilter) ([]Document, error)
}

// CounterStore issues sequence values. Increment must be atomic: two
// concurrent calls for the same key never observe the same value.
type CounterStore interface {
	Current(ctx context.Context, docType, periodKey string) (int64, error)
	Increment(ctx context.Context, docType, periodKey string) (int64, error)
}
