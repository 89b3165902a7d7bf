// Package numbering allocates unique, human-readable document numbers
// scoped to a calendar period per document type.
package numbering

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
)

var (
	// ErrInvalidDocumentType indicates an unrecognized type tag.
	ErrInvalidDocumentType = errors.New("numbering: invalid document type")
	// ErrAllocationConflict indicates the counter store kept conflicting
	// after the retry budget was spent. The caller may retry the request.
	ErrAllocationConflict = errors.New("numbering: allocation conflict")
)

// Granularity controls how often a type's counter resets.
type Granularity string

const (
	// GranularityDaily resets the counter every calendar day.
	GranularityDaily Granularity = "daily"
	// GranularityYearly resets the counter every calendar year.
	GranularityYearly Granularity = "yearly"
)

type typeSpec struct {
	prefix      string
	granularity Granularity
}

// Trade documents restart daily; long-lived engineering records restart
// yearly. The prefix is fixed per type and appears on printed documents, so
// entries here are append-only.
var typeSpecs = map[docstore.Kind]typeSpec{
	docstore.KindInvoice:         {prefix: "INV", granularity: GranularityDaily},
	docstore.KindQuotation:       {prefix: "QTN", granularity: GranularityDaily},
	docstore.KindDeliveryNote:    {prefix: "DSC", granularity: GranularityDaily},
	docstore.KindFollowup:        {prefix: "FUP", granularity: GranularityDaily},
	docstore.KindPreInstallation: {prefix: "PRE", granularity: GranularityDaily},
	docstore.KindExpenseVoucher:  {prefix: "EXP", granularity: GranularityDaily},
	docstore.KindEquipmentTest:   {prefix: "TST", granularity: GranularityYearly},
	docstore.KindSiteInspection:  {prefix: "ISP", granularity: GranularityYearly},
	docstore.KindSalesContract:   {prefix: "CTR", granularity: GranularityYearly},
}

// DocumentTypes lists every type the allocator recognizes, sorted.
func DocumentTypes() []docstore.Kind {
	types := make([]docstore.Kind, 0, len(typeSpecs))
	for kind := range typeSpecs {
		types = append(types, kind)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// PeriodKey derives the counter bucket for a type at the reference date.
func PeriodKey(docType docstore.Kind, ref time.Time) (string, error) {
	spec, ok := typeSpecs[docType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidDocumentType, docType)
	}
	ref = ref.UTC()
	switch spec.granularity {
	case GranularityDaily:
		return ref.Format("2006-01-02"), nil
	default:
		return ref.Format("2006"), nil
	}
}

// periodLabel is the human-facing period fragment of the number. Labels
// carry the year regardless of counter granularity: the printed form is
// INV-2026-001 even though invoice counters reset daily.
func periodLabel(ref time.Time) string {
	return ref.UTC().Format("2006")
}

// FormatNumber renders the printed document number. The sequence is padded
// to three digits and simply grows wider past 999.
func FormatNumber(docType docstore.Kind, ref time.Time, sequence int64) (string, error) {
	spec, ok := typeSpecs[docType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidDocumentType, docType)
	}
	return fmt.Sprintf("%s-%s-%03d", spec.prefix, periodLabel(ref), sequence), nil
}
