package numbering

import (
	"errors"
	"testing"
	"time"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
)

func TestPeriodKeyGranularity(t *testing.T) {
	ref := time.Date(2026, 2, 15, 9, 30, 0, 0, time.UTC)

	daily, err := PeriodKey(docstore.KindInvoice, ref)
	if err != nil {
		t.Fatalf("period key: %v", err)
	}
	if daily != "2026-02-15" {
		t.Fatalf("invoice counters are daily, got key %q", daily)
	}

	yearly, err := PeriodKey(docstore.KindEquipmentTest, ref)
	if err != nil {
		t.Fatalf("period key: %v", err)
	}
	if yearly != "2026" {
		t.Fatalf("equipment test counters are yearly, got key %q", yearly)
	}
}

func TestPeriodKeyRejectsUnknownType(t *testing.T) {
	_, err := PeriodKey(docstore.Kind("timesheet"), time.Now())
	if !errors.Is(err, ErrInvalidDocumentType) {
		t.Fatalf("expected ErrInvalidDocumentType, got %v", err)
	}
}

func TestFormatNumberPadding(t *testing.T) {
	ref := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	number, err := FormatNumber(docstore.KindInvoice, ref, 1)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if number != "INV-2026-001" {
		t.Fatalf("got %q, want INV-2026-001", number)
	}

	wide, err := FormatNumber(docstore.KindInvoice, ref, 1234)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if wide != "INV-2026-1234" {
		t.Fatalf("sequence must grow past the padding, got %q", wide)
	}
}

func TestDocumentTypesSortedAndComplete(t *testing.T) {
	types := DocumentTypes()
	if len(types) != len(docstore.Kinds()) {
		t.Fatalf("every kind needs a numbering spec: %d vs %d", len(types), len(docstore.Kinds()))
	}
	for i := 1; i < len(types); i++ {
		if types[i-1] >= types[i] {
			t.Fatalf("types not sorted: %v", types)
		}
	}
}
