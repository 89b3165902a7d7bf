package derivation

import (
	"errors"
	"testing"

	"github.com/meridian-energy/meridian-docs/internal/docstore"
	"github.com/meridian-energy/meridian-docs/internal/money"
)

func quotationFixture() *docstore.Document {
	return &docstore.Document{
		ID:       "q-1",
		Kind:     docstore.KindQuotation,
		Number:   "QTN-2026-014",
		Branch:   "bangkok",
		Currency: "THB",
		Fields: map[string]any{
			"customer_name": "Somchai Engineering",
			"phone":         "+66 2 555 0101",
			"site_address":  "88 Rama IV Rd, Bangkok",
			"project_title": "Rooftop GHP retrofit",
			"tax_rate":      "7",
			"items": []any{
				map[string]any{
					"item_name":  "GHP outdoor unit",
					"qty":        "2",
					"unit_price": "฿120,000",
				},
				map[string]any{
					"description": "Piping works",
					"quantity":    1.0,
					"unit_price":  35000.0,
					"line_total":  30000.0, // manually discounted total
				},
			},
		},
	}
}

func TestDeriveQuotationToInvoice(t *testing.T) {
	mapper := NewMapper(10)
	draft, err := mapper.Derive(quotationFixture(), docstore.KindInvoice)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	if draft.Kind != docstore.KindInvoice {
		t.Fatalf("draft kind = %s", draft.Kind)
	}
	if got := draft.Fields["customerName"]; got != "Somchai Engineering" {
		t.Fatalf("customerName = %v", got)
	}
	if got := draft.Fields["customerContact"]; got != "+66 2 555 0101" {
		t.Fatalf("contact must resolve through the phone alias, got %v", got)
	}
	if len(draft.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(draft.Lines))
	}

	// numeric strings with currency symbols parse tolerantly
	if draft.Lines[0].Quantity != 2 || draft.Lines[0].UnitPrice != 120000 {
		t.Fatalf("line 0 not parsed: %+v", draft.Lines[0])
	}
	if draft.Lines[0].LineTotal != 240000 {
		t.Fatalf("line 0 total must be qty × price, got %v", draft.Lines[0].LineTotal)
	}
	// explicit source total is trusted over qty × price
	if draft.Lines[1].LineTotal != 30000 {
		t.Fatalf("manual line total must survive, got %v", draft.Lines[1].LineTotal)
	}

	// tax rate comes from the source, not the default
	if draft.Totals.TaxRate != 7 {
		t.Fatalf("tax rate = %v, want 7", draft.Totals.TaxRate)
	}
	wantSubtotal := money.Round2(240000 + 30000)
	if draft.Totals.Subtotal != wantSubtotal {
		t.Fatalf("subtotal = %v, want %v", draft.Totals.Subtotal, wantSubtotal)
	}
	if draft.Totals.GrandTotal != draft.Totals.Subtotal+draft.Totals.TaxAmount {
		t.Fatalf("grand total mismatch: %+v", draft.Totals)
	}

	if draft.SourceNumber != "QTN-2026-014" || draft.Currency != "THB" {
		t.Fatalf("source identity lost: %+v", draft)
	}
	if draft.Note == "" {
		t.Fatal("derived note must be generated")
	}
}

func TestDeriveCompletenessOnMinimalSource(t *testing.T) {
	for _, pair := range Supported() {
		source := &docstore.Document{
			ID:     "min-1",
			Kind:   pair.Source,
			Number: "X-2026-001",
			Fields: map[string]any{},
		}
		mapper := NewMapper(10)
		draft, err := mapper.Derive(source, pair.Target)
		if err != nil {
			t.Fatalf("%s: derive: %v", pair, err)
		}
		table := derivations[pair]
		if len(draft.Fields) != len(table.fields) {
			t.Fatalf("%s: draft must be fully shaped, got %d of %d fields", pair, len(draft.Fields), len(table.fields))
		}
		for _, rule := range table.fields {
			value, present := draft.Fields[rule.target]
			if !present || value == nil {
				t.Fatalf("%s: field %s missing or nil in minimal draft", pair, rule.target)
			}
		}
		if len(draft.Unresolved) != len(table.fields) {
			t.Fatalf("%s: all fields should be reported unresolved, got %v", pair, draft.Unresolved)
		}
	}
}

func TestDeriveUnsupportedPair(t *testing.T) {
	mapper := NewMapper(10)
	source := &docstore.Document{Kind: docstore.KindFollowup, Fields: map[string]any{}}
	_, err := mapper.Derive(source, docstore.KindQuotation)
	if !errors.Is(err, ErrUnsupportedDerivation) {
		t.Fatalf("expected ErrUnsupportedDerivation, got %v", err)
	}
}

func TestDeriveUnparseableNumberDefaultsToZero(t *testing.T) {
	mapper := NewMapper(10)
	source := &docstore.Document{
		Kind: docstore.KindQuotation,
		Fields: map[string]any{
			"discount": "call us",
		},
	}
	draft, err := mapper.Derive(source, docstore.KindInvoice)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if got := draft.Fields["discount"]; got != 0.0 {
		t.Fatalf("unparseable numeric must default to 0, got %v", got)
	}
}

func TestDeriveTotalsMatchDirectComputation(t *testing.T) {
	// The same rounding function runs on both paths, so totals computed on
	// the source lines directly must equal totals on the derived draft.
	source := &docstore.Document{
		Kind:     docstore.KindQuotation,
		Currency: "KRW",
		Fields: map[string]any{
			"tax_rate": 7.0,
			"items": []any{
				map[string]any{"item_name": "unit", "qty": 3.0, "unit_price": 1000.555},
			},
		},
	}
	direct := money.ComputeTotals([]money.LineItem{
		money.NewLineItem("unit", 3, 1000.555, nil),
	}, 7)

	draft, err := NewMapper(10).Derive(source, docstore.KindInvoice)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if draft.Totals.GrandTotal != direct.GrandTotal {
		t.Fatalf("rounding drift: derived %v vs direct %v", draft.Totals.GrandTotal, direct.GrandTotal)
	}
}

func TestDeriveFallsBackToCanonicalLines(t *testing.T) {
	source := &docstore.Document{
		Kind:     docstore.KindDeliveryNote,
		Number:   "DSC-2026-010",
		Currency: "VND",
		Fields:   map[string]any{"receiver_name": "Linh HVAC"},
		Lines: []money.LineItem{
			{Description: "Indoor unit", Quantity: 4, UnitPrice: 500, LineTotal: 2000},
		},
	}
	draft, err := NewMapper(10).Derive(source, docstore.KindInvoice)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(draft.Lines) != 1 || draft.Lines[0].LineTotal != 2000 {
		t.Fatalf("canonical lines must carry over, got %+v", draft.Lines)
	}
}

func TestSupportedIsStableAndNonEmpty(t *testing.T) {
	first := Supported()
	second := Supported()
	if len(first) == 0 {
		t.Fatal("at least one derivation pair must be supported")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("catalog order must be stable: %v vs %v", first, second)
		}
	}
}
