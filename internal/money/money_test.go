package money

import (
	"errors"
	"testing"
)

func TestRound2HalfUp(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{10.004, 10.00},
		{10.006, 10.01},
		{1.235, 1.24},
		{0.1 + 0.2, 0.3},
		{-10.006, -10.01},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Fatalf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	got := ComputeTotals(nil, 7)
	if got.Subtotal != 0 || got.TaxAmount != 0 || got.GrandTotal != 0 {
		t.Fatalf("empty list must yield zero totals, got %+v", got)
	}
	if got.TaxRate != 7 {
		t.Fatalf("tax rate must be echoed back, got %v", got.TaxRate)
	}
}

func TestComputeTotalsIdempotent(t *testing.T) {
	items := []LineItem{
		NewLineItem("GHP outdoor unit", 2, 1250.50, nil),
		NewLineItem("Install labor", 1, 300.33, nil),
	}
	first := ComputeTotals(items, 10)
	second := ComputeTotals(items, 10)
	if first != second {
		t.Fatalf("totals not idempotent: %+v vs %+v", first, second)
	}
	if first.GrandTotal != first.Subtotal+first.TaxAmount {
		t.Fatalf("grand total must be subtotal + tax, got %+v", first)
	}
}

func TestNewLineItemPrefersExplicitTotal(t *testing.T) {
	override := 999.99
	item := NewLineItem("manual override", 3, 100, &override)
	if item.LineTotal != 999.99 {
		t.Fatalf("explicit total must be trusted, got %v", item.LineTotal)
	}
	computed := NewLineItem("computed", 3, 100, nil)
	if computed.LineTotal != 300 {
		t.Fatalf("computed total = %v, want 300", computed.LineTotal)
	}
}

func TestNewLineItemClampsNegatives(t *testing.T) {
	item := NewLineItem("bad input", -4, -12.5, nil)
	if item.Quantity != 0 || item.UnitPrice != 0 || item.LineTotal != 0 {
		t.Fatalf("negative inputs must clamp to zero, got %+v", item)
	}
}

func TestComputeTotalsMatchesDerivationPath(t *testing.T) {
	// The same line computed before and after a derivation round trip must
	// land on the same grand total: only Round2 is ever applied.
	direct := ComputeTotals([]LineItem{NewLineItem("unit", 3, 1000.555, nil)}, 7)

	derived := NewLineItem("unit", 3, 1000.555, nil)
	rederived := NewLineItem(derived.Description, derived.Quantity, derived.UnitPrice, &derived.LineTotal)
	again := ComputeTotals([]LineItem{rederived}, 7)

	if direct.GrandTotal != again.GrandTotal {
		t.Fatalf("double-rounding drift: %v vs %v", direct.GrandTotal, again.GrandTotal)
	}
}

func TestCheckLineStrict(t *testing.T) {
	if err := CheckLine(LineItem{Quantity: 1, UnitPrice: 2, LineTotal: 2}); err != nil {
		t.Fatalf("valid line rejected: %v", err)
	}
	err := CheckLine(LineItem{Quantity: -1})
	if !errors.Is(err, ErrMalformedLineItem) {
		t.Fatalf("expected ErrMalformedLineItem, got %v", err)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1200.50", 1200.50, true},
		{"₩1,250,000", 1250000, true},
		{"THB 45 900.25", 45900.25, true},
		{"$ 99", 99, true},
		{"-12.5", -12.5, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseAmount(%q) = %v,%v want %v,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
