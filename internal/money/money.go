// Package money holds the single rounding policy and totals arithmetic
// shared by document creation, derivation, and period aggregation.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedLineItem indicates a line item rejected under strict checking.
var ErrMalformedLineItem = errors.New("money: malformed line item")

// LineItem is one priced row of a business document.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

// Totals carries the monetary summary of a line-item collection.
type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	TaxRate    float64 `json:"taxRate"`
	TaxAmount  float64 `json:"taxAmount"`
	GrandTotal float64 `json:"grandTotal"`
}

// Round2 rounds to two decimal places, half away from zero. Every amount in
// the system passes through this one function; repeated derivation must not
// drift, so no caller is allowed a private rounding rule.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return -math.Floor(-v*100+0.5) / 100
	}
	return math.Floor(v*100+0.5) / 100
}

// NewLineItem builds a normalized line. Negative quantities and prices are
// clamped to zero. An explicit total from the source document is trusted
// as-is (manual overrides survive derivation); otherwise the total is
// quantity times unit price under Round2.
func NewLineItem(description string, quantity, unitPrice float64, explicitTotal *float64) LineItem {
	if quantity < 0 || math.IsNaN(quantity) {
		quantity = 0
	}
	if unitPrice < 0 || math.IsNaN(unitPrice) {
		unitPrice = 0
	}
	item := LineItem{Description: description, Quantity: quantity, UnitPrice: unitPrice}
	if explicitTotal != nil && *explicitTotal >= 0 && !math.IsNaN(*explicitTotal) {
		item.LineTotal = Round2(*explicitTotal)
		return item
	}
	item.LineTotal = Round2(quantity * unitPrice)
	return item
}

// ComputeTotals sums line totals and applies the tax rate. Pure and
// idempotent: identical input yields bit-identical output. An empty list
// yields all-zero totals, not an error.
func ComputeTotals(items []LineItem, taxRatePercent float64) Totals {
	if taxRatePercent < 0 || math.IsNaN(taxRatePercent) {
		taxRatePercent = 0
	}
	var sum float64
	for _, item := range items {
		if item.LineTotal > 0 {
			sum += item.LineTotal
		}
	}
	subtotal := Round2(sum)
	taxAmount := Round2(subtotal * taxRatePercent / 100)
	return Totals{
		Subtotal:   subtotal,
		TaxRate:    taxRatePercent,
		TaxAmount:  taxAmount,
		GrandTotal: subtotal + taxAmount,
	}
}

// CheckLine validates a line under strict mode. The default pipeline coerces
// instead of failing; strict callers surface the defect.
func CheckLine(item LineItem) error {
	switch {
	case item.Quantity < 0:
		return fmt.Errorf("%w: negative quantity %v", ErrMalformedLineItem, item.Quantity)
	case item.UnitPrice < 0:
		return fmt.Errorf("%w: negative unit price %v", ErrMalformedLineItem, item.UnitPrice)
	case item.LineTotal < 0:
		return fmt.Errorf("%w: negative line total %v", ErrMalformedLineItem, item.LineTotal)
	case math.IsNaN(item.Quantity) || math.IsNaN(item.UnitPrice) || math.IsNaN(item.LineTotal):
		return fmt.Errorf("%w: non-numeric value", ErrMalformedLineItem)
	}
	return nil
}

// ParseAmount reads a monetary amount from free-form text. Currency symbols,
// ISO codes, and thousands separators are stripped. Returns false when
// nothing numeric remains; callers default to zero rather than erroring.
func ParseAmount(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == ',', r == ' ', r == '_':
			// thousands separators
		default:
			// currency symbols and ISO code letters
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
