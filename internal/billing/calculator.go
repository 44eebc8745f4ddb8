// Package billing turns raw billing input into a validated invoice
// breakdown. Everything here is deterministic and side-effect free.
package billing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/clinidesk/frontdesk-api/internal/model"
	"github.com/clinidesk/frontdesk-api/pkg/errors"
)

// Invoice is the computed monetary breakdown of one bill. Amounts are
// exact sums of their inputs; rounding happens only at presentation,
// via FormatAmount.
type Invoice struct {
	ConsultationFee float64
	Items           []model.LineItem
	ItemsTotal      float64
	Subtotal        float64
	DiscountPercent float64
	DiscountAmount  float64
	TotalAmount     float64
}

// ParseAmount is the documented default-substitution rule for permissive
// numeric input: blank or non-numeric values become zero instead of
// being rejected.
func ParseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// AddLineItem validates candidate and returns items with it appended.
// The input slice is never mutated; on a validation failure it is
// returned unchanged alongside the error.
func AddLineItem(items []model.LineItem, candidate model.LineItemRequest) ([]model.LineItem, error) {
	name := strings.TrimSpace(candidate.Name)
	if name == "" {
		return items, errors.Validation("name", "item name is required")
	}
	if candidate.Quantity < 1 {
		return items, errors.Validation("quantity", "quantity must be at least 1")
	}
	if candidate.Rate <= 0 {
		return items, errors.Validation("rate", "rate must be positive")
	}

	next := make([]model.LineItem, len(items), len(items)+1)
	copy(next, items)
	return append(next, model.LineItem{
		Name:      name,
		Quantity:  candidate.Quantity,
		Rate:      candidate.Rate,
		LineTotal: float64(candidate.Quantity) * candidate.Rate,
	}), nil
}

// ComputeInvoice derives all invoice totals from the consultation fee,
// line items, and discount percentage. Fee and discount pass through
// ParseAmount, so blank form input counts as zero. There is no error
// path: input validation belongs to AddLineItem and the HTTP boundary.
//
// Discount percentages outside [0,100] are accepted as-is; clamping is
// the input boundary's job, and doing it here would silently change
// caller-visible arithmetic.
func ComputeInvoice(consultationFee string, items []model.LineItem, discountPercent string) Invoice {
	fee := ParseAmount(consultationFee)
	discount := ParseAmount(discountPercent)

	var itemsTotal float64
	out := make([]model.LineItem, len(items))
	for i, item := range items {
		item.LineTotal = float64(item.Quantity) * item.Rate
		out[i] = item
		itemsTotal += item.LineTotal
	}

	subtotal := fee + itemsTotal
	discountAmount := subtotal * discount / 100
	return Invoice{
		ConsultationFee: fee,
		Items:           out,
		ItemsTotal:      itemsTotal,
		Subtotal:        subtotal,
		DiscountPercent: discount,
		DiscountAmount:  discountAmount,
		TotalAmount:     subtotal - discountAmount,
	}
}

// FormatAmount renders a monetary value rounded to two decimal places
// for display. Accumulation stays unrounded so rounding error never
// compounds across line items.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
