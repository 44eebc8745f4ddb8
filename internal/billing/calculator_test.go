package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinidesk/frontdesk-api/internal/model"
	"github.com/clinidesk/frontdesk-api/pkg/errors"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"plain integer", "200", 200},
		{"decimal", "49.50", 49.5},
		{"padded", "  15 ", 15},
		{"blank", "", 0},
		{"whitespace", "   ", 0},
		{"garbage", "abc", 0},
		{"negative passes through", "-5", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAmount(tt.input))
		})
	}
}

func TestAddLineItem(t *testing.T) {
	items, err := AddLineItem(nil, model.LineItemRequest{Name: "Paracetamol", Quantity: 1, Rate: 0.01})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Paracetamol", items[0].Name)
	assert.Equal(t, 0.01, items[0].LineTotal)

	items, err = AddLineItem(items, model.LineItemRequest{Name: "  Ibuprofen  ", Quantity: 3, Rate: 12.5})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Ibuprofen", items[1].Name, "name is trimmed")
	assert.Equal(t, 37.5, items[1].LineTotal)
}

func TestAddLineItemValidation(t *testing.T) {
	tests := []struct {
		name      string
		candidate model.LineItemRequest
		field     string
	}{
		{"blank name", model.LineItemRequest{Name: "   ", Quantity: 1, Rate: 5}, "name"},
		{"zero quantity", model.LineItemRequest{Name: "Cetirizine", Quantity: 0, Rate: 5}, "quantity"},
		{"negative quantity", model.LineItemRequest{Name: "Cetirizine", Quantity: -2, Rate: 5}, "quantity"},
		{"zero rate", model.LineItemRequest{Name: "Cetirizine", Quantity: 1, Rate: 0}, "rate"},
		{"negative rate", model.LineItemRequest{Name: "Cetirizine", Quantity: 1, Rate: -1}, "rate"},
	}

	existing := []model.LineItem{{Name: "Syrup", Quantity: 1, Rate: 80, LineTotal: 80}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := AddLineItem(existing, tt.candidate)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
			assert.Equal(t, existing, items, "items unchanged on failure")
		})
	}
}

func TestAddLineItemDoesNotMutateInput(t *testing.T) {
	original := []model.LineItem{{Name: "Syrup", Quantity: 1, Rate: 80, LineTotal: 80}}
	grown, err := AddLineItem(original, model.LineItemRequest{Name: "Tablet", Quantity: 2, Rate: 10})
	require.NoError(t, err)
	assert.Len(t, original, 1)
	assert.Len(t, grown, 2)
}

func TestComputeInvoice(t *testing.T) {
	items := []model.LineItem{{Name: "Amoxicillin", Quantity: 2, Rate: 50}}
	inv := ComputeInvoice("200", items, "10")

	assert.Equal(t, 200.0, inv.ConsultationFee)
	assert.Equal(t, 100.0, inv.ItemsTotal)
	assert.Equal(t, 300.0, inv.Subtotal)
	assert.Equal(t, 30.0, inv.DiscountAmount)
	assert.Equal(t, 270.0, inv.TotalAmount)
	assert.Equal(t, 100.0, inv.Items[0].LineTotal)
}

func TestComputeInvoiceBlankInputs(t *testing.T) {
	inv := ComputeInvoice("", nil, "")
	assert.Zero(t, inv.ConsultationFee)
	assert.Zero(t, inv.Subtotal)
	assert.Zero(t, inv.TotalAmount)

	inv = ComputeInvoice("not-a-number", []model.LineItem{{Name: "Zinc", Quantity: 4, Rate: 2.25}}, "x")
	assert.Equal(t, 9.0, inv.ItemsTotal)
	assert.Equal(t, 9.0, inv.Subtotal, "bad fee coerces to zero")
	assert.Zero(t, inv.DiscountAmount, "bad discount coerces to zero")
	assert.Equal(t, 9.0, inv.TotalAmount)
}

func TestComputeInvoiceIdentity(t *testing.T) {
	cases := []struct {
		fee      string
		discount string
		items    []model.LineItem
	}{
		{"200", "10", []model.LineItem{{Quantity: 2, Rate: 50}}},
		{"0.1", "0", []model.LineItem{{Quantity: 1, Rate: 0.2}}},
		{"349.99", "12.5", []model.LineItem{{Quantity: 3, Rate: 33.33}, {Quantity: 7, Rate: 1.05}}},
		{"", "100", []model.LineItem{{Quantity: 9, Rate: 9.99}}},
	}

	for _, c := range cases {
		inv := ComputeInvoice(c.fee, c.items, c.discount)

		var sum float64
		for _, it := range c.items {
			sum += float64(it.Quantity) * it.Rate
		}
		// Exact identity, no tolerance: totals are built from the same
		// float accumulation the property describes.
		assert.Equal(t, ParseAmount(c.fee)+sum-inv.DiscountAmount, inv.TotalAmount)
		assert.LessOrEqual(t, inv.TotalAmount, inv.Subtotal)
	}
}

func TestComputeInvoiceDiscountNotClamped(t *testing.T) {
	inv := ComputeInvoice("100", nil, "150")
	assert.Equal(t, 150.0, inv.DiscountAmount)
	assert.Equal(t, -50.0, inv.TotalAmount, "out-of-range discount is the boundary's problem")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "270.00", FormatAmount(270))
	assert.Equal(t, "37.50", FormatAmount(37.5))
	assert.Equal(t, "0.30", FormatAmount(0.1+0.2), "rounding only at presentation")
}
