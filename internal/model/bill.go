package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how a bill was settled.
type PaymentMethod string

const (
	PaymentCash           PaymentMethod = "Cash"
	PaymentCard           PaymentMethod = "Card"
	PaymentUPI            PaymentMethod = "UPI"
	PaymentOnlineTransfer PaymentMethod = "Online Transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentOnlineTransfer:
		return true
	}
	return false
}

// FollowUpInterval schedules the next checkup relative to the bill date.
type FollowUpInterval string

const (
	FollowUpNone   FollowUpInterval = "Not Required"
	FollowUp3Days  FollowUpInterval = "3 Days"
	FollowUp1Week  FollowUpInterval = "1 Week"
	FollowUp2Weeks FollowUpInterval = "2 Weeks"
	FollowUp3Weeks FollowUpInterval = "3 Weeks"
	FollowUp4Weeks FollowUpInterval = "4 Weeks"
)

func (f FollowUpInterval) Valid() bool {
	switch f {
	case FollowUpNone, FollowUp3Days, FollowUp1Week, FollowUp2Weeks, FollowUp3Weeks, FollowUp4Weeks, "":
		return true
	}
	return false
}

// Duration returns the interval as a duration. The second return is
// false when no follow-up is due.
func (f FollowUpInterval) Duration() (time.Duration, bool) {
	day := 24 * time.Hour
	switch f {
	case FollowUp3Days:
		return 3 * day, true
	case FollowUp1Week:
		return 7 * day, true
	case FollowUp2Weeks:
		return 14 * day, true
	case FollowUp3Weeks:
		return 21 * day, true
	case FollowUp4Weeks:
		return 28 * day, true
	}
	return 0, false
}

// LineItem is one billed medicine or service. LineTotal is derived from
// quantity and rate, never trusted from input.
type LineItem struct {
	Name      string  `db:"name" json:"name"`
	Quantity  int     `db:"quantity" json:"quantity"`
	Rate      float64 `db:"rate" json:"rate"`
	LineTotal float64 `db:"line_total" json:"line_total"`
}

// Bill is one invoice attached to a patient token. Monetary fields are
// computed by the bill calculator; callers never supply totals.
type Bill struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	TokenID         string           `db:"token_id" json:"token_id"`
	BillNumber      string           `db:"bill_number" json:"bill_number"`
	ConsultationFee float64          `db:"consultation_fee" json:"consultation_fee"`
	Items           []LineItem       `db:"-" json:"items"`
	ItemsTotal      float64          `db:"items_total" json:"items_total"`
	Subtotal        float64          `db:"subtotal" json:"subtotal"`
	DiscountPercent float64          `db:"discount_percent" json:"discount_percent"`
	DiscountAmount  float64          `db:"discount_amount" json:"discount_amount"`
	TotalAmount     float64          `db:"total_amount" json:"total_amount"`
	PaymentMethod   PaymentMethod    `db:"payment_method" json:"payment_method"`
	FollowUp        FollowUpInterval `db:"follow_up" json:"follow_up,omitempty"`
	Notes           string           `db:"notes" json:"notes,omitempty"`
	BillDate        string           `db:"bill_date" json:"bill_date"`
	BillTime        string           `db:"bill_time" json:"bill_time"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// CreateBillRequest is the billing form payload. Fee and discount arrive
// as strings because the form is permissive: blank means zero.
type CreateBillRequest struct {
	PatientName     string            `json:"patient_name" binding:"required"`
	ConsultationFee string            `json:"consultation_fee" binding:"required"`
	Items           []LineItemRequest `json:"items"`
	DiscountPercent string            `json:"discount_percent"`
	PaymentMethod   PaymentMethod     `json:"payment_method" binding:"required"`
	FollowUp        FollowUpInterval  `json:"follow_up"`
	Notes           string            `json:"notes"`
}

// LineItemRequest is one candidate line item from the billing form.
type LineItemRequest struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Rate     float64 `json:"rate"`
}
