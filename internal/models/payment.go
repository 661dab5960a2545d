package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// CanTransitionTo encodes the payment lifecycle observed from the gateway:
// pending -> paid|failed, paid -> refunded. The client only ever creates a
// payment in pending.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusPaid || next == PaymentStatusFailed
	case PaymentStatusPaid:
		return next == PaymentStatusRefunded
	default:
		return false
	}
}

// PaymentProvider is a closed set. Free-text providers are rejected before
// anything reaches the gateway.
type PaymentProvider string

const (
	ProviderCashOnDelivery PaymentProvider = "cod"
	ProviderCard           PaymentProvider = "card"
	ProviderPayPal         PaymentProvider = "paypal"
	ProviderMomo           PaymentProvider = "momo"
)

func ParsePaymentProvider(s string) (PaymentProvider, bool) {
	switch PaymentProvider(s) {
	case ProviderCashOnDelivery, ProviderCard, ProviderPayPal, ProviderMomo:
		return PaymentProvider(s), true
	default:
		return "", false
	}
}

type Payment struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Provider      PaymentProvider `json:"provider"`
	Method        string          `json:"method,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Status        PaymentStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type PaymentInput struct {
	Provider PaymentProvider `json:"provider" validate:"required,oneof=cod card paypal momo"`
	Method   string          `json:"method"   validate:"required"`
}

type PaymentStatusInput struct {
	Status        PaymentStatus `json:"status" validate:"required,oneof=pending paid failed refunded"`
	TransactionID string        `json:"transaction_id,omitempty"`
}
