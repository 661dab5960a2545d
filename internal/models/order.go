package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCanceled   OrderStatus = "canceled"
)

// IsTerminal reports whether no further status transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusShipped || s == OrderStatusDelivered || s == OrderStatusCanceled
}

// Cancelable reports whether the order may still be canceled by the customer.
func (s OrderStatus) Cancelable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// CanTransitionTo encodes the order lifecycle:
//
//	pending -> processing -> shipped -> delivered
//	pending/processing -> canceled
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusProcessing || next == OrderStatusCanceled
	case OrderStatusProcessing:
		return next == OrderStatusShipped || next == OrderStatusCanceled
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	default:
		return false
	}
}

// ShippingAddress is one-to-one with an order and always replaced wholesale;
// there is no partial-field patch.
type ShippingAddress struct {
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
}

type ShippingAddressInput struct {
	FullName    string `json:"full_name"    validate:"required"`
	Phone       string `json:"phone"        validate:"required"`
	AddressLine string `json:"address_line" validate:"required"`
	City        string `json:"city"         validate:"required"`
	PostalCode  string `json:"postal_code"  validate:"required"`
	Country     string `json:"country"      validate:"required"`
}

// OrderItem is a snapshot taken at order creation. Monetary fields and the
// denormalized product name/image are fixed then and never recomputed from
// live product data.
type OrderItem struct {
	ID           uuid.UUID       `json:"id"`
	OrderID      uuid.UUID       `json:"order_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Discount     decimal.Decimal `json:"discount"`
	Tax          decimal.Decimal `json:"tax"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	Status          OrderStatus      `json:"status"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	Tax             decimal.Decimal  `json:"tax"`
	Discount        decimal.Decimal  `json:"discount"`
	ShippingFee     decimal.Decimal  `json:"shipping_fee"`
	Total           decimal.Decimal  `json:"total"`
	Items           []OrderItem      `json:"items"`
	ShippingAddress *ShippingAddress `json:"shipping_address,omitempty"`
	Payment         *Payment         `json:"payment,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type OrderItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"   validate:"required,min=1"`
}

type CreateOrderInput struct {
	Items []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}
