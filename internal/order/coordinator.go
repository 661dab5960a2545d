package order

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopstream/storefront/internal/errors"
	"github.com/shopstream/storefront/internal/models"
)

// Gateway is the slice of the shop gateway the coordinator needs.
type Gateway interface {
	CreateOrder(ctx context.Context, input *models.CreateOrderInput) (*models.Order, error)
	FetchUserOrders(ctx context.Context) ([]models.Order, error)
	FetchOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	AttachAddress(ctx context.Context, orderID uuid.UUID, input *models.ShippingAddressInput) (*models.ShippingAddress, error)
	UpdateAddress(ctx context.Context, orderID uuid.UUID, input *models.ShippingAddressInput) (*models.ShippingAddress, error)
	CreatePayment(ctx context.Context, orderID uuid.UUID, input *models.PaymentInput) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, input *models.PaymentStatusInput) (*models.Payment, error)
	RefundPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
}

// Coordinator owns the single "current order" slot for the checkout in
// flight, plus the order history list. Only the checkout flow writes the
// slot; it is cleared when a checkout session ends so a stale order can never
// leak into a later one.
type Coordinator struct {
	mu       sync.Mutex
	gateway  Gateway
	validate *validator.Validate

	current *models.Order
	history []models.Order
}

func NewCoordinator(gw Gateway) *Coordinator {
	return &Coordinator{
		gateway:  gw,
		validate: validator.New(),
	}
}

// CreateOrder freezes the given cart items into a draft order and installs it
// as the current order.
func (c *Coordinator) CreateOrder(ctx context.Context, items []models.OrderItemInput) (*models.Order, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	input := &models.CreateOrderInput{Items: items}

	if err := c.validate.Struct(input); err != nil {
		return nil, errors.ValidationError("Cannot create an order from an empty cart").WithError(err)
	}

	order, err := c.gateway.CreateOrder(ctx, input)
	if err != nil {
		return nil, err
	}

	c.current = order

	slog.Info("Draft order created", slog.String("orderId", order.ID.String()))

	return c.snapshotCurrent(), nil
}

// AttachShippingAddress sends the full address record against the current
// order. A resend always carries every field; the gateway has no partial
// patch.
func (c *Coordinator) AttachShippingAddress(ctx context.Context, orderID uuid.UUID, input *models.ShippingAddressInput) (*models.ShippingAddress, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.ID != orderID {
		return nil, errors.ConflictError("No checkout is in progress for this order")
	}

	if err := c.validate.Struct(input); err != nil {
		return nil, errors.ValidationError("All address fields are required").WithError(err)
	}

	send := c.gateway.AttachAddress
	if c.current.ShippingAddress != nil {
		send = c.gateway.UpdateAddress
	}

	addr, err := send(ctx, orderID, input)
	if err != nil {
		return nil, err
	}

	c.current.ShippingAddress = addr

	return addr, nil
}

// AttachPayment creates the pending payment record for the current order.
// Exactly one payment exists per order; a second attach is a conflict.
func (c *Coordinator) AttachPayment(ctx context.Context, orderID uuid.UUID, input *models.PaymentInput) (*models.Payment, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.ID != orderID {
		return nil, errors.ConflictError("No checkout is in progress for this order")
	}

	if _, ok := models.ParsePaymentProvider(string(input.Provider)); !ok {
		return nil, errors.ValidationError("Select a payment method to continue")
	}

	if err := c.validate.Struct(input); err != nil {
		return nil, errors.ValidationError("Select a payment method to continue").WithError(err)
	}

	if c.current.Payment != nil {
		return nil, errors.ConflictError("A payment is already attached to this order")
	}

	payment, err := c.gateway.CreatePayment(ctx, orderID, input)
	if err != nil {
		return nil, err
	}

	c.current.Payment = payment

	return payment, nil
}

// CancelOrder forwards the cancellation unless the locally known status
// already rules it out, in which case the round-trip is skipped.
func (c *Coordinator) CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	if known := c.lookup(orderID); known != nil && !known.Status.Cancelable() {
		return nil, errors.ConflictError("This order can no longer be canceled").
			WithDetail("status=" + string(known.Status))
	}

	order, err := c.gateway.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	c.apply(order)

	slog.Info("Order canceled", slog.String("orderId", order.ID.String()))

	return order, nil
}

// FetchOrderByID refreshes the current-order state from the gateway.
func (c *Coordinator) FetchOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {

	order, err := c.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.apply(order)

	if c.current != nil && c.current.ID == order.ID {
		return c.snapshotCurrent(), nil
	}

	return order, nil
}

// FetchUserOrders refreshes the history list.
func (c *Coordinator) FetchUserOrders(ctx context.Context) ([]models.Order, error) {

	orders, err := c.gateway.FetchUserOrders(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = orders

	out := make([]models.Order, len(orders))
	copy(out, orders)

	return out, nil
}

// MarkPaymentStatus forwards an externally observed payment transition. The
// client never invents one: it rejects moves the payment lifecycle does not
// allow.
func (c *Coordinator) MarkPaymentStatus(ctx context.Context, orderID uuid.UUID, input *models.PaymentStatusInput) (*models.Payment, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validate.Struct(input); err != nil {
		return nil, errors.ValidationError("Unknown payment status").WithError(err)
	}

	if c.current != nil && c.current.ID == orderID && c.current.Payment != nil {
		from := c.current.Payment.Status
		if from != input.Status && !from.CanTransitionTo(input.Status) {
			return nil, errors.ConflictError("Payment cannot move to that status").
				WithDetail("from=" + string(from) + " to=" + string(input.Status))
		}
	}

	payment, err := c.gateway.UpdatePaymentStatus(ctx, orderID, input)
	if err != nil {
		return nil, err
	}

	if c.current != nil && c.current.ID == orderID {
		c.current.Payment = payment
	}

	return payment, nil
}

// RefundPayment is only meaningful once a payment is paid.
func (c *Coordinator) RefundPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.current.ID == orderID {
		if c.current.Payment == nil || c.current.Payment.Status != models.PaymentStatusPaid {
			return nil, errors.ConflictError("Only a paid order can be refunded")
		}
	}

	payment, err := c.gateway.RefundPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if c.current != nil && c.current.ID == orderID {
		c.current.Payment = payment
	}

	return payment, nil
}

// Current returns a snapshot of the order being checked out, or nil.
func (c *Coordinator) Current() *models.Order {

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotCurrent()
}

// ClearCurrentOrder releases the slot at the end of a checkout session,
// whether it finished or was abandoned.
func (c *Coordinator) ClearCurrentOrder() {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = nil
}

// apply merges a freshly fetched order into local state. A terminal status is
// never overwritten: a stale read must not resurrect a shipped, delivered or
// canceled order.
func (c *Coordinator) apply(order *models.Order) {

	if c.current != nil && c.current.ID == order.ID {
		if c.current.Status.IsTerminal() && order.Status != c.current.Status {
			slog.Warn("Ignoring status regression on terminal order",
				slog.String("orderId", order.ID.String()),
				slog.String("local", string(c.current.Status)),
				slog.String("fetched", string(order.Status)))

			order.Status = c.current.Status
		}

		c.current = order
	}

	for i := range c.history {
		if c.history[i].ID == order.ID {
			c.history[i] = *order

			break
		}
	}
}

// lookup finds the locally known copy of an order, if any. Callers hold the
// lock.
func (c *Coordinator) lookup(orderID uuid.UUID) *models.Order {

	if c.current != nil && c.current.ID == orderID {
		return c.current
	}

	for i := range c.history {
		if c.history[i].ID == orderID {
			return &c.history[i]
		}
	}

	return nil
}

func (c *Coordinator) snapshotCurrent() *models.Order {

	if c.current == nil {
		return nil
	}

	copied := *c.current
	copied.Items = make([]models.OrderItem, len(c.current.Items))
	copy(copied.Items, c.current.Items)

	if c.current.ShippingAddress != nil {
		addr := *c.current.ShippingAddress
		copied.ShippingAddress = &addr
	}

	if c.current.Payment != nil {
		payment := *c.current.Payment
		copied.Payment = &payment
	}

	return &copied
}
