package checkout

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopstream/storefront/internal/errors"
	"github.com/shopstream/storefront/internal/models"
)

type Step int

const (
	StepAddress Step = iota + 1
	StepPayment
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepAddress:
		return "address"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	default:
		return "unknown"
	}
}

// CartStore is the slice of the cart store the flow needs.
type CartStore interface {
	Items() []models.OrderItemInput
	ClearCart(ctx context.Context) (*models.Cart, error)
}

// OrderCoordinator is the slice of the order coordinator the flow needs.
type OrderCoordinator interface {
	CreateOrder(ctx context.Context, items []models.OrderItemInput) (*models.Order, error)
	AttachShippingAddress(ctx context.Context, orderID uuid.UUID, input *models.ShippingAddressInput) (*models.ShippingAddress, error)
	AttachPayment(ctx context.Context, orderID uuid.UUID, input *models.PaymentInput) (*models.Payment, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Current() *models.Order
	ClearCurrentOrder()
}

// Profile supplies the saved address for the one-shot pre-fill.
type Profile interface {
	ProfileAddress() *models.ShippingAddress
}

// Flow sequences the three checkout steps: address, payment, review. It
// guarantees a draft order exists before any step runs, creates that order at
// most once per session, and serializes submissions so a double-clicked
// Continue cannot issue the same mutation twice.
type Flow struct {
	mu        sync.Mutex
	carts     CartStore
	orders    OrderCoordinator
	profile   Profile
	providers map[models.PaymentProvider]bool

	step Step

	// orderRequested gates order creation. The current order stays nil until
	// the first create resolves, so gating on nil-ness alone would let a
	// re-render issue a second create while the first is still in flight.
	orderRequested bool

	// submitting is the in-flight latch standing in for a disabled button.
	submitting bool
}

func NewFlow(carts CartStore, orders OrderCoordinator, profile Profile, providers []string) *Flow {

	enabled := make(map[models.PaymentProvider]bool, len(providers))

	for _, p := range providers {
		if provider, ok := models.ParsePaymentProvider(p); ok {
			enabled[provider] = true
		} else {
			slog.Warn("Ignoring unknown payment provider in config", slog.String("provider", p))
		}
	}

	return &Flow{
		carts:     carts,
		orders:    orders,
		profile:   profile,
		providers: enabled,
		step:      StepAddress,
	}
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.step
}

// Providers lists the payment options offered at step 2.
func (f *Flow) Providers() []models.PaymentProvider {

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.PaymentProvider, 0, len(f.providers))

	for _, p := range []models.PaymentProvider{
		models.ProviderCashOnDelivery,
		models.ProviderCard,
		models.ProviderPayPal,
		models.ProviderMomo,
	} {
		if f.providers[p] {
			out = append(out, p)
		}
	}

	return out
}

// Start enters the flow: with a non-empty cart and no order yet requested, it
// creates the draft order exactly once. Re-entering while the first create is
// still pending is a no-op.
func (f *Flow) Start(ctx context.Context) error {

	f.mu.Lock()

	if f.orderRequested {
		f.mu.Unlock()

		return nil
	}

	items := f.carts.Items()

	if len(items) == 0 {
		f.mu.Unlock()

		return errors.ValidationError("Your cart is empty")
	}

	f.orderRequested = true
	f.step = StepAddress
	f.mu.Unlock()

	_, err := f.orders.CreateOrder(ctx, items)

	if err != nil {
		f.mu.Lock()
		// Creation failed outright, so a retry is allowed to ask again.
		f.orderRequested = false
		f.mu.Unlock()

		return f.surface(err)
	}

	return nil
}

// SubmitAddress runs step 1 and advances to the payment step on success.
func (f *Flow) SubmitAddress(ctx context.Context, input *models.ShippingAddressInput) error {

	release, err := f.beginSubmit(StepAddress)
	if err != nil {
		return err
	}
	defer release()

	current := f.orders.Current()
	if current == nil {
		return errors.ConflictError("No order is being checked out")
	}

	if _, err := f.orders.AttachShippingAddress(ctx, current.ID, input); err != nil {
		return f.surface(err)
	}

	f.advance(StepPayment)

	return nil
}

// SubmitPayment runs step 2 and advances to review on success. The provider
// must be one of the configured options.
func (f *Flow) SubmitPayment(ctx context.Context, provider models.PaymentProvider, method string) error {

	release, err := f.beginSubmit(StepPayment)
	if err != nil {
		return err
	}
	defer release()

	f.mu.Lock()
	allowed := f.providers[provider]
	f.mu.Unlock()

	if !allowed {
		return errors.ValidationError("Select a payment method to continue")
	}

	current := f.orders.Current()
	if current == nil {
		return errors.ConflictError("No order is being checked out")
	}

	input := &models.PaymentInput{Provider: provider, Method: method}

	if _, err := f.orders.AttachPayment(ctx, current.ID, input); err != nil {
		return f.surface(err)
	}

	f.advance(StepReview)

	return nil
}

// PlaceOrder finishes the checkout. The order is already durable server-side;
// the only work left is clearing the cart and releasing the current-order
// slot. The placed order is returned for the confirmation view.
func (f *Flow) PlaceOrder(ctx context.Context) (*models.Order, error) {

	release, err := f.beginSubmit(StepReview)
	if err != nil {
		return nil, err
	}
	defer release()

	placed := f.orders.Current()
	if placed == nil {
		return nil, errors.ConflictError("No order is being checked out")
	}

	if placed.ShippingAddress == nil || placed.Payment == nil {
		return nil, errors.ConflictError("The order is missing an address or payment")
	}

	if _, err := f.carts.ClearCart(ctx); err != nil {
		return nil, f.surface(err)
	}

	f.orders.ClearCurrentOrder()
	f.reset()

	slog.Info("Order placed", slog.String("orderId", placed.ID.String()))

	return placed, nil
}

// Back moves exactly one step backward. It never re-triggers order creation
// and is a no-op on the first step.
func (f *Flow) Back() {

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step > StepAddress {
		f.step--
	}
}

// Abandon ends the session without placing the order. A draft that never got
// a payment is canceled best-effort; the server reaps whatever this misses.
func (f *Flow) Abandon(ctx context.Context) {

	current := f.orders.Current()

	if current != nil && current.Status == models.OrderStatusPending && current.Payment == nil {
		if _, err := f.orders.CancelOrder(ctx, current.ID); err != nil {
			slog.Warn("Abandoned draft order could not be canceled",
				slog.String("orderId", current.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	f.orders.ClearCurrentOrder()
	f.reset()
}

// UseProfileAddress copies the saved profile address into a fresh form input.
// It is a one-shot copy on explicit request, never a continuous sync, so it
// cannot clobber edits the user already typed.
func (f *Flow) UseProfileAddress() *models.ShippingAddressInput {

	addr := f.profile.ProfileAddress()
	if addr == nil {
		return nil
	}

	return &models.ShippingAddressInput{
		FullName:    addr.FullName,
		Phone:       addr.Phone,
		AddressLine: addr.AddressLine,
		City:        addr.City,
		PostalCode:  addr.PostalCode,
		Country:     addr.Country,
	}
}

// beginSubmit acquires the in-flight latch for a step submission. A second
// submission while one is pending fails fast, like a disabled submit button.
func (f *Flow) beginSubmit(step Step) (func(), error) {

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != step {
		return nil, errors.ConflictError("This checkout step is not active")
	}

	if f.submitting {
		return nil, errors.ConflictError("A submission is already in progress")
	}

	f.submitting = true

	return func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}, nil
}

func (f *Flow) advance(next Step) {

	f.mu.Lock()
	defer f.mu.Unlock()

	if next > f.step {
		f.step = next
	}
}

func (f *Flow) reset() {

	f.mu.Lock()
	defer f.mu.Unlock()

	f.step = StepAddress
	f.orderRequested = false
}

// surface inspects a failure before handing it to the caller. An
// authentication lapse ends the checkout session: the cart survives
// server-side, but the draft slot is released so a later checkout starts
// clean after sign-in.
func (f *Flow) surface(err error) error {

	if appErr, ok := errors.IsAppError(err); ok && appErr.Code == errors.ErrCodeUnauthenticated {
		f.orders.ClearCurrentOrder()
		f.reset()
	}

	return err
}
