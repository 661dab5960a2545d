package cart

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopstream/storefront/internal/errors"
	"github.com/shopstream/storefront/internal/models"
)

// Gateway is the slice of the shop gateway the cart store needs.
type Gateway interface {
	FetchCart(ctx context.Context) (*models.Cart, error)
	AddCartItem(ctx context.Context, input *models.AddItemInput) (*models.CartItem, error)
	UpdateCartItem(ctx context.Context, itemID uuid.UUID, input *models.UpdateQuantityInput) (*models.CartItem, error)
	RemoveCartItem(ctx context.Context, itemID uuid.UUID) error
	ClearCart(ctx context.Context) error
}

type Authenticator interface {
	Authenticated() bool
}

// Store is the single source of truth for the signed-in user's cart. Every
// mutation is remote-first: the write goes to the gateway, then the whole
// cart is refetched. Prices, stock and currency are server-computed, so local
// state is only ever replaced wholesale, never patched.
type Store struct {
	mu       sync.Mutex
	gateway  Gateway
	auth     Authenticator
	validate *validator.Validate

	current *models.Cart
}

func NewStore(gw Gateway, auth Authenticator) *Store {
	return &Store{
		gateway:  gw,
		auth:     auth,
		validate: validator.New(),
	}
}

// FetchCart loads the full cart. Without a signed-in user this resets local
// state and reports nothing to show.
func (s *Store) FetchCart(ctx context.Context) (*models.Cart, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.auth.Authenticated() {
		s.current = nil

		return nil, nil
	}

	return s.reload(ctx)
}

func (s *Store) AddItem(ctx context.Context, productID uuid.UUID, quantity int) (*models.Cart, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.auth.Authenticated() {
		return nil, errors.UnauthenticatedError("Sign in to add items to your cart")
	}

	input := &models.AddItemInput{ProductID: productID, Quantity: quantity}

	if err := s.validate.Struct(input); err != nil {
		return nil, errors.ValidationError("Quantity must be at least 1").WithError(err)
	}

	if _, err := s.gateway.AddCartItem(ctx, input); err != nil {
		return nil, err
	}

	return s.reload(ctx)
}

// UpdateQuantity rejects a zero quantity before any network call; removing an
// item is an explicit RemoveItem, never a zero-quantity update.
func (s *Store) UpdateQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (*models.Cart, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.auth.Authenticated() {
		return nil, errors.UnauthenticatedError("Sign in to change your cart")
	}

	input := &models.UpdateQuantityInput{Quantity: quantity}

	if err := s.validate.Struct(input); err != nil {
		return nil, errors.ValidationError("Quantity must be at least 1").WithError(err)
	}

	if _, err := s.gateway.UpdateCartItem(ctx, itemID, input); err != nil {
		return nil, err
	}

	return s.reload(ctx)
}

func (s *Store) RemoveItem(ctx context.Context, itemID uuid.UUID) (*models.Cart, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.auth.Authenticated() {
		return nil, errors.UnauthenticatedError("Sign in to change your cart")
	}

	if err := s.gateway.RemoveCartItem(ctx, itemID); err != nil {
		return nil, err
	}

	return s.reload(ctx)
}

// ClearCart empties the cart remotely; the follow-up reload yields an empty
// cart rather than dropping local state directly.
func (s *Store) ClearCart(ctx context.Context) (*models.Cart, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.ID == uuid.Nil {
		return nil, errors.ValidationError("There is no cart to clear").WithDetail("NoCartToClear")
	}

	if err := s.gateway.ClearCart(ctx); err != nil {
		return nil, err
	}

	return s.reload(ctx)
}

// Current returns a snapshot copy; views never get a reference they could
// mutate behind the store's back.
func (s *Store) Current() *models.Cart {

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

// Items maps the cart into order-creation inputs for checkout.
func (s *Store) Items() []models.OrderItemInput {

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}

	items := make([]models.OrderItemInput, 0, len(s.current.Items))

	for _, item := range s.current.Items {
		items = append(items, models.OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	return items
}

// reload replaces local state with the gateway's view. Callers hold the lock.
func (s *Store) reload(ctx context.Context) (*models.Cart, error) {

	cart, err := s.gateway.FetchCart(ctx)
	if err != nil {
		return nil, err
	}

	s.current = cart

	return s.snapshot(), nil
}

func (s *Store) snapshot() *models.Cart {

	if s.current == nil {
		return nil
	}

	copied := *s.current
	copied.Items = make([]models.CartItem, len(s.current.Items))
	copy(copied.Items, s.current.Items)

	return &copied
}
