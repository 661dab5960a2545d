package order_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appErrors "github.com/shopstream/storefront/internal/errors"
	"github.com/shopstream/storefront/internal/models"
	"github.com/shopstream/storefront/internal/order"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateOrder(ctx context.Context, input *models.CreateOrderInput) (*models.Order, error) {
	args := m.Called(ctx, input)

	if o, ok := args.Get(0).(*models.Order); ok {
		return o, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockGateway) FetchUserOrders(ctx context.Context) ([]models.Order, error) {
	args := m.Called(ctx)

	if orders, ok := args.Get(0).([]models.Order); ok {
		return orders, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockGateway) FetchOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID)

	if o, ok := args.Get(0).(*models.Order); ok {
		return o, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockGateway) CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID)

	if o, ok := args.Get(0).(*models.Order); ok {
		return o, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockGateway) AttachAddress(ctx context.Context, orderID uuid.UUID, input *models.ShippingAddressInput) (*models.ShippingAddress, error) {
	args := m.Called(ctx, orderID, input)

	if addr, ok := args.Get(0).(*models.ShippingAddress); ok {
		return addr, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockGateway) UpdateAddress(ctx context.Context, orderID uuid.UUID, input *models.ShippingAddressInput) (*models.ShippingAddress, error) {
	args := m.Called(ctx, orderID, input)

	if addr, ok := args.Get(0).(*models.ShippingAddress); ok {
		return addr, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockGateway) CreatePayment(ctx context.Context, orderID uuid.UUID, input *models.PaymentInput) (*models.Payment, error) {
	args := m.Called(ctx, orderID, input)

	if p, ok := args.Get(0).(*models.Payment); ok {
		return p, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockGateway) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, input *models.PaymentStatusInput) (*models.Payment, error) {
	args := m.Called(ctx, orderID, input)

	if p, ok := args.Get(0).(*models.Payment); ok {
		return p, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockGateway) RefundPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, orderID)

	if p, ok := args.Get(0).(*models.Payment); ok {
		return p, args.Error(1)
	}

	return nil, args.Error(1)
}

func validAddress() *models.ShippingAddressInput {
	return &models.ShippingAddressInput{
		FullName:    "Ada Lovelace",
		Phone:       "+44 20 7946 0958",
		AddressLine: "12 Analytical Row",
		City:        "London",
		PostalCode:  "N1 9GU",
		Country:     "GB",
	}
}

// startCheckout creates a draft order on the coordinator and returns it.
func startCheckout(t *testing.T, gw *mockGateway, c *order.Coordinator, draft *models.Order) *models.Order {
	t.Helper()

	gw.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.CreateOrderInput")).Return(draft, nil).Once()

	created, err := c.CreateOrder(context.Background(), []models.OrderItemInput{{ProductID: uuid.New(), Quantity: 1}})
	require.NoError(t, err)

	return created
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Failure - Empty Item List Rejected Locally", func(t *testing.T) {
		// Arrange
		gw := &mockGateway{}
		coordinator := order.NewCoordinator(gw)

		// Act
		created, err := coordinator.CreateOrder(ctx, nil)

		// Assert
		assert.Nil(t, created)
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeValidation, appErr.Code)
		gw.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("Success - Draft Becomes Current Order", func(t *testing.T) {
		// Arrange
		// qty 2 @ $10 plus qty 1 @ $5 freezes into a $25 subtotal.
		draft := &models.Order{
			ID:       uuid.New(),
			Status:   models.OrderStatusPending,
			Subtotal: decimal.RequireFromString("25.00"),
			Items: []models.OrderItem{
				{ID: uuid.New(), Quantity: 2, UnitPrice: decimal.NewFromInt(10), Subtotal: decimal.NewFromInt(20)},
				{ID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(5), Subtotal: decimal.NewFromInt(5)},
			},
		}
		gw := &mockGateway{}
		coordinator := order.NewCoordinator(gw)

		// Act
		created := startCheckout(t, gw, coordinator, draft)

		// Assert
		assert.True(t, created.Subtotal.Equal(decimal.NewFromInt(25)))
		require.NotNil(t, coordinator.Current())
		assert.Equal(t, draft.ID, coordinator.Current().ID)
		gw.AssertExpectations(t)
	})
}

func TestAttachShippingAddress(t *testing.T) {
	ctx := context.Background()

	t.Run("Failure - Missing City Rejected Before Any Call", func(t *testing.T) {
		// Arrange
		draft := &models.Order{ID: uuid.New(), Status: models.OrderStatusPending}
		gw := &mockGateway{}
		coordinator := order.NewCoordinator(gw)
		startCheckout(t, gw, coordinator, draft)

		input := validAddress()
		input.City = ""

		// Act
		addr, err := coordinator.AttachShippingAddress(ctx, draft.ID, input)

		// Assert
		assert.Nil(t, addr)
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeValidation, appErr.Code)
		gw.AssertNotCalled(t, "AttachAddress", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure - Order Is Not The Current One", func(t *testing.T) {
		// Arrange
		gw := &mockGateway{}
		coordinator := order.NewCoordinator(gw)

		// Act
		addr, err := coordinator.AttachShippingAddress(ctx, uuid.New(), validAddress())

		// Assert
		assert.Nil(t, addr)
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeConflict, appErr.Code)
	})

	t.Run("Success - First Attach Posts, Resend Patches", func(t *testing.T) {
		// Arrange
		draft := &models.Order{ID: uuid.New(), Status: models.OrderStatusPending}
		gw := &mockGateway{}
		coordinator := order.NewCoordinator(gw)
		startCheckout(t, gw, coordinator, draft)

		input := validAddress()
		stored := &models.ShippingAddress{
			FullName:    input.FullName,
			Phone:       input.Phone,
			AddressLine: input.AddressLine,
			City:        input.City,
			PostalCode:  input.PostalCode,
			Country:     input.Country,
		}
		gw.On("AttachAddress", ctx, draft.ID, input).Return(stored, nil).Once()
		gw.On("UpdateAddress", ctx, draft.ID, input).Return(stored, nil).Once()

		// Act
		first, err1 := coordinator.AttachShippingAddress(ctx, draft.ID, input)
		second, err2 := coordinator.AttachShippingAddress(ctx, draft.ID, input)

		// Assert
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, stored, first)
		assert.Equal(t, stored, second)
		assert.Equal(t, "London", coordinator.Current().ShippingAddress.City)
		gw.AssertExpectations(t)
	})
}

func TestAttachPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Failure - Unknown Provider Rejected Locally", func(t *testing.T) {
		// Arrange
		draft := &models.Order{ID: uuid.New(), Status: models.OrderStatusPending}
		gw := &mockGateway{}
		coordinator := order.NewCoordinator(gw)
		startCheckout(t, gw, coordinator, draft)

		// Act
		payment, err := coordinator.AttachPayment(ctx, draft.ID, &models.PaymentInput{Provider: "barter", Method: "goats"})

		// Assert
		assert.Nil(t, payment)
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeValidation, appErr.Code)
		gw.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success Then Conflict - Only One Payment Per Order", func(t *testing.T) {
		// Arrange
		draft := &models.Order{ID: uuid.New(), Status: models.OrderStatusPending}
		gw := &mockGateway{}
		coordinator := order.NewCoordinator(gw)
		startCheckout(t, gw, coordinator, draft)

		input := &models.PaymentInput{Provider: models.ProviderCashOnDelivery, Method: "cod"}
		gw.On("CreatePayment", ctx, draft.ID, input).
			Return(&models.Payment{ID: uuid.New(), OrderID: draft.ID, Provider: input.Provider, Status: models.PaymentStatusPending}, nil).
			Once()

		// Act
		first, err1 := coordinator.AttachPayment(ctx, draft.ID, input)
		second, err2 := coordinator.AttachPayment(ctx, draft.ID, input)

		// Assert
		require.NoError(t, err1)
		assert.Equal(t, models.PaymentStatusPending, first.Status)

		assert.Nil(t, second)
		appErr, ok := appErrors.IsAppError(err2)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeConflict, appErr.Code)
		gw.AssertNumberOfCalls(t, "CreatePayment", 1)
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Processing Order Cancels, Second Attempt Conflicts", func(t *testing.T) {
		// Arrange
		draft := &models.Order{ID: uuid.New(), Status: models.OrderStatusProcessing}
		gw := &mockGateway{}
		coordinator := order.NewCoordinator(gw)
		startCheckout(t, gw, coordinator, draft)

		canceled := &models.Order{ID: draft.ID, Status: models.OrderStatusCanceled}
		gw.On("CancelOrder", ctx, draft.ID).Return(canceled, nil).Once()

		// Act
		got, err := coordinator.CancelOrder(ctx, draft.ID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCanceled, got.Status)
		assert.Equal(t, models.OrderStatusCanceled, coordinator.Current().Status)

		// Act again - the local copy is terminal, no round-trip happens.
		_, err = coordinator.CancelOrder(ctx, draft.ID)

		// Assert
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeConflict, appErr.Code)
		gw.AssertNumberOfCalls(t, "CancelOrder", 1)
	})

	t.Run("Failure - Delivered Order Is Not Cancelable", func(t *testing.T) {
		// Arrange
		delivered := models.Order{ID: uuid.New(), Status: models.OrderStatusDelivered}
		gw := &mockGateway{}
		gw.On("FetchUserOrders", ctx).Return([]models.Order{delivered}, nil).Once()
		coordinator := order.NewCoordinator(gw)

		_, err := coordinator.FetchUserOrders(ctx)
		require.NoError(t, err)

		// Act
		_, err = coordinator.CancelOrder(ctx, delivered.ID)

		// Assert
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeConflict, appErr.Code)
		gw.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
	})

	t.Run("Failure - Gateway Conflict Surfaces For Unknown Orders", func(t *testing.T) {
		// Arrange
		orderID := uuid.New()
		gw := &mockGateway{}
		gw.On("CancelOrder", ctx, orderID).
			Return(nil, appErrors.ConflictError("Order can no longer be canceled")).Once()
		coordinator := order.NewCoordinator(gw)

		// Act
		_, err := coordinator.CancelOrder(ctx, orderID)

		// Assert
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeConflict, appErr.Code)
		gw.AssertExpectations(t)
	})
}

func TestFetchOrderByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Terminal Status Never Regresses", func(t *testing.T) {
		// Arrange
		draft := &models.Order{ID: uuid.New(), Status: models.OrderStatusPending}
		gw := &mockGateway{}
		coordinator := order.NewCoordinator(gw)
		startCheckout(t, gw, coordinator, draft)

		gw.On("CancelOrder", ctx, draft.ID).
			Return(&models.Order{ID: draft.ID, Status: models.OrderStatusCanceled}, nil).Once()
		_, err := coordinator.CancelOrder(ctx, draft.ID)
		require.NoError(t, err)

		// A stale read claims the order is back to pending.
		gw.On("FetchOrder", ctx, draft.ID).
			Return(&models.Order{ID: draft.ID, Status: models.OrderStatusPending}, nil).Once()

		// Act
		got, err := coordinator.FetchOrderByID(ctx, draft.ID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCanceled, got.Status)
		assert.Equal(t, models.OrderStatusCanceled, coordinator.Current().Status)
	})
}

func TestMarkPaymentStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Failure - Illegal Transition Rejected", func(t *testing.T) {
		// Arrange
		draft := &models.Order{
			ID:      uuid.New(),
			Status:  models.OrderStatusPending,
			Payment: &models.Payment{ID: uuid.New(), Status: models.PaymentStatusPaid},
		}
		gw := &mockGateway{}
		coordinator := order.NewCoordinator(gw)
		startCheckout(t, gw, coordinator, draft)

		// Act
		_, err := coordinator.MarkPaymentStatus(ctx, draft.ID, &models.PaymentStatusInput{Status: models.PaymentStatusPending})

		// Assert
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeConflict, appErr.Code)
		gw.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success - Pending Becomes Paid", func(t *testing.T) {
		// Arrange
		draft := &models.Order{
			ID:      uuid.New(),
			Status:  models.OrderStatusPending,
			Payment: &models.Payment{ID: uuid.New(), Status: models.PaymentStatusPending},
		}
		gw := &mockGateway{}
		coordinator := order.NewCoordinator(gw)
		startCheckout(t, gw, coordinator, draft)

		input := &models.PaymentStatusInput{Status: models.PaymentStatusPaid, TransactionID: "txn-42"}
		gw.On("UpdatePaymentStatus", ctx, draft.ID, input).
			Return(&models.Payment{ID: draft.Payment.ID, Status: models.PaymentStatusPaid, TransactionID: "txn-42"}, nil).
			Once()

		// Act
		payment, err := coordinator.MarkPaymentStatus(ctx, draft.ID, input)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, payment.Status)
		assert.Equal(t, models.PaymentStatusPaid, coordinator.Current().Payment.Status)
	})
}

func TestRefundPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Failure - Unpaid Payment Cannot Refund", func(t *testing.T) {
		// Arrange
		draft := &models.Order{
			ID:      uuid.New(),
			Status:  models.OrderStatusPending,
			Payment: &models.Payment{ID: uuid.New(), Status: models.PaymentStatusPending},
		}
		gw := &mockGateway{}
		coordinator := order.NewCoordinator(gw)
		startCheckout(t, gw, coordinator, draft)

		// Act
		_, err := coordinator.RefundPayment(ctx, draft.ID)

		// Assert
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeConflict, appErr.Code)
		gw.AssertNotCalled(t, "RefundPayment", mock.Anything, mock.Anything)
	})
}

func TestClearCurrentOrder(t *testing.T) {
	// Arrange
	draft := &models.Order{ID: uuid.New(), Status: models.OrderStatusPending}
	gw := &mockGateway{}
	coordinator := order.NewCoordinator(gw)
	startCheckout(t, gw, coordinator, draft)
	require.NotNil(t, coordinator.Current())

	// Act
	coordinator.ClearCurrentOrder()

	// Assert
	assert.Nil(t, coordinator.Current())
}
