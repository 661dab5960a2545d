package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopstream/storefront/internal/config"
	"github.com/shopstream/storefront/internal/errors"
	"github.com/shopstream/storefront/internal/metrics"
	"github.com/shopstream/storefront/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TokenSource supplies the bearer token attached to every request. The
// session satisfies it.
type TokenSource interface {
	Token() string
}

// Client speaks the shop gateway's JSON-over-HTTPS contract. It is the only
// place in the module that performs network I/O; everything above it works
// with typed models and AppError values.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

func New(cfg config.Gateway, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// do runs one round-trip and decodes the envelope into out. Caller
// cancellation is honored as given; mutations pass a detached ctx.
func (c *Client) do(ctx context.Context, action, method, path string, body, out any) (err error) {

	start := time.Now()
	done := metrics.GatewayInFlight()

	defer func() {
		done()
		metrics.ObserveGateway(action, start, err)
	}()

	var reqBody io.Reader

	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			err = errors.UnknownError("Failed to encode request").WithError(marshalErr)

			return err
		}

		reqBody = bytes.NewReader(payload)
	}

	req, reqErr := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if reqErr != nil {
		err = errors.UnknownError("Failed to build request").WithError(reqErr)

		return err
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		slog.Warn("Gateway unreachable",
			slog.String("action", action),
			slog.String("error", doErr.Error()))

		err = errors.NetworkError("No response from the shop gateway").WithError(doErr)

		return err
	}

	defer resp.Body.Close()

	var env Envelope

	if decodeErr := json.NewDecoder(resp.Body).Decode(&env); decodeErr != nil {
		err = errors.FromStatusCode(resp.StatusCode, "Malformed gateway response").WithError(decodeErr)

		return err
	}

	if !env.Success {
		err = env.appError(resp.StatusCode)

		return err
	}

	if out != nil && env.Data != nil {
		if unmarshalErr := json.Unmarshal(env.Data, out); unmarshalErr != nil {
			err = errors.UnknownError("Unexpected gateway payload").WithError(unmarshalErr)

			return err
		}
	}

	return nil
}

// mutate detaches the caller's cancellation before the round-trip. A write
// that has left the client must run to completion: a torn-down mutation is
// worse than a late success. The configured timeout still bounds it.
func (c *Client) mutate(ctx context.Context, action, method, path string, body, out any) error {
	return c.do(context.WithoutCancel(ctx), action, method, path, body, out)
}

// --- Cart ---

func (c *Client) FetchCart(ctx context.Context) (*models.Cart, error) {

	var cart models.Cart

	if err := c.do(ctx, "fetch_cart", http.MethodGet, "/cart", nil, &cart); err != nil {
		return nil, err
	}

	return &cart, nil
}

func (c *Client) AddCartItem(ctx context.Context, input *models.AddItemInput) (*models.CartItem, error) {

	var item models.CartItem

	if err := c.mutate(ctx, "add_cart_item", http.MethodPost, "/cart/add", input, &item); err != nil {
		return nil, err
	}

	return &item, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, itemID uuid.UUID, input *models.UpdateQuantityInput) (*models.CartItem, error) {

	var item models.CartItem

	path := fmt.Sprintf("/cart/item/%s", itemID)

	if err := c.mutate(ctx, "update_cart_item", http.MethodPatch, path, input, &item); err != nil {
		return nil, err
	}

	return &item, nil
}

func (c *Client) RemoveCartItem(ctx context.Context, itemID uuid.UUID) error {

	path := fmt.Sprintf("/cart/item/%s", itemID)

	return c.mutate(ctx, "remove_cart_item", http.MethodDelete, path, nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.mutate(ctx, "clear_cart", http.MethodDelete, "/cart", nil, nil)
}

// --- Orders ---

func (c *Client) CreateOrder(ctx context.Context, input *models.CreateOrderInput) (*models.Order, error) {

	var order models.Order

	if err := c.mutate(ctx, "create_order", http.MethodPost, "/orders", input, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (c *Client) FetchUserOrders(ctx context.Context) ([]models.Order, error) {

	var orders []models.Order

	if err := c.do(ctx, "fetch_user_orders", http.MethodGet, "/orders/my", nil, &orders); err != nil {
		return nil, err
	}

	return orders, nil
}

func (c *Client) FetchOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {

	var order models.Order

	path := fmt.Sprintf("/orders/%s", orderID)

	if err := c.do(ctx, "fetch_order", http.MethodGet, path, nil, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {

	var order models.Order

	path := fmt.Sprintf("/orders/%s/cancel", orderID)

	if err := c.mutate(ctx, "cancel_order", http.MethodPatch, path, nil, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

// --- Address ---

func (c *Client) AttachAddress(ctx context.Context, orderID uuid.UUID, input *models.ShippingAddressInput) (*models.ShippingAddress, error) {
	return c.sendAddress(ctx, http.MethodPost, orderID, input)
}

// UpdateAddress resends the full record; the gateway has no partial patch.
func (c *Client) UpdateAddress(ctx context.Context, orderID uuid.UUID, input *models.ShippingAddressInput) (*models.ShippingAddress, error) {
	return c.sendAddress(ctx, http.MethodPatch, orderID, input)
}

func (c *Client) sendAddress(ctx context.Context, method string, orderID uuid.UUID, input *models.ShippingAddressInput) (*models.ShippingAddress, error) {

	var addr models.ShippingAddress

	path := fmt.Sprintf("/orders/%s/address", orderID)

	if err := c.mutate(ctx, "attach_address", method, path, input, &addr); err != nil {
		return nil, err
	}

	return &addr, nil
}

// --- Payment ---

func (c *Client) CreatePayment(ctx context.Context, orderID uuid.UUID, input *models.PaymentInput) (*models.Payment, error) {

	var payment models.Payment

	path := fmt.Sprintf("/orders/%s/payment", orderID)

	if err := c.mutate(ctx, "create_payment", http.MethodPost, path, input, &payment); err != nil {
		return nil, err
	}

	return &payment, nil
}

func (c *Client) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, input *models.PaymentStatusInput) (*models.Payment, error) {

	var payment models.Payment

	path := fmt.Sprintf("/orders/%s/payment/status", orderID)

	if err := c.mutate(ctx, "update_payment_status", http.MethodPatch, path, input, &payment); err != nil {
		return nil, err
	}

	return &payment, nil
}

func (c *Client) RefundPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {

	var payment models.Payment

	path := fmt.Sprintf("/orders/%s/payment/refund", orderID)

	if err := c.mutate(ctx, "refund_payment", http.MethodPatch, path, nil, &payment); err != nil {
		return nil, err
	}

	return &payment, nil
}
