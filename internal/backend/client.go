package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/pos-gateway/internal/payment"
	"github.com/noah-isme/pos-gateway/internal/resilience"
)

// ErrUpstream wraps failures returned by the backend-of-record.
var ErrUpstream = errors.New("backend: upstream error")

// Client talks to the backend service that owns orders, payments and catalog
// data. The gateway never persists any of that itself; it only validates and
// forwards.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    resilience.HTTPClient
}

// NewHTTPClient builds the transport used for upstream calls, instrumented
// for tracing.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// CreateOrder submits a cart-derived order and returns the created order with
// its server-assigned id and total.
func (c *Client) CreateOrder(ctx context.Context, in CreateOrderInput) (Order, error) {
	var out struct {
		Data Order `json:"data"`
	}
	if err := c.call(ctx, http.MethodPost, "/orders", in, &out); err != nil {
		return Order{}, err
	}
	return out.Data, nil
}

// SubmitPayment forwards a validated payment payload for the given order.
func (c *Client) SubmitPayment(ctx context.Context, orderID string, p payment.Payload) (payment.SubmitResult, error) {
	var out struct {
		Data payment.SubmitResult `json:"data"`
	}
	path := fmt.Sprintf("/orders/%s/payment", orderID)
	if err := c.call(ctx, http.MethodPost, path, p, &out); err != nil {
		return payment.SubmitResult{}, err
	}
	return out.Data, nil
}

// Tables fetches the dining table fixtures.
func (c *Client) Tables(ctx context.Context) ([]Table, error) {
	var out struct {
		Data []Table `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, "/tables", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// MenuItems fetches the sellable catalog.
func (c *Client) MenuItems(ctx context.Context) ([]MenuItem, error) {
	var out struct {
		Data []MenuItem `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, "/menu/items", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Categories fetches the menu categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out struct {
		Data []Category `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) call(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, ErrUpstream)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payloadBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s: %w", method, path, resp.StatusCode, bytes.TrimSpace(payloadBytes), ErrUpstream)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
