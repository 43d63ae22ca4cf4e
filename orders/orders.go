// Package orders wraps checkout and order history.
package orders

import (
	"context"
	"fmt"

	"github.com/AYShukla05/smartkart-client/api"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusCancelled Status = "CANCELLED"
)

// Item is one purchased line, priced at purchase time.
type Item struct {
	ID              int64       `json:"id"`
	ProductName     string      `json:"product_name"`
	Quantity        int         `json:"quantity"`
	PriceAtPurchase api.Decimal `json:"price_at_purchase"`
}

// Order is a placed order with its lines.
type Order struct {
	ID          int64       `json:"id"`
	Status      Status      `json:"status"`
	TotalAmount api.Decimal `json:"total_amount"`
	CreatedAt   string      `json:"created_at"`
	Items       []Item      `json:"items"`
}

// CheckoutResult is the response of a successful checkout.
type CheckoutResult struct {
	OrderID     int64       `json:"order_id"`
	TotalAmount api.Decimal `json:"total_amount"`
}

// Client calls the order endpoints.
type Client struct {
	api *api.Client
}

func NewClient(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// Checkout turns the server-side cart into an order.
func (c *Client) Checkout(ctx context.Context) (*CheckoutResult, error) {
	var result CheckoutResult
	if err := c.api.Post(ctx, "/orders/checkout/", struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Order fetches a single order.
func (c *Client) Order(ctx context.Context, id int64) (*Order, error) {
	var order Order
	if err := c.api.Get(ctx, fmt.Sprintf("/orders/%d/", id), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Orders fetches the order history, newest first as served by the backend.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var list []Order
	if err := c.api.Get(ctx, "/orders/", &list); err != nil {
		return nil, err
	}
	return list, nil
}
