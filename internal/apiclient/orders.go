package apiclient

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/validation"
)

type OrderItem struct {
	ID       catalog.ID      `json:"id"`
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Price    catalog.Price   `json:"price"`
	Total    catalog.Price   `json:"total"`
}

type Order struct {
	ID              catalog.ID        `json:"id"`
	Status          enums.OrderStatus `json:"status"`
	TotalPrice      catalog.Price     `json:"total_price"`
	ShippingName    string            `json:"shipping_name"`
	ShippingAddress string            `json:"shipping_address"`
	ShippingPhone   string            `json:"shipping_phone"`
	UserUsername    string            `json:"user_username,omitempty"`
	CreatedAt       string            `json:"created_at,omitempty"`
	Items           []OrderItem       `json:"items,omitempty"`
}

// OrderLine is one product and quantity in an order request.
type OrderLine struct {
	ProductID catalog.ID `json:"product_id" validate:"required"`
	Quantity  int        `json:"quantity" validate:"gt=0"`
}

// CreateOrderInput is the order placement payload.
type CreateOrderInput struct {
	ShippingName    string      `json:"shipping_name" validate:"required,max=200"`
	ShippingAddress string      `json:"shipping_address" validate:"required"`
	ShippingPhone   string      `json:"shipping_phone" validate:"required,max=20"`
	Items           []OrderLine `json:"items" validate:"required,min=1,dive"`
}

type orderStatusInput struct {
	Status enums.OrderStatus `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (Order, error) {
	if err := validation.Struct(input); err != nil {
		return Order{}, err
	}
	var out Order
	err := c.do(ctx, request{endpoint: "orders.create", method: http.MethodPost, path: "orders/", body: input, auth: true}, &out)
	return out, err
}

func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var out []Order
	err := c.do(ctx, request{endpoint: "orders.list", method: http.MethodGet, path: "orders/", auth: true}, &out)
	return out, err
}

func (c *Client) Order(ctx context.Context, id catalog.ID) (Order, error) {
	if id.IsZero() {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var out Order
	err := c.do(ctx, request{endpoint: "orders.get", method: http.MethodGet, path: "orders/" + id.String() + "/", auth: true}, &out)
	return out, err
}

func (c *Client) CancelOrder(ctx context.Context, id catalog.ID) (Order, error) {
	if id.IsZero() {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var out Order
	err := c.do(ctx, request{endpoint: "orders.cancel", method: http.MethodPost, path: "orders/" + id.String() + "/cancel/", body: struct{}{}, auth: true}, &out)
	return out, err
}

// UpdateOrderStatus is the admin transition of an order's status.
func (c *Client) UpdateOrderStatus(ctx context.Context, id catalog.ID, status enums.OrderStatus) (Order, error) {
	if id.IsZero() {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	input := orderStatusInput{Status: status}
	if err := validation.Struct(input); err != nil {
		return Order{}, err
	}
	var out Order
	err := c.do(ctx, request{endpoint: "admin.order_status", method: http.MethodPatch, path: "admin/orders/" + id.String() + "/status/", body: input, auth: true}, &out)
	return out, err
}
