// Package checkout turns the cart into a remote order.
package checkout

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront/internal/apiclient"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/cart"
	stockcheck "github.com/angelmondragon/storefront/pkg/checkout"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/validation"
)

type cartStore interface {
	Items() []cart.Entry
	Clear(ctx context.Context)
}

type sessionReader interface {
	IsAuthenticated() bool
	User() (auth.User, bool)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, input apiclient.CreateOrderInput) (apiclient.Order, error)
}

// ShippingInput is the delivery information collected at checkout.
type ShippingInput struct {
	Name    string `json:"shipping_name" validate:"required,max=200"`
	Address string `json:"shipping_address" validate:"required"`
	Phone   string `json:"shipping_phone" validate:"required,max=20"`
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Cart    cartStore
	Session sessionReader
	Orders  orderCreator
	Logger  *logger.Logger
}

// Service executes checkout orchestration.
type Service interface {
	PlaceOrder(ctx context.Context, input ShippingInput) (apiclient.Order, error)
	DefaultShipping() ShippingInput
}

type service struct {
	cart    cartStore
	session sessionReader
	orders  orderCreator
	logg    *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart store is required")
	}
	if params.Session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auth session is required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order client is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{cart: params.Cart, session: params.Session, orders: params.Orders, logg: logg}, nil
}

// PlaceOrder submits the cart as an order and clears the cart once the remote API
// accepts it. A rejected order leaves the cart untouched.
func (s *service) PlaceOrder(ctx context.Context, input ShippingInput) (apiclient.Order, error) {
	if !s.session.IsAuthenticated() {
		return apiclient.Order{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to place an order")
	}
	input = ShippingInput{
		Name:    strings.TrimSpace(input.Name),
		Address: strings.TrimSpace(input.Address),
		Phone:   strings.TrimSpace(input.Phone),
	}
	if err := validation.Struct(input); err != nil {
		return apiclient.Order{}, err
	}

	entries := s.cart.Items()
	if len(entries) == 0 {
		return apiclient.Order{}, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}

	lines := make([]apiclient.OrderLine, 0, len(entries))
	checks := make([]stockcheck.StockCheckInput, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, apiclient.OrderLine{ProductID: entry.ID, Quantity: entry.Quantity})
		checks = append(checks, stockcheck.StockCheckInput{
			ProductID:   entry.ID.String(),
			ProductName: entry.Name,
			Stock:       entry.Stock,
			Quantity:    entry.Quantity,
		})
	}
	if violations := stockcheck.StockViolations(checks); len(violations) > 0 {
		// Snapshot stock may be stale; the remote API has the final say.
		logCtx := s.logg.WithField(ctx, "violations", violations)
		s.logg.Warn(logCtx, "cart quantities exceed snapshot stock")
	}

	order, err := s.orders.CreateOrder(ctx, apiclient.CreateOrderInput{
		ShippingName:    input.Name,
		ShippingAddress: input.Address,
		ShippingPhone:   input.Phone,
		Items:           lines,
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "lines", len(lines)), "order submission failed", err)
		return apiclient.Order{}, err
	}

	s.cart.Clear(ctx)
	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "order placed")
	return order, nil
}

// DefaultShipping prefills the shipping form from the signed-in profile.
func (s *service) DefaultShipping() ShippingInput {
	user, ok := s.session.User()
	if !ok {
		return ShippingInput{}
	}
	name := ""
	if user.FirstName != "" && user.LastName != "" {
		name = user.FirstName + " " + user.LastName
	}
	return ShippingInput{Name: name, Address: user.Address, Phone: user.Phone}
}
