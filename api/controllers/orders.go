package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/apiclient"
	"github.com/angelmondragon/storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// OrderSource reads and cancels the signed-in user's orders.
type OrderSource interface {
	Orders(ctx context.Context) ([]apiclient.Order, error)
	Order(ctx context.Context, id catalog.ID) (apiclient.Order, error)
	CancelOrder(ctx context.Context, id catalog.ID) (apiclient.Order, error)
}

func OrderList(source OrderSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := source.Orders(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if orders == nil {
			orders = []apiclient.Order{}
		}
		responses.WriteSuccess(w, orders)
	}
}

func OrderDetail(source OrderSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := source.Order(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderCancel cancels an order that is still pending.
func OrderCancel(source OrderSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		current, err := source.Order(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !current.Status.Cancellable() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").WithDetails(map[string]any{"status": current.Status}))
			return
		}
		order, err := source.CancelOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithFields(r.Context(), map[string]any{
				"user_id":  middleware.UserIDFromContext(r.Context()),
				"order_id": id.String(),
			}), "order.cancelled")
		}
		responses.WriteSuccess(w, order)
	}
}
