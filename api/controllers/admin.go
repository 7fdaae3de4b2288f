package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/apiclient"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// AdminSource is the staff dashboard surface of the remote API.
type AdminSource interface {
	AdminStats(ctx context.Context) (apiclient.AdminStats, error)
	RecentOrders(ctx context.Context) ([]apiclient.Order, error)
	LowStockProducts(ctx context.Context) ([]catalog.Product, error)
	UpdateOrderStatus(ctx context.Context, id catalog.ID, status enums.OrderStatus) (apiclient.Order, error)
	SendNotification(ctx context.Context, input apiclient.SendNotificationInput) error
}

type adminDashboard struct {
	Stats        apiclient.AdminStats `json:"stats"`
	RecentOrders []apiclient.Order    `json:"recent_orders"`
	LowStock     []catalog.Product    `json:"low_stock"`
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminDashboard gathers stats, recent orders and low-stock products in one payload.
func AdminDashboard(source AdminSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := source.AdminStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recent, err := source.RecentOrders(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lowStock, err := source.LowStockProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if recent == nil {
			recent = []apiclient.Order{}
		}
		if lowStock == nil {
			lowStock = []catalog.Product{}
		}
		responses.WriteSuccess(w, adminDashboard{Stats: stats, RecentOrders: recent, LowStock: lowStock})
	}
}

func AdminUpdateOrderStatus(source AdminSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req orderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}
		order, err := source.UpdateOrderStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AdminSendNotification(source AdminSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apiclient.SendNotificationInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := source.SendNotification(r.Context(), req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]bool{"sent": true})
	}
}
