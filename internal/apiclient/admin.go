package apiclient

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/internal/catalog"
)

// AdminStats is the dashboard summary.
type AdminStats struct {
	Revenue struct {
		Total   catalog.Price `json:"total"`
		Monthly catalog.Price `json:"monthly"`
	} `json:"revenue"`
	Orders struct {
		Total     int `json:"total"`
		Pending   int `json:"pending"`
		Completed int `json:"completed"`
	} `json:"orders"`
	Products struct {
		Total    int `json:"total"`
		LowStock int `json:"low_stock"`
	} `json:"products"`
	Users struct {
		Total    int `json:"total"`
		NewToday int `json:"new_today"`
	} `json:"users"`
}

func (c *Client) AdminStats(ctx context.Context) (AdminStats, error) {
	var out AdminStats
	err := c.do(ctx, request{endpoint: "admin.stats", method: http.MethodGet, path: "admin/stats/", auth: true}, &out)
	return out, err
}

func (c *Client) RecentOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	err := c.do(ctx, request{endpoint: "admin.recent_orders", method: http.MethodGet, path: "admin/recent-orders/", auth: true}, &out)
	return out, err
}

func (c *Client) LowStockProducts(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	err := c.do(ctx, request{endpoint: "admin.low_stock", method: http.MethodGet, path: "admin/low-stock/", auth: true}, &out)
	return out, err
}
