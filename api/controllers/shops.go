package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/apiclient"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// ShopSource reads seller storefronts from the remote API.
type ShopSource interface {
	Shops(ctx context.Context) ([]apiclient.Shop, error)
	Shop(ctx context.Context, id catalog.ID) (apiclient.Shop, error)
	ShopProducts(ctx context.Context, id catalog.ID) ([]catalog.Product, error)
	MyShop(ctx context.Context) (apiclient.Shop, bool, error)
}

func ShopList(source ShopSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shops, err := source.Shops(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if shops == nil {
			shops = []apiclient.Shop{}
		}
		responses.WriteSuccess(w, shops)
	}
}

// ShopDetail returns the shop together with its product listing.
func ShopDetail(source ShopSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shop, err := source.Shop(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		products, err := source.ShopProducts(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if products == nil {
			products = []catalog.Product{}
		}
		responses.WriteSuccess(w, map[string]any{"shop": shop, "products": products})
	}
}

// MyShop reports the signed-in seller's shop. has_shop is false for buyers.
func MyShop(source ShopSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop, ok, err := source.MyShop(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body := map[string]any{"has_shop": ok}
		if ok {
			body["shop"] = shop
		}
		responses.WriteSuccess(w, body)
	}
}
