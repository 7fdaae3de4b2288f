package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// CartStore is the cart surface the controllers drive.
type CartStore interface {
	AddQuantity(ctx context.Context, product catalog.Product, n int)
	Remove(ctx context.Context, id catalog.ID)
	SetQuantity(ctx context.Context, id catalog.ID, quantity int)
	Clear(ctx context.Context)
	Get(id catalog.ID) (cart.Entry, bool)
	Summary() cart.Summary
}

type cartView struct {
	Items []cart.Entry `json:"items"`
	Count int          `json:"count"`
	Total string       `json:"total"`
}

type addCartItemRequest struct {
	productRef
	Quantity int `json:"quantity" validate:"omitempty,gt=0,lte=99999"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,lte=99999"`
}

func viewOf(store CartStore) cartView {
	summary := store.Summary()
	items := summary.Items
	if items == nil {
		items = []cart.Entry{}
	}
	return cartView{Items: items, Count: summary.Count, Total: summary.Total.StringFixed(2)}
}

func CartFetch(store CartStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, viewOf(store))
	}
}

// CartAddItem adds a product snapshot to the cart. Quantity defaults to one.
func CartAddItem(store CartStore, source ProductSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addCartItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := req.resolve(r.Context(), source)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		qty := req.Quantity
		if qty == 0 {
			qty = 1
		}
		store.AddQuantity(r.Context(), product, qty)
		responses.WriteSuccessStatus(w, http.StatusCreated, viewOf(store))
	}
}

// CartSetQuantity overwrites an entry's quantity. Zero or less removes the entry.
func CartSetQuantity(store CartStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req setQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, ok := store.Get(id); !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart"))
			return
		}
		store.SetQuantity(r.Context(), id, *req.Quantity)
		responses.WriteSuccess(w, viewOf(store))
	}
}

func CartRemoveItem(store CartStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Remove(r.Context(), id)
		responses.WriteSuccess(w, viewOf(store))
	}
}

func CartClear(store CartStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.Clear(r.Context())
		responses.WriteSuccess(w, viewOf(store))
	}
}
