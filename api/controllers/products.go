package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/apiclient"
	"github.com/angelmondragon/storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// ProductSource fetches catalog data from the remote API.
type ProductSource interface {
	ListProducts(ctx context.Context, query apiclient.ProductQuery) ([]catalog.Product, error)
	Product(ctx context.Context, id catalog.ID) (catalog.Product, error)
	Categories(ctx context.Context) ([]apiclient.Category, error)
}

type viewRecorder interface {
	RecordView(ctx context.Context, product catalog.Product)
}

func pathID(r *http.Request, key string) (catalog.ID, error) {
	id := catalog.ID(strings.TrimSpace(chi.URLParam(r, key)))
	if id.IsZero() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "id is required").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// ProductList proxies the catalog listing with its search, category, shop and ordering filters.
func ProductList(source ProductSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := apiclient.ProductQuery{
			Search:   strings.TrimSpace(q.Get("search")),
			Category: strings.TrimSpace(q.Get("category")),
			Shop:     catalog.ID(strings.TrimSpace(q.Get("shop"))),
			Ordering: strings.TrimSpace(q.Get("ordering")),
		}
		products, err := source.ListProducts(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

// ProductDetail returns one product and records it in the view history.
func ProductDetail(source ProductSource, history viewRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := source.Product(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history.RecordView(r.Context(), product)
		responses.WriteSuccess(w, product)
	}
}

func CategoryList(source ProductSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := source.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

// productRef names a product either by id or by an inline snapshot.
type productRef struct {
	ProductID catalog.ID       `json:"product_id"`
	Product   *catalog.Product `json:"product"`
}

// resolve returns the inline snapshot when present, otherwise fetches it by id.
func (ref productRef) resolve(ctx context.Context, source ProductSource) (catalog.Product, error) {
	if ref.Product != nil {
		if ref.Product.ID.IsZero() {
			return catalog.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"product.id": "is required"})
		}
		return *ref.Product, nil
	}
	if ref.ProductID.IsZero() {
		return catalog.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"product_id": "is required"})
	}
	return source.Product(ctx, ref.ProductID)
}
