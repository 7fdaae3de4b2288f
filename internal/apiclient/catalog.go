package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/validation"
)

// ProductQuery filters the product listing. Empty fields are not sent.
type ProductQuery struct {
	Search   string
	Category string
	Shop     catalog.ID
	// Ordering is a field name, prefixed with "-" for descending order.
	Ordering string
}

func (q ProductQuery) values() url.Values {
	values := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		values.Set("search", s)
	}
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	if !q.Shop.IsZero() {
		values.Set("shop", q.Shop.String())
	}
	if q.Ordering != "" {
		values.Set("ordering", q.Ordering)
	}
	return values
}

// Category is one entry of the category listing.
type Category struct {
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
}

// Shop is a seller storefront.
type Shop struct {
	ID            catalog.ID  `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	Phone         string      `json:"phone,omitempty"`
	Email         string      `json:"email,omitempty"`
	Address       string      `json:"address,omitempty"`
	Logo          string      `json:"logo,omitempty"`
	Banner        string      `json:"banner,omitempty"`
	IsActive      bool        `json:"is_active"`
	IsVerified    bool        `json:"is_verified"`
	TotalProducts int         `json:"total_products"`
	TotalSales    json.Number `json:"total_sales,omitempty"`
}

// ProductInput is the seller-side product form.
type ProductInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description"`
	Price       string  `json:"price" validate:"required,numeric"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Category    string  `json:"category" validate:"required"`
	Image       *Upload `json:"-"`
}

func (in ProductInput) fields() map[string]string {
	return map[string]string{
		"name":        in.Name,
		"description": in.Description,
		"price":       in.Price,
		"stock":       itoa(in.Stock),
		"category":    in.Category,
	}
}

// ShopInput is the shop registration and edit form.
type ShopInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description"`
	Phone       string  `json:"phone" validate:"max=20"`
	Email       string  `json:"email" validate:"omitempty,email"`
	Address     string  `json:"address"`
	Logo        *Upload `json:"-"`
	Banner      *Upload `json:"-"`
}

func (in ShopInput) fields() map[string]string {
	return map[string]string{
		"name":        in.Name,
		"description": in.Description,
		"phone":       in.Phone,
		"email":       in.Email,
		"address":     in.Address,
	}
}

func (c *Client) ListProducts(ctx context.Context, query ProductQuery) ([]catalog.Product, error) {
	var out []catalog.Product
	err := c.do(ctx, request{endpoint: "products.list", method: http.MethodGet, path: "products/", query: query.values()}, &out)
	return out, err
}

func (c *Client) Product(ctx context.Context, id catalog.ID) (catalog.Product, error) {
	if id.IsZero() {
		return catalog.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var out catalog.Product
	err := c.do(ctx, request{endpoint: "products.get", method: http.MethodGet, path: "products/" + id.String() + "/"}, &out)
	return out, err
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.do(ctx, request{endpoint: "products.categories", method: http.MethodGet, path: "products/categories/"}, &out)
	return out, err
}

func (c *Client) Shops(ctx context.Context) ([]Shop, error) {
	var out []Shop
	err := c.do(ctx, request{endpoint: "shops.list", method: http.MethodGet, path: "shops/"}, &out)
	return out, err
}

func (c *Client) Shop(ctx context.Context, id catalog.ID) (Shop, error) {
	if id.IsZero() {
		return Shop{}, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	var out Shop
	err := c.do(ctx, request{endpoint: "shops.get", method: http.MethodGet, path: "shops/" + id.String() + "/"}, &out)
	return out, err
}

func (c *Client) ShopProducts(ctx context.Context, id catalog.ID) ([]catalog.Product, error) {
	if id.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	var out []catalog.Product
	err := c.do(ctx, request{endpoint: "shops.products", method: http.MethodGet, path: "shops/" + id.String() + "/products/"}, &out)
	return out, err
}

// MyShop returns the caller's shop; ok is false when the caller has none.
func (c *Client) MyShop(ctx context.Context) (Shop, bool, error) {
	var out Shop
	err := c.do(ctx, request{endpoint: "shops.mine", method: http.MethodGet, path: "shops/my_shop/", auth: true}, &out)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return Shop{}, false, nil
	}
	if err != nil {
		return Shop{}, false, err
	}
	return out, true, nil
}

func (c *Client) CreateShop(ctx context.Context, input ShopInput) (Shop, error) {
	if err := validation.Struct(input); err != nil {
		return Shop{}, err
	}
	body, contentType, err := encodeMultipart(input.fields(), map[string]*Upload{"logo": input.Logo, "banner": input.Banner})
	if err != nil {
		return Shop{}, err
	}
	var out Shop
	err = c.do(ctx, request{endpoint: "shops.create", method: http.MethodPost, path: "shops/", body: body, contentType: contentType, auth: true}, &out)
	return out, err
}

func (c *Client) UpdateShop(ctx context.Context, id catalog.ID, input ShopInput) (Shop, error) {
	if id.IsZero() {
		return Shop{}, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	if err := validation.Struct(input); err != nil {
		return Shop{}, err
	}
	body, contentType, err := encodeMultipart(input.fields(), map[string]*Upload{"logo": input.Logo, "banner": input.Banner})
	if err != nil {
		return Shop{}, err
	}
	var out Shop
	err = c.do(ctx, request{endpoint: "shops.update", method: http.MethodPatch, path: "shops/" + id.String() + "/", body: body, contentType: contentType, auth: true}, &out)
	return out, err
}

func (c *Client) AddShopProduct(ctx context.Context, input ProductInput) (catalog.Product, error) {
	if err := validation.Struct(input); err != nil {
		return catalog.Product{}, err
	}
	body, contentType, err := encodeMultipart(input.fields(), map[string]*Upload{"image": input.Image})
	if err != nil {
		return catalog.Product{}, err
	}
	var out catalog.Product
	err = c.do(ctx, request{endpoint: "shops.add_product", method: http.MethodPost, path: "shops/add_product/", body: body, contentType: contentType, auth: true}, &out)
	return out, err
}

func (c *Client) UpdateShopProduct(ctx context.Context, id catalog.ID, input ProductInput) (catalog.Product, error) {
	if id.IsZero() {
		return catalog.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := validation.Struct(input); err != nil {
		return catalog.Product{}, err
	}
	body, contentType, err := encodeMultipart(input.fields(), map[string]*Upload{"image": input.Image})
	if err != nil {
		return catalog.Product{}, err
	}
	var out catalog.Product
	err = c.do(ctx, request{endpoint: "shops.update_product", method: http.MethodPatch, path: "shops/" + id.String() + "/update_product/", body: body, contentType: contentType, auth: true}, &out)
	return out, err
}

func (c *Client) DeleteShopProduct(ctx context.Context, id catalog.ID) error {
	if id.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return c.do(ctx, request{endpoint: "shops.delete_product", method: http.MethodDelete, path: "shops/" + id.String() + "/delete_product/", auth: true}, nil)
}
