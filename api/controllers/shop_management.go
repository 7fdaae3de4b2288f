package controllers

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/apiclient"
	"github.com/angelmondragon/storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const maxUploadBytes = 10 << 20

// ShopManager is the seller side of the remote API: the caller's shop and its products.
type ShopManager interface {
	CreateShop(ctx context.Context, input apiclient.ShopInput) (apiclient.Shop, error)
	UpdateShop(ctx context.Context, id catalog.ID, input apiclient.ShopInput) (apiclient.Shop, error)
	AddShopProduct(ctx context.Context, input apiclient.ProductInput) (catalog.Product, error)
	UpdateShopProduct(ctx context.Context, id catalog.ID, input apiclient.ProductInput) (catalog.Product, error)
	DeleteShopProduct(ctx context.Context, id catalog.ID) error
}

func ShopCreate(manager ShopManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, release, err := decodeShopInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer release()
		shop, err := manager.CreateShop(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shop)
	}
}

func ShopUpdate(manager ShopManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, release, err := decodeShopInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer release()
		shop, err := manager.UpdateShop(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shop)
	}
}

func ShopProductAdd(manager ShopManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, release, err := decodeProductInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer release()
		product, err := manager.AddShopProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ShopProductUpdate(manager ShopManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, release, err := decodeProductInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer release()
		product, err := manager.UpdateShopProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ShopProductDelete(manager ShopManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := manager.DeleteShopProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": id})
	}
}

// decodeShopInput reads the shop form from JSON or multipart; multipart may carry
// "logo" and "banner" files. release closes any opened uploads.
func decodeShopInput(r *http.Request) (apiclient.ShopInput, func(), error) {
	var input apiclient.ShopInput
	if !isMultipart(r) {
		return input, func() {}, validators.DecodeJSONBody(r, &input)
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return input, func() {}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body")
	}
	input = apiclient.ShopInput{
		Name:        validators.SanitizeString(r.FormValue("name"), 200),
		Description: strings.TrimSpace(r.FormValue("description")),
		Phone:       strings.TrimSpace(r.FormValue("phone")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		Address:     strings.TrimSpace(r.FormValue("address")),
	}
	var closers []func()
	release := func() {
		for _, c := range closers {
			c()
		}
	}
	for field, target := range map[string]**apiclient.Upload{"logo": &input.Logo, "banner": &input.Banner} {
		upload, closeFn, err := formUpload(r, field)
		if err != nil {
			release()
			return input, func() {}, err
		}
		closers = append(closers, closeFn)
		*target = upload
	}
	return input, release, nil
}

// decodeProductInput reads the product form from JSON or multipart with an
// optional "image" file.
func decodeProductInput(r *http.Request) (apiclient.ProductInput, func(), error) {
	var input apiclient.ProductInput
	if !isMultipart(r) {
		return input, func() {}, validators.DecodeJSONBody(r, &input)
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return input, func() {}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body")
	}
	stock := 0
	if raw := strings.TrimSpace(r.FormValue("stock")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return input, func() {}, pkgerrors.New(pkgerrors.CodeValidation, "stock must be an integer").WithDetails(map[string]any{"field": "stock"})
		}
		stock = parsed
	}
	image, release, err := formUpload(r, "image")
	if err != nil {
		return input, func() {}, err
	}
	input = apiclient.ProductInput{
		Name:        validators.SanitizeString(r.FormValue("name"), 200),
		Description: strings.TrimSpace(r.FormValue("description")),
		Price:       strings.TrimSpace(r.FormValue("price")),
		Stock:       stock,
		Category:    strings.TrimSpace(r.FormValue("category")),
		Image:       image,
	}
	return input, release, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func formUpload(r *http.Request, field string) (*apiclient.Upload, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upload").WithDetails(map[string]any{"field": field})
	}
	return &apiclient.Upload{Filename: header.Filename, Content: file}, func() { _ = file.Close() }, nil
}
