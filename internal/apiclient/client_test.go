package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) config.APIConfig {
	return config.APIConfig{
		BaseURL:             baseURL,
		Timeout:             2 * time.Second,
		BreakerMaxRequests:  1,
		BreakerInterval:     time.Minute,
		BreakerTimeout:      time.Minute,
		BreakerMinRequests:  3,
		BreakerFailureRatio: 0.5,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(Params{
		Config: testConfig(srv.URL + "/api"),
		Tokens: TokenSourceFunc(func() string { return token }),
	})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New(Params{})
	require.Error(t, err)
	_, err = New(Params{Config: config.APIConfig{BaseURL: "not a url"}})
	require.Error(t, err)
}

func TestListProductsSendsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/", r.URL.Path)
		assert.Equal(t, "mug", r.URL.Query().Get("search"))
		assert.Equal(t, "-price", r.URL.Query().Get("ordering"))
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "name": "Mug", "price": "100.00"}})
	}, "")

	products, err := client.ListProducts(context.Background(), ProductQuery{Search: " mug ", Ordering: "-price"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, catalog.ID("1"), products[0].ID)
}

func TestAuthenticatedCallsSendBearerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/notifications/unread_count/", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]int{"count": 4})
	}, "tok")

	count, err := client.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestStatusMapsToCodes(t *testing.T) {
	cases := map[int]pkgerrors.Code{
		http.StatusBadRequest:          pkgerrors.CodeValidation,
		http.StatusUnauthorized:        pkgerrors.CodeUnauthorized,
		http.StatusForbidden:           pkgerrors.CodeForbidden,
		http.StatusNotFound:            pkgerrors.CodeNotFound,
		http.StatusConflict:            pkgerrors.CodeConflict,
		http.StatusTooManyRequests:     pkgerrors.CodeRateLimit,
		http.StatusInternalServerError: pkgerrors.CodeDependency,
	}
	for status, code := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, status, map[string]string{"detail": "nope"})
		}, "tok")

		_, err := client.Orders(context.Background())
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, code, typed.Code(), "status %d", status)
		assert.Equal(t, "nope", typed.Message())
	}
}

func TestErrorBodyKeptAsDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"shipping_phone": []string{"This field is required."}})
	}, "tok")

	_, err := client.CreateOrder(context.Background(), CreateOrderInput{
		ShippingName:    "A",
		ShippingAddress: "B",
		ShippingPhone:   "1",
		Items:           []OrderLine{{ProductID: "1", Quantity: 1}},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "bad request", typed.Message())
	assert.Equal(t, map[string]any{"shipping_phone": []any{"This field is required."}}, typed.Details())
}

func TestCreateOrderValidatesBeforeSending(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, "tok")

	_, err := client.CreateOrder(context.Background(), CreateOrderInput{ShippingName: "A"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, calls.Load())
}

func TestCreateOrderPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"shipping_name":"A","shipping_address":"B","shipping_phone":"081",
			"items":[{"product_id":7,"quantity":2}]}`, string(body))
		writeJSON(w, http.StatusCreated, map[string]any{"id": 11, "status": "pending", "total_price": "20.00"})
	}, "tok")

	order, err := client.CreateOrder(context.Background(), CreateOrderInput{
		ShippingName:    "A",
		ShippingAddress: "B",
		ShippingPhone:   "081",
		Items:           []OrderLine{{ProductID: "7", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, catalog.ID("11"), order.ID)
	assert.True(t, order.Status.Cancellable())
}

func TestUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}, "tok")
	_, err := client.UpdateOrderStatus(context.Background(), "1", "lost")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMyShopNotFoundIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "no shop"})
	}, "tok")

	_, ok, err := client.MyShop(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddShopProductSendsMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Mug", r.FormValue("name"))
		assert.Equal(t, "3", r.FormValue("stock"))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "mug.png", header.Filename)
		assert.Equal(t, "png-bytes", string(content))
		writeJSON(w, http.StatusCreated, map[string]any{"id": 3, "name": "Mug", "price": "1.00"})
	}, "tok")

	product, err := client.AddShopProduct(context.Background(), ProductInput{
		Name:     "Mug",
		Price:    "1.00",
		Stock:    3,
		Category: "kitchen",
		Image:    &Upload{Filename: "mug.png", Content: strings.NewReader("png-bytes")},
	})
	require.NoError(t, err)
	assert.Equal(t, catalog.ID("3"), product.ID)
}

func TestShopManagementRoutes(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPost, http.MethodPatch:
			require.NoError(t, r.ParseMultipartForm(1<<20))
			if strings.Contains(r.URL.Path, "product") {
				writeJSON(w, http.StatusOK, map[string]any{"id": 4, "name": r.FormValue("name"), "price": r.FormValue("price")})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": 9, "name": r.FormValue("name"), "is_active": true})
		}
	}, "tok")
	ctx := context.Background()

	_, err := client.CreateShop(ctx, ShopInput{Email: "not-an-email"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, seen)

	shop, err := client.CreateShop(ctx, ShopInput{Name: "Chiang Mai Crafts", Email: "shop@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Chiang Mai Crafts", shop.Name)

	_, err = client.UpdateShop(ctx, "9", ShopInput{Name: "Chiang Mai Crafts Co"})
	require.NoError(t, err)

	product, err := client.UpdateShopProduct(ctx, "4", ProductInput{Name: "Basket", Price: "350", Category: "home"})
	require.NoError(t, err)
	assert.Equal(t, "Basket", product.Name)

	require.NoError(t, client.DeleteShopProduct(ctx, "4"))
	require.Error(t, client.DeleteShopProduct(ctx, ""))

	assert.Equal(t, []string{
		"POST /api/shops/",
		"PATCH /api/shops/9/",
		"PATCH /api/shops/4/update_product/",
		"DELETE /api/shops/4/delete_product/",
	}, seen)
}

func TestLoginAndProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/login/":
			var creds auth.Credentials
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "nok", creds.Username)
			writeJSON(w, http.StatusOK, map[string]string{"access": "a1", "refresh": "r1"})
		case "/api/users/profile/":
			assert.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]any{"id": 5, "username": "nok", "is_staff": true})
		default:
			http.NotFound(w, r)
		}
	}, "")

	tokens, err := client.Login(context.Background(), auth.Credentials{Username: "nok", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, auth.Tokens{Access: "a1", Refresh: "r1"}, tokens)

	user, err := client.Profile(context.Background(), tokens.Access)
	require.NoError(t, err)
	assert.True(t, user.IsStaff)
	assert.Equal(t, catalog.ID("5"), user.ID)
}

func TestBreakerOpensAfterRepeatedServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, "")

	for i := 0; i < 3; i++ {
		_, err := client.Categories(context.Background())
		require.Error(t, err)
	}
	_, err := client.Categories(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Contains(t, err.Error(), "temporarily unavailable")
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallerCancellationDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	var hang atomic.Bool
	hang.Store(true)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if hang.Load() {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		writeJSON(w, http.StatusOK, []map[string]string{{"name": "kitchen"}})
	}, "")

	for i := 0; i < 4; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)
		_, err := client.Categories(ctx)
		require.ErrorIs(t, err, context.Canceled)
		cancel()
	}

	hang.Store(false)
	categories, err := client.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, int32(5), calls.Load())
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "missing"})
	}, "")

	for i := 0; i < 6; i++ {
		_, err := client.Product(context.Background(), "404")
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	}
	assert.Equal(t, int32(6), calls.Load())
}
