package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/viewhistory"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type cartStore interface {
	controllers.CartStore
	controllers.ReadyChecker
}

type historyStore interface {
	controllers.HistoryStore
	controllers.ReadyChecker
}

type remoteAPI interface {
	controllers.ProductSource
	controllers.OrderSource
	controllers.NotificationSource
	controllers.ShopSource
	controllers.ShopManager
	controllers.AdminSource
}

// Services are the collaborators the app shell routes to.
type Services struct {
	Cart          cartStore
	History       historyStore
	Session       controllers.AuthSession
	API           remoteAPI
	Checkout      checkout.Service
	Notifications controllers.UnreadCounter
	Metrics       prometheus.Gatherer
	CORSOrigins   []string
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(svc.CORSOrigins),
	)

	maxHistory := cfg.History.MaxEntries
	if maxHistory <= 0 {
		maxHistory = viewhistory.DefaultMaxEntries
	}
	requireSession := middleware.RequireSession(svc.Session, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.ReadyChecker{
			"cart":    svc.Cart,
			"history": svc.History,
		}))
	})

	if svc.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(svc.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(svc.API, logg))
		r.Get("/categories", controllers.CategoryList(svc.API, logg))
		r.Get("/{productId}", controllers.ProductDetail(svc.API, svc.History, logg))
	})

	r.Route("/shops", func(r chi.Router) {
		r.Get("/", controllers.ShopList(svc.API, logg))
		r.With(requireSession).Post("/", controllers.ShopCreate(svc.API, logg))
		r.With(requireSession).Get("/mine", controllers.MyShop(svc.API, logg))
		r.Route("/mine/products", func(r chi.Router) {
			r.Use(requireSession)
			r.Post("/", controllers.ShopProductAdd(svc.API, logg))
			r.Put("/{productId}", controllers.ShopProductUpdate(svc.API, logg))
			r.Delete("/{productId}", controllers.ShopProductDelete(svc.API, logg))
		})
		r.Get("/{shopId}", controllers.ShopDetail(svc.API, logg))
		r.With(requireSession).Put("/{shopId}", controllers.ShopUpdate(svc.API, logg))
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", controllers.CartFetch(svc.Cart))
		r.Delete("/", controllers.CartClear(svc.Cart))
		r.Post("/items", controllers.CartAddItem(svc.Cart, svc.API, logg))
		r.Put("/items/{productId}", controllers.CartSetQuantity(svc.Cart, logg))
		r.Delete("/items/{productId}", controllers.CartRemoveItem(svc.Cart, logg))
	})

	r.Route("/history", func(r chi.Router) {
		r.Get("/", controllers.HistoryList(svc.History, maxHistory, logg))
		r.Post("/", controllers.HistoryRecord(svc.History, svc.API, logg))
		r.Delete("/", controllers.HistoryClear(svc.History))
		r.Delete("/{productId}", controllers.HistoryRemove(svc.History, logg))
	})

	r.Route("/session", func(r chi.Router) {
		r.Get("/", controllers.SessionFetch(svc.Session))
		r.Post("/login", controllers.SessionLogin(svc.Session, logg))
		r.Post("/register", controllers.SessionRegister(svc.Session, logg))
		r.Post("/logout", controllers.SessionLogout(svc.Session))
		r.With(requireSession).Put("/profile", controllers.SessionUpdateProfile(svc.Session, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(requireSession)

		r.Get("/checkout/shipping", controllers.CheckoutShipping(svc.Checkout))
		r.Post("/checkout", controllers.Checkout(svc.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svc.API, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svc.API, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(svc.API, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svc.API, logg))
			r.Get("/unread", controllers.UnreadNotifications(svc.Notifications))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svc.API, svc.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svc.API, svc.Notifications, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireStaff(svc.Session, logg))
			r.Get("/dashboard", controllers.AdminDashboard(svc.API, logg))
			r.Patch("/orders/{orderId}/status", controllers.AdminUpdateOrderStatus(svc.API, logg))
			r.Post("/notifications", controllers.AdminSendNotification(svc.API, logg))
		})
	})

	return r
}
