package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_shop/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterDeps struct {
	Carts    CartService
	Orders   OrderService
	Catalog  ProductCatalog
	Payments PaymentDispatcher
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
	// Health reports backing store reachability; nil means always healthy.
	Health         func(ctx context.Context) error
	RequestTimeout time.Duration
}

func NewRouter(deps RouterDeps) http.Handler {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}

	cartHandler := NewCartHandler(deps.Carts)
	ordersHandler := NewOrdersHandler(deps.Orders)
	productHandler := NewProductHandler(deps.Catalog)
	paymentHandler := NewPaymentHandler(deps.Payments)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(deps.Log))
	r.Use(middleware.Recoverer)
	r.Use(Metrics(deps.Metrics))
	r.Use(middleware.Timeout(deps.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/{product_id}", productHandler.Get)
		})
		r.Route("/cart/{user_id}", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{line_id}", cartHandler.UpdateItem)
			r.Delete("/items/{line_id}", cartHandler.RemoveItem)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordersHandler.CreateOrder)
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{order_id}", ordersHandler.GetOrder)
			r.Delete("/{order_id}", ordersHandler.DeleteOrder)
			r.Put("/{order_id}/status", ordersHandler.UpdateStatus)
			r.Put("/{order_id}/payment", ordersHandler.AttachPayment)
		})
		r.Get("/users/{user_id}/orders", ordersHandler.ListUserOrders)
		r.Route("/payments", func(r chi.Router) {
			r.Post("/process", paymentHandler.Process)
			r.Post("/stripe", paymentHandler.Stripe)
			r.Post("/paypal", paymentHandler.PayPal)
			r.Post("/razorpay", paymentHandler.Razorpay)
		})
	})

	return otelhttp.NewHandler(r, "shop-http")
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
				respondJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}
