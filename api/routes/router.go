package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/delacruzbakes/bakeshop-backend/api/controllers"
	"github.com/delacruzbakes/bakeshop-backend/api/middleware"
	"github.com/delacruzbakes/bakeshop-backend/internal/cart"
	"github.com/delacruzbakes/bakeshop-backend/internal/customcakes"
	"github.com/delacruzbakes/bakeshop-backend/internal/orders"
	"github.com/delacruzbakes/bakeshop-backend/internal/payments"
	"github.com/delacruzbakes/bakeshop-backend/internal/stock"
	"github.com/delacruzbakes/bakeshop-backend/pkg/config"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db"
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
	"github.com/delacruzbakes/bakeshop-backend/pkg/redis"
)

// NewRouter assembles the full HTTP surface from the wired services.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	stockService stock.Service,
	cartService cart.Service,
	ordersService orders.Service,
	cakesService customcakes.Service,
	paymentsService payments.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	r.Get("/api/v1/menu", controllers.Menu(stockService, logg))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paymongo", controllers.PayMongoWebhook(paymentsService, cfg.PayMongo.WebhookSecret, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartList(cartService, logg))
			r.Post("/items", controllers.CartAddMenuItem(cartService, logg))
			r.Post("/custom-cakes", controllers.CartAddCustomCake(cartService, logg))
			r.Patch("/items/{lineId}", controllers.CartUpdateQty(cartService, logg))
			r.Delete("/items/{lineId}", controllers.CartRemoveLine(cartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(ordersService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/payment-intent", controllers.OrderPaymentIntent(paymentsService, logg))
		})

		r.Route("/custom-cakes", func(r chi.Router) {
			r.Post("/", controllers.CakeSubmit(cakesService, logg))
			r.Get("/", controllers.CakesList(cakesService, logg))
			r.Get("/{cakeId}", controllers.CakeDetail(cakesService, logg))
			r.Post("/{cakeId}/payment-intent", controllers.CakePaymentIntent(paymentsService, logg))
		})

		r.Post("/payments/verify", controllers.PaymentVerify(paymentsService, logg))

		r.Route("/staff", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleStaff.String(), logg))

			r.Post("/menu", controllers.StaffMenuCreate(stockService, logg))
			r.Patch("/menu/{unitId}", controllers.StaffMenuUpdate(stockService, logg))

			r.Post("/orders/{orderId}/advance", controllers.StaffOrderAdvance(ordersService, logg))
			r.Post("/orders/{orderId}/cancel", controllers.StaffOrderCancel(ordersService, logg))
			r.Post("/orders/{orderId}/confirm-cash", controllers.StaffOrderConfirmCash(ordersService, logg))

			r.Get("/custom-cakes", controllers.StaffCakesList(cakesService, logg))
			r.Post("/custom-cakes/{cakeId}/decision", controllers.StaffCakeDecision(cakesService, logg))
			r.Post("/custom-cakes/{cakeId}/price", controllers.StaffCakePrice(cakesService, logg))
			r.Post("/custom-cakes/{cakeId}/advance", controllers.StaffCakeAdvance(cakesService, logg))
			r.Post("/custom-cakes/{cakeId}/cancel", controllers.StaffCakeCancel(cakesService, logg))
			r.Post("/custom-cakes/{cakeId}/collect-balance", controllers.StaffCakeCollectBalance(cakesService, logg))
		})
	})

	return r
}
