package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/campus-market/backend/internal/api/http/handlers"
	"github.com/campus-market/backend/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	KYC            *handlers.KYCHandler
	Orders         *handlers.OrdersHandler
	Products       *handlers.ProductsHandler
	Delivery       *handlers.DeliveryHandler
	Addresses      *handlers.AddressHandler
	AuthMiddleware *auth.AuthMiddleware

	// Realtime serves GET /ws when set; it must include the upgrade check.
	Realtime []fiber.Handler
	// Metrics serves GET /metrics when set.
	Metrics nethttp.Handler
}

// RegisterRoutes wires HTTP routes. Every api route is a POST.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}
	if len(cfg.Realtime) > 0 {
		app.Get("/ws", cfg.Realtime...)
	}

	api := app.Group("/api")
	member := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireUser()}
	admin := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAdmin()}

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/verify", cfg.Users.Verify)
	authGroup.Post("/signin", cfg.Users.SignIn)
	authGroup.Post("/resend-activation", cfg.Users.ResendActivation)
	authGroup.Post("/verify-token", cfg.Users.VerifyToken)
	authGroup.Post("/signout", append(member, cfg.Users.SignOut)...)
	authGroup.Post("/onsession", append(member, cfg.Users.OnSession)...)

	api.Post("/admin/login", cfg.Users.AdminLogin)

	kyc := api.Group("/kyc")
	kyc.Post("/submit", append(member, cfg.KYC.Submit)...)
	kyc.Post("/show", append(admin, cfg.KYC.Show)...)
	kyc.Post("/process", append(admin, cfg.KYC.Process)...)

	order := api.Group("/order")
	order.Post("/create", append(member, cfg.Orders.Create)...)
	order.Post("/mypurchases", append(member, cfg.Orders.MyPurchases)...)
	order.Post("/history", append(member, cfg.Orders.History)...)
	order.Post("/status", append(admin, cfg.Orders.UpdateStatus)...)

	products := api.Group("/user-product")
	products.Post("/create", append(member, cfg.Products.Create)...)
	products.Post("/show", cfg.Products.Show)
	products.Post("/update-stock", append(member, cfg.Products.UpdateStock)...)
	products.Post("/approved-bulk-orders", append(admin, cfg.Orders.BulkUpdateStatus)...)

	delivery := api.Group("/delivery", admin...)
	delivery.Post("/assign", cfg.Delivery.Assign)
	delivery.Post("/track", cfg.Delivery.Track)
	delivery.Post("/trackers", cfg.Delivery.Trackers)

	address := api.Group("/address", member...)
	address.Post("/create", cfg.Addresses.Create)
	address.Post("/list", cfg.Addresses.List)
}
