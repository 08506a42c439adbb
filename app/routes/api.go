// Package routes declares the HTTP surface of the application.
package routes

import (
	"net/http"
	"time"

	"github.com/shashiranjanraj/billbook/app/controllers"
	"github.com/shashiranjanraj/billbook/pkg/auth"
	"github.com/shashiranjanraj/billbook/pkg/ctx"
	"github.com/shashiranjanraj/billbook/pkg/metrics"
	"github.com/shashiranjanraj/billbook/pkg/middleware"
	"github.com/shashiranjanraj/billbook/pkg/response"
	"github.com/shashiranjanraj/billbook/pkg/router"
	"github.com/shashiranjanraj/billbook/pkg/ws"
)

// Handlers is everything the route table dispatches to.
type Handlers struct {
	Auth      *controllers.AuthController
	Users     *controllers.UserController
	OTP       *controllers.OTPController
	Customers *controllers.CustomerController
	Products  *controllers.ProductController
	Invoices  *controllers.InvoiceController
	Reports   *controllers.ReportController
	Dashboard *controllers.DashboardController
	Expenses  *controllers.ExpenseController

	GraphQL http.Handler
	Hub     *ws.Hub
}

// RegisterAPI mounts every route on r.
func RegisterAPI(r *router.Router, h Handlers) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/metrics", "metrics", metrics.Handler())

	api := r.Group("/api")
	api.Get("/health", "health", func(w http.ResponseWriter, _ *http.Request) {
		response.Success(w, map[string]string{"status": "ok"})
	})

	authGroup := api.Group("/auth", middleware.RateLimit(20, time.Minute))
	authGroup.Post("/register", "auth.register", ctx.Wrap(h.Auth.Register))
	authGroup.Post("/login", "auth.login", ctx.Wrap(h.Auth.Login))
	authGroup.Post("/refresh", "auth.refresh", ctx.Wrap(h.Auth.Refresh))

	otp := api.Group("/otp", middleware.RateLimit(5, time.Minute))
	otp.Post("/send", "otp.send", ctx.Wrap(h.OTP.Send))
	otp.Post("/verify", "otp.verify", ctx.Wrap(h.OTP.Verify))

	protected := api.Group("", middleware.Auth)

	protected.Get("/users/me", "users.me", ctx.Wrap(h.Users.Me))
	protected.Put("/users/me", "users.update", ctx.Wrap(h.Users.Update))
	protected.Delete("/users/me", "users.destroy", ctx.Wrap(h.Users.Destroy))
	protected.Post("/security/change-password", "security.password", ctx.Wrap(h.Users.ChangePassword))

	customers := protected.Group("/customers")
	customers.Get("/", "customers.index", ctx.Wrap(h.Customers.Index))
	customers.Post("/", "customers.store", ctx.Wrap(h.Customers.Store))
	customers.Get("/{id}", "customers.show", ctx.Wrap(h.Customers.Show))
	customers.Put("/{id}", "customers.update", ctx.Wrap(h.Customers.Update))
	customers.Delete("/{id}", "customers.destroy", ctx.Wrap(h.Customers.Destroy))

	products := protected.Group("/products")
	products.Get("/", "products.index", ctx.Wrap(h.Products.Index))
	products.Post("/", "products.store", ctx.Wrap(h.Products.Store))
	products.Get("/{id}", "products.show", ctx.Wrap(h.Products.Show))
	products.Put("/{id}", "products.update", ctx.Wrap(h.Products.Update))
	products.Delete("/{id}", "products.destroy", ctx.Wrap(h.Products.Destroy))
	products.Post("/{id}/restock", "products.restock", ctx.Wrap(h.Products.Restock))
	products.Get("/{id}/movements", "products.movements", ctx.Wrap(h.Products.Movements))

	invoices := protected.Group("/invoices")
	invoices.Get("/", "invoices.index", ctx.Wrap(h.Invoices.Index))
	invoices.Post("/", "invoices.store", ctx.Wrap(h.Invoices.Store))
	invoices.Get("/{id}", "invoices.show", ctx.Wrap(h.Invoices.Show))
	invoices.Put("/{id}", "invoices.update", ctx.Wrap(h.Invoices.Update))
	invoices.Patch("/{id}/pay", "invoices.pay", ctx.Wrap(h.Invoices.Pay))
	invoices.Delete("/{id}", "invoices.destroy", ctx.Wrap(h.Invoices.Destroy))

	reports := protected.Group("/reports")
	reports.Get("/sales", "reports.sales", ctx.Wrap(h.Reports.Sales))
	reports.Post("/sales/export", "reports.sales.export", ctx.Wrap(h.Reports.ExportSales))
	reports.Get("/exports", "reports.exports.index", ctx.Wrap(h.Reports.Exports))
	reports.Get("/exports/{name}", "reports.exports.show", ctx.Wrap(h.Reports.DownloadExport))
	reports.Get("/profit-loss", "reports.profit_loss", ctx.Wrap(h.Reports.ProfitLoss))
	reports.Get("/gst", "reports.gst", ctx.Wrap(h.Reports.GST))

	dashboard := protected.Group("/dashboard")
	dashboard.Get("/summary", "dashboard.summary", ctx.Wrap(h.Dashboard.Summary))
	dashboard.Get("/stock", "dashboard.stock", ctx.Wrap(h.Dashboard.Stock))
	dashboard.Get("/devices", "dashboard.devices", ctx.Wrap(h.Dashboard.Devices))
	dashboard.Get("/low-stock", "dashboard.low_stock", ctx.Wrap(h.Dashboard.LowStock))

	protected.Get("/expenses", "expenses.index", ctx.Wrap(h.Expenses.Index))
	protected.Post("/expenses", "expenses.store", ctx.Wrap(h.Expenses.Store))
	protected.Get("/categories", "categories.index", ctx.Wrap(h.Expenses.Categories))
	protected.Post("/categories", "categories.store", ctx.Wrap(h.Expenses.StoreCategory))

	if h.GraphQL != nil {
		protected.Handle(http.MethodPost, "/graphql", "graphql", h.GraphQL)
	}
	if h.Hub != nil {
		protected.Get("/ws/stock", "ws.stock", func(w http.ResponseWriter, r *http.Request) {
			ws.Upgrade(w, r, h.Hub, auth.UserID(r.Context()))
		})
	}
}
