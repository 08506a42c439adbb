package server

import (
	"net/http"
	"time"

	"github.com/shashiranjanraj/billbook/app/controllers"
	"github.com/shashiranjanraj/billbook/app/jobs"
	"github.com/shashiranjanraj/billbook/app/listeners"
	"github.com/shashiranjanraj/billbook/app/repositories"
	"github.com/shashiranjanraj/billbook/app/routes"
	"github.com/shashiranjanraj/billbook/app/schema"
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/cache"
	"github.com/shashiranjanraj/billbook/pkg/graphql"
	"github.com/shashiranjanraj/billbook/pkg/metrics"
	"github.com/shashiranjanraj/billbook/pkg/middleware"
	"github.com/shashiranjanraj/billbook/pkg/orm"
	"github.com/shashiranjanraj/billbook/pkg/queue"
	"github.com/shashiranjanraj/billbook/pkg/reqid"
	"github.com/shashiranjanraj/billbook/pkg/router"
	"github.com/shashiranjanraj/billbook/pkg/storage"
	"github.com/shashiranjanraj/billbook/pkg/workerpool"
	"github.com/shashiranjanraj/billbook/pkg/ws"
	"gorm.io/gorm"
)

// Deps are the infrastructure pieces the application is assembled from.
type Deps struct {
	DB         *gorm.DB
	Disk       storage.Disk
	OTPStore   cache.Store
	OTPSender  services.OTPSender
	Queue      *queue.Manager
	Hub        *ws.Hub
	Pool       *workerpool.Pool
	LowStockAt int
}

// App is the assembled application.
type App struct {
	Router    *router.Router
	Hub       *ws.Hub
	Queue     *queue.Manager
	Dashboard *services.DashboardService
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.Router.Handler() }

// Build wires repositories, services, controllers, the event listeners and
// the route table. It does not start anything.
func Build(d Deps) (*App, error) {
	if d.Queue == nil {
		d.Queue = queue.Default()
	}
	if d.Hub == nil {
		d.Hub = ws.NewHub()
	}
	if d.Pool == nil {
		d.Pool = workerpool.New(4)
	}
	if d.OTPStore == nil {
		d.OTPStore = cache.Default()
	}
	if d.Disk == nil {
		d.Disk = storage.Default()
	}

	q := orm.New(d.DB)

	users := repositories.NewUserRepository(q)
	customers := repositories.NewCustomerRepository(q)
	products := repositories.NewProductRepository(q)
	invoices := repositories.NewInvoiceRepository(q)
	expenses := repositories.NewExpenseRepository(q)

	accountSvc := services.NewAccountService(users)
	otpSvc := services.NewOTPService(d.OTPStore, d.OTPSender)
	customerSvc := services.NewCustomerService(q, customers, invoices)
	productSvc := services.NewProductService(q, products)
	invoiceSvc := services.NewInvoiceService(q, products, invoices, customers)
	reportSvc := services.NewReportService(invoices, d.Disk)
	expenseSvc := services.NewExpenseService(expenses)
	dashboardSvc := services.NewDashboardService(d.Pool, invoices, products, expenses, d.LowStockAt)

	gqlSchema, err := schema.New(invoiceSvc, productSvc, dashboardSvc)
	if err != nil {
		return nil, err
	}

	jobs.Register(d.Queue, dashboardSvc)
	listeners.Register(d.Hub, d.Queue)

	r := router.New()
	r.Use(
		metrics.Middleware(),
		middleware.Recovery,
		reqid.Middleware(),
		middleware.Logger,
		middleware.CORS(middleware.DefaultCORSOptions()),
		middleware.RateLimit(300, time.Minute),
	)

	routes.RegisterAPI(r, routes.Handlers{
		Auth:      controllers.NewAuthController(accountSvc),
		Users:     controllers.NewUserController(accountSvc),
		OTP:       controllers.NewOTPController(otpSvc),
		Customers: controllers.NewCustomerController(customerSvc),
		Products:  controllers.NewProductController(productSvc, d.LowStockAt),
		Invoices:  controllers.NewInvoiceController(invoiceSvc),
		Reports:   controllers.NewReportController(reportSvc),
		Dashboard: controllers.NewDashboardController(dashboardSvc),
		Expenses:  controllers.NewExpenseController(expenseSvc),
		GraphQL:   graphql.Handler(gqlSchema),
		Hub:       d.Hub,
	})

	return &App{Router: r, Hub: d.Hub, Queue: d.Queue, Dashboard: dashboardSvc}, nil
}
