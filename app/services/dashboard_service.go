package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/app/repositories"
	"github.com/shashiranjanraj/billbook/pkg/cache"
	"github.com/shashiranjanraj/billbook/pkg/collection"
	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shashiranjanraj/billbook/pkg/workerpool"
	"github.com/shopspring/decimal"
)

const (
	dashboardTTL      = time.Minute
	stockSummaryBelow = 20
	topProductsLimit  = 5
)

type Summary struct {
	TotalSales     decimal.Decimal `json:"total_sales"`
	ReceivedAmount decimal.Decimal `json:"received_amount"`
	PendingAmount  decimal.Decimal `json:"pending_amount"`
	TotalExpense   decimal.Decimal `json:"total_expense"`
}

// ProductSales is a product and the units of it sold.
type ProductSales struct {
	Device string `json:"device"`
	Count  int    `json:"count"`
}

type LowStockItem struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}

func summaryKey(ownerID uint) string { return fmt.Sprintf("dashboard:%d:summary", ownerID) }
func stockKey(ownerID uint) string   { return fmt.Sprintf("dashboard:%d:stock", ownerID) }

// ForgetDashboard drops the owner's cached dashboard figures.
func ForgetDashboard(ctx context.Context, ownerID uint) error {
	return cache.Del(ctx, summaryKey(ownerID), stockKey(ownerID))
}

func forgetDashboard(ctx context.Context, ownerID uint) {
	if err := ForgetDashboard(ctx, ownerID); err != nil {
		logger.WithCtx(ctx).Warn("dashboard cache not cleared", "owner_id", ownerID, "error", err)
	}
}

type DashboardService struct {
	pool     *workerpool.Pool
	invoices *repositories.InvoiceRepository
	products *repositories.ProductRepository
	expenses *repositories.ExpenseRepository

	// LowStockAt is the stock level at or below which an item is listed
	// as running low.
	LowStockAt int
	Now        func() time.Time
}

func NewDashboardService(pool *workerpool.Pool, invoices *repositories.InvoiceRepository, products *repositories.ProductRepository, expenses *repositories.ExpenseRepository, lowStockAt int) *DashboardService {
	return &DashboardService{
		pool:       pool,
		invoices:   invoices,
		products:   products,
		expenses:   expenses,
		LowStockAt: lowStockAt,
		Now:        time.Now,
	}
}

// Summary totals paid and unpaid invoices and expenses. The three sums run
// concurrently and the result is cached briefly.
func (s *DashboardService) Summary(ctx context.Context, ownerID uint) (*Summary, error) {
	var out Summary
	err := cache.Remember(ctx, summaryKey(ownerID), dashboardTTL, &out, func() (interface{}, error) {
		var paid, unpaid, spent decimal.Decimal
		err := s.pool.Run(ctx,
			func(ctx context.Context) (err error) {
				paid, err = s.invoices.TotalByStatus(ctx, ownerID, models.StatusPaid)
				return err
			},
			func(ctx context.Context) (err error) {
				unpaid, err = s.invoices.TotalByStatus(ctx, ownerID, models.StatusUnpaid)
				return err
			},
			func(ctx context.Context) (err error) {
				spent, err = s.expenses.Total(ctx, ownerID)
				return err
			},
		)
		if err != nil {
			return nil, err
		}
		return Summary{TotalSales: paid, ReceivedAmount: paid, PendingAmount: unpaid, TotalExpense: spent}, nil
	})
	if err != nil {
		return nil, persistence("load dashboard summary", err)
	}
	return &out, nil
}

// Stock summarises the owner's inventory. Products under 20 units count as
// low here.
func (s *DashboardService) Stock(ctx context.Context, ownerID uint) (*repositories.StockSummary, error) {
	var out repositories.StockSummary
	err := cache.Remember(ctx, stockKey(ownerID), dashboardTTL, &out, func() (interface{}, error) {
		return s.products.Summary(ctx, ownerID, stockSummaryBelow)
	})
	if err != nil {
		return nil, persistence("load stock summary", err)
	}
	return &out, nil
}

// TopProducts ranks products by units sold on PAID invoices since the
// start of the current month.
func (s *DashboardService) TopProducts(ctx context.Context, ownerID uint) ([]ProductSales, error) {
	now := s.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	invoices, err := s.invoices.WithItemsSince(ctx, ownerID, models.StatusPaid, start)
	if err != nil {
		return nil, persistence("load product sales", err)
	}

	items := collection.FlatMap(invoices, func(inv models.Invoice) []models.InvoiceItem { return inv.Items })
	byName := collection.GroupBy(items, func(it models.InvoiceItem) string {
		if it.ProductName == "" {
			return "Unknown"
		}
		return it.ProductName
	})

	out := make([]ProductSales, 0, len(byName))
	for name, lines := range byName {
		n := collection.Reduce(lines, 0, func(sum int, it models.InvoiceItem) int { return sum + it.Quantity })
		out = append(out, ProductSales{Device: name, Count: n})
	}
	collection.SortBy(out, func(a, b ProductSales) bool {
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Device < b.Device
	})
	out = collection.Take(out, topProductsLimit)
	return out, nil
}

// LowStock lists active products at or below LowStockAt, lowest first.
func (s *DashboardService) LowStock(ctx context.Context, ownerID uint) ([]LowStockItem, error) {
	products, err := s.products.LowStock(ctx, ownerID, s.LowStockAt)
	if err != nil {
		return nil, persistence("load low stock items", err)
	}

	return collection.Map(products, func(p models.Product) LowStockItem {
		return LowStockItem{ID: p.ID, Name: p.Name, Quantity: p.Stock, Unit: p.Unit}
	}), nil
}
