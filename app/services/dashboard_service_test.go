package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/app/repositories"
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/internal/testdb"
	"github.com/shashiranjanraj/billbook/pkg/cache"
	"github.com/shashiranjanraj/billbook/pkg/orm"
	"github.com/shashiranjanraj/billbook/pkg/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDashboard(t *testing.T) (*gorm.DB, *services.DashboardService, *models.User, *models.Customer) {
	t.Helper()
	cache.Use(cache.NewMemoryStore())

	db := testdb.Open(t)
	q := orm.New(db)
	pool := workerpool.New(3)
	t.Cleanup(pool.Shutdown)

	svc := services.NewDashboardService(pool,
		repositories.NewInvoiceRepository(q),
		repositories.NewProductRepository(q),
		repositories.NewExpenseRepository(q),
		5,
	)
	owner := testdb.User(t, db, "owner@example.com")
	cust := testdb.Customer(t, db, owner.ID, "Asha", "9876543210")
	return db, svc, owner, cust
}

func TestDashboard_SummaryAndInvalidation(t *testing.T) {
	db, svc, owner, cust := newDashboard(t)
	ctx := context.Background()
	now := time.Now()

	seedInvoice(t, db, owner.ID, cust.ID, "INV-1", models.StatusPaid, now, "100")
	seedInvoice(t, db, owner.ID, cust.ID, "INV-2", models.StatusPaid, now, "50.5")
	seedInvoice(t, db, owner.ID, cust.ID, "INV-3", models.StatusUnpaid, now, "20")
	require.NoError(t, db.Create(&models.Expense{UserID: owner.ID, Title: "Rent", Amount: dec("30"), SpentAt: now}).Error)

	sum, err := svc.Summary(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, sum.TotalSales.Equal(dec("150.5")), "sales %s", sum.TotalSales)
	assert.True(t, sum.ReceivedAmount.Equal(dec("150.5")))
	assert.True(t, sum.PendingAmount.Equal(dec("20")))
	assert.True(t, sum.TotalExpense.Equal(dec("30")))

	// Cached until forgotten.
	seedInvoice(t, db, owner.ID, cust.ID, "INV-4", models.StatusPaid, now, "1")
	sum, err = svc.Summary(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, sum.TotalSales.Equal(dec("150.5")))

	require.NoError(t, services.ForgetDashboard(ctx, owner.ID))
	sum, err = svc.Summary(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, sum.TotalSales.Equal(dec("151.5")))
}

func TestDashboard_Stock(t *testing.T) {
	db, svc, owner, _ := newDashboard(t)
	testdb.Product(t, db, owner.ID, "A", 1, 50)
	testdb.Product(t, db, owner.ID, "B", 1, 19)
	c := testdb.Product(t, db, owner.ID, "C", 1, 3)
	require.NoError(t, db.Model(c).Update("is_active", false).Error)

	s, err := svc.Stock(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.TotalProducts)
	assert.Equal(t, int64(2), s.ActiveProducts)
	assert.Equal(t, int64(72), s.TotalStock)
	assert.Equal(t, int64(2), s.LowStock)
}

func TestDashboard_TopProductsThisMonth(t *testing.T) {
	db, svc, owner, cust := newDashboard(t)
	now := time.Date(2026, time.May, 20, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	add := func(no, status string, at time.Time, lines map[string]int) {
		inv := &models.Invoice{Model: gorm.Model{CreatedAt: at}, UserID: owner.ID, CustomerID: cust.ID, InvoiceNo: no, Status: status}
		for name, qty := range lines {
			inv.Items = append(inv.Items, models.InvoiceItem{ProductName: name, Quantity: qty, Rate: dec("1"), Amount: dec("1")})
		}
		require.NoError(t, db.Create(inv).Error)
	}
	add("1", models.StatusPaid, now.AddDate(0, 0, -2), map[string]int{"Phone": 3, "Case": 1})
	add("2", models.StatusPaid, now.AddDate(0, 0, -1), map[string]int{"Phone": 2, "Cable": 4})
	add("3", models.StatusUnpaid, now, map[string]int{"Case": 50})
	add("4", models.StatusPaid, now.AddDate(0, -1, 0), map[string]int{"Charger": 99})

	top, err := svc.TopProducts(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []services.ProductSales{
		{Device: "Phone", Count: 5},
		{Device: "Cable", Count: 4},
		{Device: "Case", Count: 1},
	}, top)
}

func TestDashboard_LowStock(t *testing.T) {
	db, svc, owner, _ := newDashboard(t)
	testdb.Product(t, db, owner.ID, "A", 1, 6)
	testdb.Product(t, db, owner.ID, "B", 1, 5)
	testdb.Product(t, db, owner.ID, "C", 1, 0)

	items, err := svc.LowStock(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].Name)
	assert.Equal(t, 0, items[0].Quantity)
	assert.Equal(t, "B", items[1].Name)
}
