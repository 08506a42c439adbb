package services_test

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/app/repositories"
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/internal/testdb"
	"github.com/shashiranjanraj/billbook/pkg/orm"
	"github.com/shashiranjanraj/billbook/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedInvoice writes an invoice straight to the table with a fixed creation
// time and one line per amount.
func seedInvoice(t *testing.T, db *gorm.DB, ownerID, customerID uint, no, status string, at time.Time, lines ...string) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{
		Model:      gorm.Model{CreatedAt: at},
		UserID:     ownerID,
		CustomerID: customerID,
		InvoiceNo:  no,
		Status:     status,
	}
	for _, amount := range lines {
		a := dec(amount)
		inv.Items = append(inv.Items, models.InvoiceItem{ProductName: "Item " + amount, Quantity: 1, Rate: a, Amount: a})
		inv.Total = inv.Total.Add(a)
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

type reportFixture struct {
	db    *gorm.DB
	svc   *services.ReportService
	owner uint
	cust  uint
	root  string
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	db := testdb.Open(t)
	root := t.TempDir()
	svc := services.NewReportService(
		repositories.NewInvoiceRepository(orm.New(db)),
		storage.NewLocalDisk(root, "http://files.test"),
	)
	owner := testdb.User(t, db, "owner@example.com")
	cust := testdb.Customer(t, db, owner.ID, "Asha", "9876543210")
	return &reportFixture{db: db, svc: svc, owner: owner.ID, cust: cust.ID, root: root}
}

func TestReport_SalesNewestFirstAndOwnerScoped(t *testing.T) {
	f := newReportFixture(t)
	jan := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	seedInvoice(t, f.db, f.owner, f.cust, "INV-1", models.StatusPaid, jan, "100")
	seedInvoice(t, f.db, f.owner, f.cust, "INV-2", models.StatusUnpaid, jan.AddDate(0, 1, 0), "50")

	other := testdb.User(t, f.db, "other@example.com")
	seedInvoice(t, f.db, other.ID, f.cust, "X-1", models.StatusPaid, jan, "999")

	rows, err := f.svc.Sales(context.Background(), f.owner)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "INV-2", rows[0].InvoiceNo)
	assert.Equal(t, "Asha", rows[0].CustomerName)
	assert.Equal(t, models.StatusUnpaid, rows[0].Status)
}

func TestReport_ProfitLoss(t *testing.T) {
	f := newReportFixture(t)
	jan := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	seedInvoice(t, f.db, f.owner, f.cust, "INV-1", models.StatusPaid, jan, "100", "33.33")
	seedInvoice(t, f.db, f.owner, f.cust, "INV-2", models.StatusPaid, jan.AddDate(0, 0, 5), "10")
	seedInvoice(t, f.db, f.owner, f.cust, "INV-3", models.StatusUnpaid, jan.AddDate(0, 1, 0), "200")

	pl, err := f.svc.ProfitLoss(context.Background(), f.owner)
	require.NoError(t, err)

	// revenue 343.33, cost 0.7 × 343.33 = 240.331
	assert.True(t, pl.Revenue.Equal(dec("343.33")), "revenue %s", pl.Revenue)
	assert.True(t, pl.Cost.Equal(dec("240.33")), "cost %s", pl.Cost)
	assert.True(t, pl.Profit.Equal(dec("103")), "profit %s", pl.Profit)

	require.Len(t, pl.Monthly, 2)
	assert.Equal(t, "Jan 2026", pl.Monthly[0].Month)
	assert.True(t, pl.Monthly[0].Revenue.Equal(dec("143.33")))
	assert.Equal(t, "Feb 2026", pl.Monthly[1].Month)
	assert.True(t, pl.Monthly[1].Expense.Equal(dec("140")))
}

func TestReport_GST(t *testing.T) {
	f := newReportFixture(t)
	at := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	seedInvoice(t, f.db, f.owner, f.cust, "INV-1", models.StatusPaid, at, "118")
	seedInvoice(t, f.db, f.owner, f.cust, "INV-2", models.StatusPaid, at, "59")

	gst, err := f.svc.GST(context.Background(), f.owner)
	require.NoError(t, err)
	assert.True(t, gst.TaxableSales.Equal(dec("150")), "taxable %s", gst.TaxableSales)
	assert.True(t, gst.OutputGST.Equal(dec("27")), "output %s", gst.OutputGST)
	assert.True(t, gst.InputGST.IsZero())
	assert.True(t, gst.NetGST.Equal(dec("27")))
	require.Len(t, gst.Monthly, 1)
	assert.Equal(t, "Mar 2026", gst.Monthly[0].Month)
}

func TestReport_ExportSalesWritesCSV(t *testing.T) {
	f := newReportFixture(t)
	f.svc.Now = func() time.Time { return time.Date(2026, time.April, 1, 12, 30, 0, 0, time.UTC) }
	seedInvoice(t, f.db, f.owner, f.cust, "INV-1", models.StatusPaid, time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC), "12.5")

	exp, err := f.svc.ExportSales(context.Background(), f.owner)
	require.NoError(t, err)
	assert.Equal(t, 1, exp.Rows)
	assert.True(t, strings.HasSuffix(exp.Path, "sales-20260401-123000.csv"), exp.Path)
	assert.True(t, strings.HasPrefix(exp.URL, "http://files.test/reports/"), exp.URL)

	assert.Equal(t, "sales-20260401-123000.csv", exp.Name)

	rc, err := storage.NewLocalDisk(f.root, "").Open(context.Background(), exp.Path)
	require.NoError(t, err)
	defer rc.Close()
	records, err := csv.NewReader(rc).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"id", "invoice_no", "customer", "status", "total", "created_at"}, records[0])
	assert.Equal(t, "INV-1", records[1][1])
	assert.Equal(t, "Asha", records[1][2])
	assert.Equal(t, "12.50", records[1][4])
}

func TestReport_ExportsListedNewestFirstAndOpenable(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	seedInvoice(t, f.db, f.owner, f.cust, "INV-1", models.StatusPaid, time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC), "10")

	for _, day := range []int{1, 2} {
		f.svc.Now = func() time.Time { return time.Date(2026, time.April, day, 8, 0, 0, 0, time.UTC) }
		_, err := f.svc.ExportSales(ctx, f.owner)
		require.NoError(t, err)
	}

	files, err := f.svc.Exports(ctx, f.owner)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "sales-20260402-080000.csv", files[0].Name)
	assert.Equal(t, "http://files.test/reports/"+fmt.Sprint(f.owner)+"/sales-20260402-080000.csv", files[0].URL)
	assert.Positive(t, files[0].Size)

	other, err := f.svc.Exports(ctx, f.owner+100)
	require.NoError(t, err)
	assert.Empty(t, other)

	rc, err := f.svc.OpenExport(ctx, f.owner, files[1].Name)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Contains(t, string(body), "INV-1")

	_, err = f.svc.OpenExport(ctx, f.owner, "../1/sales-20260402-080000.csv")
	var ve *services.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = f.svc.OpenExport(ctx, f.owner, "sales-19990101-000000.csv")
	var nf *services.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
