package services_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/app/repositories"
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/internal/testdb"
	"github.com/shashiranjanraj/billbook/pkg/event"
	"github.com/shashiranjanraj/billbook/pkg/orm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type invoiceFixture struct {
	db       *gorm.DB
	svc      *services.InvoiceService
	owner    *models.User
	customer *models.Customer
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()

	db := testdb.Open(t)
	q := orm.New(db)
	svc := services.NewInvoiceService(
		q,
		repositories.NewProductRepository(q),
		repositories.NewInvoiceRepository(q),
		repositories.NewCustomerRepository(q),
	)
	svc.DefaultStatus = models.StatusPaid

	owner := testdb.User(t, db, "owner@example.com")
	customer := testdb.Customer(t, db, owner.ID, "Asha", "9876543210")

	return &invoiceFixture{db: db, svc: svc, owner: owner, customer: customer}
}

func (f *invoiceFixture) create(no string, items ...services.LineInput) (*models.Invoice, error) {
	return f.svc.CreateInvoice(context.Background(), f.owner.ID, services.CreateInvoiceInput{
		InvoiceNo:  no,
		CustomerID: f.customer.ID,
		Items:      items,
	})
}

func item(name string, qty, rate float64) services.LineInput {
	return services.LineInput{ProductName: name, Quantity: qty, Rate: rate}
}

func TestCreateInvoice_SingleLine(t *testing.T) {
	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 50, 10)

	inv, err := f.create("INV-1", item("A", 3, 50))
	require.NoError(t, err)

	assert.NotZero(t, inv.ID)
	assert.Equal(t, models.StatusPaid, inv.Status)
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(150)), "total = %s", inv.Total)
	require.Len(t, inv.Items, 1)
	assert.True(t, inv.Items[0].Amount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 3, inv.Items[0].Quantity)
	require.NotNil(t, inv.Items[0].ProductID)
	assert.Equal(t, a.ID, *inv.Items[0].ProductID)
	assert.Equal(t, "A", inv.Items[0].ProductName)

	assert.Equal(t, 7, testdb.Stock(t, f.db, a.ID))

	var stored models.Invoice
	require.NoError(t, f.db.Preload("Items").First(&stored, inv.ID).Error)
	assert.True(t, stored.Total.Equal(decimal.NewFromInt(150)))
	assert.Len(t, stored.Items, 1)
}

func TestCreateInvoice_TotalIsExactSumOfLines(t *testing.T) {
	f := newInvoiceFixture(t)
	testdb.Product(t, f.db, f.owner.ID, "Pen", 19.99, 100)
	testdb.Product(t, f.db, f.owner.ID, "Clip", 0.1, 100)

	inv, err := f.create("INV-1", item("Pen", 3, 19.99), item("Clip", 7, 0.1))
	require.NoError(t, err)

	require.Len(t, inv.Items, 2)
	assert.True(t, inv.Items[0].Amount.Equal(decimal.RequireFromString("59.97")))
	assert.True(t, inv.Items[1].Amount.Equal(decimal.RequireFromString("0.7")))
	assert.True(t, inv.Total.Equal(decimal.RequireFromString("60.67")), "total = %s", inv.Total)
}

func TestCreateInvoice_RecordsStockMovements(t *testing.T) {
	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 5, 10)

	inv, err := f.create("INV-1", item("A", 4, 5))
	require.NoError(t, err)

	var moves []models.StockMovement
	require.NoError(t, f.db.Where("product_id = ?", a.ID).Find(&moves).Error)
	require.Len(t, moves, 1)
	assert.Equal(t, 10, moves[0].OldStock)
	assert.Equal(t, 6, moves[0].NewStock)
	assert.Equal(t, -4, moves[0].Delta)
	assert.Equal(t, models.MovementInvoice, moves[0].Reason)
	require.NotNil(t, moves[0].Reference)
	assert.Equal(t, inv.ID, *moves[0].Reference)
}

func TestCreateInvoice_InsufficientStock(t *testing.T) {
	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 50, 2)

	_, err := f.create("INV-1", item("A", 5, 50))

	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Insufficient stock for A. Available: 2", err.Error())
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 2, testdb.Stock(t, f.db, a.ID))
	assert.Zero(t, testdb.Count(t, f.db, &models.Invoice{}))
	assert.Zero(t, testdb.Count(t, f.db, &models.InvoiceItem{}))
}

func TestCreateInvoice_InvalidQuantity(t *testing.T) {
	cases := map[string]float64{
		"zero":       0,
		"negative":   -2,
		"fractional": 1.5,
		"nan":        math.NaN(),
		"inf":        math.Inf(1),
	}

	for name, qty := range cases {
		t.Run(name, func(t *testing.T) {
			f := newInvoiceFixture(t)
			a := testdb.Product(t, f.db, f.owner.ID, "A", 50, 10)

			_, err := f.create("INV-1", item("A", qty, 50))

			var ve *services.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "Invalid quantity for A", err.Error())
			assert.Equal(t, 10, testdb.Stock(t, f.db, a.ID))
			assert.Zero(t, testdb.Count(t, f.db, &models.Invoice{}))
		})
	}
}

func TestCreateInvoice_InvalidRate(t *testing.T) {
	for name, rate := range map[string]float64{"negative": -0.01, "nan": math.NaN(), "inf": math.Inf(-1)} {
		t.Run(name, func(t *testing.T) {
			f := newInvoiceFixture(t)
			testdb.Product(t, f.db, f.owner.ID, "A", 50, 10)

			_, err := f.create("INV-1", item("A", 1, rate))

			var ve *services.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "Invalid rate for A", err.Error())
		})
	}
}

func TestCreateInvoice_ZeroRateIsAllowed(t *testing.T) {
	f := newInvoiceFixture(t)
	testdb.Product(t, f.db, f.owner.ID, "Sample", 10, 3)

	inv, err := f.create("INV-1", item("Sample", 1, 0))
	require.NoError(t, err)
	assert.True(t, inv.Total.IsZero())
}

func TestCreateInvoice_ProductNotFound(t *testing.T) {
	f := newInvoiceFixture(t)

	_, err := f.create("INV-1", item("Ghost", 1, 10))

	var nf *services.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Product not found: Ghost", err.Error())
}

func TestCreateInvoice_OtherOwnersProductIsNotVisible(t *testing.T) {
	f := newInvoiceFixture(t)
	stranger := testdb.User(t, f.db, "stranger@example.com")
	theirs := testdb.Product(t, f.db, stranger.ID, "A", 50, 10)

	_, err := f.create("INV-1", item("A", 1, 50))

	var nf *services.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Product not found: A", err.Error())
	assert.Equal(t, 10, testdb.Stock(t, f.db, theirs.ID))
}

func TestCreateInvoice_SameNameForTwoOwners(t *testing.T) {
	f := newInvoiceFixture(t)
	stranger := testdb.User(t, f.db, "stranger@example.com")
	theirs := testdb.Product(t, f.db, stranger.ID, "A", 50, 10)
	mine := testdb.Product(t, f.db, f.owner.ID, "A", 50, 10)

	_, err := f.create("INV-1", item("A", 4, 50))
	require.NoError(t, err)

	assert.Equal(t, 6, testdb.Stock(t, f.db, mine.ID))
	assert.Equal(t, 10, testdb.Stock(t, f.db, theirs.ID))
}

func TestCreateInvoice_DeactivatedProductCanStillBeBilled(t *testing.T) {
	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 50, 10)
	require.NoError(t, f.db.Model(a).Update("is_active", false).Error)

	inv, err := f.create("INV-1", item("A", 3, 50))
	require.NoError(t, err)

	assert.Equal(t, a.ID, *inv.Items[0].ProductID)
	assert.Equal(t, 7, testdb.Stock(t, f.db, a.ID))
}

// drainingStore sells units to a competing buyer after the invoice flow has
// read the product and before it decrements, the way an engine without
// row locks lets a concurrent transaction in.
type drainingStore struct {
	*repositories.ProductRepository
	q       *orm.Query
	drain   int
	drained bool
}

func (s *drainingStore) DecrementStock(ctx context.Context, productID, ownerID uint, qty int) error {
	if !s.drained {
		s.drained = true
		err := s.q.WithContext(ctx).Gorm().
			Exec("UPDATE products SET stock = stock - ? WHERE id = ?", s.drain, productID).Error
		if err != nil {
			return err
		}
	}
	return s.ProductRepository.DecrementStock(ctx, productID, ownerID, qty)
}

func TestCreateInvoice_StockLevelsComeFromTheDecrement(t *testing.T) {
	event.Flush()
	t.Cleanup(event.Flush)

	var got []services.InvoiceCreated
	event.Listen(services.EventInvoiceCreated, func(payload interface{}) {
		got = append(got, payload.(services.InvoiceCreated))
	})

	db := testdb.Open(t)
	q := orm.New(db)
	svc := services.NewInvoiceService(
		q,
		&drainingStore{ProductRepository: repositories.NewProductRepository(q), q: q, drain: 2},
		repositories.NewInvoiceRepository(q),
		repositories.NewCustomerRepository(q),
	)
	owner := testdb.User(t, db, "owner@example.com")
	customer := testdb.Customer(t, db, owner.ID, "Asha", "9876543210")
	a := testdb.Product(t, db, owner.ID, "A", 10, 10)

	_, err := svc.CreateInvoice(context.Background(), owner.ID, services.CreateInvoiceInput{
		InvoiceNo:  "INV-1",
		CustomerID: customer.ID,
		Items:      []services.LineInput{item("A", 3, 10)},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, testdb.Stock(t, db, a.ID))

	var moves []models.StockMovement
	require.NoError(t, db.Where("product_id = ?", a.ID).Find(&moves).Error)
	require.Len(t, moves, 1)
	assert.Equal(t, 8, moves[0].OldStock)
	assert.Equal(t, 5, moves[0].NewStock)
	assert.Equal(t, -3, moves[0].Delta)

	require.Len(t, got, 1)
	assert.Equal(t, []services.StockLevel{{ProductID: a.ID, Name: "A", Stock: 5}}, got[0].Levels)
}

func TestCreateInvoice_FailureMidListRollsBackEarlierLines(t *testing.T) {
	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)
	b := testdb.Product(t, f.db, f.owner.ID, "B", 10, 10)

	_, err := f.create("INV-1", item("A", 3, 10), item("B", 2, 10), item("Missing", 1, 10))

	var nf *services.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 10, testdb.Stock(t, f.db, a.ID))
	assert.Equal(t, 10, testdb.Stock(t, f.db, b.ID))
	assert.Zero(t, testdb.Count(t, f.db, &models.Invoice{}))
	assert.Zero(t, testdb.Count(t, f.db, &models.StockMovement{}))
}

func TestCreateInvoice_LinesAreCheckedInOrder(t *testing.T) {
	f := newInvoiceFixture(t)
	testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)

	// The missing product comes first, so its error wins over the bad
	// quantity on the second line.
	_, err := f.create("INV-1", item("Missing", 1, 10), item("A", 0, 10))
	assert.EqualError(t, err, "Product not found: Missing")
}

func TestCreateInvoice_RepeatedProductSeesEarlierDecrement(t *testing.T) {
	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)

	_, err := f.create("INV-1", item("A", 6, 10), item("A", 6, 10))

	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Insufficient stock for A. Available: 4", err.Error())
	assert.Equal(t, 10, testdb.Stock(t, f.db, a.ID))
	assert.Zero(t, testdb.Count(t, f.db, &models.Invoice{}))
}

func TestCreateInvoice_RepeatedProductWithinStock(t *testing.T) {
	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)

	inv, err := f.create("INV-1", item("A", 4, 10), item("A", 6, 12))
	require.NoError(t, err)

	assert.Len(t, inv.Items, 2)
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(112)))
	assert.Equal(t, 0, testdb.Stock(t, f.db, a.ID))
}

func TestCreateInvoice_StockBoundary(t *testing.T) {
	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 1, 5)
	b := testdb.Product(t, f.db, f.owner.ID, "B", 1, 5)

	_, err := f.create("INV-1", item("A", 5, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, testdb.Stock(t, f.db, a.ID))

	_, err = f.create("INV-2", item("B", 6, 1))
	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 5, testdb.Stock(t, f.db, b.ID))
}

func TestCreateInvoice_RetryAfterFailureStartsFromOriginalStock(t *testing.T) {
	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)
	testdb.Product(t, f.db, f.owner.ID, "B", 10, 1)

	_, err := f.create("INV-1", item("A", 4, 10), item("B", 2, 10))
	require.Error(t, err)
	assert.Equal(t, 10, testdb.Stock(t, f.db, a.ID))

	_, err = f.create("INV-1", item("A", 4, 10), item("B", 1, 10))
	require.NoError(t, err)
	assert.Equal(t, 6, testdb.Stock(t, f.db, a.ID))
}

func TestCreateInvoice_ConcurrentRequestsDoNotOversell(t *testing.T) {
	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.create([]string{"INV-A", "INV-B"}[i], item("A", 6, 10))
		}(i)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		var stockErr *services.InsufficientStockError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &stockErr):
			short++
			assert.Equal(t, 4, stockErr.Available)
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
	assert.Equal(t, 4, testdb.Stock(t, f.db, a.ID))
	assert.Equal(t, int64(1), testdb.Count(t, f.db, &models.Invoice{}))
}

// racingProducts simulates another transaction draining the stock between
// the read and the conditional decrement.
type racingProducts struct {
	*repositories.ProductRepository
	db *gorm.DB
}

func (r racingProducts) DecrementStock(ctx context.Context, productID, ownerID uint, qty int) error {
	if err := r.db.Model(&models.Product{}).Where("id = ?", productID).Update("stock", 1).Error; err != nil {
		return err
	}
	return r.ProductRepository.DecrementStock(ctx, productID, ownerID, qty)
}

func TestCreateInvoice_LostRaceReportsFreshStock(t *testing.T) {
	db := testdb.Open(t)
	owner := testdb.User(t, db, "owner@example.com")
	customer := testdb.Customer(t, db, owner.ID, "Asha", "9876543210")
	a := testdb.Product(t, db, owner.ID, "A", 10, 10)

	// No transactor: each statement commits on its own so the simulated
	// competitor's write is visible to the decrement.
	q := orm.New(db)
	svc := services.NewInvoiceService(
		noTx{},
		racingProducts{ProductRepository: repositories.NewProductRepository(q), db: db},
		repositories.NewInvoiceRepository(q),
		repositories.NewCustomerRepository(q),
	)

	_, err := svc.CreateInvoice(context.Background(), owner.ID, services.CreateInvoiceInput{
		InvoiceNo: "INV-1", CustomerID: customer.ID, Items: []services.LineInput{item("A", 3, 10)},
	})

	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Insufficient stock for A. Available: 1", err.Error())
	assert.Equal(t, 1, testdb.Stock(t, db, a.ID))
}

type noTx struct{}

func (noTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestCreateInvoice_CustomerMustBelongToOwner(t *testing.T) {
	f := newInvoiceFixture(t)
	stranger := testdb.User(t, f.db, "stranger@example.com")
	theirCustomer := testdb.Customer(t, f.db, stranger.ID, "Bob", "9999999999")
	a := testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)

	_, err := f.svc.CreateInvoice(context.Background(), f.owner.ID, services.CreateInvoiceInput{
		InvoiceNo:  "INV-1",
		CustomerID: theirCustomer.ID,
		Items:      []services.LineInput{item("A", 1, 10)},
	})

	assert.EqualError(t, err, "Customer not found")
	assert.Equal(t, 10, testdb.Stock(t, f.db, a.ID))
}

func TestCreateInvoice_RequiresHeaderFields(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateInvoice(ctx, f.owner.ID, services.CreateInvoiceInput{CustomerID: f.customer.ID, Items: []services.LineInput{item("A", 1, 1)}})
	assert.EqualError(t, err, "Invoice number is required")

	_, err = f.svc.CreateInvoice(ctx, f.owner.ID, services.CreateInvoiceInput{InvoiceNo: "X", Items: []services.LineInput{item("A", 1, 1)}})
	assert.EqualError(t, err, "Customer is required")

	_, err = f.svc.CreateInvoice(ctx, f.owner.ID, services.CreateInvoiceInput{InvoiceNo: "X", CustomerID: f.customer.ID})
	assert.EqualError(t, err, "Invoice items are required")
}

func TestCreateInvoice_DuplicateNumberPerOwner(t *testing.T) {
	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)

	_, err := f.create("INV-1", item("A", 1, 10))
	require.NoError(t, err)

	_, err = f.create("INV-1", item("A", 1, 10))
	var ve *services.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Invoice number already exists", err.Error())
	assert.Equal(t, 9, testdb.Stock(t, f.db, a.ID))

	// Another owner may reuse the number.
	other := testdb.User(t, f.db, "other@example.com")
	otherCustomer := testdb.Customer(t, f.db, other.ID, "Zed", "1111111111")
	testdb.Product(t, f.db, other.ID, "A", 10, 10)
	_, err = f.svc.CreateInvoice(context.Background(), other.ID, services.CreateInvoiceInput{
		InvoiceNo: "INV-1", CustomerID: otherCustomer.ID, Items: []services.LineInput{item("A", 1, 10)},
	})
	assert.NoError(t, err)
}

func TestCreateInvoice_ConfiguredDefaultStatus(t *testing.T) {
	f := newInvoiceFixture(t)
	f.svc.DefaultStatus = models.StatusUnpaid
	testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)

	inv, err := f.create("INV-1", item("A", 1, 10))
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnpaid, inv.Status)
}

func TestCreateInvoice_FiresCreatedEvent(t *testing.T) {
	event.Flush()
	t.Cleanup(event.Flush)

	var got []services.InvoiceCreated
	event.Listen(services.EventInvoiceCreated, func(payload interface{}) {
		got = append(got, payload.(services.InvoiceCreated))
	})

	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)

	_, err := f.create("INV-1", item("A", 99, 10))
	require.Error(t, err)
	assert.Empty(t, got, "no event for a rolled back invoice")

	inv, err := f.create("INV-2", item("A", 3, 10))
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, inv.ID, got[0].InvoiceID)
	assert.Equal(t, f.owner.ID, got[0].OwnerID)
	assert.Equal(t, []services.StockLevel{{ProductID: a.ID, Name: "A", Stock: 7}}, got[0].Levels)
}

func TestUpdateInvoice_ReplacesItemsWithoutTouchingStock(t *testing.T) {
	f := newInvoiceFixture(t)
	a := testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)

	inv, err := f.create("INV-1", item("A", 2, 10))
	require.NoError(t, err)

	updated, err := f.svc.UpdateInvoice(context.Background(), f.owner.ID, inv.ID, services.UpdateInvoiceInput{
		InvoiceNo: "INV-1A",
		Items:     []services.LineInput{item("A", 5, 10), item("Service fee", 1, 2.5)},
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-1A", updated.InvoiceNo)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("52.5")), "total = %s", updated.Total)
	assert.Equal(t, 8, testdb.Stock(t, f.db, a.ID))

	reloaded, err := f.svc.GetInvoice(context.Background(), f.owner.ID, inv.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 2)
	assert.Nil(t, reloaded.Items[1].ProductID)
	assert.True(t, reloaded.Total.Equal(decimal.RequireFromString("52.5")))
}

func TestUpdateInvoice_ValidatesItemsAndOwner(t *testing.T) {
	f := newInvoiceFixture(t)
	testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)
	inv, err := f.create("INV-1", item("A", 2, 10))
	require.NoError(t, err)

	_, err = f.svc.UpdateInvoice(context.Background(), f.owner.ID, inv.ID, services.UpdateInvoiceInput{
		Items: []services.LineInput{item("A", 0.5, 10)},
	})
	assert.EqualError(t, err, "Invalid quantity for A")

	stranger := testdb.User(t, f.db, "stranger@example.com")
	_, err = f.svc.UpdateInvoice(context.Background(), stranger.ID, inv.ID, services.UpdateInvoiceInput{
		Items: []services.LineInput{item("A", 1, 10)},
	})
	assert.EqualError(t, err, "Invoice not found")

	reloaded, err := f.svc.GetInvoice(context.Background(), f.owner.ID, inv.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Items, 1)
	assert.True(t, reloaded.Total.Equal(decimal.NewFromInt(20)))
}

func TestMarkPaid(t *testing.T) {
	f := newInvoiceFixture(t)
	f.svc.DefaultStatus = models.StatusUnpaid
	testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)

	inv, err := f.create("INV-1", item("A", 3, 10))
	require.NoError(t, err)
	require.Equal(t, models.StatusUnpaid, inv.Status)

	paid, err := f.svc.MarkPaid(context.Background(), f.owner.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, paid.Status)

	var payments []models.Payment
	require.NoError(t, f.db.Where("invoice_id = ?", inv.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromInt(30)))

	// Paying twice is a no-op.
	_, err = f.svc.MarkPaid(context.Background(), f.owner.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), testdb.Count(t, f.db, &models.Payment{}))
}

func TestDeleteInvoice(t *testing.T) {
	f := newInvoiceFixture(t)
	f.svc.DefaultStatus = models.StatusUnpaid
	a := testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)

	inv, err := f.create("INV-1", item("A", 3, 10))
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(context.Background(), f.owner.ID, inv.ID)
	require.NoError(t, err)

	stranger := testdb.User(t, f.db, "stranger@example.com")
	err = f.svc.DeleteInvoice(context.Background(), stranger.ID, inv.ID)
	var nf *services.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(1), testdb.Count(t, f.db, &models.InvoiceItem{}))

	require.NoError(t, f.svc.DeleteInvoice(context.Background(), f.owner.ID, inv.ID))
	assert.Zero(t, testdb.Count(t, f.db, &models.Invoice{}))
	assert.Zero(t, testdb.Count(t, f.db, &models.InvoiceItem{}))
	assert.Zero(t, testdb.Count(t, f.db, &models.Payment{}))
	assert.Equal(t, 7, testdb.Stock(t, f.db, a.ID), "stock is not restored")
}

func TestListInvoices_NewestFirstAndOwnerScoped(t *testing.T) {
	f := newInvoiceFixture(t)
	testdb.Product(t, f.db, f.owner.ID, "A", 10, 10)
	for _, no := range []string{"INV-1", "INV-2", "INV-3"} {
		_, err := f.create(no, item("A", 1, 10))
		require.NoError(t, err)
	}
	stranger := testdb.User(t, f.db, "stranger@example.com")

	list, page, err := f.svc.ListInvoices(context.Background(), f.owner.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, list, 2)
	assert.Equal(t, "INV-3", list[0].InvoiceNo)
	require.NotNil(t, list[0].Customer)
	assert.Equal(t, "Asha", list[0].Customer.Name)

	list, _, err = f.svc.ListInvoices(context.Background(), stranger.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
