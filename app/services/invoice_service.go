package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/app/repositories"
	"github.com/shashiranjanraj/billbook/config"
	"github.com/shashiranjanraj/billbook/pkg/event"
	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shashiranjanraj/billbook/pkg/metrics"
	"github.com/shashiranjanraj/billbook/pkg/orm"
	"github.com/shopspring/decimal"
)

// EventInvoiceCreated is fired after an invoice has been committed. The
// payload is an InvoiceCreated value.
const EventInvoiceCreated = "invoice.created"

// InvoiceCreated describes a committed invoice and the stock levels it left
// behind.
type InvoiceCreated struct {
	OwnerID   uint
	InvoiceID uint
	InvoiceNo string
	Levels    []StockLevel
}

// StockLevel is a product's stock right after an invoice touched it.
type StockLevel struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

// Transactor runs fn as one all-or-nothing unit. The context passed to fn
// carries the transaction; stores called with it take part in it.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductStore is the product persistence the invoice flow needs.
type ProductStore interface {
	FindByNameAndOwner(ctx context.Context, name string, ownerID uint) (*models.Product, error)
	DecrementStock(ctx context.Context, productID, ownerID uint, qty int) error
	Stock(ctx context.Context, productID, ownerID uint) (int, error)
	RecordMovement(ctx context.Context, m *models.StockMovement) error
}

// InvoiceStore is the invoice persistence the invoice flow needs.
type InvoiceStore interface {
	CreateWithItems(ctx context.Context, inv *models.Invoice) error
	FindByIDAndOwner(ctx context.Context, id, ownerID uint) (*models.Invoice, error)
	NumberTaken(ctx context.Context, ownerID uint, invoiceNo string, exceptID uint) (bool, error)
	List(ctx context.Context, ownerID uint, page, perPage int) ([]models.Invoice, orm.Pagination, error)
	UpdateHeader(ctx context.Context, inv *models.Invoice) error
	ReplaceItems(ctx context.Context, invoiceID uint, items []models.InvoiceItem) error
	CreatePayment(ctx context.Context, p *models.Payment) error
	Delete(ctx context.Context, id, ownerID uint) error
}

// CustomerLookup resolves an owner's customer.
type CustomerLookup interface {
	FindByIDAndOwner(ctx context.Context, id, ownerID uint) (*models.Customer, error)
}

// LineInput is one requested invoice line. Quantity and rate arrive as
// plain JSON numbers and are checked before use.
type LineInput struct {
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
}

// CreateInvoiceInput is the request to issue a new invoice.
type CreateInvoiceInput struct {
	InvoiceNo  string      `json:"invoice_no"`
	CustomerID uint        `json:"customer_id"`
	Items      []LineInput `json:"items"`
}

// UpdateInvoiceInput replaces an invoice's items. A blank InvoiceNo or zero
// CustomerID leaves that field as it is.
type UpdateInvoiceInput struct {
	InvoiceNo  string      `json:"invoice_no"`
	CustomerID uint        `json:"customer_id"`
	Items      []LineInput `json:"items"`
}

// InvoiceService owns the invoice lifecycle: creation with stock
// decrement, item replacement, payment and deletion.
type InvoiceService struct {
	tx        Transactor
	products  ProductStore
	invoices  InvoiceStore
	customers CustomerLookup

	// DefaultStatus is stamped on new invoices.
	DefaultStatus string
}

func NewInvoiceService(tx Transactor, products ProductStore, invoices InvoiceStore, customers CustomerLookup) *InvoiceService {
	return &InvoiceService{
		tx:            tx,
		products:      products,
		invoices:      invoices,
		customers:     customers,
		DefaultStatus: config.InvoiceDefaultStatus(),
	}
}

// line is a LineInput that passed the quantity and rate checks.
type line struct {
	name string
	qty  int
	rate decimal.Decimal
}

func (l LineInput) check() (line, error) {
	q := l.Quantity
	if math.IsNaN(q) || math.IsInf(q, 0) || q <= 0 || q != math.Trunc(q) || q > math.MaxInt32 {
		return line{}, invalid("quantity", "Invalid quantity for %s", l.ProductName)
	}
	if math.IsNaN(l.Rate) || math.IsInf(l.Rate, 0) || l.Rate < 0 {
		return line{}, invalid("rate", "Invalid rate for %s", l.ProductName)
	}
	return line{name: l.ProductName, qty: int(q), rate: decimal.NewFromFloat(l.Rate)}, nil
}

func (in CreateInvoiceInput) check() error {
	switch {
	case strings.TrimSpace(in.InvoiceNo) == "":
		return invalid("invoice_no", "Invoice number is required")
	case in.CustomerID == 0:
		return invalid("customer_id", "Customer is required")
	case len(in.Items) == 0:
		return invalid("items", "Invoice items are required")
	}
	return nil
}

// CreateInvoice issues a new invoice for ownerID.
//
// Lines are processed in the order given. For each line the quantity and
// rate are checked, the product is resolved by exact name within the
// owner's inventory and its stock is decremented, so a product repeated on
// several lines sees the stock already consumed by the earlier ones. The
// first failing line aborts the whole invoice and every decrement made so
// far is rolled back.
func (s *InvoiceService) CreateInvoice(ctx context.Context, ownerID uint, in CreateInvoiceInput) (*models.Invoice, error) {
	start := time.Now()
	log := logger.WithCtx(ctx)

	if err := in.check(); err != nil {
		metrics.RecordInvoice(outcomeOf(err), start)
		return nil, err
	}
	in.InvoiceNo = strings.TrimSpace(in.InvoiceNo)

	var (
		inv    *models.Invoice
		levels []StockLevel
		units  int
	)
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		inv, levels, units = nil, nil, 0

		customer, err := s.customers.FindByIDAndOwner(ctx, in.CustomerID, ownerID)
		if err != nil {
			if isNotFound(err) {
				return notFound("Customer not found")
			}
			return persistence("load customer", err)
		}

		taken, err := s.invoices.NumberTaken(ctx, ownerID, in.InvoiceNo, 0)
		if err != nil {
			return persistence("check invoice number", err)
		}
		if taken {
			return invalid("invoice_no", "Invoice number already exists")
		}

		total := decimal.Zero
		items := make([]models.InvoiceItem, 0, len(in.Items))
		moves := make([]models.StockMovement, 0, len(in.Items))

		for _, req := range in.Items {
			l, err := req.check()
			if err != nil {
				return err
			}

			p, err := s.products.FindByNameAndOwner(ctx, l.name, ownerID)
			if err != nil {
				if isNotFound(err) {
					return notFound("Product not found: %s", l.name)
				}
				return persistence("load product", err)
			}

			if p.Stock < l.qty {
				return &InsufficientStockError{Product: p.Name, Available: p.Stock}
			}

			if err := s.products.DecrementStock(ctx, p.ID, ownerID, l.qty); err != nil {
				if !errors.Is(err, repositories.ErrStockConflict) {
					return persistence("decrement stock", err)
				}
				// Someone else took the stock between our read and the update.
				available, rerr := s.products.Stock(ctx, p.ID, ownerID)
				if rerr != nil {
					return persistence("read stock", rerr)
				}
				return &InsufficientStockError{Product: p.Name, Available: available}
			}
			// The lookup is not locked on every engine, so take the levels
			// from our own write rather than from p.Stock.
			left, err := s.products.Stock(ctx, p.ID, ownerID)
			if err != nil {
				return persistence("read stock", err)
			}

			amount := l.rate.Mul(decimal.NewFromInt(int64(l.qty)))
			total = total.Add(amount)
			units += l.qty

			productID := p.ID
			items = append(items, models.InvoiceItem{
				ProductID:   &productID,
				ProductName: p.Name,
				Quantity:    l.qty,
				Rate:        l.rate,
				Amount:      amount,
			})
			moves = append(moves, models.StockMovement{
				UserID:    ownerID,
				ProductID: p.ID,
				OldStock:  left + l.qty,
				NewStock:  left,
				Delta:     -l.qty,
				Reason:    models.MovementInvoice,
			})
			levels = append(levels, StockLevel{ProductID: p.ID, Name: p.Name, Stock: left})
		}

		inv = &models.Invoice{
			UserID:     ownerID,
			CustomerID: customer.ID,
			InvoiceNo:  in.InvoiceNo,
			Status:     s.status(),
			Total:      total,
			Items:      items,
		}
		if err := s.invoices.CreateWithItems(ctx, inv); err != nil {
			return persistence("create invoice", err)
		}
		inv.Customer = customer

		for i := range moves {
			ref := inv.ID
			moves[i].Reference = &ref
			if err := s.products.RecordMovement(ctx, &moves[i]); err != nil {
				return persistence("record stock movement", err)
			}
		}
		return nil
	})

	if err != nil {
		err = passThrough("create invoice", err)
		metrics.RecordInvoice(outcomeOf(err), start)
		log.Warn("invoice rejected", "owner_id", ownerID, "invoice_no", in.InvoiceNo, "error", err)
		return nil, err
	}

	forgetDashboard(ctx, ownerID)
	metrics.RecordInvoice("created", start)
	metrics.StockUnitsSold.Add(float64(units))
	log.Info("invoice created",
		"owner_id", ownerID,
		"invoice_id", inv.ID,
		"invoice_no", inv.InvoiceNo,
		"total", inv.Total.String(),
		"items", len(inv.Items),
	)

	event.Fire(EventInvoiceCreated, InvoiceCreated{
		OwnerID:   ownerID,
		InvoiceID: inv.ID,
		InvoiceNo: inv.InvoiceNo,
		Levels:    levels,
	})

	return inv, nil
}

func (s *InvoiceService) status() string {
	if s.DefaultStatus == models.StatusUnpaid {
		return models.StatusUnpaid
	}
	return models.StatusPaid
}

// GetInvoice loads one of the owner's invoices with customer, items and
// payments.
func (s *InvoiceService) GetInvoice(ctx context.Context, ownerID, id uint) (*models.Invoice, error) {
	inv, err := s.invoices.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("Invoice not found")
		}
		return nil, persistence("load invoice", err)
	}
	return inv, nil
}

// ListInvoices pages through the owner's invoices, newest first.
func (s *InvoiceService) ListInvoices(ctx context.Context, ownerID uint, page, perPage int) ([]models.Invoice, orm.Pagination, error) {
	invoices, p, err := s.invoices.List(ctx, ownerID, page, perPage)
	if err != nil {
		return nil, orm.Pagination{}, persistence("load invoices", err)
	}
	return invoices, p, nil
}

// UpdateInvoice replaces every item of the invoice and recomputes its
// total. Stock is not touched.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, ownerID, id uint, in UpdateInvoiceInput) (*models.Invoice, error) {
	if len(in.Items) == 0 {
		return nil, invalid("items", "Invoice items are required")
	}

	lines := make([]line, 0, len(in.Items))
	for _, req := range in.Items {
		l, err := req.check()
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}

	var inv *models.Invoice
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.invoices.FindByIDAndOwner(ctx, id, ownerID)
		if err != nil {
			if isNotFound(err) {
				return notFound("Invoice not found")
			}
			return persistence("load invoice", err)
		}

		if no := strings.TrimSpace(in.InvoiceNo); no != "" && no != inv.InvoiceNo {
			taken, err := s.invoices.NumberTaken(ctx, ownerID, no, inv.ID)
			if err != nil {
				return persistence("check invoice number", err)
			}
			if taken {
				return invalid("invoice_no", "Invoice number already exists")
			}
			inv.InvoiceNo = no
		}

		if in.CustomerID != 0 && in.CustomerID != inv.CustomerID {
			customer, err := s.customers.FindByIDAndOwner(ctx, in.CustomerID, ownerID)
			if err != nil {
				if isNotFound(err) {
					return notFound("Customer not found")
				}
				return persistence("load customer", err)
			}
			inv.CustomerID = customer.ID
			inv.Customer = customer
		}

		total := decimal.Zero
		items := make([]models.InvoiceItem, 0, len(lines))
		for _, l := range lines {
			amount := l.rate.Mul(decimal.NewFromInt(int64(l.qty)))
			total = total.Add(amount)

			item := models.InvoiceItem{
				ProductName: l.name,
				Quantity:    l.qty,
				Rate:        l.rate,
				Amount:      amount,
			}
			// Keep the product link when the name still resolves.
			if p, err := s.products.FindByNameAndOwner(ctx, l.name, ownerID); err == nil {
				pid := p.ID
				item.ProductID = &pid
			} else if !isNotFound(err) {
				return persistence("load product", err)
			}
			items = append(items, item)
		}

		if err := s.invoices.ReplaceItems(ctx, inv.ID, items); err != nil {
			return persistence("replace invoice items", err)
		}

		inv.Total = total
		inv.Items = items
		if err := s.invoices.UpdateHeader(ctx, inv); err != nil {
			return persistence("update invoice", err)
		}
		return nil
	})
	if err != nil {
		return nil, passThrough("update invoice", err)
	}

	forgetDashboard(ctx, ownerID)
	logger.WithCtx(ctx).Info("invoice updated", "owner_id", ownerID, "invoice_id", inv.ID, "total", inv.Total.String())
	return inv, nil
}

// MarkPaid moves an UNPAID invoice to PAID and records a payment for its
// total. An invoice that is already PAID is returned unchanged.
func (s *InvoiceService) MarkPaid(ctx context.Context, ownerID, id uint) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.invoices.FindByIDAndOwner(ctx, id, ownerID)
		if err != nil {
			if isNotFound(err) {
				return notFound("Invoice not found")
			}
			return persistence("load invoice", err)
		}
		if inv.Status == models.StatusPaid {
			return nil
		}

		inv.Status = models.StatusPaid
		if err := s.invoices.UpdateHeader(ctx, inv); err != nil {
			return persistence("mark invoice paid", err)
		}

		payment := models.Payment{
			UserID:    ownerID,
			InvoiceID: inv.ID,
			Amount:    inv.Total,
			Method:    "cash",
		}
		if err := s.invoices.CreatePayment(ctx, &payment); err != nil {
			return persistence("record payment", err)
		}
		inv.Payments = append(inv.Payments, payment)
		return nil
	})
	if err != nil {
		return nil, passThrough("mark invoice paid", err)
	}
	forgetDashboard(ctx, ownerID)
	return inv, nil
}

// DeleteInvoice removes one of the owner's invoices with its items and
// payments. Sold stock is not returned to inventory.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, ownerID, id uint) error {
	err := s.invoices.Delete(ctx, id, ownerID)
	if err != nil {
		if isNotFound(err) {
			return notFound("Invoice not found")
		}
		return persistence("delete invoice", err)
	}
	forgetDashboard(ctx, ownerID)
	logger.WithCtx(ctx).Info("invoice deleted", "owner_id", ownerID, "invoice_id", id)
	return nil
}

func outcomeOf(err error) string {
	var (
		ve *ValidationError
		nf *NotFoundError
		is *InsufficientStockError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &is):
		return "insufficient_stock"
	}
	return "error"
}
