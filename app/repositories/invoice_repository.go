package repositories

import (
	"context"
	"time"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/pkg/orm"
	"github.com/shopspring/decimal"
)

// InvoiceRepository handles database operations for Invoice and its items
// and payments. Every method joins the transaction carried by ctx, if any.
type InvoiceRepository struct {
	q *orm.Query
}

func NewInvoiceRepository(q *orm.Query) *InvoiceRepository {
	return &InvoiceRepository{q: q}
}

// CreateWithItems inserts the invoice and every entry of inv.Items in one
// statement group; item InvoiceIDs are filled in by GORM.
func (r *InvoiceRepository) CreateWithItems(ctx context.Context, inv *models.Invoice) error {
	return r.q.WithContext(ctx).Create(inv)
}

// FindByIDAndOwner loads an invoice with its customer and items.
func (r *InvoiceRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.q.WithContext(ctx).
		Model(&models.Invoice{}).
		Preload("Customer").
		Preload("Items").
		Preload("Payments").
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&inv)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// NumberTaken reports whether the owner already issued invoiceNo on an
// invoice other than exceptID.
func (r *InvoiceRepository) NumberTaken(ctx context.Context, ownerID uint, invoiceNo string, exceptID uint) (bool, error) {
	return r.q.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("user_id = ? AND invoice_no = ? AND id <> ?", ownerID, invoiceNo, exceptID).
		Exists()
}

// List pages through the owner's invoices, newest first.
func (r *InvoiceRepository) List(ctx context.Context, ownerID uint, page, perPage int) ([]models.Invoice, orm.Pagination, error) {
	var invoices []models.Invoice
	p, err := r.q.WithContext(ctx).
		Model(&models.Invoice{}).
		Preload("Customer").
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Paginate(page, perPage, &invoices)
	return invoices, p, err
}

// AllWithCustomer returns every invoice of the owner, newest first.
func (r *InvoiceRepository) AllWithCustomer(ctx context.Context, ownerID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.q.WithContext(ctx).
		Model(&models.Invoice{}).
		Preload("Customer").
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Get(&invoices)
	return invoices, err
}

// WithItemsSince returns the owner's invoices created at or after since,
// items preloaded, oldest first. An empty status matches every status.
func (r *InvoiceRepository) WithItemsSince(ctx context.Context, ownerID uint, status string, since time.Time) ([]models.Invoice, error) {
	q := r.q.WithContext(ctx).
		Model(&models.Invoice{}).
		Preload("Items").
		Where("user_id = ? AND created_at >= ?", ownerID, since)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var invoices []models.Invoice
	err := q.Order("created_at ASC").Get(&invoices)
	return invoices, err
}

// UpdateHeader writes the invoice number, customer, status and total.
func (r *InvoiceRepository) UpdateHeader(ctx context.Context, inv *models.Invoice) error {
	_, err := r.q.WithContext(ctx).
		Model(inv).
		Where("user_id = ?", inv.UserID).
		Select("invoice_no", "customer_id", "status", "total").
		Updates(inv)
	return err
}

// ReplaceItems deletes every item of the invoice and inserts items in their
// place.
func (r *InvoiceRepository) ReplaceItems(ctx context.Context, invoiceID uint, items []models.InvoiceItem) error {
	if _, err := r.q.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Delete(&models.InvoiceItem{}); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].InvoiceID = invoiceID
	}
	return r.q.WithContext(ctx).Create(&items)
}

// CreatePayment records a payment against an invoice.
func (r *InvoiceRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.q.WithContext(ctx).Create(p)
}

// Delete removes the owner's invoice together with its payments and items.
// An invoice of another owner is reported as orm.ErrNotFound.
func (r *InvoiceRepository) Delete(ctx context.Context, id, ownerID uint) error {
	return r.q.Transaction(ctx, func(ctx context.Context) error {
		owned, err := r.q.WithContext(ctx).
			Model(&models.Invoice{}).
			Where("id = ? AND user_id = ?", id, ownerID).
			Exists()
		if err != nil {
			return err
		}
		if !owned {
			return orm.ErrNotFound
		}

		if _, err := r.q.WithContext(ctx).
			Where("invoice_id = ? AND user_id = ?", id, ownerID).
			Delete(&models.Payment{}); err != nil {
			return err
		}
		if _, err := r.q.WithContext(ctx).
			Where("invoice_id = ?", id).
			Delete(&models.InvoiceItem{}); err != nil {
			return err
		}
		_, err = r.q.WithContext(ctx).
			Where("id = ? AND user_id = ?", id, ownerID).
			Delete(&models.Invoice{})
		return err
	})
}

// DeleteByCustomer removes every invoice (with payments and items) the owner
// issued to customerID.
func (r *InvoiceRepository) DeleteByCustomer(ctx context.Context, customerID, ownerID uint) error {
	var ids []uint
	if err := r.q.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("customer_id = ? AND user_id = ?", customerID, ownerID).
		Pluck("id", &ids); err != nil {
		return err
	}
	for _, id := range ids {
		if err := r.Delete(ctx, id, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// TotalByStatus sums the owner's invoice totals with the given status.
func (r *InvoiceRepository) TotalByStatus(ctx context.Context, ownerID uint, status string) (decimal.Decimal, error) {
	var totals []decimal.Decimal
	err := r.q.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("user_id = ? AND status = ?", ownerID, status).
		Pluck("total", &totals)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, totals...), nil
}
