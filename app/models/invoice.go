package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice statuses.
const (
	StatusUnpaid = "UNPAID"
	StatusPaid   = "PAID"
)

// Invoice is a bill issued by an owner to one of their customers.
// Total always equals the sum of its items' amounts.
type Invoice struct {
	gorm.Model
	UserID     uint            `gorm:"not null;index:idx_invoice_owner_no" json:"user_id"`
	CustomerID uint            `gorm:"not null;index" json:"customer_id"`
	InvoiceNo  string          `gorm:"size:100;not null;index:idx_invoice_owner_no" json:"invoice_no"`
	Status     string          `gorm:"size:16;not null;default:PAID" json:"status"`
	Total      decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0" json:"total"`

	Customer *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
}

// InvoiceItem snapshots a product line at the time of invoicing so later
// price or name changes leave old invoices untouched.
type InvoiceItem struct {
	gorm.Model
	InvoiceID   uint            `gorm:"not null;index" json:"invoice_id"`
	ProductID   *uint           `gorm:"index" json:"product_id"`
	ProductName string          `gorm:"size:255;not null" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Rate        decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"amount"`
}

// Payment is recorded when an invoice moves from UNPAID to PAID.
type Payment struct {
	gorm.Model
	UserID    uint            `gorm:"not null;index" json:"user_id"`
	InvoiceID uint            `gorm:"not null;index" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"amount"`
	Method    string          `gorm:"size:32;default:cash" json:"method"`
}
