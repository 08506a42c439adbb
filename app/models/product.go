package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable item in an owner's inventory.
//
// Names are unique per owner, not globally. Stock never goes below zero;
// it is decremented only by invoice creation and raised by restocking.
// Products are soft-deleted by clearing IsActive so that historical
// invoices keep resolving.
type Product struct {
	gorm.Model
	UserID   uint            `gorm:"not null;uniqueIndex:idx_product_owner_name" json:"user_id"`
	Name     string          `gorm:"size:255;not null;uniqueIndex:idx_product_owner_name" json:"name"`
	Unit     string          `gorm:"size:50;default:pcs" json:"unit"`
	Rate     decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0" json:"rate"`
	Stock    int             `gorm:"not null;default:0" json:"stock"`
	IsActive bool            `gorm:"not null;default:true" json:"is_active"`
}

// Stock movement reasons.
const (
	MovementInvoice = "invoice"
	MovementRestock = "restock"
)

// StockMovement records one change to a product's stock level. It is written
// in the same transaction as the change itself.
type StockMovement struct {
	gorm.Model
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	OldStock  int    `json:"old_stock"`
	NewStock  int    `json:"new_stock"`
	Delta     int    `json:"delta"`
	Reason    string `gorm:"size:32;not null" json:"reason"`
	Reference *uint  `json:"reference,omitempty"` // invoice id for invoice movements
}
