package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Expense struct {
	gorm.Model
	UserID     uint            `gorm:"not null;index" json:"user_id"`
	CategoryID *uint           `gorm:"index" json:"category_id"`
	Title      string          `gorm:"size:255;not null" json:"title"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"amount"`
	SpentAt    time.Time       `json:"spent_at"`
}

type Category struct {
	gorm.Model
	UserID uint   `gorm:"not null;uniqueIndex:idx_category_owner_name" json:"user_id"`
	Name   string `gorm:"size:100;not null;uniqueIndex:idx_category_owner_name" json:"name"`
}
