package models

import "gorm.io/gorm"

// Customer is someone an owner bills. Phone numbers are unique per owner.
type Customer struct {
	gorm.Model
	UserID uint   `gorm:"not null;uniqueIndex:idx_customer_owner_phone" json:"user_id"`
	Name   string `gorm:"size:255;not null" json:"name"`
	Phone  string `gorm:"size:20;not null;uniqueIndex:idx_customer_owner_phone" json:"phone"`
	Email  string `gorm:"size:255" json:"email"`
}
