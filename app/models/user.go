package models

import "gorm.io/gorm"

// User is an account owner. Every other model hangs off a User.
type User struct {
	gorm.Model
	Name        string `gorm:"size:255" json:"name"`
	Email       string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password    string `gorm:"size:255;not null" json:"-"` // hashed, never serialised
	Role        string `gorm:"size:50;default:user" json:"role"`
	Phone       string `gorm:"size:20" json:"phone"`
	CompanyName string `gorm:"size:255" json:"company_name"`
	Website     string `gorm:"size:255" json:"website"`
	GSTNumber   string `gorm:"size:32" json:"gst_number"`
	Address     string `gorm:"type:text" json:"address"`
	Country     string `gorm:"size:100" json:"country"`
	State       string `gorm:"size:100" json:"state"`
	City        string `gorm:"size:100" json:"city"`
	Zip         string `gorm:"size:20" json:"zip"`
}
