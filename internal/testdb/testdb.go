// Package testdb opens throwaway SQLite databases for tests.
package testdb

import (
	"path/filepath"
	"testing"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Open creates a migrated SQLite database file under t.TempDir(). Writers
// take the lock at BEGIN so concurrent transactions serialise instead of
// failing on upgrade.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "billbook.db") + "?_busy_timeout=10000&_txlock=immediate"
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// User inserts an account with the given email.
func User(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Password: "x", Name: email}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Customer inserts a customer for owner.
func Customer(t testing.TB, db *gorm.DB, ownerID uint, name, phone string) *models.Customer {
	t.Helper()
	c := &models.Customer{UserID: ownerID, Name: name, Phone: phone}
	require.NoError(t, db.Create(c).Error)
	return c
}

// Product inserts an active product for owner.
func Product(t testing.TB, db *gorm.DB, ownerID uint, name string, rate float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{UserID: ownerID, Name: name, Rate: decimal.NewFromFloat(rate), Stock: stock, IsActive: true, Unit: "pcs"}
	require.NoError(t, db.Create(p).Error)
	return p
}

// Stock reads a product's current stock straight from the table.
func Stock(t testing.TB, db *gorm.DB, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, productID).Error)
	return p.Stock
}

// Count returns the number of live rows of model.
func Count(t testing.TB, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
