// Package migrations holds the schema history. Each migration registers
// itself from init(); cmd/billbook imports the package for that effect.
package migrations

import (
	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/pkg/migration"
	"github.com/shashiranjanraj/billbook/pkg/queue"
	"gorm.io/gorm"
)

func init() {
	migration.Register("20260101000000_create_users_table", tables{&models.User{}})
	migration.Register("20260101000001_create_customers_table", tables{&models.Customer{}})
	migration.Register("20260101000002_create_products_tables", tables{&models.Product{}, &models.StockMovement{}})
	migration.Register("20260101000003_create_invoices_tables", tables{&models.Invoice{}, &models.InvoiceItem{}, &models.Payment{}})
	migration.Register("20260101000004_create_expenses_tables", tables{&models.Category{}, &models.Expense{}})
	migration.Register("20260101000005_create_failed_jobs_table", tables{&queue.FailedJobRecord{}})
}

// tables creates its models on Up and drops them in reverse on Down.
type tables []interface{}

func (t tables) Up(db *gorm.DB) error {
	return db.AutoMigrate(t...)
}

func (t tables) Down(db *gorm.DB) error {
	for i := len(t) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(t[i]); err != nil {
			return err
		}
	}
	return nil
}
