// Package models holds the GORM models. Every row except User is owned by
// exactly one user through its UserID column (InvoiceItem through its
// invoice), and every query against them must filter by that owner.
package models

import "github.com/shopspring/decimal"

func init() {
	// Money goes over the wire as a JSON number, not a quoted string.
	decimal.MarshalJSONWithoutQuotes = true
}

// All lists every model in dependency order, for migrations and tests.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Customer{},
		&Category{},
		&Product{},
		&Invoice{},
		&InvoiceItem{},
		&Payment{},
		&StockMovement{},
		&Expense{},
	}
}
