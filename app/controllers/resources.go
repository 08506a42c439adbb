package controllers

import (
	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/pkg/resource"
)

// invoiceRow is the invoice shape used in listings: header fields plus the
// customer's name, without items.
var invoiceRow resource.Transformer[models.Invoice] = func(inv models.Invoice) resource.Map {
	row := resource.Map{
		"id":          inv.ID,
		"invoice_no":  inv.InvoiceNo,
		"customer_id": inv.CustomerID,
		"status":      inv.Status,
		"total":       inv.Total,
		"created_at":  inv.CreatedAt,
	}
	if inv.Customer != nil {
		row["customer_name"] = inv.Customer.Name
	}
	return row
}

// productRow adds a low_stock flag to a product.
func productRow(threshold int) resource.Transformer[models.Product] {
	return func(p models.Product) resource.Map {
		return resource.Map{
			"id":        p.ID,
			"name":      p.Name,
			"unit":      p.Unit,
			"rate":      p.Rate,
			"stock":     p.Stock,
			"is_active": p.IsActive,
			"low_stock": p.Stock <= threshold,
		}
	}
}
