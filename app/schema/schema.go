// Package schema exposes read-only invoice, product and dashboard queries
// over GraphQL. Every resolver is scoped to the authenticated owner.
package schema

import (
	"context"
	"errors"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/auth"
	"github.com/shashiranjanraj/billbook/pkg/collection"
	gql "github.com/shashiranjanraj/billbook/pkg/graphql"
	"github.com/shashiranjanraj/billbook/pkg/orm"
	"github.com/shashiranjanraj/billbook/pkg/resource"
)

// Invoices is the subset of the invoice service the schema reads.
type Invoices interface {
	ListInvoices(ctx context.Context, ownerID uint, page, perPage int) ([]models.Invoice, orm.Pagination, error)
	GetInvoice(ctx context.Context, ownerID, id uint) (*models.Invoice, error)
}

type Products interface {
	List(ctx context.Context, ownerID uint) ([]models.Product, error)
}

type Dashboard interface {
	Summary(ctx context.Context, ownerID uint) (*services.Summary, error)
	LowStock(ctx context.Context, ownerID uint) ([]services.LowStockItem, error)
}

var errUnauthenticated = errors.New("unauthenticated")

func owner(ctx context.Context) (uint, error) {
	id := auth.UserID(ctx)
	if id == 0 {
		return 0, errUnauthenticated
	}
	return id, nil
}

var itemType = graphql.NewObject(graphql.ObjectConfig{
	Name: "InvoiceItem",
	Fields: graphql.Fields{
		"productName": &graphql.Field{Type: graphql.String},
		"quantity":    &graphql.Field{Type: graphql.Int},
		"rate":        &graphql.Field{Type: graphql.String},
		"amount":      &graphql.Field{Type: graphql.String},
	},
})

var invoiceType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Invoice",
	Fields: graphql.Fields{
		"id":           &graphql.Field{Type: graphql.Int},
		"invoiceNo":    &graphql.Field{Type: graphql.String},
		"status":       &graphql.Field{Type: graphql.String},
		"total":        &graphql.Field{Type: graphql.String},
		"customerName": &graphql.Field{Type: graphql.String},
		"createdAt":    &graphql.Field{Type: graphql.String},
		"items":        &graphql.Field{Type: graphql.NewList(itemType)},
	},
})

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":    &graphql.Field{Type: graphql.Int},
		"name":  &graphql.Field{Type: graphql.String},
		"unit":  &graphql.Field{Type: graphql.String},
		"rate":  &graphql.Field{Type: graphql.String},
		"stock": &graphql.Field{Type: graphql.Int},
	},
})

var summaryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DashboardSummary",
	Fields: graphql.Fields{
		"totalSales":     &graphql.Field{Type: graphql.String},
		"receivedAmount": &graphql.Field{Type: graphql.String},
		"pendingAmount":  &graphql.Field{Type: graphql.String},
		"totalExpense":   &graphql.Field{Type: graphql.String},
		"lowStock":       &graphql.Field{Type: graphql.NewList(productType)},
	},
})

var itemShape resource.Transformer[models.InvoiceItem] = func(it models.InvoiceItem) resource.Map {
	return resource.Map{
		"productName": it.ProductName,
		"quantity":    it.Quantity,
		"rate":        it.Rate.StringFixed(2),
		"amount":      it.Amount.StringFixed(2),
	}
}

var invoiceShape resource.Transformer[models.Invoice] = func(inv models.Invoice) resource.Map {
	out := resource.Map{
		"id":        int(inv.ID),
		"invoiceNo": inv.InvoiceNo,
		"status":    inv.Status,
		"total":     inv.Total.StringFixed(2),
		"createdAt": inv.CreatedAt.Format(time.RFC3339),
		"items":     resource.Many(itemShape, inv.Items),
	}
	if inv.Customer != nil {
		out["customerName"] = inv.Customer.Name
	}
	return out
}

var productShape resource.Transformer[models.Product] = func(p models.Product) resource.Map {
	return resource.Map{
		"id":    int(p.ID),
		"name":  p.Name,
		"unit":  p.Unit,
		"rate":  p.Rate.StringFixed(2),
		"stock": p.Stock,
	}
}

// New builds the schema over the given services.
func New(invoices Invoices, products Products, dash Dashboard) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"invoices": &graphql.Field{
				Type: graphql.NewList(invoiceType),
				Args: graphql.FieldConfigArgument{
					"page":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"perPage": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 15},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := owner(p.Context)
					if err != nil {
						return nil, err
					}
					page, _ := p.Args["page"].(int)
					perPage, _ := p.Args["perPage"].(int)
					list, _, err := invoices.ListInvoices(p.Context, id, page, perPage)
					if err != nil {
						return nil, err
					}
					return resource.Many(invoiceShape, list), nil
				},
			},
			"invoice": &graphql.Field{
				Type: invoiceType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := owner(p.Context)
					if err != nil {
						return nil, err
					}
					invoiceID, _ := p.Args["id"].(int)
					if invoiceID <= 0 {
						return nil, errors.New("Invoice not found")
					}
					inv, err := invoices.GetInvoice(p.Context, id, uint(invoiceID))
					if err != nil {
						return nil, err
					}
					return resource.One(invoiceShape, inv), nil
				},
			},
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{
					"inStock": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := owner(p.Context)
					if err != nil {
						return nil, err
					}
					list, err := products.List(p.Context, id)
					if err != nil {
						return nil, err
					}
					if inStock, _ := p.Args["inStock"].(bool); inStock {
						list = collection.Filter(list, func(pr models.Product) bool { return pr.Stock > 0 })
					}
					return resource.Many(productShape, list), nil
				},
			},
			"dashboard": &graphql.Field{
				Type: summaryType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := owner(p.Context)
					if err != nil {
						return nil, err
					}
					s, err := dash.Summary(p.Context, id)
					if err != nil {
						return nil, err
					}
					low, err := dash.LowStock(p.Context, id)
					if err != nil {
						return nil, err
					}
					return resource.Map{
						"totalSales":     s.TotalSales.StringFixed(2),
						"receivedAmount": s.ReceivedAmount.StringFixed(2),
						"pendingAmount":  s.PendingAmount.StringFixed(2),
						"totalExpense":   s.TotalExpense.StringFixed(2),
						"lowStock": collection.Map(low, func(it services.LowStockItem) resource.Map {
							return resource.Map{"id": int(it.ID), "name": it.Name, "unit": it.Unit, "stock": it.Quantity}
						}),
					}, nil
				},
			},
		},
	})
	return gql.NewSchema(query)
}
