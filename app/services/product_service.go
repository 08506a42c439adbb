package services

import (
	"context"
	"strings"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/app/repositories"
	"github.com/shashiranjanraj/billbook/pkg/event"
	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shopspring/decimal"
)

// EventStockChanged is fired after a restock commits. The payload is a
// StockChanged value.
const EventStockChanged = "stock.changed"

// StockChanged carries new stock levels for one owner.
type StockChanged struct {
	OwnerID uint
	Levels  []StockLevel
}

type ProductInput struct {
	Name  string  `json:"name" validate:"required,max=255"`
	Unit  string  `json:"unit" validate:"nullable,max=50"`
	Rate  float64 `json:"rate" validate:"gte=0"`
	Stock int     `json:"stock" validate:"gte=0"`
}

// UpdateProductInput changes product details. Nil fields are left alone and
// stock can only change through a restock or an invoice.
type UpdateProductInput struct {
	Name     *string  `json:"name" validate:"nullable,max=255"`
	Unit     *string  `json:"unit" validate:"nullable,max=50"`
	Rate     *float64 `json:"rate" validate:"nullable,gte=0"`
	IsActive *bool    `json:"is_active"`
}

type RestockInput struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type ProductService struct {
	tx       Transactor
	products *repositories.ProductRepository
}

func NewProductService(tx Transactor, products *repositories.ProductRepository) *ProductService {
	return &ProductService{tx: tx, products: products}
}

func (s *ProductService) Create(ctx context.Context, ownerID uint, in ProductInput) (*models.Product, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	taken, err := s.products.NameTaken(ctx, ownerID, name, 0)
	if err != nil {
		return nil, persistence("check product name", err)
	}
	if taken {
		return nil, invalid("name", "Product already exists: %s", name)
	}

	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = "pcs"
	}
	p := &models.Product{
		UserID:   ownerID,
		Name:     name,
		Unit:     unit,
		Rate:     decimal.NewFromFloat(in.Rate),
		Stock:    in.Stock,
		IsActive: true,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, persistence("create product", err)
	}

	forgetDashboard(ctx, ownerID)
	logger.WithCtx(ctx).Info("product created", "owner_id", ownerID, "product_id", p.ID, "stock", p.Stock)
	return p, nil
}

// List returns the owner's active products.
func (s *ProductService) List(ctx context.Context, ownerID uint) ([]models.Product, error) {
	products, err := s.products.ListActive(ctx, ownerID)
	if err != nil {
		return nil, persistence("load products", err)
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, ownerID, id uint) (*models.Product, error) {
	p, err := s.products.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("Product not found")
		}
		return nil, persistence("load product", err)
	}
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, ownerID, id uint, in UpdateProductInput) (*models.Product, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "The name field is required.")
		}
		if name != p.Name {
			taken, err := s.products.NameTaken(ctx, ownerID, name, p.ID)
			if err != nil {
				return nil, persistence("check product name", err)
			}
			if taken {
				return nil, invalid("name", "Product already exists: %s", name)
			}
		}
		p.Name = name
	}
	if in.Unit != nil && strings.TrimSpace(*in.Unit) != "" {
		p.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.Rate != nil {
		p.Rate = decimal.NewFromFloat(*in.Rate)
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	if err := s.products.UpdateDetails(ctx, p); err != nil {
		return nil, persistence("update product", err)
	}
	return p, nil
}

// Delete deactivates the product. Rows stay so past invoice items keep
// their reference.
func (s *ProductService) Delete(ctx context.Context, ownerID, id uint) error {
	p, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	p.IsActive = false
	if err := s.products.UpdateDetails(ctx, p); err != nil {
		return persistence("delete product", err)
	}
	forgetDashboard(ctx, ownerID)
	logger.WithCtx(ctx).Info("product deactivated", "owner_id", ownerID, "product_id", id)
	return nil
}

// Restock adds units to a product and records the movement, both in one
// transaction.
func (s *ProductService) Restock(ctx context.Context, ownerID, id uint, in RestockInput) (*models.Product, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}

	var p *models.Product
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.products.FindByIDAndOwner(ctx, id, ownerID)
		if err != nil {
			if isNotFound(err) {
				return notFound("Product not found")
			}
			return persistence("load product", err)
		}

		if err := s.products.IncrementStock(ctx, p.ID, ownerID, in.Quantity); err != nil {
			return persistence("restock product", err)
		}
		current, err := s.products.Stock(ctx, p.ID, ownerID)
		if err != nil {
			return persistence("read stock", err)
		}

		move := models.StockMovement{
			UserID:    ownerID,
			ProductID: p.ID,
			OldStock:  current - in.Quantity,
			NewStock:  current,
			Delta:     in.Quantity,
			Reason:    models.MovementRestock,
		}
		if err := s.products.RecordMovement(ctx, &move); err != nil {
			return persistence("record stock movement", err)
		}
		p.Stock = current
		return nil
	})
	if err != nil {
		return nil, passThrough("restock product", err)
	}

	forgetDashboard(ctx, ownerID)
	logger.WithCtx(ctx).Info("product restocked", "owner_id", ownerID, "product_id", p.ID, "added", in.Quantity, "stock", p.Stock)
	event.Fire(EventStockChanged, StockChanged{
		OwnerID: ownerID,
		Levels:  []StockLevel{{ProductID: p.ID, Name: p.Name, Stock: p.Stock}},
	})
	return p, nil
}

// Movements lists the product's stock history, newest first.
func (s *ProductService) Movements(ctx context.Context, ownerID, id uint) ([]models.StockMovement, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	moves, err := s.products.Movements(ctx, id, ownerID)
	if err != nil {
		return nil, persistence("load stock movements", err)
	}
	return moves, nil
}
