package repositories

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/pkg/orm"
	"gorm.io/gorm"
)

// ErrStockConflict is returned by DecrementStock when the conditional update
// matched no row: the product vanished or no longer has enough stock.
var ErrStockConflict = errors.New("repositories: stock conflict")

// ProductRepository handles database operations for Product. Every method
// joins the transaction carried by ctx, if any.
type ProductRepository struct {
	q *orm.Query
}

func NewProductRepository(q *orm.Query) *ProductRepository {
	return &ProductRepository{q: q}
}

// FindByNameAndOwner looks up a product by exact name, active or not, so
// deactivated products can still be billed. The row is locked for update on
// engines that support it.
func (r *ProductRepository) FindByNameAndOwner(ctx context.Context, name string, ownerID uint) (*models.Product, error) {
	var p models.Product
	err := r.q.WithContext(ctx).
		Model(&models.Product{}).
		Where("name = ? AND user_id = ?", name, ownerID).
		ForUpdate().
		First(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDAndOwner looks up a product, active or not.
func (r *ProductRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uint) (*models.Product, error) {
	var p models.Product
	err := r.q.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActive returns the owner's active products ordered by name.
func (r *ProductRepository) ListActive(ctx context.Context, ownerID uint) ([]models.Product, error) {
	var products []models.Product
	err := r.q.WithContext(ctx).
		Model(&models.Product{}).
		Where("user_id = ? AND is_active = ?", ownerID, true).
		Order("name ASC").
		Get(&products)
	return products, err
}

// NameTaken reports whether the owner already has a product called name,
// ignoring the product with id exceptID.
func (r *ProductRepository) NameTaken(ctx context.Context, ownerID uint, name string, exceptID uint) (bool, error) {
	return r.q.WithContext(ctx).
		Model(&models.Product{}).
		Where("user_id = ? AND name = ? AND id <> ?", ownerID, name, exceptID).
		Exists()
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return r.q.WithContext(ctx).Create(p)
}

// UpdateDetails writes name, unit, rate and active flag. Stock is never
// written from here.
func (r *ProductRepository) UpdateDetails(ctx context.Context, p *models.Product) error {
	_, err := r.q.WithContext(ctx).
		Model(p).
		Where("user_id = ?", p.UserID).
		Select("name", "unit", "rate", "is_active").
		Updates(p)
	return err
}

// DecrementStock subtracts qty from the product's stock only when at least
// qty units are available. Zero affected rows yields ErrStockConflict.
func (r *ProductRepository) DecrementStock(ctx context.Context, productID, ownerID uint, qty int) error {
	n, err := r.q.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND user_id = ? AND stock >= ?", productID, ownerID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStockConflict
	}
	return nil
}

// IncrementStock adds qty units to the product's stock.
func (r *ProductRepository) IncrementStock(ctx context.Context, productID, ownerID uint, qty int) error {
	n, err := r.q.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND user_id = ?", productID, ownerID).
		Update("stock", gorm.Expr("stock + ?", qty))
	if err != nil {
		return err
	}
	if n == 0 {
		return orm.ErrNotFound
	}
	return nil
}

// Stock reads the current stock of a product.
func (r *ProductRepository) Stock(ctx context.Context, productID, ownerID uint) (int, error) {
	p, err := r.FindByIDAndOwner(ctx, productID, ownerID)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

// LowStock returns active products whose stock is at or below threshold,
// lowest first.
func (r *ProductRepository) LowStock(ctx context.Context, ownerID uint, threshold int) ([]models.Product, error) {
	var products []models.Product
	err := r.q.WithContext(ctx).
		Model(&models.Product{}).
		Where("user_id = ? AND is_active = ? AND stock <= ?", ownerID, true, threshold).
		Order("stock ASC").
		Get(&products)
	return products, err
}

// FindManyByIDs loads the owner's products with the given ids.
func (r *ProductRepository) FindManyByIDs(ctx context.Context, ownerID uint, ids []uint) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.q.WithContext(ctx).
		Model(&models.Product{}).
		Where("user_id = ? AND id IN ?", ownerID, ids).
		Get(&products)
	return products, err
}

// StockSummary aggregates an owner's inventory.
type StockSummary struct {
	TotalProducts  int64 `json:"total_products"`
	ActiveProducts int64 `json:"active_products"`
	TotalStock     int64 `json:"total_stock"`
	LowStock       int64 `json:"low_stock"`
}

// Summary computes the stock summary; products below lowBelow count as low.
func (r *ProductRepository) Summary(ctx context.Context, ownerID uint, lowBelow int) (StockSummary, error) {
	var s StockSummary
	err := r.q.WithContext(ctx).
		Model(&models.Product{}).
		Where("user_id = ?", ownerID).
		Select(`COUNT(*) AS total_products,
			COALESCE(SUM(CASE WHEN is_active = ? THEN 1 ELSE 0 END), 0) AS active_products,
			COALESCE(SUM(stock), 0) AS total_stock,
			COALESCE(SUM(CASE WHEN stock < ? THEN 1 ELSE 0 END), 0) AS low_stock`, true, lowBelow).
		Scan(&s)
	return s, err
}

// RecordMovement appends a stock movement row.
func (r *ProductRepository) RecordMovement(ctx context.Context, m *models.StockMovement) error {
	return r.q.WithContext(ctx).Create(m)
}

// Movements lists a product's stock history, newest first.
func (r *ProductRepository) Movements(ctx context.Context, productID, ownerID uint) ([]models.StockMovement, error) {
	var moves []models.StockMovement
	err := r.q.WithContext(ctx).
		Model(&models.StockMovement{}).
		Where("product_id = ? AND user_id = ?", productID, ownerID).
		Order("id DESC").
		Get(&moves)
	return moves, err
}
