package repositories

import (
	"context"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/pkg/orm"
	"github.com/shopspring/decimal"
)

// ExpenseRepository handles Expense and Category rows.
type ExpenseRepository struct {
	q *orm.Query
}

func NewExpenseRepository(q *orm.Query) *ExpenseRepository {
	return &ExpenseRepository{q: q}
}

func (r *ExpenseRepository) Create(ctx context.Context, e *models.Expense) error {
	return r.q.WithContext(ctx).Create(e)
}

func (r *ExpenseRepository) List(ctx context.Context, ownerID uint) ([]models.Expense, error) {
	var expenses []models.Expense
	err := r.q.WithContext(ctx).
		Model(&models.Expense{}).
		Where("user_id = ?", ownerID).
		Order("spent_at DESC").
		Get(&expenses)
	return expenses, err
}

// Total sums every expense of the owner.
func (r *ExpenseRepository) Total(ctx context.Context, ownerID uint) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.q.WithContext(ctx).
		Model(&models.Expense{}).
		Where("user_id = ?", ownerID).
		Pluck("amount", &amounts)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

func (r *ExpenseRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	return r.q.WithContext(ctx).Create(c)
}

func (r *ExpenseRepository) Categories(ctx context.Context, ownerID uint) ([]models.Category, error) {
	var cats []models.Category
	err := r.q.WithContext(ctx).
		Model(&models.Category{}).
		Where("user_id = ?", ownerID).
		Order("name ASC").
		Get(&cats)
	return cats, err
}

// CategoryExists reports whether the owner has a category called name.
func (r *ExpenseRepository) CategoryExists(ctx context.Context, ownerID uint, name string) (bool, error) {
	return r.q.WithContext(ctx).
		Model(&models.Category{}).
		Where("user_id = ? AND name = ?", ownerID, name).
		Exists()
}

// CategoryOwned reports whether id is one of the owner's categories.
func (r *ExpenseRepository) CategoryOwned(ctx context.Context, ownerID, id uint) (bool, error) {
	return r.q.WithContext(ctx).
		Model(&models.Category{}).
		Where("user_id = ? AND id = ?", ownerID, id).
		Exists()
}
