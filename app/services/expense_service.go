package services

import (
	"context"
	"strings"
	"time"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/app/repositories"
	"github.com/shopspring/decimal"
)

type ExpenseInput struct {
	Title      string  `json:"title" validate:"required,max=255"`
	Amount     float64 `json:"amount" validate:"gt=0"`
	CategoryID *uint   `json:"category_id"`
	SpentAt    string  `json:"spent_at" validate:"nullable,date"`
}

type CategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type ExpenseService struct {
	expenses *repositories.ExpenseRepository
}

func NewExpenseService(expenses *repositories.ExpenseRepository) *ExpenseService {
	return &ExpenseService{expenses: expenses}
}

func (s *ExpenseService) Create(ctx context.Context, ownerID uint, in ExpenseInput) (*models.Expense, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}

	spentAt := time.Now()
	if in.SpentAt != "" {
		spentAt = parseDate(in.SpentAt)
	}

	if in.CategoryID != nil {
		owned, err := s.expenses.CategoryOwned(ctx, ownerID, *in.CategoryID)
		if err != nil {
			return nil, persistence("load category", err)
		}
		if !owned {
			return nil, notFound("Category not found")
		}
	}

	e := &models.Expense{
		UserID:     ownerID,
		CategoryID: in.CategoryID,
		Title:      strings.TrimSpace(in.Title),
		Amount:     decimal.NewFromFloat(in.Amount),
		SpentAt:    spentAt,
	}
	if err := s.expenses.Create(ctx, e); err != nil {
		return nil, persistence("create expense", err)
	}
	forgetDashboard(ctx, ownerID)
	return e, nil
}

func (s *ExpenseService) List(ctx context.Context, ownerID uint) ([]models.Expense, error) {
	expenses, err := s.expenses.List(ctx, ownerID)
	if err != nil {
		return nil, persistence("load expenses", err)
	}
	return expenses, nil
}

func (s *ExpenseService) CreateCategory(ctx context.Context, ownerID uint, in CategoryInput) (*models.Category, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	exists, err := s.expenses.CategoryExists(ctx, ownerID, name)
	if err != nil {
		return nil, persistence("check category", err)
	}
	if exists {
		return nil, invalid("name", "Category already exists")
	}

	c := &models.Category{UserID: ownerID, Name: name}
	if err := s.expenses.CreateCategory(ctx, c); err != nil {
		return nil, persistence("create category", err)
	}
	return c, nil
}

func (s *ExpenseService) Categories(ctx context.Context, ownerID uint) ([]models.Category, error) {
	cats, err := s.expenses.Categories(ctx, ownerID)
	if err != nil {
		return nil, persistence("load categories", err)
	}
	return cats, nil
}

// parseDate accepts the two layouts the date rule allows.
func parseDate(s string) time.Time {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
