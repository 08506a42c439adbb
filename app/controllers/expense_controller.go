package controllers

import (
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/ctx"
)

// ExpenseController serves expenses and their categories.
type ExpenseController struct {
	expenses *services.ExpenseService
}

func NewExpenseController(expenses *services.ExpenseService) *ExpenseController {
	return &ExpenseController{expenses: expenses}
}

func (ec *ExpenseController) Index(c *ctx.Context) {
	list, err := ec.expenses.List(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(list)
}

func (ec *ExpenseController) Store(c *ctx.Context) {
	var in services.ExpenseInput
	if !c.BindJSON(&in) {
		return
	}
	expense, err := ec.expenses.Create(c.Context(), c.UserID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(expense)
}

func (ec *ExpenseController) Categories(c *ctx.Context) {
	list, err := ec.expenses.Categories(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(list)
}

func (ec *ExpenseController) StoreCategory(c *ctx.Context) {
	var in services.CategoryInput
	if !c.BindJSON(&in) {
		return
	}
	category, err := ec.expenses.CreateCategory(c.Context(), c.UserID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(category)
}
