package controllers

import (
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/ctx"
)

type DashboardController struct {
	dashboard *services.DashboardService
}

func NewDashboardController(dashboard *services.DashboardService) *DashboardController {
	return &DashboardController{dashboard: dashboard}
}

func (dc *DashboardController) Summary(c *ctx.Context) {
	summary, err := dc.dashboard.Summary(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(summary)
}

func (dc *DashboardController) Stock(c *ctx.Context) {
	stock, err := dc.dashboard.Stock(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(stock)
}

// Devices lists this month's best selling products.
func (dc *DashboardController) Devices(c *ctx.Context) {
	top, err := dc.dashboard.TopProducts(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(top)
}

func (dc *DashboardController) LowStock(c *ctx.Context) {
	items, err := dc.dashboard.LowStock(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(items)
}
