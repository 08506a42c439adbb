package controllers

import (
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/ctx"
	"github.com/shashiranjanraj/billbook/pkg/resource"
)

type ProductController struct {
	products   *services.ProductService
	lowStockAt int
}

// NewProductController builds the controller. Products at or below
// lowStockAt are flagged low_stock in listings.
func NewProductController(products *services.ProductService, lowStockAt int) *ProductController {
	return &ProductController{products: products, lowStockAt: lowStockAt}
}

func (pc *ProductController) Index(c *ctx.Context) {
	list, err := pc.products.List(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(resource.Many(productRow(pc.lowStockAt), list))
}

func (pc *ProductController) Store(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	product, err := pc.products.Create(c.Context(), c.UserID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(resource.One(productRow(pc.lowStockAt), product))
}

func (pc *ProductController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	product, err := pc.products.Get(c.Context(), c.UserID(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(resource.One(productRow(pc.lowStockAt), product))
}

func (pc *ProductController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.UpdateProductInput
	if !c.BindJSON(&in) {
		return
	}
	product, err := pc.products.Update(c.Context(), c.UserID(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(resource.One(productRow(pc.lowStockAt), product))
}

func (pc *ProductController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := pc.products.Delete(c.Context(), c.UserID(), id); err != nil {
		fail(c, err)
		return
	}
	c.Message("Product deleted")
}

func (pc *ProductController) Restock(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.RestockInput
	if !c.BindJSON(&in) {
		return
	}
	product, err := pc.products.Restock(c.Context(), c.UserID(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(resource.One(productRow(pc.lowStockAt), product))
}

func (pc *ProductController) Movements(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	moves, err := pc.products.Movements(c.Context(), c.UserID(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(moves)
}
