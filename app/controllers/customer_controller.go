package controllers

import (
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/ctx"
)

type CustomerController struct {
	customers *services.CustomerService
}

func NewCustomerController(customers *services.CustomerService) *CustomerController {
	return &CustomerController{customers: customers}
}

func (cc *CustomerController) Index(c *ctx.Context) {
	list, err := cc.customers.List(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(list)
}

func (cc *CustomerController) Store(c *ctx.Context) {
	var in services.CustomerInput
	if !c.BindJSON(&in) {
		return
	}
	customer, err := cc.customers.Create(c.Context(), c.UserID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(customer)
}

func (cc *CustomerController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	customer, err := cc.customers.Get(c.Context(), c.UserID(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(customer)
}

func (cc *CustomerController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.CustomerInput
	if !c.BindJSON(&in) {
		return
	}
	customer, err := cc.customers.Update(c.Context(), c.UserID(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(customer)
}

// Destroy removes the customer together with their invoices.
func (cc *CustomerController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := cc.customers.Delete(c.Context(), c.UserID(), id); err != nil {
		fail(c, err)
		return
	}
	c.Message("Customer deleted")
}
