package controllers

import (
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/ctx"
	"github.com/shashiranjanraj/billbook/pkg/resource"
)

type InvoiceController struct {
	invoices *services.InvoiceService
}

func NewInvoiceController(invoices *services.InvoiceService) *InvoiceController {
	return &InvoiceController{invoices: invoices}
}

// Index GET /api/invoices?page=1&per_page=15
func (ic *InvoiceController) Index(c *ctx.Context) {
	list, page, err := ic.invoices.ListInvoices(c.Context(), c.UserID(), c.QueryInt("page", 1), c.QueryInt("per_page", 15))
	if err != nil {
		fail(c, err)
		return
	}
	c.Paginated(resource.Many(invoiceRow, list), page)
}

// Store creates the invoice and decrements stock in one transaction. A
// line asking for more than is available answers 409.
func (ic *InvoiceController) Store(c *ctx.Context) {
	var in services.CreateInvoiceInput
	if !c.BindJSON(&in) {
		return
	}
	inv, err := ic.invoices.CreateInvoice(c.Context(), c.UserID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(inv)
}

func (ic *InvoiceController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	inv, err := ic.invoices.GetInvoice(c.Context(), c.UserID(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(inv)
}

func (ic *InvoiceController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.UpdateInvoiceInput
	if !c.BindJSON(&in) {
		return
	}
	inv, err := ic.invoices.UpdateInvoice(c.Context(), c.UserID(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(inv)
}

// Pay marks an UNPAID invoice as PAID and records the payment.
func (ic *InvoiceController) Pay(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	inv, err := ic.invoices.MarkPaid(c.Context(), c.UserID(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(inv)
}

func (ic *InvoiceController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := ic.invoices.DeleteInvoice(c.Context(), c.UserID(), id); err != nil {
		fail(c, err)
		return
	}
	c.Message("Invoice deleted")
}
