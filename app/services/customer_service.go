package services

import (
	"context"
	"strings"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/app/repositories"
	"github.com/shashiranjanraj/billbook/pkg/logger"
)

type CustomerInput struct {
	Name  string `json:"name" validate:"required,max=255"`
	Phone string `json:"phone" validate:"required,max=20"`
	Email string `json:"email" validate:"nullable,email"`
}

type CustomerService struct {
	tx        Transactor
	customers *repositories.CustomerRepository
	invoices  *repositories.InvoiceRepository
}

func NewCustomerService(tx Transactor, customers *repositories.CustomerRepository, invoices *repositories.InvoiceRepository) *CustomerService {
	return &CustomerService{tx: tx, customers: customers, invoices: invoices}
}

func (s *CustomerService) Create(ctx context.Context, ownerID uint, in CustomerInput) (*models.Customer, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	c := &models.Customer{
		UserID: ownerID,
		Name:   strings.TrimSpace(in.Name),
		Phone:  strings.TrimSpace(in.Phone),
		Email:  strings.TrimSpace(in.Email),
	}

	taken, err := s.customers.PhoneTaken(ctx, ownerID, c.Phone, 0)
	if err != nil {
		return nil, persistence("check customer phone", err)
	}
	if taken {
		return nil, invalid("phone", "Customer with this phone already exists")
	}

	if err := s.customers.Create(ctx, c); err != nil {
		return nil, persistence("create customer", err)
	}
	return c, nil
}

func (s *CustomerService) List(ctx context.Context, ownerID uint) ([]models.Customer, error) {
	customers, err := s.customers.List(ctx, ownerID)
	if err != nil {
		return nil, persistence("load customers", err)
	}
	return customers, nil
}

func (s *CustomerService) Get(ctx context.Context, ownerID, id uint) (*models.Customer, error) {
	c, err := s.customers.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("Customer not found")
		}
		return nil, persistence("load customer", err)
	}
	return c, nil
}

func (s *CustomerService) Update(ctx context.Context, ownerID, id uint, in CustomerInput) (*models.Customer, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(in.Phone)
	if phone != c.Phone {
		taken, err := s.customers.PhoneTaken(ctx, ownerID, phone, c.ID)
		if err != nil {
			return nil, persistence("check customer phone", err)
		}
		if taken {
			return nil, invalid("phone", "Customer with this phone already exists")
		}
	}

	c.Name = strings.TrimSpace(in.Name)
	c.Phone = phone
	c.Email = strings.TrimSpace(in.Email)
	if err := s.customers.Update(ctx, c); err != nil {
		return nil, persistence("update customer", err)
	}
	return c, nil
}

// Delete removes the customer together with their invoices, items and
// payments.
func (s *CustomerService) Delete(ctx context.Context, ownerID, id uint) error {
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.Get(ctx, ownerID, id); err != nil {
			return err
		}
		if err := s.invoices.DeleteByCustomer(ctx, id, ownerID); err != nil {
			return persistence("delete customer invoices", err)
		}
		if err := s.customers.Delete(ctx, id, ownerID); err != nil {
			return persistence("delete customer", err)
		}
		return nil
	})
	if err != nil {
		return passThrough("delete customer", err)
	}
	logger.WithCtx(ctx).Info("customer deleted", "owner_id", ownerID, "customer_id", id)
	return nil
}
