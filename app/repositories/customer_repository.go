package repositories

import (
	"context"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/pkg/orm"
)

// CustomerRepository handles database operations for Customer.
type CustomerRepository struct {
	q *orm.Query
}

func NewCustomerRepository(q *orm.Query) *CustomerRepository {
	return &CustomerRepository{q: q}
}

func (r *CustomerRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uint) (*models.Customer, error) {
	var c models.Customer
	err := r.q.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns the owner's customers, newest first.
func (r *CustomerRepository) List(ctx context.Context, ownerID uint) ([]models.Customer, error) {
	var customers []models.Customer
	err := r.q.WithContext(ctx).
		Model(&models.Customer{}).
		Where("user_id = ?", ownerID).
		Order("id DESC").
		Get(&customers)
	return customers, err
}

// PhoneTaken reports whether the owner has another customer with phone.
func (r *CustomerRepository) PhoneTaken(ctx context.Context, ownerID uint, phone string, exceptID uint) (bool, error) {
	return r.q.WithContext(ctx).
		Model(&models.Customer{}).
		Where("user_id = ? AND phone = ? AND id <> ?", ownerID, phone, exceptID).
		Exists()
}

func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	return r.q.WithContext(ctx).Create(c)
}

func (r *CustomerRepository) Update(ctx context.Context, c *models.Customer) error {
	_, err := r.q.WithContext(ctx).
		Model(c).
		Where("user_id = ?", c.UserID).
		Select("name", "phone", "email").
		Updates(c)
	return err
}

// Delete removes the customer row only; callers cascade invoices first.
func (r *CustomerRepository) Delete(ctx context.Context, id, ownerID uint) error {
	n, err := r.q.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&models.Customer{})
	if err != nil {
		return err
	}
	if n == 0 {
		return orm.ErrNotFound
	}
	return nil
}
