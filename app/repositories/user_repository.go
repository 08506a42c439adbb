package repositories

import (
	"context"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/pkg/orm"
)

// UserRepository handles database operations for User.
type UserRepository struct {
	q *orm.Query
}

func NewUserRepository(q *orm.Query) *UserRepository {
	return &UserRepository{q: q}
}

// FindByEmail looks up a user by their email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.q.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).First(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID looks up a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.q.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).First(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailTaken reports whether email is registered to anyone.
func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	return r.q.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Exists()
}

// Create persists a new user record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.q.WithContext(ctx).Create(user)
}

// Update persists changes to an existing user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	return r.q.WithContext(ctx).Save(user)
}

// Delete removes the user and everything they own.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	return r.q.Transaction(ctx, func(ctx context.Context) error {
		var invoiceIDs []uint
		if err := r.q.WithContext(ctx).Model(&models.Invoice{}).Where("user_id = ?", id).Pluck("id", &invoiceIDs); err != nil {
			return err
		}
		if len(invoiceIDs) > 0 {
			if _, err := r.q.WithContext(ctx).Where("invoice_id IN ?", invoiceIDs).Delete(&models.InvoiceItem{}); err != nil {
				return err
			}
		}
		for _, model := range []interface{}{
			&models.Payment{}, &models.Invoice{}, &models.StockMovement{}, &models.Product{},
			&models.Customer{}, &models.Expense{}, &models.Category{},
		} {
			if _, err := r.q.WithContext(ctx).Where("user_id = ?", id).Delete(model); err != nil {
				return err
			}
		}
		n, err := r.q.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
		if err != nil {
			return err
		}
		if n == 0 {
			return orm.ErrNotFound
		}
		return nil
	})
}
