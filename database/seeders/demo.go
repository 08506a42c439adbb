package seeders

import (
	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/pkg/auth"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DemoEmail and DemoPassword sign in to the seeded account.
const (
	DemoEmail    = "demo@billbook.local"
	DemoPassword = "password123"
)

func init() {
	Register("demo", SeedDemo)
}

// SeedDemo creates a demo owner with a few customers, products and expense
// categories. Running it again leaves existing rows alone.
func SeedDemo(db *gorm.DB) error {
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return err
	}

	owner := models.User{Email: DemoEmail}
	if err := db.Where(models.User{Email: DemoEmail}).
		Attrs(models.User{Name: "Demo Owner", Password: hash, Role: "user", CompanyName: "Demo Traders"}).
		FirstOrCreate(&owner).Error; err != nil {
		return err
	}

	customers := []models.Customer{
		{Name: "Asha Verma", Phone: "9876500001", Email: "asha@example.com"},
		{Name: "Ravi Kumar", Phone: "9876500002"},
	}
	for _, c := range customers {
		c.UserID = owner.ID
		if err := db.Where(models.Customer{UserID: owner.ID, Phone: c.Phone}).FirstOrCreate(&c).Error; err != nil {
			return err
		}
	}

	products := []models.Product{
		{Name: "USB Cable", Unit: "pcs", Rate: decimal.NewFromInt(150), Stock: 120},
		{Name: "Power Bank", Unit: "pcs", Rate: decimal.NewFromInt(1299), Stock: 15},
		{Name: "Earphones", Unit: "pcs", Rate: decimal.NewFromInt(499), Stock: 4},
	}
	for _, p := range products {
		p.UserID = owner.ID
		p.IsActive = true
		if err := db.Where(models.Product{UserID: owner.ID, Name: p.Name}).FirstOrCreate(&p).Error; err != nil {
			return err
		}
	}

	for _, name := range []string{"Rent", "Utilities", "Supplies"} {
		c := models.Category{UserID: owner.ID, Name: name}
		if err := db.Where(c).FirstOrCreate(&c).Error; err != nil {
			return err
		}
	}
	return nil
}
