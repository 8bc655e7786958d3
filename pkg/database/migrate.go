package database

import (
	"shrimp-trace/internal/model"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Company{},
		&model.Operator{},
		&model.Product{},
		&model.PurchaseRequest{},
		&model.Package{},
		&model.StockMovement{},
	)
}
