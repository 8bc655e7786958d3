package repository

import (
	"errors"

	"shrimp-trace/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(product *model.Product) error
	FindAll() ([]model.Product, error)
	FindByOwner(companyID uuid.UUID) ([]model.Product, error)
	FindByID(id uuid.UUID) (*model.Product, error)
	FindBySupportCode(code string) (*model.Product, error)
	SupportCodeExists(code string) (bool, error)
	Update(tx *gorm.DB, product *model.Product) error
	LockByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	UpdateAvailableWeight(tx *gorm.DB, id uuid.UUID, weight decimal.Decimal, updatedBy string) error
	Delete(id uuid.UUID) ([]string, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(product *model.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepo) FindAll() ([]model.Product, error) {
	var products []model.Product
	err := r.db.Preload("Company").Order("created_at DESC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByOwner(companyID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.Where("company_id = ?", companyID).Order("created_at DESC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.Preload("Company").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindBySupportCode(code string) (*model.Product, error) {
	var product model.Product
	if err := r.db.Preload("Company").First(&product, "support_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) SupportCodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Product{}).Where("support_code = ?", code).Count(&count).Error
	return count > 0, err
}

// Update saves descriptive fields only on tx. Weight changes go through
// UpdateAvailableWeight inside a locked transaction.
func (r *productRepo) Update(tx *gorm.DB, product *model.Product) error {
	return tx.Model(product).
		Select("name", "shrimp_type", "unit_price", "updated_by", "updated_at").
		Updates(product).Error
}

// LockByID reads the product row with SELECT ... FOR UPDATE on tx.
func (r *productRepo) LockByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateAvailableWeight takes tx so the write joins the caller's transaction
func (r *productRepo) UpdateAvailableWeight(tx *gorm.DB, id uuid.UUID, weight decimal.Decimal, updatedBy string) error {
	res := tx.Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"available_weight": weight,
			"updated_by":       updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the product together with its packages, purchase requests
// and stock movements. It returns the batch numbers of the removed packages.
func (r *productRepo) Delete(id uuid.UUID) ([]string, error) {
	var batches []string
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// no package can commit against the product once it is locked
		if _, err := r.LockByID(tx, id); err != nil {
			return err
		}
		if err := tx.Model(&model.Package{}).Where("product_id = ?", id).Pluck("batch_number", &batches).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&model.Package{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&model.PurchaseRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&model.StockMovement{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
