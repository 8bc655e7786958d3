package repository

import (
	"shrimp-trace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseRequestRepository interface {
	Create(req *model.PurchaseRequest) error
	FindByID(id uuid.UUID) (*model.PurchaseRequest, error)
	FindByOwner(ownerID uuid.UUID) ([]model.PurchaseRequest, error)
	FindByBuyer(buyerID uuid.UUID, status model.RequestStatus) ([]model.PurchaseRequest, error)
	UpdateStatus(id uuid.UUID, status model.RequestStatus, updatedBy string) error
	Delete(id uuid.UUID) error
	HasStatus(buyerID, productID uuid.UUID, status model.RequestStatus) (bool, error)
	FindPurchasedProducts(buyerID uuid.UUID) ([]model.Product, error)
}

type purchaseRequestRepo struct {
	db *gorm.DB
}

func NewPurchaseRequestRepo(db *gorm.DB) PurchaseRequestRepository {
	return &purchaseRequestRepo{db}
}

func (r *purchaseRequestRepo) Create(req *model.PurchaseRequest) error {
	return r.db.Create(req).Error
}

func (r *purchaseRequestRepo) FindByID(id uuid.UUID) (*model.PurchaseRequest, error) {
	var req model.PurchaseRequest
	err := r.db.Preload("Product").Preload("Buyer").Preload("Owner").First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *purchaseRequestRepo) FindByOwner(ownerID uuid.UUID) ([]model.PurchaseRequest, error) {
	var reqs []model.PurchaseRequest
	err := r.db.Preload("Product").Preload("Buyer").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// FindByBuyer lists a buyer's requests; an empty status means all of them.
func (r *purchaseRequestRepo) FindByBuyer(buyerID uuid.UUID, status model.RequestStatus) ([]model.PurchaseRequest, error) {
	var reqs []model.PurchaseRequest
	q := r.db.Preload("Product").Preload("Owner").Where("buyer_id = ?", buyerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

func (r *purchaseRequestRepo) UpdateStatus(id uuid.UUID, status model.RequestStatus, updatedBy string) error {
	return r.db.Model(&model.PurchaseRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_by": updatedBy,
		}).Error
}

func (r *purchaseRequestRepo) Delete(id uuid.UUID) error {
	return r.db.Delete(&model.PurchaseRequest{}, "id = ?", id).Error
}

func (r *purchaseRequestRepo) HasStatus(buyerID, productID uuid.UUID, status model.RequestStatus) (bool, error) {
	var count int64
	err := r.db.Model(&model.PurchaseRequest{}).
		Where("buyer_id = ? AND product_id = ? AND status = ?", buyerID, productID, status).
		Count(&count).Error
	return count > 0, err
}

// FindPurchasedProducts returns the distinct products the buyer has an
// approved request for.
func (r *purchaseRequestRepo) FindPurchasedProducts(buyerID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	sub := r.db.Model(&model.PurchaseRequest{}).
		Select("product_id").
		Where("buyer_id = ? AND status = ?", buyerID, model.RequestApproved)
	err := r.db.Preload("Company").
		Where("id IN (?)", sub).
		Order("created_at DESC").
		Find(&products).Error
	return products, err
}
