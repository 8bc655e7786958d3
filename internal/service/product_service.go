package service

import (
	"context"
	"errors"
	"fmt"

	"shrimp-trace/internal/model"
	"shrimp-trace/internal/repository"
	"shrimp-trace/internal/ws"
	"shrimp-trace/pkg/idgen"
	"shrimp-trace/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	Name            string          `json:"name" validate:"required,max=255"`
	ShrimpType      string          `json:"shrimp_type" validate:"required,max=100"`
	UnitPrice       decimal.Decimal `json:"unit_price" validate:"dec_gte0"`
	AvailableWeight decimal.Decimal `json:"available_weight" validate:"dec_gte0"`
}

// UpdateProductRequest changes descriptive fields. AvailableWeight, when
// set, is a manual stock correction and runs under the product lock.
type UpdateProductRequest struct {
	Name            string           `json:"name" validate:"required,max=255"`
	ShrimpType      string           `json:"shrimp_type" validate:"required,max=100"`
	UnitPrice       decimal.Decimal  `json:"unit_price" validate:"dec_gte0"`
	AvailableWeight *decimal.Decimal `json:"available_weight,omitempty"`
}

type ProductService interface {
	CreateProduct(actor Actor, req *CreateProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, actor Actor, id uuid.UUID, req *UpdateProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, actor Actor, id uuid.UUID) error
	GetOwnProducts(actor Actor) ([]model.Product, error)
	GetCatalog() ([]model.Product, error)
	GetProduct(id uuid.UUID) (*model.Product, error)
	GetBySupportCode(code string) (*model.Product, error)
	GetMovements(actor Actor, id uuid.UUID) ([]model.StockMovement, error)
}

type productService struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	ledger      *InventoryLedger
	cache       TraceCache
	wsHub       *ws.Hub
}

// NewProductService wires the product service. cache may be nil; when set,
// trace records of deleted packages are evicted from it.
func NewProductService(db *gorm.DB, pRepo repository.ProductRepository, ledger *InventoryLedger, cache TraceCache, hub *ws.Hub) ProductService {
	return &productService{
		db:          db,
		productRepo: pRepo,
		ledger:      ledger,
		cache:       cache,
		wsHub:       hub,
	}
}

func firstValidationError(data interface{}) error {
	if errs := validator.ValidateStruct(data); len(errs) > 0 {
		return validationError(errs[0].FailedField, errs[0].Tag)
	}
	return nil
}

func (s *productService) CreateProduct(actor Actor, req *CreateProductRequest) (*model.Product, error) {
	if actor.Kind != model.AccountFarming {
		return nil, ErrWrongCompanyKind
	}
	if err := firstValidationError(req); err != nil {
		return nil, err
	}
	if !req.AvailableWeight.Equal(req.AvailableWeight.Round(weightPlaces)) {
		return nil, ErrInvalidWeightPrecision
	}

	code, err := idgen.Unique(idgen.SupportCode, s.productRepo.SupportCodeExists, idgen.DefaultMaxAttempts)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		CompanyID:       actor.ID,
		Name:            req.Name,
		ShrimpType:      req.ShrimpType,
		UnitPrice:       req.UnitPrice,
		SupportCode:     code,
		AvailableWeight: req.AvailableWeight,
	}
	product.CreatedBy = actor.auditID()
	product.UpdatedBy = actor.auditID()

	if err := s.productRepo.Create(product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: support code %s", ErrDuplicateIdentifier, code)
		}
		return nil, err
	}

	s.wsHub.Publish(ws.Event{
		Type:    "stock_update",
		Action:  "product_created",
		Actor:   actor.Name,
		Message: fmt.Sprintf("%s listed '%s'", actor.Name, product.Name),
		Data: map[string]interface{}{
			"id":               product.ID,
			"support_code":     product.SupportCode,
			"available_weight": product.AvailableWeight,
		},
	})
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, actor Actor, id uuid.UUID, req *UpdateProductRequest) (*model.Product, error) {
	if err := firstValidationError(req); err != nil {
		return nil, err
	}

	product, err := s.ownedProduct(actor, id)
	if err != nil {
		return nil, err
	}
	oldWeight := product.AvailableWeight

	product.Name = req.Name
	product.ShrimpType = req.ShrimpType
	product.UnitPrice = req.UnitPrice
	product.UpdatedBy = actor.auditID()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.AvailableWeight != nil {
			corrected, err := s.ledger.Correct(tx, product.ID, *req.AvailableWeight, actor.auditID())
			if err != nil {
				return err
			}
			product.AvailableWeight = corrected.AvailableWeight
		}
		return s.productRepo.Update(tx, product)
	})
	if err != nil {
		return nil, err
	}

	s.wsHub.Publish(ws.Event{
		Type:    "stock_update",
		Action:  "product_updated",
		Actor:   actor.Name,
		Message: fmt.Sprintf("%s updated product '%s'", actor.Name, product.Name),
		Data: map[string]interface{}{
			"id":         product.ID,
			"old_weight": oldWeight,
			"new_weight": product.AvailableWeight,
		},
	})
	return product, nil
}

// DeleteProduct removes the product with its requests and packages.
func (s *productService) DeleteProduct(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.ownedProduct(actor, id); err != nil {
		return err
	}
	batches, err := s.productRepo.Delete(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrProductNotFound
		}
		return err
	}
	for _, batch := range batches {
		invalidateTrace(ctx, s.cache, batch)
	}
	s.wsHub.Publish(ws.Event{Type: "stock_update", Action: "product_deleted", Actor: actor.Name, Data: map[string]interface{}{"id": id}})
	return nil
}

func (s *productService) GetOwnProducts(actor Actor) ([]model.Product, error) {
	return s.productRepo.FindByOwner(actor.ID)
}

func (s *productService) GetCatalog() ([]model.Product, error) {
	return s.productRepo.FindAll()
}

func (s *productService) GetProduct(id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) GetBySupportCode(code string) (*model.Product, error) {
	if !idgen.IsSupportCode(code) {
		return nil, ErrProductNotFound
	}
	product, err := s.productRepo.FindBySupportCode(code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// GetMovements returns the stock journal of one of the actor's products.
func (s *productService) GetMovements(actor Actor, id uuid.UUID) ([]model.StockMovement, error) {
	if _, err := s.ownedProduct(actor, id); err != nil {
		return nil, err
	}
	return s.ledger.Movements(id)
}

func (s *productService) ownedProduct(actor Actor, id uuid.UUID) (*model.Product, error) {
	product, err := s.GetProduct(id)
	if err != nil {
		return nil, err
	}
	if product.CompanyID != actor.ID {
		return nil, ErrForbidden
	}
	return product, nil
}
