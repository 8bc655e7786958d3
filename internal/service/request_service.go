package service

import (
	"strings"

	"shrimp-trace/internal/model"
	"shrimp-trace/internal/repository"
	"shrimp-trace/internal/ws"

	"github.com/google/uuid"
)

// CreatePurchaseRequest names the product either by id or by the support
// code printed on the farmer's listing.
type CreatePurchaseRequest struct {
	ProductID   uuid.UUID `json:"product_id"`
	SupportCode string    `json:"support_code"`
}

type PurchaseRequestService interface {
	CreateRequest(actor Actor, req *CreatePurchaseRequest) (*model.PurchaseRequest, error)
	Approve(actor Actor, id uuid.UUID) (*model.PurchaseRequest, error)
	Reject(actor Actor, id uuid.UUID) (*model.PurchaseRequest, error)
	DeleteRequest(actor Actor, id uuid.UUID) error
	GetIncoming(actor Actor) ([]model.PurchaseRequest, error)
	GetOutgoing(actor Actor, status model.RequestStatus) ([]model.PurchaseRequest, error)
	GetPurchasedProducts(actor Actor) ([]model.Product, error)
}

type purchaseRequestService struct {
	requestRepo repository.PurchaseRequestRepository
	products    ProductService
	wsHub       *ws.Hub
}

func NewPurchaseRequestService(rRepo repository.PurchaseRequestRepository, products ProductService, hub *ws.Hub) PurchaseRequestService {
	return &purchaseRequestService{
		requestRepo: rRepo,
		products:    products,
		wsHub:       hub,
	}
}

func (s *purchaseRequestService) CreateRequest(actor Actor, req *CreatePurchaseRequest) (*model.PurchaseRequest, error) {
	if actor.Kind != model.AccountExporting {
		return nil, ErrWrongCompanyKind
	}

	var (
		product *model.Product
		err     error
	)
	switch {
	case req.ProductID != uuid.Nil:
		product, err = s.products.GetProduct(req.ProductID)
	case strings.TrimSpace(req.SupportCode) != "":
		product, err = s.products.GetBySupportCode(strings.ToUpper(strings.TrimSpace(req.SupportCode)))
	default:
		return nil, validationError("ProductID", "required_without")
	}
	if err != nil {
		return nil, err
	}
	if product.CompanyID == actor.ID {
		return nil, ErrOwnProduct
	}

	pending, err := s.requestRepo.HasStatus(actor.ID, product.ID, model.RequestPending)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrDuplicateRequest
	}

	pr := &model.PurchaseRequest{
		SupportCode: product.SupportCode,
		BuyerID:     actor.ID,
		ProductID:   product.ID,
		OwnerID:     product.CompanyID,
		Status:      model.RequestPending,
	}
	pr.CreatedBy = actor.auditID()
	pr.UpdatedBy = actor.auditID()
	if err := s.requestRepo.Create(pr); err != nil {
		return nil, err
	}
	pr.Product = product

	s.wsHub.Publish(ws.Event{
		Type:   "request_status",
		Action: string(model.RequestPending),
		Actor:  actor.Name,
		Data:   map[string]interface{}{"id": pr.ID, "product_id": product.ID, "owner_id": pr.OwnerID},
	})
	return pr, nil
}

func (s *purchaseRequestService) Approve(actor Actor, id uuid.UUID) (*model.PurchaseRequest, error) {
	return s.decide(actor, id, model.RequestApproved)
}

func (s *purchaseRequestService) Reject(actor Actor, id uuid.UUID) (*model.PurchaseRequest, error) {
	return s.decide(actor, id, model.RequestRejected)
}

// decide moves a request to approved or rejected. Only the product owner
// may decide, and a request never returns to pending.
func (s *purchaseRequestService) decide(actor Actor, id uuid.UUID, status model.RequestStatus) (*model.PurchaseRequest, error) {
	if status != model.RequestApproved && status != model.RequestRejected {
		return nil, ErrInvalidStatusTransition
	}

	pr, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if pr.OwnerID != actor.ID {
		return nil, ErrForbidden
	}
	if pr.Status == status {
		return pr, nil
	}

	if err := s.requestRepo.UpdateStatus(pr.ID, status, actor.auditID()); err != nil {
		return nil, err
	}
	pr.Status = status
	pr.UpdatedBy = actor.auditID()

	s.wsHub.Publish(ws.Event{
		Type:   "request_status",
		Action: string(status),
		Actor:  actor.Name,
		Data:   map[string]interface{}{"id": pr.ID, "buyer_id": pr.BuyerID, "product_id": pr.ProductID},
	})
	return pr, nil
}

// DeleteRequest is for the product owner. Packages already made from an
// approved request are kept.
func (s *purchaseRequestService) DeleteRequest(actor Actor, id uuid.UUID) error {
	pr, err := s.find(id)
	if err != nil {
		return err
	}
	if pr.OwnerID != actor.ID {
		return ErrForbidden
	}
	return s.requestRepo.Delete(pr.ID)
}

func (s *purchaseRequestService) GetIncoming(actor Actor) ([]model.PurchaseRequest, error) {
	return s.requestRepo.FindByOwner(actor.ID)
}

func (s *purchaseRequestService) GetOutgoing(actor Actor, status model.RequestStatus) ([]model.PurchaseRequest, error) {
	return s.requestRepo.FindByBuyer(actor.ID, status)
}

func (s *purchaseRequestService) GetPurchasedProducts(actor Actor) ([]model.Product, error) {
	return s.requestRepo.FindPurchasedProducts(actor.ID)
}

func (s *purchaseRequestService) find(id uuid.UUID) (*model.PurchaseRequest, error) {
	pr, err := s.requestRepo.FindByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return pr, nil
}
