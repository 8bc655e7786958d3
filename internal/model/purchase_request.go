package model

import "github.com/google/uuid"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// PurchaseRequest is an exporter's ask to buy a product from its farming owner.
// SupportCode is a snapshot taken when the request is made.
type PurchaseRequest struct {
	BaseModel
	SupportCode string        `gorm:"type:varchar(50);not null;index" json:"support_code"`
	BuyerID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"buyer_id"`
	Buyer       *Company      `gorm:"foreignKey:BuyerID;constraint:OnDelete:CASCADE" json:"buyer,omitempty"`
	ProductID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *Product      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	OwnerID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner       *Company      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Status      RequestStatus `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
}
