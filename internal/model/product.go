package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a shrimp lot listed by a farming company.
// AvailableWeight (kg) goes down through package creation and changes
// otherwise only by manual correction. SupportCode is minted once on create
// and never reassigned.
type Product struct {
	BaseModel
	CompanyID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"company_id"`
	Company         *Company        `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"company,omitempty"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	ShrimpType      string          `gorm:"type:varchar(255);not null;index" json:"shrimp_type"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	SupportCode     string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"support_code"`
	AvailableWeight decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"available_weight"`
}
