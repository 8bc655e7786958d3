package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementPackaged   MovementType = "PACKAGED"
	MovementCorrection MovementType = "CORRECTION"
)

// StockMovement is an append-only audit row written next to every change of
// Product.AvailableWeight, in the same transaction.
type StockMovement struct {
	BaseModel
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	Type      MovementType    `gorm:"type:varchar(20);not null" json:"type"`
	Delta     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"delta"` // negative when stock leaves
	Balance   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"balance"`
}
