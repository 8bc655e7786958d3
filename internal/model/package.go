package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ArtifactStatus string

const (
	ArtifactPending ArtifactStatus = "pending"
	ArtifactReady   ArtifactStatus = "ready"
)

// ShelfLifeDays is the window between production and expiration when the
// caller does not give an expiration date.
const ShelfLifeDays = 365

// Package is a traceable batch split off a product for export.
type Package struct {
	BaseModel
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product            *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	FarmingCompanyID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"farming_company_id"`
	FarmingCompany     *Company        `gorm:"foreignKey:FarmingCompanyID;constraint:OnDelete:CASCADE" json:"farming_company,omitempty"`
	ExportingCompanyID uuid.UUID       `gorm:"type:uuid;not null;index" json:"exporting_company_id"`
	ExportingCompany   *Company        `gorm:"foreignKey:ExportingCompanyID;constraint:OnDelete:CASCADE" json:"exporting_company,omitempty"`
	PackageWeight      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"package_weight"`
	Quantity           int             `gorm:"not null;default:1" json:"quantity"`
	ProductionDate     time.Time       `gorm:"type:date;not null" json:"production_date"`
	ExpirationDate     time.Time       `gorm:"type:date;not null" json:"expiration_date"`
	BatchNumber        string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"batch_number"`

	// QR artifact, written after the package row commits
	QRCode              []byte         `json:"-"`
	QRPayload           string         `gorm:"type:text" json:"qr_payload,omitempty"`
	QRFilename          string         `gorm:"type:varchar(150)" json:"qr_filename,omitempty"`
	ArtifactStatus      ArtifactStatus `gorm:"type:varchar(10);not null;default:'pending';index" json:"artifact_status"`
	ArtifactError       string         `gorm:"type:text" json:"artifact_error,omitempty"`
	ArtifactGeneratedAt *time.Time     `json:"artifact_generated_at,omitempty"`
}

// TotalWeight is PackageWeight × Quantity.
func (p *Package) TotalWeight() decimal.Decimal {
	return p.PackageWeight.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

func (p *Package) HasArtifact() bool {
	return p.ArtifactStatus == ArtifactReady && len(p.QRCode) > 0
}

// DateOnly drops the clock part of t, keeping its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DefaultExpiration is production + ShelfLifeDays.
func DefaultExpiration(production time.Time) time.Time {
	return DateOnly(production).AddDate(0, 0, ShelfLifeDays)
}

// PackageResponse omits the PNG bytes; the image is served separately.
type PackageResponse struct {
	ID                  uuid.UUID       `json:"id"`
	BatchNumber         string          `json:"batch_number"`
	ProductID           uuid.UUID       `json:"product_id"`
	ProductName         string          `json:"product_name,omitempty"`
	SupportCode         string          `json:"support_code,omitempty"`
	FarmingCompanyID    uuid.UUID       `json:"farming_company_id"`
	ExportingCompanyID  uuid.UUID       `json:"exporting_company_id"`
	PackageWeight       decimal.Decimal `json:"package_weight"`
	Quantity            int             `json:"quantity"`
	TotalWeight         decimal.Decimal `json:"total_weight"`
	ProductionDate      string          `json:"production_date"`
	ExpirationDate      string          `json:"expiration_date"`
	ArtifactStatus      ArtifactStatus  `json:"artifact_status"`
	ArtifactError       string          `json:"artifact_error,omitempty"`
	QRFilename          string          `json:"qr_filename,omitempty"`
	ArtifactGeneratedAt *time.Time      `json:"artifact_generated_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

func (p *Package) ToResponse() PackageResponse {
	resp := PackageResponse{
		ID:                  p.ID,
		BatchNumber:         p.BatchNumber,
		ProductID:           p.ProductID,
		FarmingCompanyID:    p.FarmingCompanyID,
		ExportingCompanyID:  p.ExportingCompanyID,
		PackageWeight:       p.PackageWeight,
		Quantity:            p.Quantity,
		TotalWeight:         p.TotalWeight(),
		ProductionDate:      p.ProductionDate.Format("2006-01-02"),
		ExpirationDate:      p.ExpirationDate.Format("2006-01-02"),
		ArtifactStatus:      p.ArtifactStatus,
		ArtifactError:       p.ArtifactError,
		QRFilename:          p.QRFilename,
		ArtifactGeneratedAt: p.ArtifactGeneratedAt,
		CreatedAt:           p.CreatedAt,
	}
	if p.Product != nil {
		resp.ProductName = p.Product.Name
		resp.SupportCode = p.Product.SupportCode
	}
	return resp
}
