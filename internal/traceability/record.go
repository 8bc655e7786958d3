package traceability

import (
	"github.com/shopspring/decimal"

	"shrimp-trace/internal/model"
)

// Record is the public view of a package returned by a trace lookup.
// It holds provenance only; prices and account data stay private.
type Record struct {
	BatchNumber      string               `json:"batch_number"`
	ProductName      string               `json:"product_name"`
	ShrimpType       string               `json:"shrimp_type"`
	SupportCode      string               `json:"support_code"`
	FarmingCompany   string               `json:"farming_company"`
	FarmLocation     string               `json:"farm_location,omitempty"`
	ExportingCompany string               `json:"exporting_company"`
	PackageWeight    decimal.Decimal      `json:"package_weight"`
	Quantity         int                  `json:"quantity"`
	TotalWeight      decimal.Decimal      `json:"total_weight"`
	ProductionDate   string               `json:"production_date"`
	ExpirationDate   string               `json:"expiration_date"`
	ArtifactStatus   model.ArtifactStatus `json:"artifact_status"`
	Payload          string               `json:"payload"`
}

// NewRecord builds the trace view of p. It needs the same relations as
// BuildPayload.
func NewRecord(p *model.Package) (*Record, error) {
	payload, err := BuildPayload(p)
	if err != nil {
		return nil, err
	}
	return &Record{
		BatchNumber:      p.BatchNumber,
		ProductName:      p.Product.Name,
		ShrimpType:       p.Product.ShrimpType,
		SupportCode:      p.Product.SupportCode,
		FarmingCompany:   p.FarmingCompany.Name,
		FarmLocation:     p.FarmingCompany.Location,
		ExportingCompany: p.ExportingCompany.Name,
		PackageWeight:    p.PackageWeight,
		Quantity:         p.Quantity,
		TotalWeight:      p.TotalWeight(),
		ProductionDate:   p.ProductionDate.Format(dateLayout),
		ExpirationDate:   p.ExpirationDate.Format(dateLayout),
		ArtifactStatus:   p.ArtifactStatus,
		Payload:          payload,
	}, nil
}
