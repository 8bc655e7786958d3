package repository

import (
	"time"

	"shrimp-trace/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatsRepository interface {
	GetFarmingStats(companyID uuid.UUID) (*FarmingStats, error)
	GetExportingStats(companyID uuid.UUID) (*ExportingStats, error)
	GetPackageMovement(companyID uuid.UUID, kind model.CompanyKind, startDate, endDate time.Time) ([]PackageMovementData, error)
}

// PackageMovementData is one day of packaged weight, for charts
type PackageMovementData struct {
	Date        string          `json:"date"`
	Packages    int64           `json:"packages"`
	TotalWeight decimal.Decimal `json:"total_weight"`
}

type FarmingStats struct {
	TotalProducts   int64           `json:"total_products"`
	AvailableWeight decimal.Decimal `json:"available_weight"`
	PendingRequests int64           `json:"pending_requests"`
	PackagesIssued  int64           `json:"packages_issued"`
}

type ExportingStats struct {
	ApprovedPurchases int64           `json:"approved_purchases"`
	TotalPackages     int64           `json:"total_packages"`
	PackagedWeight    decimal.Decimal `json:"packaged_weight"`
	PendingArtifacts  int64           `json:"pending_artifacts"`
}

type statsRepo struct {
	db *gorm.DB
}

func NewStatsRepo(db *gorm.DB) StatsRepository {
	return &statsRepo{db}
}

func (r *statsRepo) GetFarmingStats(companyID uuid.UUID) (*FarmingStats, error) {
	var stats FarmingStats

	if err := r.db.Model(&model.Product{}).Where("company_id = ?", companyID).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&model.Product{}).
		Where("company_id = ?", companyID).
		Select("COALESCE(SUM(available_weight), 0)").
		Row().Scan(&stats.AvailableWeight); err != nil {
		return nil, err
	}

	if err := r.db.Model(&model.PurchaseRequest{}).
		Where("owner_id = ? AND status = ?", companyID, model.RequestPending).
		Count(&stats.PendingRequests).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&model.Package{}).Where("farming_company_id = ?", companyID).Count(&stats.PackagesIssued).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *statsRepo) GetExportingStats(companyID uuid.UUID) (*ExportingStats, error) {
	var stats ExportingStats

	if err := r.db.Model(&model.PurchaseRequest{}).
		Where("buyer_id = ? AND status = ?", companyID, model.RequestApproved).
		Count(&stats.ApprovedPurchases).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&model.Package{}).Where("exporting_company_id = ?", companyID).Count(&stats.TotalPackages).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&model.Package{}).
		Where("exporting_company_id = ?", companyID).
		Select("COALESCE(SUM(package_weight * quantity), 0)").
		Row().Scan(&stats.PackagedWeight); err != nil {
		return nil, err
	}

	if err := r.db.Model(&model.Package{}).
		Where("exporting_company_id = ? AND artifact_status = ?", companyID, model.ArtifactPending).
		Count(&stats.PendingArtifacts).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *statsRepo) GetPackageMovement(companyID uuid.UUID, kind model.CompanyKind, startDate, endDate time.Time) ([]PackageMovementData, error) {
	column := "exporting_company_id"
	if kind == model.KindFarming {
		column = "farming_company_id"
	}

	// Aggregate packages per creation day
	rows, err := r.db.Model(&model.Package{}).
		Select(`
			CAST(DATE(created_at) AS TEXT) as date,
			COUNT(*) as packages,
			COALESCE(SUM(package_weight * quantity), 0) as total_weight
		`).
		Where(column+" = ? AND created_at BETWEEN ? AND ?", companyID, startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []PackageMovementData{}
	for rows.Next() {
		var data PackageMovementData
		if err := rows.Scan(&data.Date, &data.Packages, &data.TotalWeight); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}
