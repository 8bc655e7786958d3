package repository

import (
	"time"

	"shrimp-trace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PackageRepository interface {
	Create(tx *gorm.DB, pkg *model.Package) error
	BatchNumberExists(tx *gorm.DB, batchNumber string) (bool, error)
	FindByID(id uuid.UUID) (*model.Package, error)
	FindByBatchNumber(batchNumber string) (*model.Package, error)
	FindByExporter(exporterID uuid.UUID) ([]model.Package, error)
	FindByFarmer(farmerID uuid.UUID) ([]model.Package, error)
	FindAll() ([]model.Package, error)
	FindPendingArtifacts() ([]model.Package, error)
	AttachArtifact(id uuid.UUID, png []byte, payload, filename string, generatedAt time.Time) error
	MarkArtifactFailed(id uuid.UUID, reason string) error
	SetArtifactError(id uuid.UUID, reason string) error
}

type packageRepo struct {
	db *gorm.DB
}

func NewPackageRepo(db *gorm.DB) PackageRepository {
	return &packageRepo{db}
}

func (r *packageRepo) Create(tx *gorm.DB, pkg *model.Package) error {
	return tx.Create(pkg).Error
}

func (r *packageRepo) BatchNumberExists(tx *gorm.DB, batchNumber string) (bool, error) {
	var count int64
	err := tx.Model(&model.Package{}).Where("batch_number = ?", batchNumber).Count(&count).Error
	return count > 0, err
}

// withProvenance preloads everything the traceability payload needs.
func (r *packageRepo) withProvenance() *gorm.DB {
	return r.db.Preload("Product").Preload("FarmingCompany").Preload("ExportingCompany")
}

func (r *packageRepo) FindByID(id uuid.UUID) (*model.Package, error) {
	var pkg model.Package
	if err := r.withProvenance().First(&pkg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *packageRepo) FindByBatchNumber(batchNumber string) (*model.Package, error) {
	var pkg model.Package
	if err := r.withProvenance().First(&pkg, "batch_number = ?", batchNumber).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

// Listings leave the PNG bytes out; the image has its own endpoint.

func (r *packageRepo) FindByExporter(exporterID uuid.UUID) ([]model.Package, error) {
	var pkgs []model.Package
	err := r.db.Omit("qr_code").Preload("Product").
		Where("exporting_company_id = ?", exporterID).
		Order("created_at DESC").
		Find(&pkgs).Error
	return pkgs, err
}

func (r *packageRepo) FindByFarmer(farmerID uuid.UUID) ([]model.Package, error) {
	var pkgs []model.Package
	err := r.db.Omit("qr_code").Preload("Product").
		Where("farming_company_id = ?", farmerID).
		Order("created_at DESC").
		Find(&pkgs).Error
	return pkgs, err
}

func (r *packageRepo) FindAll() ([]model.Package, error) {
	var pkgs []model.Package
	err := r.db.Omit("qr_code").Preload("Product").Order("created_at DESC").Find(&pkgs).Error
	return pkgs, err
}

func (r *packageRepo) FindPendingArtifacts() ([]model.Package, error) {
	var pkgs []model.Package
	err := r.db.Omit("qr_code").Preload("Product").
		Where("artifact_status = ?", model.ArtifactPending).
		Order("created_at ASC").
		Find(&pkgs).Error
	return pkgs, err
}

// AttachArtifact writes only the artifact columns; batch number and
// weights are never touched here.
func (r *packageRepo) AttachArtifact(id uuid.UUID, png []byte, payload, filename string, generatedAt time.Time) error {
	res := r.db.Model(&model.Package{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"qr_code":               png,
			"qr_payload":            payload,
			"qr_filename":           filename,
			"artifact_status":       model.ArtifactReady,
			"artifact_error":        "",
			"artifact_generated_at": generatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkArtifactFailed leaves a package without a usable artifact as pending.
func (r *packageRepo) MarkArtifactFailed(id uuid.UUID, reason string) error {
	return r.db.Model(&model.Package{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"artifact_status": model.ArtifactPending,
			"artifact_error":  reason,
		}).Error
}

// SetArtifactError records a failed re-render of a package whose stored
// artifact stays valid; status and image are left as they are.
func (r *packageRepo) SetArtifactError(id uuid.UUID, reason string) error {
	return r.db.Model(&model.Package{}).
		Where("id = ?", id).
		Update("artifact_error", reason).Error
}
