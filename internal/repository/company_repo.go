package repository

import (
	"shrimp-trace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CompanyRepository interface {
	FindByPhone(phone string) (*model.Company, error)
	FindByID(id uuid.UUID) (*model.Company, error)
	FindByKind(kind model.CompanyKind) ([]model.Company, error)
	Create(company *model.Company) error
	Update(company *model.Company) error
	UpdateTokenVersion(id uuid.UUID, version string) error
}

type companyRepo struct {
	db *gorm.DB
}

func NewCompanyRepo(db *gorm.DB) CompanyRepository {
	return &companyRepo{db}
}

func (r *companyRepo) FindByPhone(phone string) (*model.Company, error) {
	var company model.Company
	if err := r.db.Where("phone_number = ?", phone).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepo) FindByID(id uuid.UUID) (*model.Company, error) {
	var company model.Company
	if err := r.db.First(&company, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepo) FindByKind(kind model.CompanyKind) ([]model.Company, error) {
	var companies []model.Company
	err := r.db.Where("kind = ?", kind).Order("name ASC").Find(&companies).Error
	return companies, err
}

func (r *companyRepo) Create(company *model.Company) error {
	return r.db.Create(company).Error
}

func (r *companyRepo) Update(company *model.Company) error {
	return r.db.Save(company).Error
}

func (r *companyRepo) UpdateTokenVersion(id uuid.UUID, version string) error {
	return r.db.Model(&model.Company{}).Where("id = ?", id).Update("token_version", version).Error
}
