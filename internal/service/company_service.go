package service

import (
	"errors"

	"shrimp-trace/internal/model"
	"shrimp-trace/internal/repository"

	"github.com/google/uuid"
)

type CompanyService interface {
	GetProfile(id uuid.UUID) (*model.Company, error)
	UpdateProfile(actor Actor, req *UpdateProfileRequest) (*model.Company, error)
	ListFarmingCompanies() ([]model.CompanyResponse, error)
}

type UpdateProfileRequest struct {
	Name     string  `json:"name" validate:"required,max=255"`
	CEOName  string  `json:"ceo_name" validate:"max=255"`
	Location string  `json:"location" validate:"max=255"`
	Address  string  `json:"address"`
	LogoURL  string  `json:"logo_url" validate:"omitempty,url"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6"` // Optional
}

type companyService struct {
	companyRepo repository.CompanyRepository
}

func NewCompanyService(companyRepo repository.CompanyRepository) CompanyService {
	return &companyService{companyRepo: companyRepo}
}

func (s *companyService) GetProfile(id uuid.UUID) (*model.Company, error) {
	company, err := s.companyRepo.FindByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	return company, nil
}

// UpdateProfile edits the descriptive fields. Kind and phone number are fixed
// after registration.
func (s *companyService) UpdateProfile(actor Actor, req *UpdateProfileRequest) (*model.Company, error) {
	if actor.IsOperator() {
		return nil, ErrForbidden
	}
	if err := firstValidationError(req); err != nil {
		return nil, err
	}

	company, err := s.GetProfile(actor.ID)
	if err != nil {
		return nil, err
	}

	company.Name = req.Name
	company.CEOName = req.CEOName
	company.Location = req.Location
	company.Address = req.Address
	company.LogoURL = req.LogoURL
	company.UpdatedBy = actor.auditID()
	if req.Password != nil && *req.Password != "" {
		if err := company.SetPassword(*req.Password); err != nil {
			return nil, errors.New("failed to hash password")
		}
	}

	if err := s.companyRepo.Update(company); err != nil {
		return nil, err
	}
	return company, nil
}

func (s *companyService) ListFarmingCompanies() ([]model.CompanyResponse, error) {
	companies, err := s.companyRepo.FindByKind(model.KindFarming)
	if err != nil {
		return nil, err
	}
	out := make([]model.CompanyResponse, 0, len(companies))
	for i := range companies {
		out = append(out, companies[i].ToResponse())
	}
	return out, nil
}
