package service

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shrimp-trace/internal/model"
	"shrimp-trace/internal/repository"
	"shrimp-trace/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("invalid phone number or password")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrPhoneTaken         = errors.New("phone number already registered")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
)

type AuthService interface {
	Register(req *RegisterRequest) (*LoginResponse, error)
	Login(phone, password string) (*LoginResponse, error)
	OperatorLogin(email, password string) (*LoginResponse, error)
	ValidateToken(tokenString string) (*TokenValidationResponse, error)
	TokenVersion(kind model.AccountKind, id uuid.UUID) (string, error)
	Logout(actor Actor) error
}

type RegisterRequest struct {
	Kind        model.CompanyKind `json:"kind" validate:"required,oneof=farming exporting"`
	Name        string            `json:"name" validate:"required,max=255"`
	CEOName     string            `json:"ceo_name" validate:"max=255"`
	Location    string            `json:"location" validate:"max=255"`
	Address     string            `json:"address"`
	PhoneNumber string            `json:"phone_number" validate:"required,min=6,max=20"`
	Password    string            `json:"password" validate:"required,min=6"`
	LogoURL     string            `json:"logo_url" validate:"omitempty,url"`
}

type LoginResponse struct {
	Token      string      `json:"token"`
	Kind       string      `json:"kind"`
	Account    interface{} `json:"account"`
	Privileges []string    `json:"privileges"`
}

type TokenValidationResponse struct {
	Kind       string      `json:"kind"`
	Account    interface{} `json:"account"`
	Privileges []string    `json:"privileges"`
}

type authService struct {
	companyRepo  repository.CompanyRepository
	operatorRepo repository.OperatorRepository
}

func NewAuthService(companyRepo repository.CompanyRepository, operatorRepo repository.OperatorRepository) AuthService {
	return &authService{
		companyRepo:  companyRepo,
		operatorRepo: operatorRepo,
	}
}

func (s *authService) Register(req *RegisterRequest) (*LoginResponse, error) {
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if err := firstValidationError(req); err != nil {
		return nil, err
	}

	if existing, _ := s.companyRepo.FindByPhone(req.PhoneNumber); existing != nil {
		return nil, ErrPhoneTaken
	}

	company := &model.Company{
		Kind:         req.Kind,
		Name:         req.Name,
		CEOName:      req.CEOName,
		Location:     req.Location,
		Address:      req.Address,
		PhoneNumber:  req.PhoneNumber,
		LogoURL:      req.LogoURL,
		TokenVersion: uuid.New().String(),
	}
	if err := company.SetPassword(req.Password); err != nil {
		return nil, errors.New("failed to hash password")
	}
	if err := s.companyRepo.Create(company); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}

	return s.companySession(company, company.TokenVersion)
}

func (s *authService) Login(phone, password string) (*LoginResponse, error) {
	company, err := s.companyRepo.FindByPhone(strings.TrimSpace(phone))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !company.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// single session: a new login invalidates older tokens
	version := uuid.New().String()
	if err := s.companyRepo.UpdateTokenVersion(company.ID, version); err != nil {
		return nil, errors.New("failed to update session")
	}
	return s.companySession(company, version)
}

func (s *authService) companySession(company *model.Company, version string) (*LoginResponse, error) {
	kind := model.AccountKind(company.Kind)
	privileges := model.PrivilegesFor(kind)
	token, err := jwt.GenerateToken(company.ID, jwt.Kind(kind), company.Name, privileges, version)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}
	return &LoginResponse{
		Token:      token,
		Kind:       string(kind),
		Account:    company.ToResponse(),
		Privileges: privileges,
	}, nil
}

func (s *authService) OperatorLogin(email, password string) (*LoginResponse, error) {
	op, err := s.operatorRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !op.IsActive {
		return nil, ErrAccountInactive
	}
	if !op.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	op.TokenVersion = uuid.New().String()
	op.LastLoginAt = &now
	if err := s.operatorRepo.Update(op); err != nil {
		return nil, errors.New("failed to update session")
	}

	privileges := model.PrivilegesFor(model.AccountOperator)
	token, err := jwt.GenerateToken(op.ID, jwt.KindOperator, op.FullName, privileges, op.TokenVersion)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}
	return &LoginResponse{
		Token:      token,
		Kind:       string(model.AccountOperator),
		Account:    op.ToResponse(),
		Privileges: privileges,
	}, nil
}

func (s *authService) ValidateToken(tokenString string) (*TokenValidationResponse, error) {
	claims, err := jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	kind := model.AccountKind(claims.Kind)
	var account interface{}
	var version string
	switch kind {
	case model.AccountOperator:
		op, err := s.operatorRepo.FindByID(claims.AccountID)
		if err != nil {
			return nil, ErrAccountNotFound
		}
		if !op.IsActive {
			return nil, ErrAccountInactive
		}
		account, version = op.ToResponse(), op.TokenVersion
	case model.AccountFarming, model.AccountExporting:
		company, err := s.companyRepo.FindByID(claims.AccountID)
		if err != nil {
			return nil, ErrAccountNotFound
		}
		account, version = company.ToResponse(), company.TokenVersion
	default:
		return nil, jwt.ErrInvalidToken
	}

	if version != claims.TokenVersion {
		return nil, ErrSessionReplaced
	}

	return &TokenValidationResponse{
		Kind:       string(claims.Kind),
		Account:    account,
		Privileges: model.PrivilegesFor(kind),
	}, nil
}

// TokenVersion returns the current session version of an account; the auth
// middleware compares it with the token's.
func (s *authService) TokenVersion(kind model.AccountKind, id uuid.UUID) (string, error) {
	switch kind {
	case model.AccountOperator:
		op, err := s.operatorRepo.FindByID(id)
		if err != nil {
			return "", ErrAccountNotFound
		}
		if !op.IsActive {
			return "", ErrAccountInactive
		}
		return op.TokenVersion, nil
	case model.AccountFarming, model.AccountExporting:
		company, err := s.companyRepo.FindByID(id)
		if err != nil {
			return "", ErrAccountNotFound
		}
		return company.TokenVersion, nil
	}
	return "", ErrAccountNotFound
}

func (s *authService) Logout(actor Actor) error {
	version := uuid.New().String()
	if actor.IsOperator() {
		op, err := s.operatorRepo.FindByID(actor.ID)
		if err != nil {
			return ErrAccountNotFound
		}
		op.TokenVersion = version
		return s.operatorRepo.Update(op)
	}
	return s.companyRepo.UpdateTokenVersion(actor.ID, version)
}
