package repository

import (
	"shrimp-trace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OperatorRepository interface {
	FindByEmail(email string) (*model.Operator, error)
	FindByID(id uuid.UUID) (*model.Operator, error)
	Create(op *model.Operator) error
	Update(op *model.Operator) error
}

type operatorRepo struct {
	db *gorm.DB
}

func NewOperatorRepo(db *gorm.DB) OperatorRepository {
	return &operatorRepo{db}
}

func (r *operatorRepo) FindByEmail(email string) (*model.Operator, error) {
	var op model.Operator
	if err := r.db.Where("email = ?", email).First(&op).Error; err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *operatorRepo) FindByID(id uuid.UUID) (*model.Operator, error) {
	var op model.Operator
	if err := r.db.First(&op, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *operatorRepo) Create(op *model.Operator) error {
	return r.db.Create(op).Error
}

func (r *operatorRepo) Update(op *model.Operator) error {
	return r.db.Save(op).Error
}
