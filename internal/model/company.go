package model

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type CompanyKind string

const (
	KindFarming   CompanyKind = "farming"
	KindExporting CompanyKind = "exporting"
)

func (k CompanyKind) Valid() bool {
	return k == KindFarming || k == KindExporting
}

// Company is a shrimp farming company or an exporting company.
// Both kinds share one table and authenticate with phone number + password.
type Company struct {
	BaseModel
	Kind         CompanyKind `gorm:"type:varchar(20);not null;index" json:"kind"`
	Name         string      `gorm:"type:varchar(255);not null" json:"name"`
	CEOName      string      `gorm:"type:varchar(255)" json:"ceo_name"`
	Location     string      `gorm:"type:varchar(255)" json:"location"`
	Address      string      `gorm:"type:text" json:"address"`
	PhoneNumber  string      `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone_number"`
	LogoURL      string      `gorm:"type:varchar(500)" json:"logo_url,omitempty"`
	Password     string      `gorm:"type:varchar(255);not null" json:"-"`
	TokenVersion string      `gorm:"type:varchar(255);default:''" json:"-"`
}

func (Company) TableName() string {
	return "companies"
}

// SetPassword hashes and sets the company's password
func (c *Company) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.Password = string(hashed)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (c *Company) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.Password), []byte(password)) == nil
}

// CompanyResponse is the public view of a company
type CompanyResponse struct {
	ID          uuid.UUID   `json:"id"`
	Kind        CompanyKind `json:"kind"`
	Name        string      `json:"name"`
	CEOName     string      `json:"ceo_name"`
	Location    string      `json:"location"`
	Address     string      `json:"address"`
	PhoneNumber string      `json:"phone_number"`
	LogoURL     string      `json:"logo_url,omitempty"`
}

func (c *Company) ToResponse() CompanyResponse {
	return CompanyResponse{
		ID:          c.ID,
		Kind:        c.Kind,
		Name:        c.Name,
		CEOName:     c.CEOName,
		Location:    c.Location,
		Address:     c.Address,
		PhoneNumber: c.PhoneNumber,
		LogoURL:     c.LogoURL,
	}
}
