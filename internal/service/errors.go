package service

import (
	"errors"
	"fmt"

	"shrimp-trace/internal/model"
	"shrimp-trace/pkg/idgen"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation               = errors.New("validation failed")
	ErrInvalidQuantity          = errors.New("package weight and package count must be greater than zero")
	ErrInvalidWeightPrecision   = errors.New("weights are limited to two decimal places")
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrDuplicateIdentifier      = idgen.ErrDuplicateIdentifier
	ErrArtifactGenerationFailed = errors.New("qr artifact generation failed")
	ErrArtifactPending          = errors.New("qr artifact is not available yet")
	ErrConcurrencyContention    = errors.New("product is locked by another request, retry later")

	ErrInvalidDateFormat  = errors.New("invalid date format, use YYYY-MM-DD")
	ErrExpirationNotAfter = errors.New("expiration date must be after production date")

	ErrProductNotFound  = errors.New("product not found")
	ErrPackageNotFound  = errors.New("package not found")
	ErrRequestNotFound  = errors.New("purchase request not found")
	ErrCompanyNotFound  = errors.New("company not found")
	ErrForbidden        = errors.New("not allowed for this account")
	ErrWrongCompanyKind = errors.New("company kind does not allow this action")

	ErrPurchaseNotApproved     = errors.New("no approved purchase request for this product")
	ErrDuplicateRequest        = errors.New("a pending request for this product already exists")
	ErrInvalidStatusTransition = errors.New("request status can only move to approved or rejected")
	ErrOwnProduct              = errors.New("cannot request your own product")
)

// InsufficientStockError carries the weight that was available when the
// request was rejected. It matches ErrInsufficientStock with errors.Is.
type InsufficientStockError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %s kg, available %s kg",
		e.Requested.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// ArtifactError describes a package left without a QR image. Err is
// ErrArtifactGenerationFailed when a render just failed and
// ErrArtifactPending when a read found no image.
type ArtifactError struct {
	BatchNumber string
	Status      model.ArtifactStatus
	Reason      string
	Err         error
}

func (e *ArtifactError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.BatchNumber)
	}
	return fmt.Sprintf("%v: %s: %s", e.Err, e.BatchNumber, e.Reason)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// validationError formats the first validator failure the way handlers show it.
func validationError(field, tag string) error {
	return fmt.Errorf("%w: field '%s' failed on tag '%s'", ErrValidation, field, tag)
}
