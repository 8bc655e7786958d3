package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shrimp-trace/internal/model"
	"shrimp-trace/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultLockTimeout bounds how long a deduction waits for the product row.
const DefaultLockTimeout = 5 * time.Second

// weightPlaces is the precision of the domain unit (kilograms).
const weightPlaces = 2

// InventoryLedger owns every change to Product.AvailableWeight. All writes
// happen inside a caller transaction while holding the product's row lock.
// Every change is journaled as a StockMovement when movements is set.
type InventoryLedger struct {
	products    repository.ProductRepository
	movements   repository.MovementRepository
	lockTimeout time.Duration
}

func NewInventoryLedger(products repository.ProductRepository, movements repository.MovementRepository, lockTimeout time.Duration) *InventoryLedger {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &InventoryLedger{products: products, movements: movements, lockTimeout: lockTimeout}
}

// TotalWeight validates a unit weight and count and returns their product.
func (l *InventoryLedger) TotalWeight(unitWeight decimal.Decimal, count int) (decimal.Decimal, error) {
	if !unitWeight.IsPositive() || count <= 0 {
		return decimal.Zero, ErrInvalidQuantity
	}
	if !unitWeight.Equal(unitWeight.Round(weightPlaces)) {
		return decimal.Zero, ErrInvalidWeightPrecision
	}
	return unitWeight.Mul(decimal.NewFromInt(int64(count))), nil
}

// Check compares total against the product's current weight. It is advisory:
// ReserveAndDeduct repeats the comparison under the lock.
func (l *InventoryLedger) Check(product *model.Product, total decimal.Decimal) error {
	if total.GreaterThan(product.AvailableWeight) {
		return &InsufficientStockError{Available: product.AvailableWeight, Requested: total}
	}
	return nil
}

// ReserveAndDeduct locks the product, verifies stock and writes the reduced
// weight on tx. On any error the product row is left as it was; the caller
// rolls the transaction back. It returns the product after deduction.
func (l *InventoryLedger) ReserveAndDeduct(tx *gorm.DB, productID uuid.UUID, unitWeight decimal.Decimal, count int, actor string) (*model.Product, decimal.Decimal, error) {
	total, err := l.TotalWeight(unitWeight, count)
	if err != nil {
		return nil, decimal.Zero, err
	}

	product, err := l.lock(tx, productID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if err := l.Check(product, total); err != nil {
		return nil, decimal.Zero, err
	}

	remaining := product.AvailableWeight.Sub(total)
	if err := l.products.UpdateAvailableWeight(tx, product.ID, remaining, actor); err != nil {
		return nil, decimal.Zero, classifyLockError(err)
	}
	if err := l.journal(tx, product.ID, model.MovementPackaged, total.Neg(), remaining, actor); err != nil {
		return nil, decimal.Zero, err
	}

	product.AvailableWeight = remaining
	product.UpdatedBy = actor
	return product, total, nil
}

// Correct overwrites the available weight as a manual stock correction.
// It takes the same lock as ReserveAndDeduct so corrections and package
// creation never interleave.
func (l *InventoryLedger) Correct(tx *gorm.DB, productID uuid.UUID, weight decimal.Decimal, actor string) (*model.Product, error) {
	if weight.IsNegative() {
		return nil, fmt.Errorf("%w: available weight cannot be negative", ErrValidation)
	}
	if !weight.Equal(weight.Round(weightPlaces)) {
		return nil, ErrInvalidWeightPrecision
	}

	product, err := l.lock(tx, productID)
	if err != nil {
		return nil, err
	}
	if err := l.products.UpdateAvailableWeight(tx, product.ID, weight, actor); err != nil {
		return nil, classifyLockError(err)
	}
	if err := l.journal(tx, product.ID, model.MovementCorrection, weight.Sub(product.AvailableWeight), weight, actor); err != nil {
		return nil, err
	}
	product.AvailableWeight = weight
	product.UpdatedBy = actor
	return product, nil
}

// Movements lists the journal of a product, newest first.
func (l *InventoryLedger) Movements(productID uuid.UUID) ([]model.StockMovement, error) {
	if l.movements == nil {
		return []model.StockMovement{}, nil
	}
	return l.movements.FindByProduct(productID)
}

func (l *InventoryLedger) journal(tx *gorm.DB, productID uuid.UUID, typ model.MovementType, delta, balance decimal.Decimal, actor string) error {
	if l.movements == nil {
		return nil
	}
	m := &model.StockMovement{
		ProductID: productID,
		Type:      typ,
		Delta:     delta,
		Balance:   balance,
	}
	m.CreatedBy = actor
	m.UpdatedBy = actor
	return l.movements.Create(tx, m)
}

func (l *InventoryLedger) lock(tx *gorm.DB, productID uuid.UUID) (*model.Product, error) {
	if tx.Dialector.Name() == "postgres" {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", l.lockTimeout.Milliseconds())
		if err := tx.Exec(stmt).Error; err != nil {
			return nil, err
		}
	}

	product, err := l.products.LockByID(tx, productID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, classifyLockError(err)
	}
	return product, nil
}

// lock_not_available, deadlock_detected, serialization_failure
var contentionCodes = map[string]bool{
	"55P03": true,
	"40P01": true,
	"40001": true,
}

func isLockContention(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return contentionCodes[pgErr.Code]
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// SQLITE_BUSY
	return strings.Contains(err.Error(), "database is locked")
}

func classifyLockError(err error) error {
	if errors.Is(err, ErrConcurrencyContention) {
		return err
	}
	if isLockContention(err) {
		return fmt.Errorf("%w: %v", ErrConcurrencyContention, err)
	}
	return err
}
