package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shrimp-trace/internal/model"
	"shrimp-trace/pkg/idgen"
)

func TestProductService_Create(t *testing.T) {
	f := newFixture(t, "10")
	svc := NewProductService(f.db, f.products, f.ledger, f.cache, nil)

	p, err := svc.CreateProduct(f.farmerActor(), &CreateProductRequest{
		Name:            "Tiger Prawn",
		ShrimpType:      "Black tiger",
		UnitPrice:       dec("18.40"),
		AvailableWeight: dec("250.5"),
	})
	require.NoError(t, err)
	assert.True(t, idgen.IsSupportCode(p.SupportCode), p.SupportCode)
	assert.NotEqual(t, f.product.SupportCode, p.SupportCode)
	assert.Equal(t, f.farmer.ID, p.CompanyID)

	found, err := svc.GetBySupportCode(p.SupportCode)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = svc.CreateProduct(f.exporterActor(), &CreateProductRequest{Name: "x", ShrimpType: "y"})
	assert.ErrorIs(t, err, ErrWrongCompanyKind)

	_, err = svc.CreateProduct(f.farmerActor(), &CreateProductRequest{ShrimpType: "y"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(f.farmerActor(), &CreateProductRequest{Name: "x", ShrimpType: "y", AvailableWeight: dec("-3")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProductService_UpdateWithCorrection(t *testing.T) {
	f := newFixture(t, "10")
	svc := NewProductService(f.db, f.products, f.ledger, f.cache, nil)
	ctx := context.Background()

	corrected := dec("12.75")
	p, err := svc.UpdateProduct(ctx, f.farmerActor(), f.product.ID, &UpdateProductRequest{
		Name:            "Vannamei Select",
		ShrimpType:      "Whiteleg",
		UnitPrice:       dec("13"),
		AvailableWeight: &corrected,
	})
	require.NoError(t, err)
	assert.Equal(t, "Vannamei Select", p.Name)
	assert.True(t, f.available(t).Equal(corrected))

	// without a correction the weight stays put
	_, err = svc.UpdateProduct(ctx, f.farmerActor(), f.product.ID, &UpdateProductRequest{
		Name:       "Vannamei",
		ShrimpType: "Whiteleg",
		UnitPrice:  dec("13"),
	})
	require.NoError(t, err)
	assert.True(t, f.available(t).Equal(corrected))
	stored, err := f.products.FindByID(f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vannamei", stored.Name)
	assert.True(t, stored.UnitPrice.Equal(dec("13")))

	_, err = svc.UpdateProduct(ctx, f.exporterActor(), f.product.ID, &UpdateProductRequest{Name: "x", ShrimpType: "y"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestProductService_DeleteCascades(t *testing.T) {
	f := newFixture(t, "10")
	svc := NewProductService(f.db, f.products, f.ledger, f.cache, nil)

	_, err := f.svc.CreatePackage(context.Background(), f.exporterActor(), createReq(f, "1", 2))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), f.exporterActor(), f.product.ID), ErrForbidden)
	require.NoError(t, svc.DeleteProduct(context.Background(), f.farmerActor(), f.product.ID))

	assert.Zero(t, f.packageCount(t))
	var requests int64
	require.NoError(t, f.db.Model(&model.PurchaseRequest{}).Count(&requests).Error)
	assert.Zero(t, requests)

	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), f.farmerActor(), uuid.New()), ErrProductNotFound)
}

func TestProductService_DeleteEvictsTraceRecords(t *testing.T) {
	f := newFixture(t, "10")
	svc := NewProductService(f.db, f.products, f.ledger, f.cache, nil)
	ctx := context.Background()

	pkg, err := f.svc.CreatePackage(ctx, f.exporterActor(), createReq(f, "1", 2))
	require.NoError(t, err)
	_, err = f.svc.LookupTrace(ctx, pkg.BatchNumber)
	require.NoError(t, err)
	_, cached, _ := f.cache.Get(ctx, pkg.BatchNumber)
	require.True(t, cached)

	require.NoError(t, svc.DeleteProduct(ctx, f.farmerActor(), f.product.ID))

	_, cached, _ = f.cache.Get(ctx, pkg.BatchNumber)
	assert.False(t, cached)
	rec, err := f.svc.LookupTrace(ctx, pkg.BatchNumber)
	assert.ErrorIs(t, err, ErrPackageNotFound)
	assert.Nil(t, rec)
}

func TestProductService_DeleteRacingPackages(t *testing.T) {
	f := newFixture(t, "100")
	svc := NewProductService(f.db, f.products, f.ledger, f.cache, nil)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		batches []string
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pkg, err := f.svc.CreatePackage(ctx, f.exporterActor(), createReq(f, "1", 1))
			if err != nil {
				return
			}
			mu.Lock()
			batches = append(batches, pkg.BatchNumber)
			mu.Unlock()
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.DeleteProduct(ctx, f.farmerActor(), f.product.ID))
	}()
	wg.Wait()

	// every package committed before the delete went with it; none after
	assert.Zero(t, f.packageCount(t))
	for _, batch := range batches {
		_, cached, _ := f.cache.Get(ctx, batch)
		assert.False(t, cached, batch)
		_, err := f.svc.LookupTrace(ctx, batch)
		assert.ErrorIs(t, err, ErrPackageNotFound, batch)
	}
}
