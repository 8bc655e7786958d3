package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shrimp-trace/internal/model"
	"shrimp-trace/internal/repository"
	"shrimp-trace/pkg/idgen"
)

func createReq(f *fixture, weight string, count int) *CreatePackageRequest {
	return &CreatePackageRequest{
		ProductID:     f.product.ID,
		PackageWeight: dec(weight),
		PackageCount:  count,
	}
}

func TestCreatePackage(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	pkg, err := f.svc.CreatePackage(ctx, f.exporterActor(), createReq(f, "5", 10))
	require.NoError(t, err)

	assert.True(t, idgen.IsBatchNumber(pkg.BatchNumber), pkg.BatchNumber)
	assert.Equal(t, f.farmer.ID, pkg.FarmingCompanyID)
	assert.Equal(t, f.exporter.ID, pkg.ExportingCompanyID)
	assert.Equal(t, "2024-05-02", pkg.ProductionDate.Format(dateLayout))
	assert.Equal(t, "2025-05-02", pkg.ExpirationDate.Format(dateLayout))
	assert.True(t, f.available(t).Equal(dec("50")))

	stored, err := f.packages.FindByID(pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ArtifactReady, stored.ArtifactStatus)
	assert.True(t, stored.HasArtifact())
	assert.Equal(t, "qr_"+pkg.BatchNumber+".png", stored.QRFilename)
	assert.Contains(t, stored.QRPayload, "Batch number: "+pkg.BatchNumber)
	assert.Contains(t, stored.QRPayload, "Total weight: 50.00 kg")
	assert.Contains(t, stored.QRPayload, "Support code: "+f.product.SupportCode)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, stored.QRCode[:4])
}

func TestCreatePackage_InsufficientStock(t *testing.T) {
	f := newFixture(t, "40")

	pkg, err := f.svc.CreatePackage(context.Background(), f.exporterActor(), createReq(f, "5", 10))
	assert.Nil(t, pkg)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.True(t, stockErr.Available.Equal(dec("40")))
	assert.True(t, f.available(t).Equal(dec("40")))
	assert.Zero(t, f.packageCount(t))

	_, err = f.svc.CreatePackage(context.Background(), f.exporterActor(), createReq(f, "1000000", 1))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Zero(t, f.packageCount(t))
}

func TestCreatePackage_InvalidQuantity(t *testing.T) {
	f := newFixture(t, "100")

	for _, tc := range []struct {
		weight string
		count  int
	}{{"0", 5}, {"-2", 5}, {"5", 0}, {"5", -1}} {
		_, err := f.svc.CreatePackage(context.Background(), f.exporterActor(), createReq(f, tc.weight, tc.count))
		assert.ErrorIs(t, err, ErrInvalidQuantity, "weight=%s count=%d", tc.weight, tc.count)
	}
	assert.True(t, f.available(t).Equal(dec("100")))
	assert.Zero(t, f.packageCount(t))
}

func TestCreatePackage_RequiresApprovedPurchase(t *testing.T) {
	f := newFixture(t, "100")
	other := f.company(t, model.KindExporting, "Caspian Export")
	f.request(t, other, f.product, model.RequestPending)

	actor := Actor{ID: other.ID, Kind: model.AccountExporting, Name: other.Name}
	_, err := f.svc.CreatePackage(context.Background(), actor, createReq(f, "1", 1))
	assert.ErrorIs(t, err, ErrPurchaseNotApproved)

	// farming companies cannot package
	_, err = f.svc.CreatePackage(context.Background(), f.farmerActor(), createReq(f, "1", 1))
	assert.ErrorIs(t, err, ErrWrongCompanyKind)

	missing := createReq(f, "1", 1)
	missing.ProductID = uuid.New()
	_, err = f.svc.CreatePackage(context.Background(), f.exporterActor(), missing)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCreatePackage_Dates(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	req := createReq(f, "1", 1)
	req.ProductionDate = "2024-01-10"
	pkg, err := f.svc.CreatePackage(ctx, f.exporterActor(), req)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-09", pkg.ExpirationDate.Format(dateLayout))

	req = createReq(f, "1", 1)
	req.ProductionDate = "2024-01-10"
	req.ExpirationDate = "2024-07-10"
	pkg, err = f.svc.CreatePackage(ctx, f.exporterActor(), req)
	require.NoError(t, err)
	assert.Equal(t, "2024-07-10", pkg.ExpirationDate.Format(dateLayout))

	req = createReq(f, "1", 1)
	req.ProductionDate = "2024-01-10"
	req.ExpirationDate = "2024-01-10"
	_, err = f.svc.CreatePackage(ctx, f.exporterActor(), req)
	assert.ErrorIs(t, err, ErrExpirationNotAfter)

	req = createReq(f, "1", 1)
	req.ProductionDate = "10/01/2024"
	_, err = f.svc.CreatePackage(ctx, f.exporterActor(), req)
	assert.ErrorIs(t, err, ErrInvalidDateFormat)

	// rejected requests never touch stock
	assert.True(t, f.available(t).Equal(dec("98")))
}

func TestCreatePackage_Conservation(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	for _, tc := range []struct {
		weight string
		count  int
	}{{"2.5", 4}, {"0.75", 12}, {"10", 3}, {"60", 1}, {"1.01", 3}} {
		_, _ = f.svc.CreatePackage(ctx, f.exporterActor(), createReq(f, tc.weight, tc.count))
	}

	pkgs, err := f.packages.FindByExporter(f.exporter.ID)
	require.NoError(t, err)

	packaged := dec("0")
	batches := map[string]bool{}
	for _, p := range pkgs {
		packaged = packaged.Add(p.TotalWeight())
		batches[p.BatchNumber] = true
	}
	assert.Len(t, batches, len(pkgs))
	assert.True(t, packaged.Add(f.available(t)).Equal(dec("100")), "packaged %s + available %s", packaged, f.available(t))
}

func TestCreatePackage_ConcurrentNoOversell(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreatePackage(ctx, f.exporterActor(), createReq(f, "10", 1))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 10, rejected)
	assert.True(t, f.available(t).IsZero(), "available %s", f.available(t))
	assert.EqualValues(t, 10, f.packageCount(t))
}

func TestCreatePackage_ArtifactFailureThenRegenerate(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	f.renderer.setFail(true)
	pkg, err := f.svc.CreatePackage(ctx, f.exporterActor(), createReq(f, "5", 2))
	require.ErrorIs(t, err, ErrArtifactGenerationFailed)
	require.NotNil(t, pkg, "package survives a failed render")

	stored, err := f.packages.FindByID(pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ArtifactPending, stored.ArtifactStatus)
	assert.Equal(t, "encoder offline", stored.ArtifactError)
	assert.Empty(t, stored.QRCode)
	assert.True(t, f.available(t).Equal(dec("90")))

	pending, err := f.svc.ListPendingArtifacts()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, pkg.ID, pending[0].ID)

	f.renderer.setFail(false)
	regen, err := f.svc.RegenerateArtifact(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, pkg.BatchNumber, regen.BatchNumber)
	assert.Equal(t, model.ArtifactReady, regen.ArtifactStatus)
	assert.Empty(t, regen.ArtifactError)
	assert.True(t, f.available(t).Equal(dec("90")), "regenerate must not touch stock")

	pending, err = f.svc.ListPendingArtifacts()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRegenerateArtifacts_Bulk(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	f.renderer.setFail(true)
	for i := 0; i < 3; i++ {
		_, err := f.svc.CreatePackage(ctx, f.exporterActor(), createReq(f, "1", 1))
		require.ErrorIs(t, err, ErrArtifactGenerationFailed)
	}
	f.renderer.setFail(false)

	results, err := f.svc.RegenerateArtifacts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Ready, r.Error)
		assert.True(t, idgen.IsBatchNumber(r.BatchNumber))
	}

	results, err = f.svc.RegenerateArtifacts(ctx, []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Ready)
	assert.Equal(t, ErrPackageNotFound.Error(), results[0].Error)
}

func TestEnsureArtifact(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	pkg, err := f.svc.CreatePackage(ctx, f.exporterActor(), createReq(f, "1", 1))
	require.NoError(t, err)

	// a ready artifact is returned without rendering again
	f.renderer.setFail(true)
	got, err := f.svc.EnsureArtifact(ctx, pkg.ID)
	require.NoError(t, err)
	assert.True(t, got.HasArtifact())

	_, err = f.svc.EnsureArtifact(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrPackageNotFound)
}

func TestGetPackageAndArtifact_Visibility(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	pkg, err := f.svc.CreatePackage(ctx, f.exporterActor(), createReq(f, "1", 1))
	require.NoError(t, err)

	_, err = f.svc.GetPackage(f.farmerActor(), pkg.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetPackage(Actor{ID: uuid.New(), Kind: model.AccountOperator}, pkg.ID)
	assert.NoError(t, err)

	stranger := Actor{ID: uuid.New(), Kind: model.AccountExporting}
	_, err = f.svc.GetPackage(stranger, pkg.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	art, err := f.svc.GetArtifact(ctx, f.exporterActor(), pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, "qr_"+pkg.BatchNumber+".png", art.Filename)
	assert.NotEmpty(t, art.PNG)

	list, err := f.svc.ListPackages(f.farmerActor())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].QRCode, "listings leave the image out")
}

func TestLookupTrace(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	pkg, err := f.svc.CreatePackage(ctx, f.exporterActor(), createReq(f, "2.5", 4))
	require.NoError(t, err)

	rec, err := f.svc.LookupTrace(ctx, pkg.BatchNumber)
	require.NoError(t, err)
	assert.Equal(t, "Bushehr Aqua Farms", rec.FarmingCompany)
	assert.Equal(t, "Gulf Seafood Export", rec.ExportingCompany)
	assert.True(t, rec.TotalWeight.Equal(dec("10")))
	assert.True(t, strings.HasPrefix(rec.Payload, "Package traceability record"))
	assert.Equal(t, 0, f.cache.hits)

	_, err = f.svc.LookupTrace(ctx, pkg.BatchNumber)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)

	_, err = f.svc.LookupTrace(ctx, "BATCH-0000000000")
	assert.ErrorIs(t, err, ErrPackageNotFound)
	_, err = f.svc.LookupTrace(ctx, "'; DROP TABLE packages;--")
	assert.ErrorIs(t, err, ErrPackageNotFound)
}

// holdingRequests grabs the only pooled connection right after the approval
// check, so the package transaction has to wait for it.
type holdingRequests struct {
	repository.PurchaseRequestRepository
	db   *gorm.DB
	held *gorm.DB
}

func (r *holdingRequests) HasStatus(buyerID, productID uuid.UUID, status model.RequestStatus) (bool, error) {
	ok, err := r.PurchaseRequestRepository.HasStatus(buyerID, productID, status)
	r.held = r.db.Begin()
	return ok, err
}

func TestCreatePackage_ContentionTimesOut(t *testing.T) {
	f := newFixture(t, "100")
	hold := &holdingRequests{PurchaseRequestRepository: f.requests, db: f.db}
	svc := NewPackageService(PackageServiceConfig{
		DB:        f.db,
		Ledger:    f.ledger,
		Products:  f.products,
		Requests:  hold,
		Packages:  f.packages,
		Companies: f.companies,
		Renderer:  f.renderer,
		Now:       func() time.Time { return fixedNow },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	pkg, err := svc.CreatePackage(ctx, f.exporterActor(), createReq(f, "5", 2))
	require.NotNil(t, hold.held)
	require.NoError(t, hold.held.Rollback().Error)

	assert.Nil(t, pkg)
	assert.ErrorIs(t, err, ErrConcurrencyContention)
	assert.True(t, f.available(t).Equal(dec("100")), "available %s", f.available(t))
	assert.Zero(t, f.packageCount(t))
}

func TestGetArtifact_PendingIsNotRendered(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	f.renderer.setFail(true)
	pkg, err := f.svc.CreatePackage(ctx, f.exporterActor(), createReq(f, "5", 2))
	require.ErrorIs(t, err, ErrArtifactGenerationFailed)
	f.renderer.setFail(false)

	art, err := f.svc.GetArtifact(ctx, f.exporterActor(), pkg.ID)
	assert.Nil(t, art)
	require.ErrorIs(t, err, ErrArtifactPending)
	var artErr *ArtifactError
	require.ErrorAs(t, err, &artErr)
	assert.Equal(t, pkg.BatchNumber, artErr.BatchNumber)
	assert.Equal(t, "encoder offline", artErr.Reason)

	stored, err := f.packages.FindByID(pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ArtifactPending, stored.ArtifactStatus)
	assert.Empty(t, stored.QRCode)
}

func TestRegenerateArtifact_FailureKeepsReadyArtifact(t *testing.T) {
	f := newFixture(t, "100")
	ctx := context.Background()

	pkg, err := f.svc.CreatePackage(ctx, f.exporterActor(), createReq(f, "1", 1))
	require.NoError(t, err)
	original, err := f.svc.GetArtifact(ctx, f.exporterActor(), pkg.ID)
	require.NoError(t, err)
	rec, err := f.svc.LookupTrace(ctx, pkg.BatchNumber)
	require.NoError(t, err)
	require.Equal(t, model.ArtifactReady, rec.ArtifactStatus)

	f.renderer.setFail(true)
	_, err = f.svc.RegenerateArtifact(ctx, pkg.ID)
	require.ErrorIs(t, err, ErrArtifactGenerationFailed)
	var artErr *ArtifactError
	require.ErrorAs(t, err, &artErr)
	assert.Equal(t, model.ArtifactReady, artErr.Status)

	got, err := f.svc.GetArtifact(ctx, f.exporterActor(), pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, original.PNG, got.PNG)

	stored, err := f.packages.FindByID(pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ArtifactReady, stored.ArtifactStatus)
	assert.Equal(t, "encoder offline", stored.ArtifactError)

	pending, err := f.svc.ListPendingArtifacts()
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, cached, _ := f.cache.Get(ctx, pkg.BatchNumber)
	assert.False(t, cached, "trace record is dropped after a failed render")
	rec, err = f.svc.LookupTrace(ctx, pkg.BatchNumber)
	require.NoError(t, err)
	assert.Equal(t, model.ArtifactReady, rec.ArtifactStatus)

	f.renderer.setFail(false)
	regen, err := f.svc.RegenerateArtifact(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Empty(t, regen.ArtifactError)
}
