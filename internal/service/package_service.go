package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"shrimp-trace/internal/model"
	"shrimp-trace/internal/repository"
	"shrimp-trace/internal/traceability"
	"shrimp-trace/internal/ws"
	"shrimp-trace/pkg/idgen"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	dateLayout = "2006-01-02"

	// DefaultRegenerateWorkers caps concurrent renders in a bulk regenerate.
	DefaultRegenerateWorkers = 4
)

// TraceCache stores public trace records by batch number.
type TraceCache interface {
	Get(ctx context.Context, batchNumber string) (*traceability.Record, bool, error)
	Set(ctx context.Context, rec *traceability.Record) error
	Delete(ctx context.Context, batchNumber string) error
}

type CreatePackageRequest struct {
	ProductID      uuid.UUID       `json:"product_id" validate:"uuid_required"`
	PackageWeight  decimal.Decimal `json:"package_weight"`
	PackageCount   int             `json:"package_count"`
	ProductionDate string          `json:"production_date"`
	ExpirationDate string          `json:"expiration_date"`
}

// RegenerateResult reports one package of a bulk regenerate.
type RegenerateResult struct {
	PackageID   uuid.UUID `json:"package_id"`
	BatchNumber string    `json:"batch_number,omitempty"`
	Ready       bool      `json:"ready"`
	Error       string    `json:"error,omitempty"`
}

type PackageService interface {
	CreatePackage(ctx context.Context, actor Actor, req *CreatePackageRequest) (*model.Package, error)
	RegenerateArtifact(ctx context.Context, id uuid.UUID) (*model.Package, error)
	RegenerateArtifacts(ctx context.Context, ids []uuid.UUID) ([]RegenerateResult, error)
	EnsureArtifact(ctx context.Context, id uuid.UUID) (*model.Package, error)
	ListPendingArtifacts() ([]model.Package, error)
	ListPackages(actor Actor) ([]model.Package, error)
	ListAll() ([]model.Package, error)
	GetPackage(actor Actor, id uuid.UUID) (*model.Package, error)
	GetArtifact(ctx context.Context, actor Actor, id uuid.UUID) (*traceability.Artifact, error)
	LookupTrace(ctx context.Context, batchNumber string) (*traceability.Record, error)
}

type packageService struct {
	db          *gorm.DB
	ledger      *InventoryLedger
	productRepo repository.ProductRepository
	requestRepo repository.PurchaseRequestRepository
	packageRepo repository.PackageRepository
	companyRepo repository.CompanyRepository
	renderer    traceability.Renderer
	cache       TraceCache
	wsHub       *ws.Hub
	workers     int
	now         func() time.Time
	lookups     singleflight.Group
}

type PackageServiceConfig struct {
	DB          *gorm.DB
	Ledger      *InventoryLedger
	Products    repository.ProductRepository
	Requests    repository.PurchaseRequestRepository
	Packages    repository.PackageRepository
	Companies   repository.CompanyRepository
	Renderer    traceability.Renderer
	Cache       TraceCache // optional
	Hub         *ws.Hub    // optional
	Workers     int
	Now         func() time.Time
}

func NewPackageService(cfg PackageServiceConfig) PackageService {
	s := &packageService{
		db:          cfg.DB,
		ledger:      cfg.Ledger,
		productRepo: cfg.Products,
		requestRepo: cfg.Requests,
		packageRepo: cfg.Packages,
		companyRepo: cfg.Companies,
		renderer:    cfg.Renderer,
		cache:       cfg.Cache,
		wsHub:       cfg.Hub,
		workers:     cfg.Workers,
		now:         cfg.Now,
	}
	if s.renderer == nil {
		s.renderer = traceability.NewQREncoder()
	}
	if s.workers <= 0 {
		s.workers = DefaultRegenerateWorkers
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreatePackage splits a package off a product the exporter bought.
//
// The package row and the inventory deduction commit together. The QR
// artifact is written afterwards; if that fails the package is returned
// along with an error wrapping ErrArtifactGenerationFailed, and the
// artifact can be produced later with RegenerateArtifact.
func (s *packageService) CreatePackage(ctx context.Context, actor Actor, req *CreatePackageRequest) (*model.Package, error) {
	if req.ProductID == uuid.Nil {
		return nil, validationError("ProductID", "uuid_required")
	}
	total, err := s.ledger.TotalWeight(req.PackageWeight, req.PackageCount)
	if err != nil {
		return nil, err
	}
	production, expiration, err := resolveDates(req.ProductionDate, req.ExpirationDate, s.now())
	if err != nil {
		return nil, err
	}

	exporter, err := s.companyRepo.FindByID(actor.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	if exporter.Kind != model.KindExporting {
		return nil, ErrWrongCompanyKind
	}

	product, err := s.productRepo.FindByID(req.ProductID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	approved, err := s.requestRepo.HasStatus(exporter.ID, product.ID, model.RequestApproved)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, ErrPurchaseNotApproved
	}

	// fail fast without taking the lock; repeated under the lock below
	if err := s.ledger.Check(product, total); err != nil {
		return nil, err
	}

	pkg := &model.Package{
		ProductID:          product.ID,
		FarmingCompanyID:   product.CompanyID,
		ExportingCompanyID: exporter.ID,
		PackageWeight:      req.PackageWeight,
		Quantity:           req.PackageCount,
		ProductionDate:     production,
		ExpirationDate:     expiration,
		ArtifactStatus:     model.ArtifactPending,
	}
	pkg.CreatedBy = actor.auditID()
	pkg.UpdatedBy = actor.auditID()

	var remaining decimal.Decimal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, _, err := s.ledger.ReserveAndDeduct(tx, product.ID, req.PackageWeight, req.PackageCount, actor.auditID())
		if err != nil {
			return err
		}
		remaining = locked.AvailableWeight

		batch, err := idgen.Unique(idgen.BatchNumber, func(code string) (bool, error) {
			return s.packageRepo.BatchNumberExists(tx, code)
		}, idgen.DefaultMaxAttempts)
		if err != nil {
			return err
		}
		pkg.BatchNumber = batch

		if err := s.packageRepo.Create(tx, pkg); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: batch number %s", ErrDuplicateIdentifier, batch)
			}
			return classifyLockError(err)
		}
		return nil
	})
	if err != nil {
		return nil, classifyLockError(err)
	}

	product.AvailableWeight = remaining
	pkg.Product = product
	pkg.FarmingCompany = product.Company
	pkg.ExportingCompany = exporter
	if pkg.FarmingCompany == nil {
		if farmer, err := s.companyRepo.FindByID(product.CompanyID); err == nil {
			pkg.FarmingCompany = farmer
		}
	}

	s.wsHub.Publish(ws.Event{
		Type:    "stock_update",
		Action:  "deducted",
		Actor:   actor.Name,
		Message: fmt.Sprintf("%s packaged %s kg of '%s'", actor.Name, total.StringFixed(2), product.Name),
		Data: map[string]interface{}{
			"product_id":       product.ID,
			"deducted":         total,
			"available_weight": remaining,
		},
	})

	artifactErr := s.attachArtifact(ctx, pkg)

	s.wsHub.Publish(ws.Event{
		Type:   "package_created",
		Action: "created",
		Actor:  actor.Name,
		Data:   pkg.ToResponse(),
	})

	if artifactErr != nil {
		return pkg, artifactErr
	}
	return pkg, nil
}

// attachArtifact renders and stores the QR code for pkg, which must have its
// provenance loaded. On success the row becomes ready with the new image.
// On failure a package that never had an image stays pending; one that
// already had a ready image keeps it and only records the error. The cached
// trace record is dropped in every case.
func (s *packageService) attachArtifact(ctx context.Context, pkg *model.Package) error {
	defer invalidateTrace(ctx, s.cache, pkg.BatchNumber)

	hadArtifact := pkg.HasArtifact()
	art, err := traceability.Generate(s.renderer, pkg)
	if err == nil {
		generatedAt := s.now()
		if err = s.packageRepo.AttachArtifact(pkg.ID, art.PNG, art.Payload, art.Filename, generatedAt); err == nil {
			pkg.QRCode = art.PNG
			pkg.QRPayload = art.Payload
			pkg.QRFilename = art.Filename
			pkg.ArtifactStatus = model.ArtifactReady
			pkg.ArtifactError = ""
			pkg.ArtifactGeneratedAt = &generatedAt
			return nil
		}
	}

	log.Printf("QR artifact for package %s (%s) failed: %v", pkg.BatchNumber, pkg.ID, err)
	s.wsHub.Publish(ws.Event{
		Type:   "artifact_failed",
		Action: "render",
		Data:   map[string]interface{}{"id": pkg.ID, "batch_number": pkg.BatchNumber, "error": err.Error()},
	})

	record := s.packageRepo.MarkArtifactFailed
	if hadArtifact {
		record = s.packageRepo.SetArtifactError
	} else {
		pkg.ArtifactStatus = model.ArtifactPending
	}
	if markErr := record(pkg.ID, err.Error()); markErr != nil {
		log.Printf("could not record artifact failure for %s: %v", pkg.ID, markErr)
	}
	pkg.ArtifactError = err.Error()
	return &ArtifactError{
		BatchNumber: pkg.BatchNumber,
		Status:      pkg.ArtifactStatus,
		Reason:      pkg.ArtifactError,
		Err:         ErrArtifactGenerationFailed,
	}
}

// RegenerateArtifact rebuilds the QR image of an existing package from its
// stored record. Batch number and inventory are not touched.
func (s *packageService) RegenerateArtifact(ctx context.Context, id uuid.UUID) (*model.Package, error) {
	pkg, err := s.findPackage(id)
	if err != nil {
		return nil, err
	}
	if err := s.attachArtifact(ctx, pkg); err != nil {
		return pkg, err
	}

	s.wsHub.Publish(ws.Event{
		Type:   "artifact_ready",
		Action: "regenerated",
		Data:   map[string]interface{}{"id": pkg.ID, "batch_number": pkg.BatchNumber},
	})
	return pkg, nil
}

// RegenerateArtifacts runs RegenerateArtifact over ids with bounded
// concurrency. An empty ids means every package still pending. A failure
// on one package is reported in its result and does not stop the others.
func (s *packageService) RegenerateArtifacts(ctx context.Context, ids []uuid.UUID) ([]RegenerateResult, error) {
	if len(ids) == 0 {
		pending, err := s.packageRepo.FindPendingArtifacts()
		if err != nil {
			return nil, err
		}
		for _, p := range pending {
			ids = append(ids, p.ID)
		}
	}

	results := make([]RegenerateResult, len(ids))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, id := range ids {
		g.Go(func() error {
			res := RegenerateResult{PackageID: id}
			if err := ctx.Err(); err != nil {
				res.Error = err.Error()
				results[i] = res
				return nil
			}
			pkg, err := s.RegenerateArtifact(ctx, id)
			if pkg != nil {
				res.BatchNumber = pkg.BatchNumber
			}
			if err != nil {
				res.Error = err.Error()
			} else {
				res.Ready = true
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// EnsureArtifact returns the package with a ready artifact, rendering it
// first when it is still pending.
func (s *packageService) EnsureArtifact(ctx context.Context, id uuid.UUID) (*model.Package, error) {
	pkg, err := s.findPackage(id)
	if err != nil {
		return nil, err
	}
	if pkg.HasArtifact() {
		return pkg, nil
	}
	return s.RegenerateArtifact(ctx, id)
}

func (s *packageService) ListPendingArtifacts() ([]model.Package, error) {
	return s.packageRepo.FindPendingArtifacts()
}

// ListPackages returns the packages the actor is party to.
func (s *packageService) ListPackages(actor Actor) ([]model.Package, error) {
	switch actor.Kind {
	case model.AccountExporting:
		return s.packageRepo.FindByExporter(actor.ID)
	case model.AccountFarming:
		return s.packageRepo.FindByFarmer(actor.ID)
	case model.AccountOperator:
		return s.packageRepo.FindAll()
	}
	return nil, ErrForbidden
}

func (s *packageService) ListAll() ([]model.Package, error) {
	return s.packageRepo.FindAll()
}

func (s *packageService) GetPackage(actor Actor, id uuid.UUID) (*model.Package, error) {
	pkg, err := s.findPackage(id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, pkg) {
		return nil, ErrForbidden
	}
	return pkg, nil
}

// GetArtifact returns the stored PNG. A package without one reports
// ErrArtifactPending; reads never re-render.
func (s *packageService) GetArtifact(_ context.Context, actor Actor, id uuid.UUID) (*traceability.Artifact, error) {
	pkg, err := s.GetPackage(actor, id)
	if err != nil {
		return nil, err
	}
	if !pkg.HasArtifact() {
		return nil, &ArtifactError{
			BatchNumber: pkg.BatchNumber,
			Status:      model.ArtifactPending,
			Reason:      pkg.ArtifactError,
			Err:         ErrArtifactPending,
		}
	}
	return &traceability.Artifact{
		Filename: pkg.QRFilename,
		Payload:  pkg.QRPayload,
		PNG:      pkg.QRCode,
	}, nil
}

// LookupTrace is the public scan endpoint. Concurrent lookups of one batch
// share a single database read; results are cached when a cache is set.
func (s *packageService) LookupTrace(ctx context.Context, batchNumber string) (*traceability.Record, error) {
	if !idgen.IsBatchNumber(batchNumber) {
		return nil, ErrPackageNotFound
	}

	if s.cache != nil {
		rec, ok, err := s.cache.Get(ctx, batchNumber)
		if err != nil {
			log.Printf("trace cache get %s: %v", batchNumber, err)
		} else if ok {
			return rec, nil
		}
	}

	v, err, _ := s.lookups.Do(batchNumber, func() (interface{}, error) {
		pkg, err := s.packageRepo.FindByBatchNumber(batchNumber)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrPackageNotFound
			}
			return nil, err
		}
		return traceability.NewRecord(pkg)
	})
	if err != nil {
		return nil, err
	}
	rec := v.(*traceability.Record)

	if s.cache != nil {
		if err := s.cache.Set(ctx, rec); err != nil {
			log.Printf("trace cache set %s: %v", batchNumber, err)
		}
	}
	return rec, nil
}

func (s *packageService) findPackage(id uuid.UUID) (*model.Package, error) {
	pkg, err := s.packageRepo.FindByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	return pkg, nil
}

// invalidateTrace drops a cached trace record. Cache errors are only logged.
func invalidateTrace(ctx context.Context, cache TraceCache, batchNumber string) {
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, batchNumber); err != nil {
		log.Printf("trace cache delete %s: %v", batchNumber, err)
	}
}

func canView(actor Actor, pkg *model.Package) bool {
	switch actor.Kind {
	case model.AccountOperator:
		return true
	case model.AccountExporting:
		return pkg.ExportingCompanyID == actor.ID
	case model.AccountFarming:
		return pkg.FarmingCompanyID == actor.ID
	}
	return false
}

// resolveDates parses optional YYYY-MM-DD dates. Production defaults to
// today and expiration to production plus the shelf life.
func resolveDates(production, expiration string, now time.Time) (time.Time, time.Time, error) {
	prod := model.DateOnly(now)
	if production != "" {
		t, err := time.Parse(dateLayout, production)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidDateFormat
		}
		prod = t
	}

	exp := model.DefaultExpiration(prod)
	if expiration != "" {
		t, err := time.Parse(dateLayout, expiration)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidDateFormat
		}
		exp = t
	}
	if !exp.After(prod) {
		return time.Time{}, time.Time{}, ErrExpirationNotAfter
	}
	return prod, exp, nil
}
