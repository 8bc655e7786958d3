package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shrimp-trace/internal/model"
	"shrimp-trace/internal/repository"
	"shrimp-trace/internal/traceability"
	"shrimp-trace/pkg/database"
	"shrimp-trace/pkg/idgen"
)

var fixedNow = time.Date(2024, time.May, 2, 9, 30, 0, 0, time.UTC)

// newTestDB opens a private in-memory database. One connection keeps
// transactions serialized the way a row lock would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// switchRenderer fails on demand.
type switchRenderer struct {
	mu   sync.Mutex
	fail bool
	next traceability.Renderer
}

func (r *switchRenderer) setFail(fail bool) {
	r.mu.Lock()
	r.fail = fail
	r.mu.Unlock()
}

func (r *switchRenderer) Render(payload string) ([]byte, error) {
	r.mu.Lock()
	fail := r.fail
	r.mu.Unlock()
	if fail {
		return nil, errors.New("encoder offline")
	}
	return r.next.Render(payload)
}

type memCache struct {
	mu    sync.Mutex
	items map[string]*traceability.Record
	hits  int
}

func newMemCache() *memCache {
	return &memCache{items: map[string]*traceability.Record{}}
}

func (c *memCache) Get(_ context.Context, batch string) (*traceability.Record, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.items[batch]
	if ok {
		c.hits++
	}
	return rec, ok, nil
}

func (c *memCache) Set(_ context.Context, rec *traceability.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[rec.BatchNumber] = rec
	return nil
}

func (c *memCache) Delete(_ context.Context, batch string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, batch)
	return nil
}

type fixture struct {
	db        *gorm.DB
	products  repository.ProductRepository
	requests  repository.PurchaseRequestRepository
	packages  repository.PackageRepository
	companies repository.CompanyRepository
	movements repository.MovementRepository
	ledger    *InventoryLedger
	renderer  *switchRenderer
	cache     *memCache
	svc       PackageService

	farmer   *model.Company
	exporter *model.Company
	product  *model.Product
}

func newFixture(t *testing.T, available string) *fixture {
	t.Helper()

	db := newTestDB(t)
	f := &fixture{
		db:        db,
		products:  repository.NewProductRepo(db),
		requests:  repository.NewPurchaseRequestRepo(db),
		packages:  repository.NewPackageRepo(db),
		companies: repository.NewCompanyRepo(db),
		movements: repository.NewMovementRepo(db),
		renderer:  &switchRenderer{next: traceability.NewQREncoder()},
		cache:     newMemCache(),
	}
	f.ledger = NewInventoryLedger(f.products, f.movements, time.Second)
	f.svc = NewPackageService(PackageServiceConfig{
		DB:        db,
		Ledger:    f.ledger,
		Products:  f.products,
		Requests:  f.requests,
		Packages:  f.packages,
		Companies: f.companies,
		Renderer:  f.renderer,
		Cache:     f.cache,
		Now:       func() time.Time { return fixedNow },
	})

	f.farmer = f.company(t, model.KindFarming, "Bushehr Aqua Farms")
	f.exporter = f.company(t, model.KindExporting, "Gulf Seafood Export")
	f.product = f.newProduct(t, f.farmer, available)
	f.request(t, f.exporter, f.product, model.RequestApproved)
	return f
}

func (f *fixture) company(t *testing.T, kind model.CompanyKind, name string) *model.Company {
	t.Helper()
	c := &model.Company{
		Kind:        kind,
		Name:        name,
		Location:    "Bushehr",
		PhoneNumber: "09" + idgen.SupportCode(),
	}
	require.NoError(t, c.SetPassword("secret123"))
	require.NoError(t, f.companies.Create(c))
	return c
}

func (f *fixture) newProduct(t *testing.T, owner *model.Company, available string) *model.Product {
	t.Helper()
	p := &model.Product{
		CompanyID:       owner.ID,
		Name:            "Vannamei Premium",
		ShrimpType:      "Whiteleg",
		UnitPrice:       decimal.RequireFromString("12.50"),
		SupportCode:     idgen.SupportCode(),
		AvailableWeight: decimal.RequireFromString(available),
	}
	require.NoError(t, f.products.Create(p))
	return p
}

func (f *fixture) request(t *testing.T, buyer *model.Company, p *model.Product, status model.RequestStatus) *model.PurchaseRequest {
	t.Helper()
	pr := &model.PurchaseRequest{
		SupportCode: p.SupportCode,
		BuyerID:     buyer.ID,
		ProductID:   p.ID,
		OwnerID:     p.CompanyID,
		Status:      status,
	}
	require.NoError(t, f.requests.Create(pr))
	return pr
}

func (f *fixture) exporterActor() Actor {
	return Actor{ID: f.exporter.ID, Kind: model.AccountExporting, Name: f.exporter.Name}
}

func (f *fixture) farmerActor() Actor {
	return Actor{ID: f.farmer.ID, Kind: model.AccountFarming, Name: f.farmer.Name}
}

func (f *fixture) available(t *testing.T) decimal.Decimal {
	t.Helper()
	p, err := f.products.FindByID(f.product.ID)
	require.NoError(t, err)
	return p.AvailableWeight
}

func (f *fixture) packageCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Package{}).Count(&n).Error)
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
