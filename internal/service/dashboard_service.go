package service

import (
	"time"

	"shrimp-trace/internal/model"
	"shrimp-trace/internal/repository"
)

// MaxMovementDays caps the package-movement window.
const MaxMovementDays = 365

type DashboardService interface {
	GetPackageMovement(actor Actor, days int) ([]repository.PackageMovementData, error)
	GetDashboardStats(actor Actor) (interface{}, error)
}

type dashboardService struct {
	statsRepo repository.StatsRepository
	now       func() time.Time
}

func NewDashboardService(statsRepo repository.StatsRepository) DashboardService {
	return &dashboardService{statsRepo: statsRepo, now: time.Now}
}

func (s *dashboardService) GetPackageMovement(actor Actor, days int) ([]repository.PackageMovementData, error) {
	if days <= 0 {
		days = 7
	}
	if days > MaxMovementDays {
		days = MaxMovementDays
	}
	var kind model.CompanyKind
	switch actor.Kind {
	case model.AccountFarming:
		kind = model.KindFarming
	case model.AccountExporting:
		kind = model.KindExporting
	default:
		return nil, ErrForbidden
	}

	endDate := s.now()
	startDate := endDate.AddDate(0, 0, -days)
	return s.statsRepo.GetPackageMovement(actor.ID, kind, startDate, endDate)
}

func (s *dashboardService) GetDashboardStats(actor Actor) (interface{}, error) {
	switch actor.Kind {
	case model.AccountFarming:
		return s.statsRepo.GetFarmingStats(actor.ID)
	case model.AccountExporting:
		return s.statsRepo.GetExportingStats(actor.ID)
	}
	return nil, ErrForbidden
}
