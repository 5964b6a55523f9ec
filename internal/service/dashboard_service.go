package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
	"github.com/hsscguru/hssc-guru-backend/internal/repository"
)

// DashboardService assembles the user and admin dashboard views.
type DashboardService struct {
	dashboardRepo *repository.DashboardRepository
	statsRepo     *repository.StatsRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(dashboardRepo *repository.DashboardRepository, statsRepo *repository.StatsRepository) *DashboardService {
	return &DashboardService{dashboardRepo: dashboardRepo, statsRepo: statsRepo}
}

const (
	recentAttemptsLimit = 5
	weakTopicsLimit     = 5
)

// UserDashboard builds a user's headline numbers, recent attempts, and
// weakest topics.
func (s *DashboardService) UserDashboard(ctx context.Context, userID uuid.UUID) (*model.UserDashboard, error) {
	dashboard, err := s.dashboardRepo.UserSummary(ctx, userID)
	if err != nil {
		return nil, err
	}

	recent, err := s.dashboardRepo.RecentAttempts(ctx, userID, recentAttemptsLimit)
	if err != nil {
		return nil, err
	}
	dashboard.RecentAttempts = recent

	stats, err := s.statsRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(stats) > weakTopicsLimit {
		stats = stats[:weakTopicsLimit]
	}
	dashboard.WeakTopics = stats

	return dashboard, nil
}

// AdminDashboard builds the platform-wide counts view.
func (s *DashboardService) AdminDashboard(ctx context.Context) (*model.AdminDashboard, error) {
	return s.dashboardRepo.AdminSummary(ctx)
}
