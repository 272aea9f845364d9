package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
	"github.com/noah-isme/tahfiz-analytics/internal/repository"
)

// SummaryReader is the read side of the summary tables.
type SummaryReader interface {
	GetDailySummary(ctx context.Context, date time.Time) (*models.DailySummaryRow, error)
	ListStudentSummaries(ctx context.Context, date time.Time) ([]models.StudentSummaryRow, error)
	ListTeacherSummaries(ctx context.Context, weekStart time.Time) ([]models.TeacherSummaryRow, error)
	ListClassSummaries(ctx context.Context, weekStart time.Time) ([]models.ClassSummaryRow, error)
}

// AlertReader exposes the active alert set.
type AlertReader interface {
	ListActive(ctx context.Context) ([]models.AnalyticsAlert, error)
}

// SummaryReadService serves derived summaries with a cache in front. The
// aggregation run invalidates the whole cache namespace, so stale reads never
// outlive a rerun.
type SummaryReadService struct {
	store  SummaryReader
	alerts AlertReader
	cache  *CacheService
	logger *zap.Logger
}

// NewSummaryReadService constructs the read service.
func NewSummaryReadService(store SummaryReader, alerts AlertReader, cache *CacheService, logger *zap.Logger) *SummaryReadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryReadService{store: store, alerts: alerts, cache: cache, logger: logger}
}

// Daily returns the program summary for one date.
func (s *SummaryReadService) Daily(ctx context.Context, date time.Time) (*models.DailySummaryRow, error) {
	date = date.UTC().Truncate(24 * time.Hour)
	key := repository.DailySummaryCacheKey(date)

	var cached models.DailySummaryRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	row, err := s.store.GetDailySummary(ctx, date)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, row, 0)
	return row, nil
}

// Students returns the per-student rows for one date.
func (s *SummaryReadService) Students(ctx context.Context, date time.Time) ([]models.StudentSummaryRow, error) {
	date = date.UTC().Truncate(24 * time.Hour)
	key := repository.StudentSummariesCacheKey(date)

	var cached []models.StudentSummaryRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	rows, err := s.store.ListStudentSummaries(ctx, date)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, rows, 0)
	return rows, nil
}

// Teachers returns the weekly teacher rows for the week containing date.
func (s *SummaryReadService) Teachers(ctx context.Context, date time.Time) ([]models.TeacherSummaryRow, error) {
	weekStart := startOfWeek(date)
	key := repository.TeacherSummariesCacheKey(weekStart)

	var cached []models.TeacherSummaryRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	rows, err := s.store.ListTeacherSummaries(ctx, weekStart)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, rows, 0)
	return rows, nil
}

// Classes returns the weekly class rows for the week containing date.
func (s *SummaryReadService) Classes(ctx context.Context, date time.Time) ([]models.ClassSummaryRow, error) {
	weekStart := startOfWeek(date)
	key := repository.ClassSummariesCacheKey(weekStart)

	var cached []models.ClassSummaryRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	rows, err := s.store.ListClassSummaries(ctx, weekStart)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, rows, 0)
	return rows, nil
}

// ActiveAlerts returns the current alert set, severity-ordered by the store.
func (s *SummaryReadService) ActiveAlerts(ctx context.Context) ([]models.AnalyticsAlert, error) {
	key := repository.ActiveAlertsCacheKey

	var cached []models.AnalyticsAlert
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	alerts, err := s.alerts.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, alerts, 0)
	return alerts, nil
}
