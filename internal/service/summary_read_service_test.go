package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
	appErrors "github.com/noah-isme/tahfiz-analytics/pkg/errors"
)

type stubSummaryReader struct {
	daily        *models.DailySummaryRow
	dailyErr     error
	dailyCalls   int
	students     []models.StudentSummaryRow
	studentCalls int
	teachers     []models.TeacherSummaryRow
	teacherWeek  time.Time
	classes      []models.ClassSummaryRow
}

func (s *stubSummaryReader) GetDailySummary(_ context.Context, _ time.Time) (*models.DailySummaryRow, error) {
	s.dailyCalls++
	if s.dailyErr != nil {
		return nil, s.dailyErr
	}
	return s.daily, nil
}

func (s *stubSummaryReader) ListStudentSummaries(_ context.Context, _ time.Time) ([]models.StudentSummaryRow, error) {
	s.studentCalls++
	return s.students, nil
}

func (s *stubSummaryReader) ListTeacherSummaries(_ context.Context, weekStart time.Time) ([]models.TeacherSummaryRow, error) {
	s.teacherWeek = weekStart
	return s.teachers, nil
}

func (s *stubSummaryReader) ListClassSummaries(_ context.Context, _ time.Time) ([]models.ClassSummaryRow, error) {
	return s.classes, nil
}

type stubAlertReader struct {
	alerts []models.AnalyticsAlert
	calls  int
}

func (s *stubAlertReader) ListActive(_ context.Context) ([]models.AnalyticsAlert, error) {
	s.calls++
	return s.alerts, nil
}

type memoryCacheRepo struct {
	store map[string][]byte
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	m.store = nil
	return nil
}

func TestSummaryReadDailyCachesResult(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	reader := &stubSummaryReader{daily: &models.DailySummaryRow{
		Date:             date,
		EssentialMetrics: models.EssentialMetrics{TotalActiveStudents: 42},
	}}
	cache := NewCacheService(&memoryCacheRepo{}, time.Minute, nil, true)
	svc := NewSummaryReadService(reader, nil, cache, nil)

	first, err := svc.Daily(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, 42, first.TotalActiveStudents)

	second, err := svc.Daily(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, 42, second.TotalActiveStudents)
	assert.Equal(t, 1, reader.dailyCalls)
}

func TestSummaryReadDailyPropagatesNotFound(t *testing.T) {
	reader := &stubSummaryReader{dailyErr: appErrors.Clone(appErrors.ErrEntityNotFound, "no summary for date")}
	cache := NewCacheService(nil, 0, nil, false)
	svc := NewSummaryReadService(reader, nil, cache, nil)

	_, err := svc.Daily(context.Background(), time.Now())
	require.ErrorIs(t, err, appErrors.ErrEntityNotFound)
}

func TestSummaryReadTeachersUsesWeekStart(t *testing.T) {
	reader := &stubSummaryReader{teachers: []models.TeacherSummaryRow{
		{WeekStart: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), TeacherMetrics: models.TeacherMetrics{TeacherID: "teacher-1"}},
	}}
	cache := NewCacheService(nil, 0, nil, false)
	svc := NewSummaryReadService(reader, nil, cache, nil)

	// Wednesday resolves to the preceding Monday.
	rows, err := svc.Teachers(context.Background(), time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), reader.teacherWeek)
}

func TestSummaryReadActiveAlertsCached(t *testing.T) {
	alerts := &stubAlertReader{alerts: []models.AnalyticsAlert{
		{ID: "alert-1", Type: models.AlertMissedSessions, Severity: models.SeverityHigh, Status: models.AlertActive},
	}}
	cache := NewCacheService(&memoryCacheRepo{}, time.Minute, nil, true)
	svc := NewSummaryReadService(nil, alerts, cache, nil)

	first, err := svc.ActiveAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = svc.ActiveAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, alerts.calls)
}

func TestSummaryReadStudentsBypassesDisabledCache(t *testing.T) {
	reader := &stubSummaryReader{students: []models.StudentSummaryRow{
		{StudentMetrics: models.StudentMetrics{StudentID: "student-1"}},
	}}
	cache := NewCacheService(nil, 0, nil, false)
	svc := NewSummaryReadService(reader, nil, cache, nil)

	for i := 0; i < 2; i++ {
		rows, err := svc.Students(context.Background(), time.Now())
		require.NoError(t, err)
		require.Len(t, rows, 1)
	}
	assert.Equal(t, 2, reader.studentCalls)
}
