package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
	appErrors "github.com/noah-isme/tahfiz-analytics/pkg/errors"
)

type stubLoader struct {
	data   *models.AnalyticsDataContext
	err    error
	window models.TimeRange
	scope  string
	calls  int
}

func (l *stubLoader) Load(_ context.Context, window models.TimeRange, scope string) (*models.AnalyticsDataContext, error) {
	l.calls++
	l.window = window
	l.scope = scope
	if l.err != nil {
		return nil, l.err
	}
	return l.data, nil
}

type recordingStore struct {
	order   *[]string
	failOn  string
	daily   []models.DailySummaryRow
	student [][]models.StudentSummaryRow
	teacher [][]models.TeacherSummaryRow
	class   [][]models.ClassSummaryRow
}

func (s *recordingStore) step(name string) error {
	*s.order = append(*s.order, name)
	if s.failOn == name {
		return errors.New("write refused")
	}
	return nil
}

func (s *recordingStore) UpsertDailySummary(_ context.Context, row models.DailySummaryRow) error {
	s.daily = append(s.daily, row)
	return s.step("daily")
}

func (s *recordingStore) UpsertStudentSummaries(_ context.Context, rows []models.StudentSummaryRow) error {
	s.student = append(s.student, rows)
	return s.step("students")
}

func (s *recordingStore) UpsertTeacherSummaries(_ context.Context, rows []models.TeacherSummaryRow) error {
	s.teacher = append(s.teacher, rows)
	return s.step("teachers")
}

func (s *recordingStore) UpsertClassSummaries(_ context.Context, rows []models.ClassSummaryRow) error {
	s.class = append(s.class, rows)
	return s.step("classes")
}

type recordingAlertStore struct {
	order  *[]string
	alerts [][]models.AnalyticsAlert
	err    error
}

func (s *recordingAlertStore) Reconcile(_ context.Context, alerts []models.AnalyticsAlert) error {
	*s.order = append(*s.order, "alerts")
	s.alerts = append(s.alerts, alerts)
	return s.err
}

func aggregationSnapshot() *models.AnalyticsDataContext {
	return &models.AnalyticsDataContext{
		Students: []models.Student{{
			ID:             "student-1",
			FullName:       "Aisha",
			Status:         models.StatusActive,
			EnrollmentDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		}},
		Teachers: []models.Teacher{{
			ID:       "teacher-1",
			FullName: "Ustadh Karim",
			Role:     models.RoleTeacher,
			Status:   models.StatusActive,
		}},
		Classes: []models.Class{{
			ID:              "class-1",
			Name:            "Hifz A",
			Status:          models.StatusActive,
			Capacity:        20,
			CurrentStudents: []string{"student-1"},
			TeacherIDs:      []string{"teacher-1"},
		}},
	}
}

func newTestAggregation(loader ContextLoader, store SummaryStore, alerts AlertStore) *AggregationService {
	cfg := testAnalyticsCfg()
	return NewAggregationService(AggregationServiceParams{
		Loader:   loader,
		Store:    store,
		Alerts:   alerts,
		Students: NewStudentMetricsService(cfg, nil),
		Teachers: NewTeacherMetricsService(cfg, nil),
		Classes:  NewClassMetricsService(nil),
		Program:  NewProgramMetricsService(cfg, nil),
		Rules:    NewAlertService(cfg, nil),
		Cache:    NewCacheService(nil, 0, nil, false),
	})
}

func TestAggregationRunPersistsBeforeReconciling(t *testing.T) {
	var order []string
	loader := &stubLoader{data: aggregationSnapshot()}
	store := &recordingStore{order: &order}
	alertStore := &recordingAlertStore{order: &order}
	svc := newTestAggregation(loader, store, alertStore)

	runDate := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	result, err := svc.Run(context.Background(), runDate, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"students", "teachers", "classes", "daily", "alerts"}, order)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), result.Date)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), result.WeekStart)
	assert.Equal(t, 1, result.StudentCount)
	assert.Equal(t, 1, result.TeacherCount)
	assert.Equal(t, 1, result.ClassCount)

	require.Len(t, store.daily, 1)
	assert.Equal(t, result.Date, store.daily[0].Date)
	assert.Equal(t, 1, store.daily[0].TotalActiveStudents)
	require.Len(t, store.student, 1)
	require.Len(t, store.student[0], 1)
	assert.Equal(t, result.Date, store.student[0][0].Date)
	require.Len(t, store.teacher, 1)
	require.Len(t, store.teacher[0], 1)
	assert.Equal(t, result.WeekStart, store.teacher[0][0].WeekStart)
}

func TestAggregationRunRequestsTrailingYearWindow(t *testing.T) {
	var order []string
	loader := &stubLoader{data: aggregationSnapshot()}
	svc := newTestAggregation(loader, &recordingStore{order: &order}, &recordingAlertStore{order: &order})

	runDate := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	_, err := svc.Run(context.Background(), runDate, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, "inst-1", loader.scope)
	assert.Equal(t, runDate.AddDate(-1, 0, 0), loader.window.From)
	assert.Equal(t, runDate, loader.window.To)
}

func TestAggregationRunLoadFailure(t *testing.T) {
	var order []string
	loader := &stubLoader{err: errors.New("db down")}
	svc := newTestAggregation(loader, &recordingStore{order: &order}, &recordingAlertStore{order: &order})

	_, err := svc.Run(context.Background(), time.Now(), "")
	require.ErrorIs(t, err, appErrors.ErrContextLoad)
	assert.Empty(t, order)
}

func TestAggregationRunAbortsOnSummaryFailure(t *testing.T) {
	var order []string
	loader := &stubLoader{data: aggregationSnapshot()}
	store := &recordingStore{order: &order, failOn: "teachers"}
	svc := newTestAggregation(loader, store, &recordingAlertStore{order: &order})

	_, err := svc.Run(context.Background(), time.Now(), "")
	require.ErrorIs(t, err, appErrors.ErrStorageWrite)
	// Nothing after the failed table, alerts untouched.
	assert.Equal(t, []string{"students", "teachers"}, order)
}

func TestAggregationRunAlertFailure(t *testing.T) {
	var order []string
	loader := &stubLoader{data: aggregationSnapshot()}
	alertStore := &recordingAlertStore{order: &order, err: errors.New("conflict")}
	svc := newTestAggregation(loader, &recordingStore{order: &order}, alertStore)

	_, err := svc.Run(context.Background(), time.Now(), "")
	require.ErrorIs(t, err, appErrors.ErrStorageWrite)
	assert.Equal(t, []string{"students", "teachers", "classes", "daily", "alerts"}, order)
}

func TestAggregationRunIsRepeatable(t *testing.T) {
	var order []string
	loader := &stubLoader{data: aggregationSnapshot()}
	store := &recordingStore{order: &order}
	alertStore := &recordingAlertStore{order: &order}
	svc := newTestAggregation(loader, store, alertStore)

	runDate := time.Date(2026, 3, 4, 6, 0, 0, 0, time.UTC)
	first, err := svc.Run(context.Background(), runDate, "")
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), runDate, "")
	require.NoError(t, err)

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.StudentMetrics, second.StudentMetrics)
	require.Len(t, store.daily, 2)
	assert.Equal(t, store.daily[0], store.daily[1])
}
