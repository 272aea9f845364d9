package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
	appErrors "github.com/noah-isme/tahfiz-analytics/pkg/errors"
)

// ContextLoader is the input boundary: one snapshot fetch per run.
type ContextLoader interface {
	Load(ctx context.Context, window models.TimeRange, institutionScope string) (*models.AnalyticsDataContext, error)
}

// SummaryStore is the output boundary for the four summary upsert targets.
type SummaryStore interface {
	UpsertDailySummary(ctx context.Context, row models.DailySummaryRow) error
	UpsertStudentSummaries(ctx context.Context, rows []models.StudentSummaryRow) error
	UpsertTeacherSummaries(ctx context.Context, rows []models.TeacherSummaryRow) error
	UpsertClassSummaries(ctx context.Context, rows []models.ClassSummaryRow) error
}

// AlertStore reconciles the active alert set against storage.
type AlertStore interface {
	Reconcile(ctx context.Context, alerts []models.AnalyticsAlert) error
}

// RunResult summarises one aggregation pass for the caller.
type RunResult struct {
	RunID          string                  `json:"run_id"`
	Date           time.Time               `json:"date"`
	WeekStart      time.Time               `json:"week_start"`
	Summary        models.DailySummaryRow  `json:"summary"`
	Program        models.ProgramMetrics   `json:"program"`
	StudentCount   int                     `json:"student_count"`
	TeacherCount   int                     `json:"teacher_count"`
	ClassCount     int                     `json:"class_count"`
	Alerts         []models.AnalyticsAlert `json:"alerts"`
	StudentMetrics []models.StudentMetrics `json:"-"`
	TeacherMetrics []models.TeacherMetrics `json:"-"`
	ClassMetrics   []models.ClassMetrics   `json:"-"`
}

// AggregationServiceParams groups constructor dependencies.
type AggregationServiceParams struct {
	Loader   ContextLoader
	Store    SummaryStore
	Alerts   AlertStore
	Students *StudentMetricsService
	Teachers *TeacherMetricsService
	Classes  *ClassMetricsService
	Program  *ProgramMetricsService
	Rules    *AlertService
	Cache    *CacheService
	Metrics  *MetricsService
	Logger   *zap.Logger
}

// AggregationService is the single entry point of the pipeline: it loads the
// snapshot once, runs every calculator over it, upserts the summary tables and
// reconciles the alert set last. Re-running for the same date overwrites
// rather than duplicates.
type AggregationService struct {
	loader   ContextLoader
	store    SummaryStore
	alerts   AlertStore
	students *StudentMetricsService
	teachers *TeacherMetricsService
	classes  *ClassMetricsService
	program  *ProgramMetricsService
	rules    *AlertService
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAggregationService constructs the orchestrator.
func NewAggregationService(params AggregationServiceParams) *AggregationService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregationService{
		loader:   params.Loader,
		store:    params.Store,
		alerts:   params.Alerts,
		students: params.Students,
		teachers: params.Teachers,
		classes:  params.Classes,
		program:  params.Program,
		rules:    params.Rules,
		cache:    params.Cache,
		metrics:  params.Metrics,
		logger:   logger,
	}
}

// Run executes one daily aggregation for runDate. institutionScope narrows the
// snapshot when set; empty means the whole institution.
func (s *AggregationService) Run(ctx context.Context, runDate time.Time, institutionScope string) (*RunResult, error) {
	runID := uuid.NewString()
	runDate = runDate.UTC().Truncate(24 * time.Hour)
	window := models.TimeRange{From: runDate.AddDate(-1, 0, 0), To: runDate}

	loadStart := time.Now()
	data, err := s.loader.Load(ctx, window, institutionScope)
	if err != nil {
		s.metrics.RecordRun("failure")
		return nil, appErrors.Wrap(err, appErrors.ErrContextLoad.Code, "load analytics context")
	}
	s.metrics.ObservePhase("load", time.Since(loadStart))

	computeStart := time.Now()
	studentMetrics := s.students.ComputeAll(data, window)
	byStudent := make(map[string]models.StudentMetrics, len(studentMetrics))
	for _, sm := range studentMetrics {
		byStudent[sm.StudentID] = sm
	}
	teacherMetrics := s.teachers.ComputeAll(data, window, byStudent)
	classMetrics := s.classes.ComputeAll(data, byStudent)
	programMetrics := s.program.Compute(data, window, studentMetrics, teacherMetrics)
	alerts := s.rules.GenerateAll(studentMetrics, teacherMetrics, classMetrics)
	essential := s.program.Essential(data, programMetrics, studentMetrics, len(alerts))
	s.metrics.ObservePhase("compute", time.Since(computeStart))
	s.metrics.AddEntities("student", len(studentMetrics))
	s.metrics.AddEntities("teacher", len(teacherMetrics))
	s.metrics.AddEntities("class", len(classMetrics))
	s.metrics.AddAlerts(len(alerts))

	weekStart := startOfWeek(runDate)
	summaryRow := models.DailySummaryRow{Date: runDate, EssentialMetrics: essential}

	// Summary tables commit before alert reconciliation so a failed run never
	// drops alerts that are still backed by the previous summaries.
	if err := s.persistSummaries(ctx, runDate, weekStart, summaryRow, studentMetrics, teacherMetrics, classMetrics); err != nil {
		s.metrics.RecordRun("failure")
		return nil, err
	}

	reconcileStart := time.Now()
	if err := s.alerts.Reconcile(ctx, alerts); err != nil {
		s.metrics.RecordRun("failure")
		return nil, appErrors.Wrap(err, appErrors.ErrStorageWrite.Code, "reconcile alerts")
	}
	s.metrics.ObserveUpsert("analytics_alerts", time.Since(reconcileStart))

	if err := s.cache.Invalidate(ctx, "*"); err != nil {
		s.logger.Warn("analytics cache invalidation failed", zap.Error(err))
	}

	s.metrics.RecordRun("success")
	s.logger.Info("aggregation run complete",
		zap.String("run_id", runID),
		zap.Time("date", runDate),
		zap.Int("students", len(studentMetrics)),
		zap.Int("teachers", len(teacherMetrics)),
		zap.Int("classes", len(classMetrics)),
		zap.Int("alerts", len(alerts)))

	return &RunResult{
		RunID:          runID,
		Date:           runDate,
		WeekStart:      weekStart,
		Summary:        summaryRow,
		Program:        programMetrics,
		StudentCount:   len(studentMetrics),
		TeacherCount:   len(teacherMetrics),
		ClassCount:     len(classMetrics),
		Alerts:         alerts,
		StudentMetrics: studentMetrics,
		TeacherMetrics: teacherMetrics,
		ClassMetrics:   classMetrics,
	}, nil
}

func (s *AggregationService) persistSummaries(ctx context.Context, runDate, weekStart time.Time, summary models.DailySummaryRow, studentMetrics []models.StudentMetrics, teacherMetrics []models.TeacherMetrics, classMetrics []models.ClassMetrics) error {
	studentRows := make([]models.StudentSummaryRow, 0, len(studentMetrics))
	for _, sm := range studentMetrics {
		studentRows = append(studentRows, models.StudentSummaryRow{Date: runDate, StudentMetrics: sm})
	}
	teacherRows := make([]models.TeacherSummaryRow, 0, len(teacherMetrics))
	for _, tm := range teacherMetrics {
		teacherRows = append(teacherRows, models.TeacherSummaryRow{WeekStart: weekStart, TeacherMetrics: tm})
	}
	classRows := make([]models.ClassSummaryRow, 0, len(classMetrics))
	for _, cm := range classMetrics {
		classRows = append(classRows, models.ClassSummaryRow{WeekStart: weekStart, ClassMetrics: cm})
	}

	steps := []struct {
		table string
		write func() error
	}{
		{"student_metrics_summary", func() error { return s.store.UpsertStudentSummaries(ctx, studentRows) }},
		{"teacher_metrics_summary", func() error { return s.store.UpsertTeacherSummaries(ctx, teacherRows) }},
		{"class_metrics_summary", func() error { return s.store.UpsertClassSummaries(ctx, classRows) }},
		{"analytics_summary", func() error { return s.store.UpsertDailySummary(ctx, summary) }},
	}
	for _, step := range steps {
		start := time.Now()
		if err := step.write(); err != nil {
			return appErrors.Wrap(err, appErrors.ErrStorageWrite.Code, "upsert "+step.table)
		}
		s.metrics.ObserveUpsert(step.table, time.Since(start))
	}
	return nil
}

// startOfWeek returns the Monday containing t, UTC midnight.
func startOfWeek(t time.Time) time.Time {
	t = t.UTC().Truncate(24 * time.Hour)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
