package service

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
	"github.com/noah-isme/tahfiz-analytics/pkg/config"
)

// AlertService evaluates the alert rules against the metrics computed in one
// run. Pure over its inputs and the injected clock.
type AlertService struct {
	cfg    config.AnalyticsConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewAlertService constructs the engine.
func NewAlertService(cfg config.AnalyticsConfig, logger *zap.Logger) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{cfg: cfg, logger: logger, now: time.Now}
}

// GenerateAll runs every rule generator and returns the combined list ordered
// by severity descending, then creation time descending. Alerts leave here
// without row ids; the storage layer assigns them, and cross-run identity is
// DedupKey.
func (s *AlertService) GenerateAll(studentMetrics []models.StudentMetrics, teacherMetrics []models.TeacherMetrics, classMetrics []models.ClassMetrics) []models.AnalyticsAlert {
	now := s.now().UTC()

	var alerts []models.AnalyticsAlert
	alerts = append(alerts, s.missedSessionAlerts(teacherMetrics, now)...)
	alerts = append(alerts, s.paceDropAlerts(studentMetrics, now)...)
	alerts = append(alerts, s.atRiskConcentrationAlerts(teacherMetrics, now)...)
	alerts = append(alerts, s.overcapacityAlerts(classMetrics, now)...)
	alerts = append(alerts, s.cancellationAlerts(teacherMetrics, now)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity.Rank() != alerts[j].Severity.Rank() {
			return alerts[i].Severity.Rank() > alerts[j].Severity.Rank()
		}
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	return alerts
}

func (s *AlertService) missedSessionAlerts(teacherMetrics []models.TeacherMetrics, now time.Time) []models.AnalyticsAlert {
	var alerts []models.AnalyticsAlert
	for _, tm := range teacherMetrics {
		if tm.MissedOrLateSessions < s.cfg.MissedSessions {
			continue
		}
		alerts = append(alerts, models.AnalyticsAlert{
			Type:         models.AlertMissedSessions,
			Severity:     models.SeverityHigh,
			Status:       models.AlertActive,
			EntityID:     tm.TeacherID,
			EntityType:   "teacher",
			EntityName:   tm.TeacherName,
			Title:        "Missed sessions threshold reached",
			Description:  fmt.Sprintf("%s has %d missed or late sessions in the current window", tm.TeacherName, tm.MissedOrLateSessions),
			Threshold:    float64(s.cfg.MissedSessions),
			CurrentValue: float64(tm.MissedOrLateSessions),
			CreatedAt:    now,
		})
	}
	return alerts
}

func (s *AlertService) paceDropAlerts(studentMetrics []models.StudentMetrics, now time.Time) []models.AnalyticsAlert {
	var alerts []models.AnalyticsAlert
	for _, sm := range studentMetrics {
		avg := sm.PagesPerWeek
		if avg <= 0 {
			continue
		}
		floor := avg * (1 - s.cfg.PaceDropPct/100)
		if sm.PagesThisWeek >= floor {
			continue
		}
		dropPct := (avg - sm.PagesThisWeek) / avg * 100
		alerts = append(alerts, models.AnalyticsAlert{
			Type:         models.AlertPaceDrop,
			Severity:     models.SeverityMedium,
			Status:       models.AlertActive,
			EntityID:     sm.StudentID,
			EntityType:   "student",
			EntityName:   sm.StudentName,
			Title:        "Memorization pace dropped",
			Description:  fmt.Sprintf("%s's weekly pace fell %.1f%% below their average", sm.StudentName, dropPct),
			Threshold:    s.cfg.PaceDropPct,
			CurrentValue: dropPct,
			CreatedAt:    now,
			Metadata: map[string]string{
				"average_pace": fmt.Sprintf("%.2f", avg),
				"current_pace": fmt.Sprintf("%.2f", sm.PagesThisWeek),
			},
		})
	}
	return alerts
}

func (s *AlertService) atRiskConcentrationAlerts(teacherMetrics []models.TeacherMetrics, now time.Time) []models.AnalyticsAlert {
	var alerts []models.AnalyticsAlert
	for _, tm := range teacherMetrics {
		if tm.AtRiskStudentCount < s.cfg.AtRiskConcentration {
			continue
		}
		alerts = append(alerts, models.AnalyticsAlert{
			Type:         models.AlertAtRiskConcentration,
			Severity:     models.SeverityHigh,
			Status:       models.AlertActive,
			EntityID:     tm.TeacherID,
			EntityType:   "teacher",
			EntityName:   tm.TeacherName,
			Title:        "High concentration of at-risk students",
			Description:  fmt.Sprintf("%s has %d at-risk students assigned", tm.TeacherName, tm.AtRiskStudentCount),
			Threshold:    float64(s.cfg.AtRiskConcentration),
			CurrentValue: float64(tm.AtRiskStudentCount),
			CreatedAt:    now,
		})
	}
	return alerts
}

func (s *AlertService) overcapacityAlerts(classMetrics []models.ClassMetrics, now time.Time) []models.AnalyticsAlert {
	var alerts []models.AnalyticsAlert
	for _, cm := range classMetrics {
		if cm.CapacityUtilization < s.cfg.OvercapacityPct {
			continue
		}
		alerts = append(alerts, models.AnalyticsAlert{
			Type:         models.AlertClassOvercapacity,
			Severity:     models.SeverityMedium,
			Status:       models.AlertActive,
			EntityID:     cm.ClassID,
			EntityType:   "class",
			EntityName:   cm.ClassName,
			Title:        "Class near or over capacity",
			Description:  fmt.Sprintf("%s is at %.1f%% of capacity", cm.ClassName, cm.CapacityUtilization),
			Threshold:    s.cfg.OvercapacityPct,
			CurrentValue: cm.CapacityUtilization,
			CreatedAt:    now,
		})
	}
	return alerts
}

func (s *AlertService) cancellationAlerts(teacherMetrics []models.TeacherMetrics, now time.Time) []models.AnalyticsAlert {
	var alerts []models.AnalyticsAlert
	for _, tm := range teacherMetrics {
		if tm.CancellationFrequency < s.cfg.CancellationsPerWeek {
			continue
		}
		alerts = append(alerts, models.AnalyticsAlert{
			Type:         models.AlertTeacherCancellations,
			Severity:     models.SeverityHigh,
			Status:       models.AlertActive,
			EntityID:     tm.TeacherID,
			EntityType:   "teacher",
			EntityName:   tm.TeacherName,
			Title:        "Excessive session cancellations",
			Description:  fmt.Sprintf("%s cancels %.1f sessions per week", tm.TeacherName, tm.CancellationFrequency),
			Threshold:    s.cfg.CancellationsPerWeek,
			CurrentValue: tm.CancellationFrequency,
			CreatedAt:    now,
		})
	}
	return alerts
}
