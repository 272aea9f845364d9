package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tahfiz-analytics/internal/calc"
	"github.com/noah-isme/tahfiz-analytics/internal/models"
	"github.com/noah-isme/tahfiz-analytics/pkg/config"
)

// Weekly availability assumed per teacher when estimating utilization.
const assumedWeeklyAvailabilityHours = 40.0

// ProgramMetricsService derives the institution-wide result from the snapshot
// and the per-entity metrics computed earlier in the run.
type ProgramMetricsService struct {
	cfg    config.AnalyticsConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewProgramMetricsService constructs the calculator.
func NewProgramMetricsService(cfg config.AnalyticsConfig, logger *zap.Logger) *ProgramMetricsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramMetricsService{cfg: cfg, logger: logger, now: time.Now}
}

// Compute produces one ProgramMetrics for the run.
func (s *ProgramMetricsService) Compute(data *models.AnalyticsDataContext, window models.TimeRange, studentMetrics []models.StudentMetrics, teacherMetrics []models.TeacherMetrics) models.ProgramMetrics {
	m := models.ProgramMetrics{}
	now := window.To

	var pagesTotal, accuracyTotal float64
	for _, sm := range studentMetrics {
		pagesTotal += sm.TotalPagesMemorized
		accuracyTotal += sm.AccuracyRate
		if sm.PagesPerWeek >= s.cfg.WeeklyPaceTarget {
			m.StudentsOnTrack++
		} else {
			m.StudentsBehind++
		}
	}
	m.OverallVelocity = calc.Round2(pagesTotal / float64(window.Weeks()))
	if len(studentMetrics) > 0 {
		m.AvgAccuracy = calc.Round2(accuracyTotal / float64(len(studentMetrics)))
	}

	s.fillRetentionAndChurn(&m, data, now)
	s.fillTeacherFigures(&m, teacherMetrics)

	return m
}

// Essential folds the program result into the reduced 12-field daily summary.
func (s *ProgramMetricsService) Essential(data *models.AnalyticsDataContext, program models.ProgramMetrics, studentMetrics []models.StudentMetrics, activeAlerts int) models.EssentialMetrics {
	e := models.EssentialMetrics{
		TotalActiveStudents:  len(data.ActiveStudents()),
		TotalActiveTeachers:  len(data.ActiveTeachers()),
		OverallVelocity:      program.OverallVelocity,
		AvgAccuracy:          program.AvgAccuracy,
		MonthlyRetentionRate: program.MonthlyRetentionRate,
		SessionDeliveryRate:  program.SessionDeliveryRate,
		ActiveAlerts:         activeAlerts,
	}
	var pagesTotal, paceTotal, attendanceTotal float64
	for _, sm := range studentMetrics {
		pagesTotal += sm.TotalPagesMemorized
		paceTotal += sm.PagesPerWeek
		attendanceTotal += sm.AttendanceRate
		if sm.AtRiskScore >= s.cfg.AtRiskScore {
			e.AtRiskStudents++
		}
		if sm.IsStagnant {
			e.StagnantStudents++
		}
	}
	e.TotalPagesMemorized = calc.Round2(pagesTotal)
	if len(studentMetrics) > 0 {
		e.AvgPagesPerWeek = calc.Round2(paceTotal / float64(len(studentMetrics)))
		e.AvgAttendanceRate = calc.Round2(attendanceTotal / float64(len(studentMetrics)))
	}
	return e
}

func (s *ProgramMetricsService) fillRetentionAndChurn(m *models.ProgramMetrics, data *models.AnalyticsDataContext, now time.Time) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonthStart := monthStart.AddDate(0, -1, 0)
	trailingMonth := now.AddDate(0, -1, 0)

	var active, enrolledBeforeLastMonth int
	var lifetimeTotal float64
	for _, student := range data.Students {
		if student.Status == models.StatusActive {
			active++
		}
		if student.EnrollmentDate.Before(lastMonthStart) {
			enrolledBeforeLastMonth++
		}
		if !student.EnrollmentDate.Before(trailingMonth) && !student.EnrollmentDate.After(now) {
			m.NewEnrollments++
		}
		if student.Status == models.StatusWithdrawn || student.Status == models.StatusInactive {
			if student.StatusStartDate != nil && !student.StatusStartDate.Before(trailingMonth) && !student.StatusStartDate.After(now) {
				m.Withdrawals++
			}
		}

		end := now
		if student.Status != models.StatusActive && student.StatusStartDate != nil {
			end = *student.StatusStartDate
		}
		lifetimeTotal += end.Sub(student.EnrollmentDate).Hours() / 24
	}
	m.NetChange = m.NewEnrollments - m.Withdrawals
	if enrolledBeforeLastMonth > 0 {
		m.MonthlyRetentionRate = calc.Percentage(float64(active), float64(enrolledBeforeLastMonth))
		if m.MonthlyRetentionRate > 100 {
			m.MonthlyRetentionRate = 100
		}
	}
	if len(data.Students) > 0 {
		m.AvgStudentLifetimeDays = calc.Round2(lifetimeTotal / float64(len(data.Students)))
	}
}

func (s *ProgramMetricsService) fillTeacherFigures(m *models.ProgramMetrics, teacherMetrics []models.TeacherMetrics) {
	var hoursTotal float64
	var turnedOver int
	for _, tm := range teacherMetrics {
		hoursTotal += tm.WeeklyActiveHours
		m.SessionsDelivered += tm.SessionsConducted
		m.SessionsPlanned += tm.SessionsScheduled
		if tm.SessionsConducted == 0 {
			turnedOver++
		}
	}
	count := len(teacherMetrics)
	m.TeacherTurnoverRate = calc.Percentage(float64(turnedOver), float64(count))
	if count > 0 {
		m.TeacherUtilizationRate = calc.Percentage(hoursTotal, float64(count)*assumedWeeklyAvailabilityHours)
	}
	m.SessionDeliveryRate = calc.Percentage(float64(m.SessionsDelivered), float64(m.SessionsPlanned))
}
