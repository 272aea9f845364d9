package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
)

func TestProgramMetricsVelocityAndTracking(t *testing.T) {
	svc := NewProgramMetricsService(testAnalyticsCfg(), nil)
	window := models.TimeRange{From: windowEnd.AddDate(0, 0, -28), To: windowEnd}
	studentMetrics := []models.StudentMetrics{
		{StudentID: "student-1", TotalPagesMemorized: 60, PagesPerWeek: 6, AccuracyRate: 90},
		{StudentID: "student-2", TotalPagesMemorized: 20, PagesPerWeek: 2, AccuracyRate: 70},
	}

	m := svc.Compute(&models.AnalyticsDataContext{}, window, studentMetrics, nil)
	// 80 pages over 4 weeks.
	assert.InDelta(t, 20.0, m.OverallVelocity, 0.001)
	assert.Equal(t, 1, m.StudentsOnTrack)
	assert.Equal(t, 1, m.StudentsBehind)
	assert.InDelta(t, 80.0, m.AvgAccuracy, 0.001)
}

func TestProgramMetricsChurnWindow(t *testing.T) {
	svc := NewProgramMetricsService(testAnalyticsCfg(), nil)
	window := models.TimeRange{From: windowEnd.AddDate(-1, 0, 0), To: windowEnd}
	data := &models.AnalyticsDataContext{
		Students: []models.Student{
			{ID: "student-1", Status: models.StatusActive, EnrollmentDate: windowEnd.AddDate(0, -6, 0)},
			{ID: "student-2", Status: models.StatusActive, EnrollmentDate: windowEnd.AddDate(0, 0, -10)},
			{ID: "student-3", Status: models.StatusWithdrawn, EnrollmentDate: windowEnd.AddDate(0, -8, 0), StatusStartDate: timePtr(windowEnd.AddDate(0, 0, -5))},
		},
	}

	m := svc.Compute(data, window, nil, nil)
	assert.Equal(t, 1, m.NewEnrollments)
	assert.Equal(t, 1, m.Withdrawals)
	assert.Equal(t, 0, m.NetChange)
	// Two enrolled before last month's start, two still active, capped at 100.
	assert.InDelta(t, 100.0, m.MonthlyRetentionRate, 0.001)
	assert.Greater(t, m.AvgStudentLifetimeDays, 0.0)
}

func TestProgramMetricsTeacherFigures(t *testing.T) {
	svc := NewProgramMetricsService(testAnalyticsCfg(), nil)
	window := models.TimeRange{From: windowEnd.AddDate(0, 0, -28), To: windowEnd}
	teacherMetrics := []models.TeacherMetrics{
		{TeacherID: "teacher-1", WeeklyActiveHours: 20, SessionsConducted: 18, SessionsScheduled: 20},
		{TeacherID: "teacher-2", WeeklyActiveHours: 12, SessionsConducted: 0, SessionsScheduled: 10},
	}

	m := svc.Compute(&models.AnalyticsDataContext{}, window, nil, teacherMetrics)
	assert.Equal(t, 18, m.SessionsDelivered)
	assert.Equal(t, 30, m.SessionsPlanned)
	assert.InDelta(t, 60.0, m.SessionDeliveryRate, 0.001)
	// One of two teachers conducted nothing.
	assert.InDelta(t, 50.0, m.TeacherTurnoverRate, 0.001)
	// 32 hours over 2 x 40 available.
	assert.InDelta(t, 40.0, m.TeacherUtilizationRate, 0.001)
}

func TestProgramEssentialFoldsStudentFigures(t *testing.T) {
	svc := NewProgramMetricsService(testAnalyticsCfg(), nil)
	data := &models.AnalyticsDataContext{
		Students: []models.Student{
			{ID: "student-1", Status: models.StatusActive},
			{ID: "student-2", Status: models.StatusActive},
			{ID: "student-3", Status: models.StatusWithdrawn},
		},
		Teachers: []models.Teacher{
			{ID: "teacher-1", Role: models.RoleTeacher, Status: models.StatusActive},
		},
	}
	studentMetrics := []models.StudentMetrics{
		{StudentID: "student-1", TotalPagesMemorized: 120, PagesPerWeek: 5, AttendanceRate: 95, AtRiskScore: 10},
		{StudentID: "student-2", TotalPagesMemorized: 30, PagesPerWeek: 1, AttendanceRate: 60, AtRiskScore: 70, IsStagnant: true},
	}
	program := models.ProgramMetrics{OverallVelocity: 12.5, AvgAccuracy: 85, MonthlyRetentionRate: 97, SessionDeliveryRate: 93}

	e := svc.Essential(data, program, studentMetrics, 4)
	require.Equal(t, 2, e.TotalActiveStudents)
	require.Equal(t, 1, e.TotalActiveTeachers)
	assert.InDelta(t, 150.0, e.TotalPagesMemorized, 0.001)
	assert.InDelta(t, 3.0, e.AvgPagesPerWeek, 0.001)
	assert.InDelta(t, 77.5, e.AvgAttendanceRate, 0.001)
	assert.Equal(t, 1, e.AtRiskStudents)
	assert.Equal(t, 1, e.StagnantStudents)
	assert.Equal(t, 4, e.ActiveAlerts)
	assert.InDelta(t, 12.5, e.OverallVelocity, 0.001)
	assert.InDelta(t, 93.0, e.SessionDeliveryRate, 0.001)
}
