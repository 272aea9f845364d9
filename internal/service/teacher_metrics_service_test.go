package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
	appErrors "github.com/noah-isme/tahfiz-analytics/pkg/errors"
)

// fourWeekWindow keeps scheduled-session arithmetic easy to follow.
func fourWeekWindow() models.TimeRange {
	return models.TimeRange{From: windowEnd.AddDate(0, 0, -28), To: windowEnd}
}

func teacherSnapshot() *models.AnalyticsDataContext {
	return &models.AnalyticsDataContext{
		Teachers: []models.Teacher{{
			ID:       "teacher-1",
			FullName: "Ustadh Karim",
			Role:     models.RoleTeacher,
			Status:   models.StatusActive,
			JoinedAt: windowEnd.AddDate(-2, 0, 0),
		}},
		Classes: []models.Class{{
			ID:              "class-1",
			Name:            "Hifz A",
			Status:          models.StatusActive,
			Capacity:        20,
			CurrentStudents: []string{"student-1", "student-2"},
			TeacherIDs:      []string{"teacher-1"},
			TimeSlots: []models.TimeSlot{{
				Days:      []string{"monday", "wednesday"},
				StartTime: "08:00",
				EndTime:   "10:00",
			}},
		}},
		Students: []models.Student{
			{ID: "student-1", Status: models.StatusActive, EnrollmentDate: windowEnd.AddDate(-1, 0, 0)},
			{ID: "student-2", Status: models.StatusWithdrawn, EnrollmentDate: windowEnd.AddDate(-1, 0, 0), StatusStartDate: timePtr(windowEnd.AddDate(0, 0, -10))},
		},
	}
}

func TestTeacherMetricsUnknownTeacher(t *testing.T) {
	svc := NewTeacherMetricsService(testAnalyticsCfg(), nil)
	_, err := svc.Compute(&models.AnalyticsDataContext{}, "ghost", fourWeekWindow(), nil)
	require.ErrorIs(t, err, appErrors.ErrEntityNotFound)
}

func TestTeacherMetricsScheduleFromTimeSlots(t *testing.T) {
	svc := NewTeacherMetricsService(testAnalyticsCfg(), nil)
	data := teacherSnapshot()
	for i := 0; i < 5; i++ {
		data.Progress = append(data.Progress, models.ProgressEntry{
			ID:             "p-" + string(rune('a'+i)),
			StudentID:      "student-1",
			TeacherID:      strPtr("teacher-1"),
			Date:           windowEnd.AddDate(0, 0, -(i + 1)),
			PagesMemorized: 1,
		})
	}

	m, err := svc.Compute(data, "teacher-1", fourWeekWindow(), nil)
	require.NoError(t, err)
	// Two 2-hour slot days over 4 weeks.
	assert.InDelta(t, 4.0, m.WeeklyActiveHours, 0.001)
	assert.Equal(t, 8, m.SessionsScheduled)
	assert.Equal(t, 5, m.SessionsConducted)
	assert.InDelta(t, 62.5, m.SessionCompletionRate, 0.001)
	// Attendance mirrors completion until teachers get their own marks.
	assert.InDelta(t, 62.5, m.AttendanceRate, 0.001)
	assert.Equal(t, 3, m.MissedOrLateSessions)
	assert.InDelta(t, 0.75, m.CancellationFrequency, 0.001)
	assert.Equal(t, 2, m.AssignedStudentCount)
}

func TestTeacherMetricsFallbackScheduleWithoutSlots(t *testing.T) {
	svc := NewTeacherMetricsService(testAnalyticsCfg(), nil)
	data := teacherSnapshot()
	data.Classes[0].TimeSlots = nil

	m, err := svc.Compute(data, "teacher-1", fourWeekWindow(), nil)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, m.WeeklyActiveHours, 0.001)
	assert.Equal(t, 20, m.SessionsScheduled)
}

func TestTeacherMetricsStudentAggregation(t *testing.T) {
	svc := NewTeacherMetricsService(testAnalyticsCfg(), nil)
	data := teacherSnapshot()
	studentMetrics := map[string]models.StudentMetrics{
		"student-1": {StudentID: "student-1", PagesPerWeek: 6, AccuracyRate: 90, AtRiskScore: 20},
		"student-2": {StudentID: "student-2", PagesPerWeek: 2, AccuracyRate: 70, AtRiskScore: 65},
	}

	m, err := svc.Compute(data, "teacher-1", fourWeekWindow(), studentMetrics)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, m.AvgStudentPace, 0.001)
	assert.InDelta(t, 80.0, m.AvgStudentAccuracy, 0.001)
	assert.InDelta(t, 50.0, m.TargetAchievementRate, 0.001)
	assert.Equal(t, 1, m.AtRiskStudentCount)
	// Both enrolled before the window; one withdrew.
	assert.InDelta(t, 50.0, m.StudentRetentionRate, 0.001)
}

func TestTeacherMetricsGradingTimeliness(t *testing.T) {
	svc := NewTeacherMetricsService(testAnalyticsCfg(), nil)
	data := teacherSnapshot()

	m, err := svc.Compute(data, "teacher-1", fourWeekWindow(), nil)
	require.NoError(t, err)
	// Nothing graded yet scores full marks.
	assert.InDelta(t, 100.0, m.GradingTimeliness, 0.001)

	submitted := windowEnd.AddDate(0, 0, -4)
	graded := submitted.Add(48 * time.Hour)
	data.Submissions = []models.Submission{{
		ID:           "sub-1",
		AssignmentID: "as-1",
		StudentID:    "student-1",
		Status:       models.SubmissionGraded,
		SubmittedAt:  &submitted,
		GradedAt:     &graded,
	}}

	m, err = svc.Compute(data, "teacher-1", fourWeekWindow(), nil)
	require.NoError(t, err)
	// 48h average is 24h past grace, decaying 2 points per hour.
	assert.InDelta(t, 52.0, m.GradingTimeliness, 0.001)
}

func TestTeacherMetricsComputeAllSorted(t *testing.T) {
	svc := NewTeacherMetricsService(testAnalyticsCfg(), nil)
	data := teacherSnapshot()
	data.Teachers = append(data.Teachers,
		models.Teacher{ID: "teacher-0", FullName: "Ustadha Noor", Role: models.RoleTeacher, Status: models.StatusActive},
		models.Teacher{ID: "teacher-9", FullName: "Former", Role: models.RoleTeacher, Status: models.StatusInactive},
	)

	results := svc.ComputeAll(data, fourWeekWindow(), nil)
	require.Len(t, results, 2)
	assert.Equal(t, "teacher-0", results[0].TeacherID)
	assert.Equal(t, "teacher-1", results[1].TeacherID)
}
