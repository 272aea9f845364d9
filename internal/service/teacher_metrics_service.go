package service

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tahfiz-analytics/internal/calc"
	"github.com/noah-isme/tahfiz-analytics/internal/models"
	"github.com/noah-isme/tahfiz-analytics/pkg/config"
	appErrors "github.com/noah-isme/tahfiz-analytics/pkg/errors"
)

const (
	// Flat per-class estimate used when a class carries no time-slot
	// structure: 1.5 hours across an assumed 5 teaching days.
	fallbackHoursPerDay    = 1.5
	fallbackDaysPerWeek    = 5
	gradingGraceHours      = 24.0
	adminEvaluationDefault = 80.0
)

// TeacherMetricsService derives per-teacher indicators. It consumes the
// student metrics computed earlier in the same run for aggregation.
type TeacherMetricsService struct {
	cfg    config.AnalyticsConfig
	logger *zap.Logger
}

// NewTeacherMetricsService constructs the calculator.
func NewTeacherMetricsService(cfg config.AnalyticsConfig, logger *zap.Logger) *TeacherMetricsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherMetricsService{cfg: cfg, logger: logger}
}

// Compute derives the indicator set for one teacher.
func (s *TeacherMetricsService) Compute(data *models.AnalyticsDataContext, teacherID string, window models.TimeRange, studentMetrics map[string]models.StudentMetrics) (*models.TeacherMetrics, error) {
	teacher, ok := data.TeacherByID(teacherID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrEntityNotFound, "teacher "+teacherID+" not in snapshot")
	}

	classes := classesForTeacher(data, teacherID)
	studentIDs := rosterUnion(classes)

	m := &models.TeacherMetrics{
		TeacherID:            teacher.ID,
		TeacherName:          teacher.FullName,
		AssignedStudentCount: len(studentIDs),
		StudentTeacherRatio:  float64(len(studentIDs)),
		AdminEvaluationScore: adminEvaluationDefault,
	}

	m.WeeklyActiveHours = calc.Round2(weeklyHours(classes, teacherID))
	m.SessionsScheduled = scheduledSessions(classes, teacherID, window)
	m.SessionsConducted = conductedSessions(data, teacherID, window)
	m.SessionCompletionRate = math.Min(100, calc.Percentage(float64(m.SessionsConducted), float64(m.SessionsScheduled)))
	// Teachers have no attendance marks of their own yet; completion rate is
	// the stand-in, with the same proxy caveat as conductedSessions.
	m.AttendanceRate = m.SessionCompletionRate
	if missed := m.SessionsScheduled - m.SessionsConducted; missed > 0 {
		m.MissedOrLateSessions = missed
	}
	m.CancellationFrequency = calc.Round2(float64(m.MissedOrLateSessions) / float64(window.Weeks()))

	s.aggregateStudents(m, data, studentIDs, window, studentMetrics)
	m.GradingTimeliness = gradingTimeliness(data, studentIDs)

	return m, nil
}

// ComputeAll derives metrics for every active teacher, skipping failures.
func (s *TeacherMetricsService) ComputeAll(data *models.AnalyticsDataContext, window models.TimeRange, studentMetrics map[string]models.StudentMetrics) []models.TeacherMetrics {
	teachers := data.ActiveTeachers()
	results := make([]models.TeacherMetrics, 0, len(teachers))
	for _, t := range teachers {
		m, err := s.Compute(data, t.ID, window, studentMetrics)
		if err != nil {
			s.logger.Warn("teacher metrics skipped",
				zap.String("teacher_id", t.ID),
				zap.Error(err))
			continue
		}
		results = append(results, *m)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].TeacherID < results[j].TeacherID })
	return results
}

func (s *TeacherMetricsService) aggregateStudents(m *models.TeacherMetrics, data *models.AnalyticsDataContext, studentIDs []string, window models.TimeRange, studentMetrics map[string]models.StudentMetrics) {
	var paceTotal, accuracyTotal float64
	var withMetrics, meetingTarget int
	for _, id := range studentIDs {
		sm, ok := studentMetrics[id]
		if !ok {
			continue
		}
		withMetrics++
		paceTotal += sm.PagesPerWeek
		accuracyTotal += sm.AccuracyRate
		if sm.PagesPerWeek >= s.cfg.WeeklyPaceTarget {
			meetingTarget++
		}
		if sm.AtRiskScore >= s.cfg.AtRiskScore {
			m.AtRiskStudentCount++
		}
	}
	if withMetrics > 0 {
		m.AvgStudentPace = calc.Round2(paceTotal / float64(withMetrics))
		m.AvgStudentAccuracy = calc.Round2(accuracyTotal / float64(withMetrics))
	}
	m.TargetAchievementRate = calc.Percentage(float64(meetingTarget), float64(withMetrics))

	// Retention: of students assigned before the window opened, how many are
	// still active.
	var enrolledBefore, stillActive int
	for _, id := range studentIDs {
		student, ok := data.StudentByID(id)
		if !ok || !student.EnrollmentDate.Before(window.From) {
			continue
		}
		enrolledBefore++
		if student.Status == models.StatusActive {
			stillActive++
		}
	}
	m.StudentRetentionRate = calc.Percentage(float64(stillActive), float64(enrolledBefore))
}

// classesForTeacher resolves a teacher's classes by direct membership or by
// membership in any time slot.
func classesForTeacher(data *models.AnalyticsDataContext, teacherID string) []models.Class {
	var out []models.Class
	for _, class := range data.Classes {
		if containsString(class.TeacherIDs, teacherID) {
			out = append(out, class)
			continue
		}
		for _, slot := range class.TimeSlots {
			if containsString(slot.TeacherIDs, teacherID) {
				out = append(out, class)
				break
			}
		}
	}
	return out
}

func rosterUnion(classes []models.Class) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, class := range classes {
		for _, id := range class.CurrentStudents {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// slotApplies reports whether a time slot belongs to the given teacher. Slots
// without their own teacher list inherit the class assignment.
func slotApplies(slot models.TimeSlot, teacherID string) bool {
	if len(slot.TeacherIDs) == 0 {
		return true
	}
	return containsString(slot.TeacherIDs, teacherID)
}

func weeklyHours(classes []models.Class, teacherID string) float64 {
	var hours float64
	for _, class := range classes {
		if len(class.TimeSlots) == 0 {
			hours += fallbackHoursPerDay * fallbackDaysPerWeek
			continue
		}
		for _, slot := range class.TimeSlots {
			if !slotApplies(slot, teacherID) {
				continue
			}
			hours += slotHours(slot) * float64(len(slot.Days))
		}
	}
	return hours
}

func slotHours(slot models.TimeSlot) float64 {
	start, err := time.Parse("15:04", slot.StartTime)
	if err != nil {
		return 0
	}
	end, err := time.Parse("15:04", slot.EndTime)
	if err != nil {
		return 0
	}
	h := end.Sub(start).Hours()
	if h < 0 {
		return 0
	}
	return h
}

func scheduledSessions(classes []models.Class, teacherID string, window models.TimeRange) int {
	weeks := window.Weeks()
	var sessions int
	for _, class := range classes {
		if len(class.TimeSlots) == 0 {
			sessions += fallbackDaysPerWeek * weeks
			continue
		}
		for _, slot := range class.TimeSlots {
			if !slotApplies(slot, teacherID) {
				continue
			}
			sessions += len(slot.Days) * weeks
		}
	}
	return sessions
}

// conductedSessions counts progress entries and attendance marks recorded by
// the teacher. A proxy for a real session log, not an exact count.
func conductedSessions(data *models.AnalyticsDataContext, teacherID string, window models.TimeRange) int {
	var count int
	for _, p := range data.Progress {
		if p.TeacherID != nil && *p.TeacherID == teacherID && window.Contains(p.Date) {
			count++
		}
	}
	for _, a := range data.Attendance {
		if a.TeacherID != nil && *a.TeacherID == teacherID && window.Contains(a.Date) {
			count++
		}
	}
	return count
}

// gradingTimeliness scores feedback speed, decaying past a 24-hour grace
// window. No graded submissions scores a full 100.
func gradingTimeliness(data *models.AnalyticsDataContext, studentIDs []string) float64 {
	roster := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		roster[id] = struct{}{}
	}
	var totalHours float64
	var graded int
	for _, sub := range data.Submissions {
		if _, ok := roster[sub.StudentID]; !ok {
			continue
		}
		if sub.Status != models.SubmissionGraded || sub.SubmittedAt == nil || sub.GradedAt == nil {
			continue
		}
		totalHours += sub.GradedAt.Sub(*sub.SubmittedAt).Hours()
		graded++
	}
	if graded == 0 {
		return 100
	}
	avgHours := totalHours / float64(graded)
	if avgHours <= gradingGraceHours {
		return 100
	}
	return calc.Round2(math.Max(0, 100-math.Min(100, (avgHours-gradingGraceHours)*2)))
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
