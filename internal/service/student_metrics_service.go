package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tahfiz-analytics/internal/calc"
	"github.com/noah-isme/tahfiz-analytics/internal/models"
	"github.com/noah-isme/tahfiz-analytics/pkg/config"
	appErrors "github.com/noah-isme/tahfiz-analytics/pkg/errors"
)

const (
	activeRevisionWindowDays = 90
	consistencyPeriodDays    = 30
	expectedSessionsPerWeek  = 5.0
	retentionWindowDays      = 30
	lowEngagementThreshold   = 40.0
	burnoutConsistencyFloor  = 50.0
)

// Mistake estimates for entries that carry only a qualitative rating.
var ratingMistakeEstimates = map[string]float64{
	models.RatingExcellent: 0,
	models.RatingGood:      2,
	models.RatingAverage:   5,
	models.RatingNeedsWork: 10,
	models.RatingHorrible:  15,
}

// StudentMetricsService derives the per-student indicator set from one
// snapshot. All methods are pure over the snapshot and the injected clock.
type StudentMetricsService struct {
	cfg    config.AnalyticsConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewStudentMetricsService constructs the calculator.
func NewStudentMetricsService(cfg config.AnalyticsConfig, logger *zap.Logger) *StudentMetricsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentMetricsService{cfg: cfg, logger: logger, now: time.Now}
}

// DefaultWindow returns the trailing 12 months ending now.
func (s *StudentMetricsService) DefaultWindow() models.TimeRange {
	now := s.now().UTC()
	return models.TimeRange{From: now.AddDate(-1, 0, 0), To: now}
}

// Compute derives the full indicator set for one student. It returns
// ErrEntityNotFound when the id is absent from the snapshot.
func (s *StudentMetricsService) Compute(data *models.AnalyticsDataContext, studentID string, window models.TimeRange) (*models.StudentMetrics, error) {
	student, ok := data.StudentByID(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrEntityNotFound, "student "+studentID+" not in snapshot")
	}
	if window.From.IsZero() || window.To.IsZero() {
		window = s.DefaultWindow()
	}
	now := window.To

	progress := filterProgress(data.Progress, studentID)
	attendance := filterAttendance(data.Attendance, studentID)
	revisions := filterRevisions(data.JuzRevisions, studentID)

	m := &models.StudentMetrics{StudentID: student.ID, StudentName: student.FullName}

	// Pages: lifetime plus trailing week/month subsets.
	weekCutoff := now.AddDate(0, 0, -7)
	monthCutoff := now.AddDate(0, 0, -30)
	var lastProgress *time.Time
	for _, p := range progress {
		m.TotalPagesMemorized += p.PagesMemorized
		if !p.Date.Before(weekCutoff) && !p.Date.After(now) {
			m.PagesThisWeek += p.PagesMemorized
		}
		if !p.Date.Before(monthCutoff) && !p.Date.After(now) {
			m.PagesThisMonth += p.PagesMemorized
		}
		if lastProgress == nil || p.Date.After(*lastProgress) {
			d := p.Date
			lastProgress = &d
		}
	}
	m.TotalPagesMemorized = calc.Round2(m.TotalPagesMemorized)
	m.PagesThisWeek = calc.Round2(m.PagesThisWeek)
	m.PagesThisMonth = calc.Round2(m.PagesThisMonth)

	// Pace over the enrollment span, never dividing by zero.
	daysEnrolled := int(now.Sub(student.EnrollmentDate).Hours() / 24)
	if daysEnrolled < 1 {
		daysEnrolled = 1
	}
	m.PagesPerDay = calc.AveragePerDay(m.TotalPagesMemorized, daysEnrolled)
	m.PagesPerWeek = calc.AveragePerWeek(m.TotalPagesMemorized, daysEnrolled)

	// Active revisions use a fixed trailing 90 days, not the requested window.
	revisionCutoff := now.AddDate(0, 0, -activeRevisionWindowDays)
	for _, rev := range revisions {
		if !rev.Date.Before(revisionCutoff) {
			m.ActiveRevisionCount++
		}
	}

	m.RetentionScore = calc.RetentionScore(revisions, now, retentionWindowDays)
	m.AccuracyRate = accuracyRate(progress, window)
	m.CurrentJuzPercentage, m.TotalCompletionPercentage = calc.JuzCompletion(student.CurrentJuz, student.CompletedJuz)

	stagnation := calc.CheckStagnation(lastProgress, now, s.cfg.StagnationDays)
	m.IsStagnant = stagnation.IsStagnant
	m.DaysSinceLastProgress = stagnation.Days

	s.fillAttendance(m, attendance, window)
	m.HomeworkCompletionRate = homeworkCompletion(data, studentID)
	m.ConsistencyScore = consistency(progress, now)
	m.TeacherEffortRating = teacherEffort(progress, attendance, window)

	paceDeclined := weeklyPaceDeclined(progress, now, s.cfg.PaceDropPct)

	m.AtRiskScore = calc.CompositeRiskScore(calc.RiskFactors{
		AttendanceRate: &m.AttendanceRate,
		PagesPerWeek:   &m.PagesPerWeek,
		AccuracyRate:   &m.AccuracyRate,
		Consistency:    &m.ConsistencyScore,
		StagnationDays: &m.DaysSinceLastProgress,
	})
	m.BurnoutFlag = m.IsStagnant || m.ConsistencyScore < burnoutConsistencyFloor || paceDeclined
	m.DropOffProbability = calc.DropOffProbability(m.AtRiskScore, calc.DropOffSignals{
		ConsecutiveAbsences: m.ConsecutiveAbsences,
		RecentDecline:       paceDeclined,
		LowEngagement:       m.ConsistencyScore < lowEngagementThreshold,
	})

	return m, nil
}

// ComputeAll derives metrics for every active student. Per-student failures
// are logged and skipped so one bad record never blanks the whole batch.
func (s *StudentMetricsService) ComputeAll(data *models.AnalyticsDataContext, window models.TimeRange) []models.StudentMetrics {
	active := data.ActiveStudents()
	results := make([]models.StudentMetrics, 0, len(active))
	for _, student := range active {
		m, err := s.Compute(data, student.ID, window)
		if err != nil {
			s.logger.Warn("student metrics skipped",
				zap.String("student_id", student.ID),
				zap.Error(err))
			continue
		}
		results = append(results, *m)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].StudentID < results[j].StudentID })
	return results
}

func (s *StudentMetricsService) fillAttendance(m *models.StudentMetrics, attendance []models.AttendanceRecord, window models.TimeRange) {
	var total, attended int
	absentByDay := make(map[string]bool)
	var dates []time.Time
	for _, rec := range attendance {
		if !window.Contains(rec.Date) {
			continue
		}
		total++
		dates = append(dates, rec.Date)
		switch rec.Status {
		case models.AttendancePresent:
			attended++
		case models.AttendanceLate:
			attended++
			m.LateCount++
		case models.AttendanceAbsent:
			absentByDay[rec.Date.Format("2006-01-02")] = true
			if isExcusedAbsence(rec.Notes) {
				m.ExcusedAbsences++
			} else {
				m.UnexcusedAbsences++
			}
		}
	}
	m.AttendanceRate = calc.Percentage(float64(attended), float64(total))
	m.ConsecutiveAbsences = calc.ConsecutiveStreak(dates, func(t time.Time) bool {
		return absentByDay[t.Format("2006-01-02")]
	}, false)
}

// isExcusedAbsence classifies an absence from free-text notes. A substring
// heuristic until a structured field exists; keep callers pointed here.
func isExcusedAbsence(notes *string) bool {
	if notes == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*notes), "excused")
}

func accuracyRate(progress []models.ProgressEntry, window models.TimeRange) float64 {
	var totalMistakes float64
	var count int
	for _, p := range progress {
		if !window.Contains(p.Date) {
			continue
		}
		if p.MistakeCount != nil {
			totalMistakes += float64(*p.MistakeCount)
			count++
			continue
		}
		if estimate, ok := ratingMistakeEstimates[p.Rating]; ok {
			totalMistakes += estimate
			count++
		}
	}
	if count == 0 {
		return 100
	}
	mean := totalMistakes / float64(count)
	return calc.Round2(math.Max(0, 100-math.Min(100, mean*5)))
}

func homeworkCompletion(data *models.AnalyticsDataContext, studentID string) float64 {
	var assigned, completed int
	for _, a := range data.Assignments {
		if a.StudentID == studentID {
			assigned++
		}
	}
	for _, sub := range data.Submissions {
		if sub.StudentID != studentID {
			continue
		}
		if sub.Status == models.SubmissionSubmitted || sub.Status == models.SubmissionGraded {
			completed++
		}
	}
	return calc.Percentage(float64(completed), float64(assigned))
}

func consistency(progress []models.ProgressEntry, now time.Time) float64 {
	cutoff := now.AddDate(0, 0, -consistencyPeriodDays)
	var dates []time.Time
	for _, p := range progress {
		if !p.Date.Before(cutoff) && !p.Date.After(now) {
			dates = append(dates, p.Date)
		}
	}
	return calc.ConsistencyScore(dates, expectedSessionsPerWeek, consistencyPeriodDays)
}

func teacherEffort(progress []models.ProgressEntry, attendance []models.AttendanceRecord, window models.TimeRange) float64 {
	var interactions int
	for _, p := range progress {
		if window.Contains(p.Date) {
			interactions++
		}
	}
	for _, a := range attendance {
		if window.Contains(a.Date) {
			interactions++
		}
	}
	expected := float64(window.Days()) / 7 * expectedSessionsPerWeek
	if expected <= 0 {
		return 0
	}
	return math.Min(100, calc.Percentage(float64(interactions), expected))
}

// weeklyPaceDeclined compares the trailing week's pages against the week
// before it.
func weeklyPaceDeclined(progress []models.ProgressEntry, now time.Time, dropPct float64) bool {
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)
	var current, prior float64
	for _, p := range progress {
		switch {
		case !p.Date.Before(weekAgo) && !p.Date.After(now):
			current += p.PagesMemorized
		case !p.Date.Before(twoWeeksAgo) && p.Date.Before(weekAgo):
			prior += p.PagesMemorized
		}
	}
	if prior <= 0 {
		return false
	}
	return (prior-current)/prior*100 >= dropPct
}

func filterProgress(entries []models.ProgressEntry, studentID string) []models.ProgressEntry {
	out := make([]models.ProgressEntry, 0, len(entries))
	for _, e := range entries {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out
}

func filterAttendance(records []models.AttendanceRecord, studentID string) []models.AttendanceRecord {
	out := make([]models.AttendanceRecord, 0, len(records))
	for _, r := range records {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out
}

func filterRevisions(revisions []models.JuzRevision, studentID string) []models.JuzRevision {
	out := make([]models.JuzRevision, 0, len(revisions))
	for _, r := range revisions {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out
}
