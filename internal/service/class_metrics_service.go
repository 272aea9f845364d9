package service

import (
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/tahfiz-analytics/internal/calc"
	"github.com/noah-isme/tahfiz-analytics/internal/models"
)

// ClassMetricsService derives per-class indicators from the snapshot and the
// already-computed student metrics.
type ClassMetricsService struct {
	logger *zap.Logger
}

// NewClassMetricsService constructs the calculator.
func NewClassMetricsService(logger *zap.Logger) *ClassMetricsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassMetricsService{logger: logger}
}

// ComputeAll derives metrics for every active class.
func (s *ClassMetricsService) ComputeAll(data *models.AnalyticsDataContext, studentMetrics map[string]models.StudentMetrics) []models.ClassMetrics {
	classes := data.ActiveClasses()
	results := make([]models.ClassMetrics, 0, len(classes))
	for _, class := range classes {
		results = append(results, s.compute(data, class, studentMetrics))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ClassID < results[j].ClassID })
	return results
}

func (s *ClassMetricsService) compute(data *models.AnalyticsDataContext, class models.Class, studentMetrics map[string]models.StudentMetrics) models.ClassMetrics {
	m := models.ClassMetrics{ClassID: class.ID, ClassName: class.Name}

	var pagesTotal, attendanceTotal float64
	var withMetrics int
	var paces []float64
	var activeRoster int
	for _, id := range class.CurrentStudents {
		if student, ok := data.StudentByID(id); ok && student.Status == models.StatusActive {
			activeRoster++
		}
		sm, ok := studentMetrics[id]
		if !ok {
			continue
		}
		withMetrics++
		pagesTotal += sm.TotalPagesMemorized
		attendanceTotal += sm.AttendanceRate
		paces = append(paces, sm.PagesPerWeek)
	}

	if withMetrics > 0 {
		m.AvgProgressPerStudent = calc.Round2(pagesTotal / float64(withMetrics))
		m.AttendanceRate = calc.Round2(attendanceTotal / float64(withMetrics))
	}
	m.PaceVariance = calc.Round2(calc.StandardDeviation(paces))

	capacity := class.Capacity
	if capacity <= 0 {
		capacity = 1
	}
	roster := len(class.CurrentStudents)
	m.CapacityUtilization = calc.Percentage(float64(roster), float64(capacity))
	m.DropOffRate = calc.Percentage(float64(roster-activeRoster), float64(roster))

	return m
}
