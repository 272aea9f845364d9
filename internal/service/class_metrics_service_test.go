package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
)

func TestClassMetricsCapacityUtilization(t *testing.T) {
	svc := NewClassMetricsService(nil)
	roster := make([]string, 19)
	students := make([]models.Student, 19)
	for i := range roster {
		id := "student-" + string(rune('a'+i))
		roster[i] = id
		students[i] = models.Student{ID: id, Status: models.StatusActive}
	}
	data := &models.AnalyticsDataContext{
		Students: students,
		Classes: []models.Class{{
			ID:              "class-1",
			Name:            "Hifz A",
			Status:          models.StatusActive,
			Capacity:        20,
			CurrentStudents: roster,
		}},
	}

	results := svc.ComputeAll(data, nil)
	require.Len(t, results, 1)
	assert.InDelta(t, 95.0, results[0].CapacityUtilization, 0.001)
	assert.Zero(t, results[0].DropOffRate)
}

func TestClassMetricsZeroCapacityGuard(t *testing.T) {
	svc := NewClassMetricsService(nil)
	data := &models.AnalyticsDataContext{
		Classes: []models.Class{{
			ID:              "class-1",
			Status:          models.StatusActive,
			Capacity:        0,
			CurrentStudents: []string{"student-1"},
		}},
	}

	results := svc.ComputeAll(data, nil)
	require.Len(t, results, 1)
	assert.InDelta(t, 100.0, results[0].CapacityUtilization, 0.001)
}

func TestClassMetricsAveragesAndVariance(t *testing.T) {
	svc := NewClassMetricsService(nil)
	data := &models.AnalyticsDataContext{
		Students: []models.Student{
			{ID: "student-1", Status: models.StatusActive},
			{ID: "student-2", Status: models.StatusActive},
		},
		Classes: []models.Class{{
			ID:              "class-1",
			Status:          models.StatusActive,
			Capacity:        10,
			CurrentStudents: []string{"student-1", "student-2"},
		}},
	}
	studentMetrics := map[string]models.StudentMetrics{
		"student-1": {StudentID: "student-1", TotalPagesMemorized: 100, AttendanceRate: 90, PagesPerWeek: 2},
		"student-2": {StudentID: "student-2", TotalPagesMemorized: 50, AttendanceRate: 70, PagesPerWeek: 6},
	}

	results := svc.ComputeAll(data, studentMetrics)
	require.Len(t, results, 1)
	assert.InDelta(t, 75.0, results[0].AvgProgressPerStudent, 0.001)
	assert.InDelta(t, 80.0, results[0].AttendanceRate, 0.001)
	// Population stddev of {2, 6}.
	assert.InDelta(t, 2.0, results[0].PaceVariance, 0.001)
}

func TestClassMetricsDropOffCountsNonActiveRoster(t *testing.T) {
	svc := NewClassMetricsService(nil)
	data := &models.AnalyticsDataContext{
		Students: []models.Student{
			{ID: "student-1", Status: models.StatusActive},
			{ID: "student-2", Status: models.StatusWithdrawn},
			{ID: "student-3", Status: models.StatusInactive},
			{ID: "student-4", Status: models.StatusActive},
		},
		Classes: []models.Class{{
			ID:              "class-1",
			Status:          models.StatusActive,
			Capacity:        10,
			CurrentStudents: []string{"student-1", "student-2", "student-3", "student-4"},
		}},
	}

	results := svc.ComputeAll(data, nil)
	require.Len(t, results, 1)
	assert.InDelta(t, 50.0, results[0].DropOffRate, 0.001)
}

func TestClassMetricsSkipsInactiveClassesAndSorts(t *testing.T) {
	svc := NewClassMetricsService(nil)
	data := &models.AnalyticsDataContext{
		Classes: []models.Class{
			{ID: "class-b", Status: models.StatusActive, Capacity: 10},
			{ID: "class-a", Status: models.StatusActive, Capacity: 10},
			{ID: "class-z", Status: models.StatusInactive, Capacity: 10},
		},
	}

	results := svc.ComputeAll(data, nil)
	require.Len(t, results, 2)
	assert.Equal(t, "class-a", results[0].ClassID)
	assert.Equal(t, "class-b", results[1].ClassID)
}
