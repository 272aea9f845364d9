package calc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
)

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, Percentage(0, 0))
	assert.Equal(t, 0.0, Percentage(5, 0))
	assert.Equal(t, 50.0, Percentage(5, 10))
	assert.Equal(t, 33.33, Percentage(1, 3))
}

func TestAverages(t *testing.T) {
	assert.Equal(t, 0.0, AveragePerDay(10, 0))
	assert.Equal(t, 0.5, AveragePerDay(35, 70))
	assert.Equal(t, 3.5, AveragePerWeek(35, 70))
	// spans under a week still divide by one week
	assert.Equal(t, 12.0, AveragePerWeek(12, 3))
}

func TestStandardDeviation(t *testing.T) {
	assert.Equal(t, 0.0, StandardDeviation(nil))
	assert.Equal(t, 0.0, StandardDeviation([]float64{4, 4, 4}))
	assert.InDelta(t, 2.0, StandardDeviation([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}

func TestConsecutiveStreak(t *testing.T) {
	day := func(offset int) time.Time {
		return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}
	absent := map[string]bool{
		day(0).Format("2006-01-02"): true,
		day(1).Format("2006-01-02"): true,
		day(2).Format("2006-01-02"): false,
		day(3).Format("2006-01-02"): true,
		day(4).Format("2006-01-02"): true,
		day(5).Format("2006-01-02"): true,
	}
	dates := []time.Time{day(3), day(0), day(5), day(2), day(4), day(1)}
	pred := func(t time.Time) bool { return absent[t.Format("2006-01-02")] }

	assert.Equal(t, 3, ConsecutiveStreak(dates, pred, false))
	assert.Equal(t, 3, ConsecutiveStreak(dates, pred, true))
	assert.Equal(t, 0, ConsecutiveStreak(nil, pred, false))
}

func TestRetentionScore(t *testing.T) {
	now := time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC)
	revisions := []models.JuzRevision{
		{JuzNumber: 1, Date: now.AddDate(0, 0, -2), Rating: models.RatingExcellent},
		{JuzNumber: 2, Date: now.AddDate(0, 0, -5), Rating: models.RatingGood},
		{JuzNumber: 3, Date: now.AddDate(0, 0, -60), Rating: models.RatingHorrible}, // outside window
	}
	// mean of 5 and 4 over max 5 => 90
	assert.Equal(t, 90.0, RetentionScore(revisions, now, 30))
	assert.Equal(t, 0.0, RetentionScore(nil, now, 30))
}

func TestConsistencyScore(t *testing.T) {
	assert.Equal(t, 0.0, ConsistencyScore(nil, 5, 30))

	// every day for 30 days at expected 5/week caps at 100
	var daily []time.Time
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		daily = append(daily, start.AddDate(0, 0, i))
	}
	assert.Equal(t, 100.0, ConsistencyScore(daily, 5, 30))

	// 10 distinct days out of floor(5/7*30)=21 expected => 48
	assert.Equal(t, 48.0, ConsistencyScore(daily[:10], 5, 30))
}

func TestCompositeRiskScore(t *testing.T) {
	att, pace, acc, cons := 100.0, 10.0, 100.0, 100.0
	stag := 0
	perfect := RiskFactors{AttendanceRate: &att, PagesPerWeek: &pace, AccuracyRate: &acc, Consistency: &cons, StagnationDays: &stag}
	assert.Equal(t, 0.0, CompositeRiskScore(perfect))

	attBad, paceBad, accBad, consBad := 0.0, 0.0, 0.0, 0.0
	stagBad := 60
	worst := RiskFactors{AttendanceRate: &attBad, PagesPerWeek: &paceBad, AccuracyRate: &accBad, Consistency: &consBad, StagnationDays: &stagBad}
	assert.Equal(t, 100.0, CompositeRiskScore(worst))

	// missing factors contribute nothing
	assert.Equal(t, 0.0, CompositeRiskScore(RiskFactors{}))

	half := 50.0
	score := CompositeRiskScore(RiskFactors{AttendanceRate: &half})
	assert.Equal(t, 12.5, score)
}

func TestDropOffProbability(t *testing.T) {
	assert.Equal(t, 40.0, DropOffProbability(40, DropOffSignals{}))
	assert.Equal(t, 60.0, DropOffProbability(40, DropOffSignals{ConsecutiveAbsences: 5}))
	assert.Equal(t, 85.0, DropOffProbability(40, DropOffSignals{ConsecutiveAbsences: 6, RecentDecline: true, LowEngagement: true}))
	assert.Equal(t, 100.0, DropOffProbability(95, DropOffSignals{RecentDecline: true}))
}

func TestCheckStagnation(t *testing.T) {
	now := time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC)

	status := CheckStagnation(nil, now, 7)
	assert.True(t, status.IsStagnant)
	assert.Equal(t, 999, status.Days)

	tenDaysAgo := now.AddDate(0, 0, -10)
	status = CheckStagnation(&tenDaysAgo, now, 7)
	assert.True(t, status.IsStagnant)
	assert.Equal(t, 10, status.Days)

	twoDaysAgo := now.AddDate(0, 0, -2)
	status = CheckStagnation(&twoDaysAgo, now, 7)
	assert.False(t, status.IsStagnant)
	assert.Equal(t, 2, status.Days)
}

func TestJuzCompletion(t *testing.T) {
	current := 16
	currentPct, totalPct := JuzCompletion(&current, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15})
	assert.Equal(t, 50.0, currentPct)
	assert.Equal(t, 50.0, totalPct)

	currentPct, totalPct = JuzCompletion(nil, nil)
	assert.Equal(t, 0.0, currentPct)
	assert.Equal(t, 0.0, totalPct)

	invalid := 31
	currentPct, _ = JuzCompletion(&invalid, nil)
	assert.Equal(t, 0.0, currentPct)
}
