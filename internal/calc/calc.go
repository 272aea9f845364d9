// Package calc provides the pure statistical and date-arithmetic primitives
// shared by every metrics calculator. No function here performs I/O or keeps
// state; callers pass the reference time explicitly.
package calc

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/tahfiz-analytics/internal/models"
)

// TotalJuz is the number of standard Quran sections used as the memorization goal.
const TotalJuz = 30

// Round2 rounds to two decimal places.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// Percentage returns part/whole as a percentage rounded to two decimals.
// Zero whole yields zero rather than dividing.
func Percentage(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return Round2(part / whole * 100)
}

// AveragePerDay averages a total over a day count.
func AveragePerDay(total float64, days int) float64 {
	if days <= 0 {
		return 0
	}
	return Round2(total / float64(days))
}

// WeeksIn converts a day span to whole weeks, minimum 1.
func WeeksIn(days int) int {
	weeks := days / 7
	if weeks < 1 {
		return 1
	}
	return weeks
}

// AveragePerWeek averages a total over the whole weeks contained in a day span.
func AveragePerWeek(total float64, days int) float64 {
	if days <= 0 {
		return 0
	}
	return Round2(total / float64(WeeksIn(days)))
}

// StandardDeviation computes the population standard deviation. Empty input
// yields zero.
func StandardDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// ConsecutiveStreak sorts the dates ascending (descending when reverse is set)
// and returns the longest run of dates for which the predicate holds. The run
// resets whenever the predicate fails.
func ConsecutiveStreak(dates []time.Time, predicate func(time.Time) bool, reverse bool) int {
	if len(dates) == 0 {
		return 0
	}
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool {
		if reverse {
			return sorted[i].After(sorted[j])
		}
		return sorted[i].Before(sorted[j])
	})

	var current, max int
	for _, d := range sorted {
		if predicate(d) {
			current++
			if current > max {
				max = current
			}
		} else {
			current = 0
		}
	}
	return max
}

var ratingScores = map[string]float64{
	models.RatingExcellent: 5,
	models.RatingGood:      4,
	models.RatingAverage:   3,
	models.RatingNeedsWork: 2,
	models.RatingHorrible:  1,
}

// RetentionScore maps revision quality ratings inside the trailing window onto
// a 0-100 score. No revisions in the window scores zero.
func RetentionScore(revisions []models.JuzRevision, now time.Time, recentDays int) float64 {
	cutoff := now.AddDate(0, 0, -recentDays)
	var total float64
	var count int
	for _, rev := range revisions {
		if rev.Date.Before(cutoff) {
			continue
		}
		score, ok := ratingScores[rev.Rating]
		if !ok {
			continue
		}
		total += score
		count++
	}
	if count == 0 {
		return 0
	}
	mean := total / float64(count)
	return math.Round(mean / 5 * 100)
}

// ConsistencyScore compares distinct practice days against the expected
// cadence over the period, capped at 100.
func ConsistencyScore(dates []time.Time, expectedPerWeek float64, periodDays int) float64 {
	if len(dates) == 0 {
		return 0
	}
	expected := math.Floor(expectedPerWeek / 7 * float64(periodDays))
	if expected <= 0 {
		return 0
	}
	days := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		days[d.Format("2006-01-02")] = struct{}{}
	}
	score := math.Round(float64(len(days)) / expected * 100)
	return math.Min(100, score)
}

// RiskFactors carries the composite score inputs. Nil fields are treated as
// missing and contribute nothing to the blend.
type RiskFactors struct {
	AttendanceRate *float64
	PagesPerWeek   *float64
	AccuracyRate   *float64
	Consistency    *float64
	StagnationDays *int
}

// CompositeRiskScore blends the five weighted risk factors into a 0-100 index.
func CompositeRiskScore(f RiskFactors) float64 {
	var score float64
	if f.AttendanceRate != nil {
		score += 0.25 * (100 - *f.AttendanceRate)
	}
	if f.PagesPerWeek != nil {
		score += 0.25 * (100 - math.Min(100, *f.PagesPerWeek*10))
	}
	if f.AccuracyRate != nil {
		score += 0.20 * (100 - *f.AccuracyRate)
	}
	if f.Consistency != nil {
		score += 0.15 * (100 - *f.Consistency)
	}
	if f.StagnationDays != nil {
		score += 0.15 * math.Min(100, float64(*f.StagnationDays)/30*100)
	}
	return Round2(math.Max(0, math.Min(100, score)))
}

// DropOffSignals are the additive modifiers on top of the composite risk score.
type DropOffSignals struct {
	ConsecutiveAbsences int
	RecentDecline       bool
	LowEngagement       bool
}

// DropOffProbability starts from the risk score and adds fixed penalties for
// each signal, clamped to 100.
func DropOffProbability(riskScore float64, s DropOffSignals) float64 {
	probability := riskScore
	if s.ConsecutiveAbsences >= 5 {
		probability += 20
	}
	if s.RecentDecline {
		probability += 15
	}
	if s.LowEngagement {
		probability += 10
	}
	return Round2(math.Min(100, probability))
}

// StagnationStatus reports whether a student has stalled and for how long.
type StagnationStatus struct {
	IsStagnant bool `json:"is_stagnant"`
	Days       int  `json:"days"`
}

// CheckStagnation compares the last progress date against the threshold. A
// student with no recorded progress at all is stagnant with the sentinel 999.
func CheckStagnation(lastProgress *time.Time, now time.Time, thresholdDays int) StagnationStatus {
	if lastProgress == nil {
		return StagnationStatus{IsStagnant: true, Days: 999}
	}
	days := int(now.Sub(*lastProgress).Hours() / 24)
	return StagnationStatus{IsStagnant: days >= thresholdDays, Days: days}
}

// JuzCompletion derives completion percentages from the completed list and the
// Juz currently in progress. The current-Juz figure is a coarse placeholder:
// 50 whenever a valid current Juz is set, pending true sub-Juz tracking.
func JuzCompletion(currentJuz *int, completedJuz []int) (currentPct, totalPct float64) {
	totalPct = Percentage(float64(len(completedJuz)), TotalJuz)
	if currentJuz != nil && *currentJuz >= 1 && *currentJuz <= TotalJuz {
		currentPct = 50
	}
	return currentPct, totalPct
}
