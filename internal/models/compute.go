package models

import (
	"math"
	"sort"
)

// RoundScore rounds a raw 0..20 score to the stored integer grade: round
// half up on the first decimal. 13.5 becomes 14, 13.49 becomes 13.
func RoundScore(raw float64) int {
	floor := math.Floor(raw)
	if raw-floor >= 0.5 {
		return int(floor) + 1
	}
	return int(floor)
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AttendancePercentage computes the cached attendance figure from a
// student's records: attended sessions (PRESENT or JUSTIFIED) over total
// recorded sessions, as a percentage rounded to two decimals. No records
// means 0.
func AttendancePercentage(records []AttendanceRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	attended := 0
	for _, rec := range records {
		if rec.State.Attended() {
			attended++
		}
	}
	return Round2(float64(attended) / float64(len(records)) * 100)
}

// FinalGrade computes the weighted final grade from stored (already
// rounded) scores: sum of score x weight / 100 across the group's
// evaluations, rounded to two decimals. Returns nil when the group has no
// evaluations. An evaluation with no grade record contributes zero.
func FinalGrade(grades []GradeRecord, evaluations []Evaluation) *float64 {
	if len(evaluations) == 0 {
		return nil
	}
	byEvaluation := make(map[string]int, len(grades))
	for _, g := range grades {
		byEvaluation[g.EvaluationID] = g.Score
	}
	total := 0.0
	for _, ev := range evaluations {
		total += float64(byEvaluation[ev.ID]) * float64(ev.Weight) / 100
	}
	final := Round2(total)
	return &final
}

// UnitSummaries computes each curricular unit's weighted grade from the
// evaluations that already have a recorded score: sum of score x weight /
// 100, rounded to two decimals. Units with nothing graded yet are left
// out so a blank unit does not read as a zero.
func UnitSummaries(grades []GradeRecord, evaluations []Evaluation) []UnitGradeSummary {
	byEvaluation := make(map[string]int, len(grades))
	for _, g := range grades {
		byEvaluation[g.EvaluationID] = g.Score
	}
	sums := make(map[int]float64)
	gradedWeight := make(map[int]int)
	for _, ev := range evaluations {
		score, ok := byEvaluation[ev.ID]
		if !ok {
			continue
		}
		sums[ev.Unit] += float64(score) * float64(ev.Weight) / 100
		gradedWeight[ev.Unit] += ev.Weight
	}
	units := make([]int, 0, len(sums))
	for unit := range sums {
		if gradedWeight[unit] > 0 {
			units = append(units, unit)
		}
	}
	sort.Ints(units)
	summaries := make([]UnitGradeSummary, 0, len(units))
	for _, unit := range units {
		summaries = append(summaries, UnitGradeSummary{Unit: unit, WeightedGrade: Round2(sums[unit])})
	}
	return summaries
}

// AttendanceRiskLevel buckets an attendance percentage for the student
// dashboard. The thresholds default to 70 for approved standing and 30
// for at-risk.
func AttendanceRiskLevel(percentage, approvedPct, riskPct float64) string {
	switch {
	case percentage >= approvedPct:
		return RiskApproved
	case percentage >= riskPct:
		return RiskAtRisk
	default:
		return RiskCritical
	}
}

// FillLevel buckets a lab group's postulation count against its capacity.
func FillLevel(postulants, capacity int) string {
	if postulants == 0 {
		return FillEmpty
	}
	if capacity <= 0 {
		return FillExceeded
	}
	ratio := float64(postulants) / float64(capacity)
	switch {
	case ratio > 1:
		return FillExceeded
	case ratio >= 0.8:
		return FillAlmostFull
	default:
		return FillNormal
	}
}

// SaturationLevel buckets a room's booked hours against available hours.
func SaturationLevel(saturation float64) string {
	switch {
	case saturation >= 0.9:
		return SaturationFull
	case saturation >= 0.5:
		return SaturationOptimal
	default:
		return SaturationLow
	}
}
