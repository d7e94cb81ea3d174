package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundScore(t *testing.T) {
	cases := []struct {
		raw  float64
		want int
	}{
		{13.5, 14},
		{13.49, 13},
		{13.0, 13},
		{0, 0},
		{19.5, 20},
		{19.49, 19},
		{20, 20},
		{0.5, 1},
		{0.49, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RoundScore(tc.raw), "raw=%v", tc.raw)
	}
}

func TestAttendancePercentage(t *testing.T) {
	t.Run("no records yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, AttendancePercentage(nil))
	})

	t.Run("justified counts as attended", func(t *testing.T) {
		records := make([]AttendanceRecord, 0, 12)
		for i := 0; i < 5; i++ {
			records = append(records, AttendanceRecord{State: AttendancePresent})
		}
		for i := 0; i < 2; i++ {
			records = append(records, AttendanceRecord{State: AttendanceJustified})
		}
		for i := 0; i < 5; i++ {
			records = append(records, AttendanceRecord{State: AttendanceAbsent})
		}
		// (5 + 2) / 12
		assert.Equal(t, 58.33, AttendancePercentage(records))
	})

	t.Run("all present", func(t *testing.T) {
		records := []AttendanceRecord{{State: AttendancePresent}, {State: AttendancePresent}}
		assert.Equal(t, 100.0, AttendancePercentage(records))
	})
}

func TestFinalGrade(t *testing.T) {
	evalA := Evaluation{ID: "eval-a", Weight: 50}
	evalB := Evaluation{ID: "eval-b", Weight: 50}

	t.Run("no evaluations yields nil", func(t *testing.T) {
		assert.Nil(t, FinalGrade(nil, nil))
	})

	t.Run("missing grade contributes zero", func(t *testing.T) {
		grades := []GradeRecord{{EvaluationID: "eval-a", Score: 16}}
		final := FinalGrade(grades, []Evaluation{evalA, evalB})
		require.NotNil(t, final)
		// 16 * 50/100 + 0 * 50/100
		assert.Equal(t, 8.0, *final)
	})

	t.Run("weighted sum", func(t *testing.T) {
		grades := []GradeRecord{
			{EvaluationID: "eval-a", Score: 14},
			{EvaluationID: "eval-b", Score: 17},
		}
		final := FinalGrade(grades, []Evaluation{evalA, evalB})
		require.NotNil(t, final)
		assert.Equal(t, 15.5, *final)
	})
}

func TestUnitSummaries(t *testing.T) {
	unit1a := Evaluation{ID: "eval-a", Unit: 1, Weight: 50}
	unit1b := Evaluation{ID: "eval-b", Unit: 1, Weight: 50}
	unit2 := Evaluation{ID: "eval-c", Unit: 2, Weight: 100}

	t.Run("no grades yields no units", func(t *testing.T) {
		assert.Empty(t, UnitSummaries(nil, []Evaluation{unit1a, unit2}))
	})

	t.Run("ungraded evaluations do not drag the unit down", func(t *testing.T) {
		grades := []GradeRecord{{EvaluationID: "eval-a", Score: 16}}
		summaries := UnitSummaries(grades, []Evaluation{unit1a, unit1b, unit2})
		require.Len(t, summaries, 1)
		assert.Equal(t, 1, summaries[0].Unit)
		// 16 * 50/100, eval-b and unit 2 are not graded yet
		assert.Equal(t, 8.0, summaries[0].WeightedGrade)
	})

	t.Run("units come back in order", func(t *testing.T) {
		grades := []GradeRecord{
			{EvaluationID: "eval-c", Score: 12},
			{EvaluationID: "eval-a", Score: 14},
			{EvaluationID: "eval-b", Score: 18},
		}
		summaries := UnitSummaries(grades, []Evaluation{unit1a, unit1b, unit2})
		require.Len(t, summaries, 2)
		assert.Equal(t, 1, summaries[0].Unit)
		assert.Equal(t, 16.0, summaries[0].WeightedGrade)
		assert.Equal(t, 2, summaries[1].Unit)
		assert.Equal(t, 12.0, summaries[1].WeightedGrade)
	})
}

func TestAttendanceRiskLevel(t *testing.T) {
	assert.Equal(t, RiskApproved, AttendanceRiskLevel(70, 70, 30))
	assert.Equal(t, RiskApproved, AttendanceRiskLevel(92.5, 70, 30))
	assert.Equal(t, RiskAtRisk, AttendanceRiskLevel(69.99, 70, 30))
	assert.Equal(t, RiskAtRisk, AttendanceRiskLevel(30, 70, 30))
	assert.Equal(t, RiskCritical, AttendanceRiskLevel(29.99, 70, 30))
	assert.Equal(t, RiskCritical, AttendanceRiskLevel(0, 70, 30))
}

func TestFillLevel(t *testing.T) {
	assert.Equal(t, FillEmpty, FillLevel(0, 20))
	assert.Equal(t, FillNormal, FillLevel(10, 20))
	assert.Equal(t, FillAlmostFull, FillLevel(16, 20), "80 percent is almost full")
	assert.Equal(t, FillAlmostFull, FillLevel(20, 20), "exactly full is almost full, not exceeded")
	assert.Equal(t, FillExceeded, FillLevel(21, 20))
}

func TestSaturationLevel(t *testing.T) {
	assert.Equal(t, SaturationFull, SaturationLevel(0.95))
	assert.Equal(t, SaturationFull, SaturationLevel(0.9))
	assert.Equal(t, SaturationOptimal, SaturationLevel(0.6))
	assert.Equal(t, SaturationLow, SaturationLevel(0.2))
}
