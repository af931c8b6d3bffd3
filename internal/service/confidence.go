package service

import (
	"math"
)

// ScorePositiveConfidence scores the PCOS-positive branch. The criteria
// base is capped at 85 and discounted by completeness: a record with no
// checklist fields keeps 80% of the base, a complete record keeps all of it.
// The score is rounded to one decimal and never exceeds 85.
func ScorePositiveConfidence(criteriaMet, dataQuality int) float64 {
	base := math.Min(positiveBaseConfidence+positivePerCriterion*float64(criteriaMet), positiveConfidenceCap)
	dq := math.Max(0, math.Min(100, float64(dataQuality)))
	factor := (completenessFloorPct + (100-completenessFloorPct)*dq/100) / 100
	return clampConfidence(roundTenth(base*factor), positiveConfidenceCap)
}

// scoreComplexConfidence applies the complex-case cap over the positive score.
func scoreComplexConfidence(criteriaMet, dataQuality int) float64 {
	return math.Min(ScorePositiveConfidence(criteriaMet, dataQuality), complexCaseConfidenceCap)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func clampConfidence(v, ceiling float64) float64 {
	return math.Max(0, math.Min(v, ceiling))
}
