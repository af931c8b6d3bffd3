package service

import (
	"fmt"

	"github.com/pcos-screening-server/internal/domain"
)

// androgenSign is one self-reported hyperandrogenism sign.
type androgenSign struct {
	evidence string
	active   func(rec domain.SymptomRecord) bool
}

var androgenSigns = []androgenSign{
	{evidence: "Acne", active: func(r domain.SymptomRecord) bool { return r.Acne.IsTrue() }},
	{evidence: "Hair loss (scalp thinning)", active: func(r domain.SymptomRecord) bool { return r.HairLoss.IsTrue() }},
	{evidence: "Facial or body hair growth (hirsutism)", active: func(r domain.SymptomRecord) bool { return r.FacialHairGrowth.IsTrue() }},
	{evidence: "Dark skin patches (acanthosis nigricans)", active: func(r domain.SymptomRecord) bool { return r.DarkPatches.IsTrue() }},
}

// EvaluateCriteria computes the three Rotterdam-proxy criteria.
// Ovulatory dysfunction only counts for chronic irregularity.
func EvaluateCriteria(rec domain.SymptomRecord, screen DifferentialScreen) domain.CriteriaSet {
	return domain.CriteriaSet{
		Ovulatory:        evaluateOvulatory(rec, screen.IsChronic),
		Hyperandrogenism: evaluateHyperandrogenism(rec),
		Metabolic:        evaluateMetabolic(rec),
	}
}

func evaluateOvulatory(rec domain.SymptomRecord, chronic bool) domain.Criterion {
	c := domain.Criterion{Name: domain.CriterionOvulatoryDysfunction}
	var evidence []string
	if rec.CycleGapDays.GreaterThan(cycleGapThresholdDays) {
		evidence = append(evidence, fmt.Sprintf("Cycle gap of %s days (over %s)", rec.CycleGapDays, formatNumber(cycleGapThresholdDays)))
	}
	if rec.LongestCycleGapLastYear.GreaterThan(longestCycleGapThresholdDay) {
		evidence = append(evidence, fmt.Sprintf("Longest cycle gap last year of %s days (over %s)", rec.LongestCycleGapLastYear, formatNumber(longestCycleGapThresholdDay)))
	}
	if rec.PeriodsRegular.IsFalse() {
		evidence = append(evidence, "Irregular periods reported")
	}
	if len(evidence) > 0 && chronic {
		c.Met = true
		c.Evidence = evidence
	}
	return c
}

func evaluateHyperandrogenism(rec domain.SymptomRecord) domain.Criterion {
	c := domain.Criterion{Name: domain.CriterionHyperandrogenism}
	for _, sign := range androgenSigns {
		if sign.active(rec) {
			c.Evidence = append(c.Evidence, sign.evidence)
		}
	}
	c.Met = len(c.Evidence) > 0
	return c
}

func evaluateMetabolic(rec domain.SymptomRecord) domain.Criterion {
	c := domain.Criterion{Name: domain.CriterionMetabolicProxy}
	if rec.BMI.AtLeast(metabolicBMIThreshold) {
		c.Evidence = append(c.Evidence, fmt.Sprintf("BMI of %s (%s or higher)", rec.BMI, formatNumber(metabolicBMIThreshold)))
	}
	if rec.WaistCM.GreaterThan(waistThresholdCM) {
		c.Evidence = append(c.Evidence, fmt.Sprintf("Waist of %s cm (over %s)", rec.WaistCM, formatNumber(waistThresholdCM)))
	}
	if rec.FamilyDiabetesHistory.IsTrue() {
		c.Evidence = append(c.Evidence, "Family history of diabetes")
	}
	c.Met = len(c.Evidence) > 0
	return c
}

func formatNumber(v float64) string {
	return domain.FloatOf(v).String()
}
