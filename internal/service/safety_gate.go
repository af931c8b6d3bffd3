package service

import (
	"strings"

	"github.com/pcos-screening-server/internal/domain"
)

const (
	redFlagReasonPrefix = "Red flag symptoms detected: "
	redFlagAdvice       = "Please consult a doctor immediately."
	urgentReview        = "Urgent Medical Review"
)

type redFlagCheck struct {
	label     string
	triggered func(rec domain.SymptomRecord) bool
}

// redFlagChecks run in this order; the label order of a safety result
// follows it.
var redFlagChecks = []redFlagCheck{
	{label: "Heavy Bleeding", triggered: func(r domain.SymptomRecord) bool { return r.HeavyBleeding.IsTrue() }},
	{label: "Severe Pelvic Pain", triggered: func(r domain.SymptomRecord) bool { return r.SeverePelvicPain.IsTrue() }},
	{label: "Possible Pregnancy", triggered: func(r domain.SymptomRecord) bool { return r.PossiblePregnancy.IsTrue() }},
	{label: "Extreme BMI (>60)", triggered: func(r domain.SymptomRecord) bool { return r.BMI.GreaterThan(extremeBMIThreshold) }},
}

// CheckRedFlags returns the labels of every triggered red flag in check order.
// An empty result means the record may proceed to classification.
func CheckRedFlags(rec domain.SymptomRecord) []string {
	var triggered []string
	for _, check := range redFlagChecks {
		if check.triggered(rec) {
			triggered = append(triggered, check.label)
		}
	}
	return triggered
}

// safetyResult builds the terminal escalation result. No other evidence can
// change it.
func safetyResult(flags []string, dataQuality int) domain.ClassificationResult {
	return domain.ClassificationResult{
		Phenotype:  domain.PhenotypeMedicalAttention,
		Confidence: safetyConfidence,
		Reasons: []string{
			redFlagReasonPrefix + strings.Join(flags, ", "),
			redFlagAdvice,
		},
		DataQualityScore:      dataQuality,
		RuleVersion:           RuleVersion,
		DifferentialDiagnosis: urgentReview,
		Branch:                domain.BranchSafetyEscalation,
	}
}
