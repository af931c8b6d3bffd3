package service

import (
	"github.com/pcos-screening-server/internal/domain"
)

// RuleVersion identifies the frozen thresholds, predicates and branch order
// below. Bump it whenever any of them changes so stored results stay
// attributable to the rules that produced them.
const RuleVersion = "3.0.0"

// Ovulatory dysfunction
const (
	cycleGapThresholdDays       = 45.0
	longestCycleGapThresholdDay = 60.0
	chronicMinimumMonths        = 3.0
)

// Metabolic proxy
const (
	metabolicBMIThreshold = 27.0
	waistThresholdCM      = 88.0
)

// Safety gate
const extremeBMIThreshold = 60.0

// Sub-type predicates
const (
	adrenalMinStress   = 7.0
	adrenalMaxSleep    = 5.0
	adrenalMaxBMI      = 25.0
	leanMaxBMI         = 24.0
	positiveCriteriaAt = 2
)

// Per-branch confidence constants. Only the positive branch is discounted for
// missing data.
const (
	safetyConfidence          = 100.0
	temporaryConfidence       = 60.0
	nonPCOSConfidence         = 65.0
	singleCriterionConfidence = 50.0
	lowLikelihoodConfidence   = 90.0

	positiveBaseConfidence   = 65.0
	positivePerCriterion     = 10.0
	positiveConfidenceCap    = 85.0
	complexCaseConfidenceCap = 70.0
	completenessFloorPct     = 80.0
)

// Threshold is one named numeric cut-off of the rule set.
type Threshold struct {
	Name       string  `json:"name"`
	Field      string  `json:"field"`
	Comparator string  `json:"comparator"`
	Value      float64 `json:"value"`
}

// BranchDescription documents one row of the decision table.
type BranchDescription struct {
	Order      int                `json:"order"`
	Branch     domain.Branch      `json:"branch"`
	Condition  string             `json:"condition"`
	Phenotypes []domain.Phenotype `json:"phenotypes"`
	Confidence string             `json:"confidence"`
}

// RuleSetDescription is an auditable summary of the frozen rule set.
type RuleSetDescription struct {
	RuleVersion       string              `json:"rule_version"`
	QualityChecklist  []domain.Field      `json:"quality_checklist"`
	RedFlags          []string            `json:"red_flags"`
	DifferentialFlags []string            `json:"differential_flags"`
	Thresholds        []Threshold         `json:"thresholds"`
	Branches          []BranchDescription `json:"branches"`
	Disclaimer        string              `json:"disclaimer"`
}

// DescribeRuleSet returns the rule set in evaluation order.
func DescribeRuleSet() RuleSetDescription {
	var branches []BranchDescription
	branches = append(branches, BranchDescription{
		Order:      0,
		Branch:     domain.BranchSafetyEscalation,
		Condition:  "any red flag reported",
		Phenotypes: []domain.Phenotype{domain.PhenotypeMedicalAttention},
		Confidence: "100",
	})
	for i, row := range decisionTable {
		branches = append(branches, BranchDescription{
			Order:      i + 1,
			Branch:     row.branch,
			Condition:  row.condition,
			Phenotypes: row.phenotypes,
			Confidence: row.confidence,
		})
	}

	var redFlags []string
	for _, rf := range redFlagChecks {
		redFlags = append(redFlags, rf.label)
	}
	var differentials []string
	for _, df := range differentialChecks {
		differentials = append(differentials, df.label)
	}
	differentials = append(differentials, shortDurationFlag)

	return RuleSetDescription{
		RuleVersion:       RuleVersion,
		QualityChecklist:  append([]domain.Field(nil), domain.QualityChecklist...),
		RedFlags:          redFlags,
		DifferentialFlags: differentials,
		Thresholds: []Threshold{
			{Name: "cycle gap", Field: string(domain.FieldCycleGapDays), Comparator: ">", Value: cycleGapThresholdDays},
			{Name: "longest cycle gap", Field: string(domain.FieldLongestCycleGapLastYear), Comparator: ">", Value: longestCycleGapThresholdDay},
			{Name: "chronic duration (absent or 0 counts as chronic)", Field: string(domain.FieldCycleIrregularityDurationMonths), Comparator: ">=", Value: chronicMinimumMonths},
			{Name: "metabolic BMI", Field: string(domain.FieldBMI), Comparator: ">=", Value: metabolicBMIThreshold},
			{Name: "waist", Field: string(domain.FieldWaistCM), Comparator: ">", Value: waistThresholdCM},
			{Name: "extreme BMI red flag", Field: string(domain.FieldBMI), Comparator: ">", Value: extremeBMIThreshold},
			{Name: "adrenal stress", Field: string(domain.FieldStressLevel), Comparator: ">=", Value: adrenalMinStress},
			{Name: "adrenal sleep", Field: string(domain.FieldSleepHours), Comparator: "<=", Value: adrenalMaxSleep},
			{Name: "adrenal BMI", Field: string(domain.FieldBMI), Comparator: "<", Value: adrenalMaxBMI},
			{Name: "lean BMI", Field: string(domain.FieldBMI), Comparator: "<", Value: leanMaxBMI},
		},
		Branches:   branches,
		Disclaimer: domain.Disclaimer,
	}
}
