package service

import (
	"fmt"
	"strings"

	"github.com/pcos-screening-server/internal/domain"
)

const (
	monitorNote         = "Symptoms started less than 3 months ago; keep tracking your cycle for at least 3 more months."
	singleCriterionNote = "Only 1 of 3 key PCOS criteria met; at least 2 are needed to suggest PCOS."
	noCriteriaNote      = "No PCOS criteria met."
)

// evaluation is everything the decision table may read for one record.
type evaluation struct {
	record      domain.SymptomRecord
	screen      DifferentialScreen
	criteria    domain.CriteriaSet
	dataQuality int
}

// outcome is what a decision row decides. The assembler adds the shared
// fields and the disclaimer.
type outcome struct {
	phenotype    domain.Phenotype
	confidence   float64
	reasons      []string
	differential string
}

// decisionRow is one branch of the phenotype state machine.
type decisionRow struct {
	branch     domain.Branch
	condition  string
	phenotypes []domain.Phenotype
	confidence string
	matches    func(ev evaluation) bool
	decide     func(ev evaluation) outcome
}

// decisionTable is evaluated top to bottom and the first matching row wins.
// The safety gate runs before it and is not part of the table.
var decisionTable = []decisionRow{
	{
		branch:     domain.BranchTemporaryImbalance,
		condition:  "irregularity reported for less than 3 months",
		phenotypes: []domain.Phenotype{domain.PhenotypeTemporaryImbalance},
		confidence: "60",
		matches:    func(ev evaluation) bool { return !ev.screen.IsChronic },
		decide:     decideTemporary,
	},
	{
		branch:    domain.BranchPCOSPositive,
		condition: "2 or more criteria met",
		phenotypes: []domain.Phenotype{
			domain.PhenotypeInsulinResistant,
			domain.PhenotypeInflammatory,
			domain.PhenotypeAdrenal,
			domain.PhenotypeLean,
			domain.PhenotypeClassic,
		},
		confidence: "min(65+10*criteria, 85) discounted by completeness; 70 cap with complicating factors",
		matches:    func(ev evaluation) bool { return ev.criteria.Met() >= positiveCriteriaAt },
		decide:     decidePositive,
	},
	{
		branch:     domain.BranchNonPCOSHormonal,
		condition:  "complicating factors with fewer than 2 criteria",
		phenotypes: []domain.Phenotype{domain.PhenotypeNonPCOSHormonal},
		confidence: "65",
		matches: func(ev evaluation) bool {
			return len(ev.screen.Flags) > 0 && ev.criteria.Met() < positiveCriteriaAt
		},
		decide: decideNonPCOS,
	},
	{
		branch:     domain.BranchSingleCriterion,
		condition:  "exactly 1 criterion met",
		phenotypes: []domain.Phenotype{domain.PhenotypeHormonalImbalance},
		confidence: "50",
		matches:    func(ev evaluation) bool { return ev.criteria.Met() == 1 },
		decide:     decideSingleCriterion,
	},
	{
		branch:     domain.BranchLowLikelihood,
		condition:  "no criteria met",
		phenotypes: []domain.Phenotype{domain.PhenotypeLowLikelihood},
		confidence: "90",
		matches:    func(ev evaluation) bool { return ev.criteria.Met() == 0 },
		decide: func(evaluation) outcome {
			return outcome{
				phenotype:  domain.PhenotypeLowLikelihood,
				confidence: lowLikelihoodConfidence,
				reasons:    []string{noCriteriaNote},
			}
		},
	},
}

// subtypeRule is one PCOS-positive sub-type predicate.
type subtypeRule struct {
	phenotype domain.Phenotype
	lead      string
	matches   func(ev evaluation) bool
}

// subtypeRules are tried in order; a record matching none is the classic pattern.
var subtypeRules = []subtypeRule{
	{
		phenotype: domain.PhenotypeInsulinResistant,
		lead:      "Insulin-resistance markers: metabolic signs with dark skin patches or sugar cravings",
		matches: func(ev evaluation) bool {
			r := ev.record
			return ev.criteria.Metabolic.Met && (r.DarkPatches.IsTrue() || r.SugarCravings.IsTrue())
		},
	},
	{
		phenotype: domain.PhenotypeInflammatory,
		lead:      "Acne with mood swings and fatigue after meals points to systemic inflammation",
		matches: func(ev evaluation) bool {
			r := ev.record
			return r.Acne.IsTrue() && r.MoodSwings.IsTrue() && r.FatigueAfterMeals.IsTrue()
		},
	},
	{
		phenotype: domain.PhenotypeAdrenal,
		lead:      "High stress with short sleep at a lower BMI points to an adrenal androgen source",
		matches: func(ev evaluation) bool {
			r := ev.record
			return r.StressLevel.AtLeast(adrenalMinStress) && r.SleepHours.AtMost(adrenalMaxSleep) && r.BMI.LessThan(adrenalMaxBMI)
		},
	},
	{
		phenotype: domain.PhenotypeLean,
		lead:      "Normal BMI with androgen signs and irregular ovulation",
		matches: func(ev evaluation) bool {
			return ev.record.BMI.LessThan(leanMaxBMI) && ev.criteria.Hyperandrogenism.Met && ev.criteria.Ovulatory.Met
		},
	},
}

// classifyPhenotype runs the decision table and returns the branch that fired.
func classifyPhenotype(ev evaluation) (domain.Branch, outcome) {
	for _, row := range decisionTable {
		if row.matches(ev) {
			return row.branch, row.decide(ev)
		}
	}
	// Unreachable: criteria_met is always 0..3 and the last two rows cover 0 and 1.
	return domain.BranchLowLikelihood, outcome{
		phenotype:  domain.PhenotypeLowLikelihood,
		confidence: lowLikelihoodConfidence,
		reasons:    []string{noCriteriaNote},
	}
}

func decideTemporary(ev evaluation) outcome {
	reasons := append([]string(nil), ev.screen.Flags...)
	reasons = append(reasons, monitorNote)
	return outcome{
		phenotype:    domain.PhenotypeTemporaryImbalance,
		confidence:   temporaryConfidence,
		reasons:      reasons,
		differential: ev.screen.Diagnosis(),
	}
}

func decidePositive(ev evaluation) outcome {
	met := ev.criteria.Met()
	out := outcome{
		phenotype:  domain.PhenotypeClassic,
		confidence: ScorePositiveConfidence(met, ev.dataQuality),
	}
	for _, rule := range subtypeRules {
		if rule.matches(ev) {
			out.phenotype = rule.phenotype
			out.reasons = append(out.reasons, rule.lead)
			break
		}
	}
	out.reasons = append(out.reasons, ev.criteria.Evidence()...)

	if len(ev.screen.Flags) > 0 {
		out.phenotype = out.phenotype.WithComplexCase()
		out.reasons = append(out.reasons, complicatingFactorsNote(ev.screen.Flags))
		out.differential = ev.screen.Diagnosis()
		out.confidence = scoreComplexConfidence(met, ev.dataQuality)
	}
	return out
}

func decideNonPCOS(ev evaluation) outcome {
	reasons := []string{fmt.Sprintf("Only %d of 3 key PCOS criteria met.", ev.criteria.Met())}
	for _, flag := range ev.screen.Flags {
		reasons = append(reasons, "Possible alternative cause: "+flag)
	}
	reasons = append(reasons, ev.criteria.Evidence()...)
	return outcome{
		phenotype:    domain.PhenotypeNonPCOSHormonal,
		confidence:   nonPCOSConfidence,
		reasons:      reasons,
		differential: ev.screen.Diagnosis(),
	}
}

func decideSingleCriterion(ev evaluation) outcome {
	reasons := []string{singleCriterionNote}
	reasons = append(reasons, ev.criteria.Evidence()...)
	return outcome{
		phenotype:  domain.PhenotypeHormonalImbalance,
		confidence: singleCriterionConfidence,
		reasons:    reasons,
	}
}

func complicatingFactorsNote(flags []string) string {
	return "Complicating factors present (" + strings.Join(flags, ", ") +
		"); these can mimic PCOS symptoms, so a clinical evaluation is recommended."
}
