// Package domain contains the core types of the PCOS pre-screening engine:
// the normalized symptom record, the screening criteria and the immutable
// classification result, together with the collaborator interfaces used by
// the surrounding service.
//
// Results are an educational signal proxying the Rotterdam criteria from
// self-reported data. They are never a medical diagnosis.
package domain

import (
	"errors"
	"strings"
)

// Phenotype is the classification label produced by the engine.
type Phenotype string

const (
	PhenotypeMedicalAttention   Phenotype = "Medical Attention Required"
	PhenotypeTemporaryImbalance Phenotype = "Possible Temporary Hormonal Imbalance"
	PhenotypeInsulinResistant   Phenotype = "Insulin-Resistant PCOS Impact"
	PhenotypeInflammatory       Phenotype = "Inflammatory PCOS Impact"
	PhenotypeAdrenal            Phenotype = "Adrenal PCOS Impact"
	PhenotypeLean               Phenotype = "Lean PCOS Impact"
	PhenotypeClassic            Phenotype = "Likely PCOS (Classic Pattern)"
	PhenotypeNonPCOSHormonal    Phenotype = "Likely Non-PCOS Hormonal Issue"
	PhenotypeHormonalImbalance  Phenotype = "Hormonal Imbalance (Not PCOS)"
	PhenotypeLowLikelihood      Phenotype = "Low Likelihood of PCOS"
)

// ComplexCaseSuffix marks a PCOS-positive label carrying complicating factors.
const ComplexCaseSuffix = " (Complex Case)"

// Disclaimer closes the reasons of every non-safety result.
const Disclaimer = "Educational guidance only. Not a medical diagnosis."

var (
	ErrInvalidPhenotype = errors.New("invalid phenotype")
	ErrInvalidBranch    = errors.New("invalid decision branch")
)

// Base returns the label without the complex-case suffix.
func (p Phenotype) Base() Phenotype {
	return Phenotype(strings.TrimSuffix(string(p), ComplexCaseSuffix))
}

// IsComplex reports whether the label carries the complex-case suffix.
func (p Phenotype) IsComplex() bool {
	return strings.HasSuffix(string(p), ComplexCaseSuffix)
}

// WithComplexCase returns the label with the complex-case suffix appended once.
func (p Phenotype) WithComplexCase() Phenotype {
	if p.IsComplex() {
		return p
	}
	return p + ComplexCaseSuffix
}

// IsValid reports whether the label, ignoring the suffix, is one the engine emits.
// Only PCOS-positive labels may carry the suffix.
func (p Phenotype) IsValid() bool {
	base := p.Base()
	if p.IsComplex() {
		return base.IsPCOSPositive()
	}
	switch base {
	case PhenotypeMedicalAttention, PhenotypeTemporaryImbalance,
		PhenotypeNonPCOSHormonal, PhenotypeHormonalImbalance, PhenotypeLowLikelihood:
		return true
	}
	return base.IsPCOSPositive()
}

// IsPCOSPositive reports whether the label belongs to the PCOS-positive branch.
func (p Phenotype) IsPCOSPositive() bool {
	switch p.Base() {
	case PhenotypeInsulinResistant, PhenotypeInflammatory, PhenotypeAdrenal,
		PhenotypeLean, PhenotypeClassic:
		return true
	default:
		return false
	}
}

// RequiresClinicalAction reports whether the result asks the user to see a
// doctor promptly.
func (p Phenotype) RequiresClinicalAction() bool {
	return p == PhenotypeMedicalAttention
}

// String returns the label.
func (p Phenotype) String() string {
	return string(p)
}

// Branch identifies the decision-table row that produced a result.
type Branch string

const (
	BranchSafetyEscalation   Branch = "safety_escalation"
	BranchTemporaryImbalance Branch = "temporary_imbalance"
	BranchPCOSPositive       Branch = "pcos_positive"
	BranchNonPCOSHormonal    Branch = "non_pcos_hormonal"
	BranchSingleCriterion    Branch = "single_criterion"
	BranchLowLikelihood      Branch = "low_likelihood"
)

// IsValid reports whether the branch is known.
func (b Branch) IsValid() bool {
	switch b {
	case BranchSafetyEscalation, BranchTemporaryImbalance, BranchPCOSPositive,
		BranchNonPCOSHormonal, BranchSingleCriterion, BranchLowLikelihood:
		return true
	default:
		return false
	}
}

func (b Branch) String() string {
	return string(b)
}

// CriterionName names one of the three screening criteria.
type CriterionName string

const (
	CriterionOvulatoryDysfunction CriterionName = "ovulatory_dysfunction"
	CriterionHyperandrogenism     CriterionName = "hyperandrogenism"
	CriterionMetabolicProxy       CriterionName = "metabolic_proxy"
)

// Criterion is one evaluated criterion and the signs that support it.
type Criterion struct {
	Name     CriterionName `json:"name"`
	Met      bool          `json:"met"`
	Evidence []string      `json:"evidence"`
}

// CriteriaSet holds the three Rotterdam-proxy criteria for one record.
type CriteriaSet struct {
	Ovulatory        Criterion `json:"ovulatory_dysfunction"`
	Hyperandrogenism Criterion `json:"hyperandrogenism"`
	Metabolic        Criterion `json:"metabolic_proxy"`
}

// All returns the criteria in evaluation order.
func (c CriteriaSet) All() []Criterion {
	return []Criterion{c.Ovulatory, c.Hyperandrogenism, c.Metabolic}
}

// Met counts the satisfied criteria.
func (c CriteriaSet) Met() int {
	n := 0
	for _, cr := range c.All() {
		if cr.Met {
			n++
		}
	}
	return n
}

// Evidence returns the evidence of every satisfied criterion in evaluation
// order, without duplicates.
func (c CriteriaSet) Evidence() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, cr := range c.All() {
		if !cr.Met {
			continue
		}
		for _, e := range cr.Evidence {
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// ClassificationResult is the engine output for one symptom record.
// It is built once and treated as read-only afterwards; use Clone before
// handing a copy to code that may modify it.
type ClassificationResult struct {
	Phenotype             Phenotype `json:"phenotype"`
	Confidence            float64   `json:"confidence"`
	Reasons               []string  `json:"reasons"`
	DataQualityScore      int       `json:"data_quality_score"`
	RuleVersion           string    `json:"rule_version"`
	DifferentialDiagnosis string    `json:"differential_diagnosis,omitempty"`
	Branch                Branch    `json:"branch"`
	CriteriaMet           int       `json:"criteria_met"`
}

// Clone returns a deep copy.
func (r ClassificationResult) Clone() ClassificationResult {
	r.Reasons = append([]string(nil), r.Reasons...)
	return r
}

// HasDifferential reports whether a differential diagnosis was recorded.
func (r ClassificationResult) HasDifferential() bool {
	return r.DifferentialDiagnosis != ""
}

// LogFields returns structured fields for audit logging. Symptom values are
// deliberately absent.
func (r ClassificationResult) LogFields() map[string]any {
	return map[string]any{
		"phenotype":          r.Phenotype.String(),
		"branch":             r.Branch.String(),
		"confidence":         r.Confidence,
		"data_quality_score": r.DataQualityScore,
		"criteria_met":       r.CriteriaMet,
		"rule_version":       r.RuleVersion,
		"complex_case":       r.Phenotype.IsComplex(),
		"requires_action":    r.Phenotype.RequiresClinicalAction(),
	}
}

// Validate checks the result invariants.
func (r ClassificationResult) Validate() error {
	if !r.Phenotype.IsValid() {
		return ErrInvalidPhenotype
	}
	if !r.Branch.IsValid() {
		return ErrInvalidBranch
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return NewValidationError("confidence", "must be within [0,100]", r.Confidence)
	}
	if r.DataQualityScore < 0 || r.DataQualityScore > 100 {
		return NewValidationError("data_quality_score", "must be within [0,100]", r.DataQualityScore)
	}
	if len(r.Reasons) == 0 {
		return NewValidationError("reasons", "must not be empty", nil)
	}
	if r.RuleVersion == "" {
		return NewValidationError("rule_version", "is required", nil)
	}
	return nil
}
