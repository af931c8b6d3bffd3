package service

import (
	"github.com/pcos-screening-server/internal/domain"
)

// ScreeningEngine classifies symptom records with the frozen rule set.
// It holds no state and performs no I/O, so one value may be shared by any
// number of goroutines. The zero value is ready to use.
type ScreeningEngine struct{}

// NewScreeningEngine creates a screening engine
func NewScreeningEngine() *ScreeningEngine {
	return &ScreeningEngine{}
}

// Trace exposes every stage of one classification for auditing.
type Trace struct {
	Record           domain.SymptomRecord        `json:"record"`
	DataQualityScore int                         `json:"data_quality_score"`
	RedFlags         []string                    `json:"red_flags"`
	Differential     DifferentialScreen          `json:"differential"`
	Criteria         *domain.CriteriaSet         `json:"criteria,omitempty"`
	Result           domain.ClassificationResult `json:"result"`
}

// Classify normalizes raw and classifies it.
func (e *ScreeningEngine) Classify(raw map[string]any) domain.ClassificationResult {
	return e.ClassifyRecord(Normalize(raw))
}

// ClassifyRecord classifies an already normalized record.
func (e *ScreeningEngine) ClassifyRecord(rec domain.SymptomRecord) domain.ClassificationResult {
	return e.Trace(rec).Result
}

// Trace classifies rec and returns the intermediate stage outputs with the
// result. Criteria are nil when the safety gate short-circuits.
func (e *ScreeningEngine) Trace(rec domain.SymptomRecord) Trace {
	trace := Trace{
		Record:           rec,
		DataQualityScore: DataQualityScore(rec),
		RedFlags:         CheckRedFlags(rec),
	}
	if len(trace.RedFlags) > 0 {
		trace.Result = safetyResult(trace.RedFlags, trace.DataQualityScore)
		return trace
	}

	trace.Differential = ScreenDifferentials(rec)
	criteria := EvaluateCriteria(rec, trace.Differential)
	trace.Criteria = &criteria

	branch, out := classifyPhenotype(evaluation{
		record:      rec,
		screen:      trace.Differential,
		criteria:    criteria,
		dataQuality: trace.DataQualityScore,
	})
	trace.Result = assemble(branch, out, criteria.Met(), trace.DataQualityScore)
	return trace
}

// assemble packages a decided outcome into the final result. Every result
// assembled here ends with the disclaimer.
func assemble(branch domain.Branch, out outcome, criteriaMet, dataQuality int) domain.ClassificationResult {
	reasons := make([]string, 0, len(out.reasons)+1)
	reasons = append(reasons, out.reasons...)
	reasons = append(reasons, domain.Disclaimer)

	return domain.ClassificationResult{
		Phenotype:             out.phenotype,
		Confidence:            clampConfidence(out.confidence, 100),
		Reasons:               reasons,
		DataQualityScore:      dataQuality,
		RuleVersion:           RuleVersion,
		DifferentialDiagnosis: out.differential,
		Branch:                branch,
		CriteriaMet:           criteriaMet,
	}
}
