package service

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pcos-screening-server/internal/domain"
)

type scenarioExpectation struct {
	Phenotype            string   `yaml:"phenotype"`
	PhenotypeContains    string   `yaml:"phenotype_contains"`
	Branch               string   `yaml:"branch"`
	Confidence           *float64 `yaml:"confidence"`
	MinConfidence        *float64 `yaml:"min_confidence"`
	MaxConfidence        *float64 `yaml:"max_confidence"`
	DifferentialContains string   `yaml:"differential_contains"`
}

type scenario struct {
	Name   string              `yaml:"name"`
	Input  map[string]any      `yaml:"input"`
	Expect scenarioExpectation `yaml:"expect"`
}

func loadScenarios(t *testing.T) []scenario {
	t.Helper()
	data, err := os.ReadFile("testdata/scenarios.yaml")
	require.NoError(t, err)

	var scenarios []scenario
	require.NoError(t, yaml.Unmarshal(data, &scenarios))
	require.NotEmpty(t, scenarios)
	return scenarios
}

func TestScreeningEngine_Scenarios(t *testing.T) {
	engine := NewScreeningEngine()

	for _, sc := range loadScenarios(t) {
		t.Run(sc.Name, func(t *testing.T) {
			result := engine.Classify(sc.Input)
			exp := sc.Expect

			if exp.Phenotype != "" {
				assert.Equal(t, exp.Phenotype, result.Phenotype.String())
			}
			if exp.PhenotypeContains != "" {
				assert.Contains(t, result.Phenotype.String(), exp.PhenotypeContains)
			}
			if exp.Branch != "" {
				assert.Equal(t, exp.Branch, result.Branch.String())
			}
			if exp.Confidence != nil {
				assert.InDelta(t, *exp.Confidence, result.Confidence, 1e-9)
			}
			if exp.MinConfidence != nil {
				assert.GreaterOrEqual(t, result.Confidence, *exp.MinConfidence)
			}
			if exp.MaxConfidence != nil {
				assert.LessOrEqual(t, result.Confidence, *exp.MaxConfidence)
			}
			if exp.DifferentialContains != "" {
				assert.Contains(t, result.DifferentialDiagnosis, exp.DifferentialContains)
			}

			assert.Equal(t, RuleVersion, result.RuleVersion)
			assert.NoError(t, result.Validate())
		})
	}
}

func TestScreeningEngine_ScenarioExactValues(t *testing.T) {
	engine := NewScreeningEngine()

	t.Run("sparse insulin resistant record", func(t *testing.T) {
		result := engine.Classify(map[string]any{
			"cycle_gap_days": 90, "dark_patches": true, "bmi": 32, "acne": true, "sugar_cravings": true,
		})
		assert.Equal(t, domain.PhenotypeInsulinResistant, result.Phenotype)
		assert.Equal(t, 33, result.DataQualityScore)
		assert.Equal(t, 3, result.CriteriaMet)
		assert.InDelta(t, 73.6, result.Confidence, 1e-9)
		assert.Empty(t, result.DifferentialDiagnosis)
	})

	t.Run("complex case is capped at 70", func(t *testing.T) {
		result := engine.Classify(map[string]any{
			"cycle_gap_days": 45, "periods_regular": false, "acne": true,
			"thyroid_history": true, "cycle_irregularity_duration_months": 12,
		})
		assert.Equal(t, domain.Phenotype("Likely PCOS (Classic Pattern) (Complex Case)"), result.Phenotype)
		assert.InDelta(t, 70.0, result.Confidence, 1e-9)
		assert.Equal(t, "Thyroid History", result.DifferentialDiagnosis)
	})

	t.Run("safety reasons", func(t *testing.T) {
		result := engine.Classify(map[string]any{
			"heavy_bleeding": true, "possible_pregnancy": true, "cycle_gap_days": 28,
		})
		assert.Equal(t, []string{
			"Red flag symptoms detected: Heavy Bleeding, Possible Pregnancy",
			"Please consult a doctor immediately.",
		}, result.Reasons)
		assert.Equal(t, "Urgent Medical Review", result.DifferentialDiagnosis)
		assert.Equal(t, 100.0, result.Confidence)
	})
}

func TestScreeningEngine_RedFlagsAlwaysWin(t *testing.T) {
	engine := NewScreeningEngine()
	redFlags := []string{"heavy_bleeding", "severe_pelvic_pain", "possible_pregnancy"}

	// Strongest possible non-safety evidence alongside each red flag.
	base := map[string]any{
		"cycle_gap_days": 120, "periods_regular": false, "longest_cycle_gap_last_year": 150,
		"acne": true, "hair_loss": true, "facial_hair_growth": true, "dark_patches": true,
		"bmi": 35, "waist_cm": 100, "family_diabetes_history": true, "sugar_cravings": true,
		"thyroid_history": true, "recent_major_stress_event": true,
	}
	durations := []any{nil, 1, 2, 12}

	for _, flag := range redFlags {
		for _, duration := range durations {
			input := make(map[string]any, len(base)+2)
			for k, v := range base {
				input[k] = v
			}
			input[flag] = true
			input["cycle_irregularity_duration_months"] = duration

			result := engine.Classify(input)
			assert.Equal(t, domain.PhenotypeMedicalAttention, result.Phenotype, flag)
			assert.Equal(t, 100.0, result.Confidence, flag)
			assert.Equal(t, domain.BranchSafetyEscalation, result.Branch, flag)
		}
	}
}

// enumerate builds every combination of the given field values.
func enumerate(fields []string, values [][]any) []map[string]any {
	combos := []map[string]any{{}}
	for i, field := range fields {
		var next []map[string]any
		for _, combo := range combos {
			for _, v := range values[i] {
				m := make(map[string]any, len(combo)+1)
				for k, cv := range combo {
					m[k] = cv
				}
				if v != nil {
					m[field] = v
				}
				next = append(next, m)
			}
		}
		combos = next
	}
	return combos
}

func TestScreeningEngine_ResultInvariants(t *testing.T) {
	engine := NewScreeningEngine()
	fields := []string{
		"cycle_gap_days", "periods_regular", "cycle_irregularity_duration_months",
		"acne", "dark_patches", "bmi", "sugar_cravings", "thyroid_history",
		"stress_level", "sleep_hours", "heavy_bleeding",
	}
	values := [][]any{
		{nil, 28, 46},
		{nil, true, false},
		{nil, 0, 2, 12},
		{nil, true, false},
		{nil, true},
		{nil, 20, 27, 61},
		{nil, true},
		{nil, true},
		{nil, 8},
		{nil, 4},
		{nil, true},
	}

	for _, input := range enumerate(fields, values) {
		result := engine.Classify(input)

		require.NoError(t, result.Validate(), "input %v", input)
		require.GreaterOrEqual(t, result.Confidence, 0.0)
		require.LessOrEqual(t, result.Confidence, 100.0)
		require.NotEmpty(t, result.Reasons)

		if result.Branch == domain.BranchSafetyEscalation {
			require.Equal(t, 100.0, result.Confidence)
			continue
		}
		require.Equal(t, domain.Disclaimer, result.Reasons[len(result.Reasons)-1], "input %v", input)

		if result.Branch == domain.BranchPCOSPositive {
			require.LessOrEqual(t, result.Confidence, 85.0)
			if result.Phenotype.IsComplex() {
				require.LessOrEqual(t, result.Confidence, 70.0)
			}
		}

		if d, ok := input["cycle_irregularity_duration_months"]; ok && d == 2 {
			require.Equal(t, domain.PhenotypeTemporaryImbalance, result.Phenotype, "input %v", input)
		}
	}
}

func TestScreeningEngine_ShortDurationIsTemporary(t *testing.T) {
	engine := NewScreeningEngine()

	for _, months := range []int{1, 2} {
		result := engine.Classify(map[string]any{
			"cycle_gap_days": 90, "periods_regular": false, "acne": true, "bmi": 30,
			"cycle_irregularity_duration_months": months,
		})
		assert.Equal(t, domain.PhenotypeTemporaryImbalance, result.Phenotype)
		assert.Equal(t, 60.0, result.Confidence)
		assert.True(t, strings.HasPrefix(result.DifferentialDiagnosis, "Short duration"))
	}
}

func TestScreeningEngine_Idempotent(t *testing.T) {
	engine := NewScreeningEngine()
	input := map[string]any{
		"cycle_gap_days": 60, "periods_regular": false, "acne": true, "bmi": 29,
		"dark_patches": true, "recent_travel_or_illness": true,
	}

	first := engine.Classify(input)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.Classify(input))
	}
}

func TestScreeningEngine_ConcurrentUse(t *testing.T) {
	var engine ScreeningEngine
	input := map[string]any{"cycle_gap_days": 60, "acne": true, "bmi": 30}
	want := engine.Classify(input)

	done := make(chan domain.ClassificationResult, 32)
	for i := 0; i < cap(done); i++ {
		go func() { done <- engine.Classify(input) }()
	}
	for i := 0; i < cap(done); i++ {
		assert.Equal(t, want, <-done)
	}
}

func TestScreeningEngine_MoreDataNeverLowersPositiveConfidence(t *testing.T) {
	engine := NewScreeningEngine()
	// Same qualitative signal; each step adds neutral checklist fields.
	steps := []map[string]any{
		{"cycle_gap_days": 90, "acne": true},
		{"cycle_gap_days": 90, "acne": true, "hair_loss": false},
		{"cycle_gap_days": 90, "acne": true, "hair_loss": false, "facial_hair_growth": false},
		{"cycle_gap_days": 90, "acne": true, "hair_loss": false, "facial_hair_growth": false, "sleep_hours": 7},
		{"cycle_gap_days": 90, "acne": true, "hair_loss": false, "facial_hair_growth": false, "sleep_hours": 7, "stress_level": 3},
		{"cycle_gap_days": 90, "acne": true, "hair_loss": false, "facial_hair_growth": false, "sleep_hours": 7, "stress_level": 3, "periods_regular": false},
	}

	previous := -1.0
	for i, input := range steps {
		result := engine.Classify(input)
		require.Equal(t, domain.BranchPCOSPositive, result.Branch, "step %d", i)
		assert.GreaterOrEqual(t, result.Confidence, previous, "step %d", i)
		previous = result.Confidence
	}
}

func TestScreeningEngine_Trace(t *testing.T) {
	engine := NewScreeningEngine()

	t.Run("safety short-circuits", func(t *testing.T) {
		trace := engine.Trace(Normalize(map[string]any{"severe_pelvic_pain": true}))
		assert.Equal(t, []string{"Severe Pelvic Pain"}, trace.RedFlags)
		assert.Nil(t, trace.Criteria)
		assert.Equal(t, domain.BranchSafetyEscalation, trace.Result.Branch)
	})

	t.Run("stages are exposed", func(t *testing.T) {
		trace := engine.Trace(Normalize(map[string]any{
			"cycle_gap_days": 60, "acne": true, "thyroid_history": true,
		}))
		require.NotNil(t, trace.Criteria)
		assert.True(t, trace.Criteria.Ovulatory.Met)
		assert.True(t, trace.Criteria.Hyperandrogenism.Met)
		assert.False(t, trace.Criteria.Metabolic.Met)
		assert.Equal(t, []string{"Thyroid History"}, trace.Differential.Flags)
		assert.True(t, trace.Differential.IsChronic)
		assert.Equal(t, 22, trace.DataQualityScore)
	})
}
