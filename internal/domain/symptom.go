package domain

// Field is the wire name of a recognized symptom record field.
type Field string

// Cycle
const (
	FieldCycleGapDays                    Field = "cycle_gap_days"
	FieldPeriodsRegular                  Field = "periods_regular"
	FieldLongestCycleGapLastYear         Field = "longest_cycle_gap_last_year"
	FieldCycleIrregularityDurationMonths Field = "cycle_irregularity_duration_months"
)

// Androgen signs
const (
	FieldAcne             Field = "acne"
	FieldHairLoss         Field = "hair_loss"
	FieldFacialHairGrowth Field = "facial_hair_growth"
	FieldDarkPatches      Field = "dark_patches"
)

// Metabolic
const (
	FieldBMI                   Field = "bmi"
	FieldWaistCM               Field = "waist_cm"
	FieldSugarCravings         Field = "sugar_cravings"
	FieldWeightGain            Field = "weight_gain"
	FieldFamilyDiabetesHistory Field = "family_diabetes_history"
	FieldFatigueAfterMeals     Field = "fatigue_after_meals"
)

// Lifestyle
const (
	FieldStressLevel Field = "stress_level"
	FieldSleepHours  Field = "sleep_hours"
	FieldMoodSwings  Field = "mood_swings"
)

// Red flags
const (
	FieldHeavyBleeding     Field = "heavy_bleeding"
	FieldSeverePelvicPain  Field = "severe_pelvic_pain"
	FieldPossiblePregnancy Field = "possible_pregnancy"
)

// Differential flags
const (
	FieldThyroidHistory         Field = "thyroid_history"
	FieldRecentMajorStressEvent Field = "recent_major_stress_event"
	FieldRecentTravelOrIllness  Field = "recent_travel_or_illness"
)

// Context fields collected by the app. They are stored with the record but
// no rule in the current rule set reads them.
const (
	FieldPillUsage                Field = "pill_usage"
	FieldTryingToConceive         Field = "trying_to_conceive"
	FieldSpottingBetweenPeriods   Field = "spotting_between_periods"
	FieldSuddenWeightChange       Field = "sudden_weight_change"
	FieldAcneDurationMonths       Field = "acne_duration_months"
	FieldWeightGainDurationMonths Field = "weight_gain_duration_months"
)

// QualityChecklist is the fixed set of fields whose presence makes up the
// data quality score.
var QualityChecklist = []Field{
	FieldCycleGapDays,
	FieldPeriodsRegular,
	FieldAcne,
	FieldHairLoss,
	FieldFacialHairGrowth,
	FieldBMI,
	FieldWaistCM,
	FieldStressLevel,
	FieldSleepHours,
}

// SymptomRecord is a normalized self-reported symptom and lifestyle log.
// Every field is either a reported value or unknown.
type SymptomRecord struct {
	CycleGapDays                    OptFloat `json:"cycle_gap_days"`
	PeriodsRegular                  OptBool  `json:"periods_regular"`
	LongestCycleGapLastYear         OptFloat `json:"longest_cycle_gap_last_year"`
	CycleIrregularityDurationMonths OptFloat `json:"cycle_irregularity_duration_months"`

	Acne             OptBool `json:"acne"`
	HairLoss         OptBool `json:"hair_loss"`
	FacialHairGrowth OptBool `json:"facial_hair_growth"`
	DarkPatches      OptBool `json:"dark_patches"`

	BMI                   OptFloat `json:"bmi"`
	WaistCM               OptFloat `json:"waist_cm"`
	SugarCravings         OptBool  `json:"sugar_cravings"`
	WeightGain            OptBool  `json:"weight_gain"`
	FamilyDiabetesHistory OptBool  `json:"family_diabetes_history"`
	FatigueAfterMeals     OptBool  `json:"fatigue_after_meals"`

	StressLevel OptFloat `json:"stress_level"`
	SleepHours  OptFloat `json:"sleep_hours"`
	MoodSwings  OptBool  `json:"mood_swings"`

	HeavyBleeding     OptBool `json:"heavy_bleeding"`
	SeverePelvicPain  OptBool `json:"severe_pelvic_pain"`
	PossiblePregnancy OptBool `json:"possible_pregnancy"`

	ThyroidHistory         OptBool `json:"thyroid_history"`
	RecentMajorStressEvent OptBool `json:"recent_major_stress_event"`
	RecentTravelOrIllness  OptBool `json:"recent_travel_or_illness"`

	PillUsage                OptBool  `json:"pill_usage"`
	TryingToConceive         OptBool  `json:"trying_to_conceive"`
	SpottingBetweenPeriods   OptBool  `json:"spotting_between_periods"`
	SuddenWeightChange       OptBool  `json:"sudden_weight_change"`
	AcneDurationMonths       OptFloat `json:"acne_duration_months"`
	WeightGainDurationMonths OptFloat `json:"weight_gain_duration_months"`
}

// Bools returns pointers to every yes/no field keyed by wire name.
func (r *SymptomRecord) Bools() map[Field]*OptBool {
	return map[Field]*OptBool{
		FieldPeriodsRegular:         &r.PeriodsRegular,
		FieldAcne:                   &r.Acne,
		FieldHairLoss:               &r.HairLoss,
		FieldFacialHairGrowth:       &r.FacialHairGrowth,
		FieldDarkPatches:            &r.DarkPatches,
		FieldSugarCravings:          &r.SugarCravings,
		FieldWeightGain:             &r.WeightGain,
		FieldFamilyDiabetesHistory:  &r.FamilyDiabetesHistory,
		FieldFatigueAfterMeals:      &r.FatigueAfterMeals,
		FieldMoodSwings:             &r.MoodSwings,
		FieldHeavyBleeding:          &r.HeavyBleeding,
		FieldSeverePelvicPain:       &r.SeverePelvicPain,
		FieldPossiblePregnancy:      &r.PossiblePregnancy,
		FieldThyroidHistory:         &r.ThyroidHistory,
		FieldRecentMajorStressEvent: &r.RecentMajorStressEvent,
		FieldRecentTravelOrIllness:  &r.RecentTravelOrIllness,
		FieldPillUsage:              &r.PillUsage,
		FieldTryingToConceive:       &r.TryingToConceive,
		FieldSpottingBetweenPeriods: &r.SpottingBetweenPeriods,
		FieldSuddenWeightChange:     &r.SuddenWeightChange,
	}
}

// Numbers returns pointers to every numeric field keyed by wire name.
func (r *SymptomRecord) Numbers() map[Field]*OptFloat {
	return map[Field]*OptFloat{
		FieldCycleGapDays:                    &r.CycleGapDays,
		FieldLongestCycleGapLastYear:         &r.LongestCycleGapLastYear,
		FieldCycleIrregularityDurationMonths: &r.CycleIrregularityDurationMonths,
		FieldBMI:                             &r.BMI,
		FieldWaistCM:                         &r.WaistCM,
		FieldStressLevel:                     &r.StressLevel,
		FieldSleepHours:                      &r.SleepHours,
		FieldAcneDurationMonths:              &r.AcneDurationMonths,
		FieldWeightGainDurationMonths:        &r.WeightGainDurationMonths,
	}
}

// IsKnown reports whether the named field holds a reported value.
// Unrecognized names report false.
func (r SymptomRecord) IsKnown(f Field) bool {
	if b, ok := r.Bools()[f]; ok {
		return b.Known()
	}
	if n, ok := r.Numbers()[f]; ok {
		return n.Known()
	}
	return false
}

// KnownCount returns how many recognized fields were reported.
func (r SymptomRecord) KnownCount() int {
	n := 0
	for _, b := range r.Bools() {
		if b.Known() {
			n++
		}
	}
	for _, v := range r.Numbers() {
		if v.Known() {
			n++
		}
	}
	return n
}
