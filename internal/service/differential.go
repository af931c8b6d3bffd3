package service

import (
	"strings"

	"github.com/pcos-screening-server/internal/domain"
)

const shortDurationFlag = "Short duration of symptoms (<3 months)"

type differentialCheck struct {
	label   string
	present func(rec domain.SymptomRecord) bool
}

var differentialChecks = []differentialCheck{
	{label: "Thyroid History", present: func(r domain.SymptomRecord) bool { return r.ThyroidHistory.IsTrue() }},
	{label: "Recent Major Stress Event", present: func(r domain.SymptomRecord) bool { return r.RecentMajorStressEvent.IsTrue() }},
	{label: "Recent Travel or Illness", present: func(r domain.SymptomRecord) bool { return r.RecentTravelOrIllness.IsTrue() }},
}

// DifferentialScreen is the set of confounders that argue against a chronic
// PCOS reading.
type DifferentialScreen struct {
	// Flags are confounder labels in check order, without duplicates.
	Flags []string `json:"flags"`
	// IsChronic is false only when the irregularity duration is reported
	// and strictly between 0 and 3 months.
	IsChronic bool `json:"is_chronic"`
}

// Diagnosis joins the flags for the differential_diagnosis field.
func (d DifferentialScreen) Diagnosis() string {
	return strings.Join(d.Flags, ", ")
}

// ScreenDifferentials builds the differential flags and chronicity for rec.
func ScreenDifferentials(rec domain.SymptomRecord) DifferentialScreen {
	screen := DifferentialScreen{
		IsChronic: !rec.CycleIrregularityDurationMonths.Between(0, chronicMinimumMonths),
	}
	seen := make(map[string]struct{})
	add := func(label string) {
		if _, dup := seen[label]; dup {
			return
		}
		seen[label] = struct{}{}
		screen.Flags = append(screen.Flags, label)
	}
	for _, check := range differentialChecks {
		if check.present(rec) {
			add(check.label)
		}
	}
	if !screen.IsChronic {
		add(shortDurationFlag)
	}
	return screen
}
