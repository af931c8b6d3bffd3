package service

import (
	"encoding/json"
	"math"

	"github.com/pcos-screening-server/internal/domain"
)

// Normalize resolves every recognized field of raw into a reported value or
// unknown. Unrecognized keys are ignored. Values of the wrong type, nil
// values and non-finite numbers become unknown; normalization never fails.
func Normalize(raw map[string]any) domain.SymptomRecord {
	var rec domain.SymptomRecord
	for field, target := range rec.Bools() {
		if v, ok := raw[string(field)]; ok {
			*target = coerceBool(v)
		}
	}
	for field, target := range rec.Numbers() {
		if v, ok := raw[string(field)]; ok {
			*target = coerceNumber(v)
		}
	}
	return rec
}

// DataQualityScore is the rounded percentage of checklist fields reported.
func DataQualityScore(rec domain.SymptomRecord) int {
	present := 0
	for _, f := range domain.QualityChecklist {
		if rec.IsKnown(f) {
			present++
		}
	}
	return int(math.Round(100 * float64(present) / float64(len(domain.QualityChecklist))))
}

func coerceBool(v any) domain.OptBool {
	switch b := v.(type) {
	case bool:
		return domain.BoolOf(b)
	case *bool:
		if b != nil {
			return domain.BoolOf(*b)
		}
	}
	return domain.UnknownBool()
}

func coerceNumber(v any) domain.OptFloat {
	switch n := v.(type) {
	case float64:
		return domain.FloatOf(n)
	case float32:
		return domain.FloatOf(float64(n))
	case int:
		return domain.FloatOf(float64(n))
	case int8:
		return domain.FloatOf(float64(n))
	case int16:
		return domain.FloatOf(float64(n))
	case int32:
		return domain.FloatOf(float64(n))
	case int64:
		return domain.FloatOf(float64(n))
	case uint:
		return domain.FloatOf(float64(n))
	case uint8:
		return domain.FloatOf(float64(n))
	case uint16:
		return domain.FloatOf(float64(n))
	case uint32:
		return domain.FloatOf(float64(n))
	case uint64:
		return domain.FloatOf(float64(n))
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return domain.FloatOf(f)
		}
	case *float64:
		if n != nil {
			return domain.FloatOf(*n)
		}
	}
	return domain.UnknownFloat()
}
