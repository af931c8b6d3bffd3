package domain

import (
	"strings"
	"time"
)

// ScreeningRecord pairs a normalized symptom record with the single result
// classified from it. It is the unit stored by a ScreeningRepository.
type ScreeningRecord struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id,omitempty"`
	RequestID string               `json:"request_id,omitempty"`
	Symptoms  SymptomRecord        `json:"symptoms"`
	Result    ClassificationResult `json:"result"`
	Narrative string               `json:"narrative,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// Validate checks that the record can be persisted.
func (s *ScreeningRecord) Validate() error {
	if s == nil {
		return NewValidationError("screening", "is required", nil)
	}
	if strings.TrimSpace(s.ID) == "" {
		return NewValidationError("id", "is required", nil)
	}
	if err := s.Result.Validate(); err != nil {
		return err
	}
	return nil
}

// LogFields returns structured fields for audit logging.
func (s *ScreeningRecord) LogFields() map[string]any {
	fields := s.Result.LogFields()
	fields["screening_id"] = s.ID
	fields["request_id"] = s.RequestID
	fields["has_user"] = s.UserID != ""
	fields["has_narrative"] = s.Narrative != ""
	return fields
}

// NarrativeInput is the subset of a result passed to a narrative generator.
type NarrativeInput struct {
	Phenotype  Phenotype `json:"phenotype"`
	Confidence float64   `json:"confidence"`
	Reasons    []string  `json:"reasons"`
}

// NarrativeInputFrom extracts the generator prompt fields from a result.
func NarrativeInputFrom(r ClassificationResult) NarrativeInput {
	return NarrativeInput{
		Phenotype:  r.Phenotype,
		Confidence: r.Confidence,
		Reasons:    append([]string(nil), r.Reasons...),
	}
}

// HistoryPage is a page of a user's screenings, newest first.
type HistoryPage struct {
	Items  []*ScreeningRecord `json:"items"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}
