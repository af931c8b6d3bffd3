package domain

import (
	"context"
)

// ScreeningRepository persists screening records. Save must reject a record
// whose ID is already stored with ErrAlreadyClassified so that each symptom
// record is classified at most once.
type ScreeningRepository interface {
	Save(ctx context.Context, record *ScreeningRecord) error
	Get(ctx context.Context, id string) (*ScreeningRecord, error)
	List(ctx context.Context, userID string, limit, offset int) ([]*ScreeningRecord, error)
	Count(ctx context.Context, userID string) (int64, error)
}

// ResultCache memoizes results by the hash of a normalized record.
// A miss is reported with found == false and a nil error.
type ResultCache interface {
	Get(ctx context.Context, key string) (result ClassificationResult, found bool, err error)
	Set(ctx context.Context, key string, result ClassificationResult) error
}

// NarrativeGenerator turns a result into a plain-language explanation.
// The engine never constructs or calls one; the service layer injects it.
type NarrativeGenerator interface {
	Explain(ctx context.Context, input NarrativeInput) (string, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	IsProduction() bool
}
