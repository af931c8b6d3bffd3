package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pcos-screening-server/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite screening store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// newSQLiteStoreWithDB wraps an open handle without touching the schema.
func newSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS symptom_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		symptoms TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS classification_results (
		symptom_record_id TEXT PRIMARY KEY REFERENCES symptom_records(id) ON DELETE CASCADE,
		phenotype TEXT NOT NULL,
		confidence REAL NOT NULL,
		reasons TEXT NOT NULL,
		data_quality_score INTEGER NOT NULL,
		rule_version TEXT NOT NULL,
		differential_diagnosis TEXT NOT NULL DEFAULT '',
		branch TEXT NOT NULL,
		criteria_met INTEGER NOT NULL DEFAULT 0,
		narrative TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_symptom_records_user ON symptom_records(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_results_rule_version ON classification_results(rule_version);
	`

	_, err := db.Exec(schema)
	return err
}

const selectScreening = `
	SELECT s.id, s.user_id, s.request_id, s.symptoms, s.created_at,
		r.phenotype, r.confidence, r.reasons, r.data_quality_score, r.rule_version,
		r.differential_diagnosis, r.branch, r.criteria_met, r.narrative
	FROM symptom_records s
	JOIN classification_results r ON r.symptom_record_id = s.id
`

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanScreening scans a row into a ScreeningRecord.
func scanScreening(s scanner) (*domain.ScreeningRecord, error) {
	rec := &domain.ScreeningRecord{}
	var symptoms, reasons, phenotype, branch string

	err := s.Scan(
		&rec.ID, &rec.UserID, &rec.RequestID, &symptoms, &rec.CreatedAt,
		&phenotype, &rec.Result.Confidence, &reasons, &rec.Result.DataQualityScore, &rec.Result.RuleVersion,
		&rec.Result.DifferentialDiagnosis, &branch, &rec.Result.CriteriaMet, &rec.Narrative,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(symptoms), &rec.Symptoms); err != nil {
		return nil, fmt.Errorf("failed to decode symptoms: %w", err)
	}
	if err := json.Unmarshal([]byte(reasons), &rec.Result.Reasons); err != nil {
		return nil, fmt.Errorf("failed to decode reasons: %w", err)
	}
	rec.Result.Phenotype = domain.Phenotype(phenotype)
	rec.Result.Branch = domain.Branch(branch)
	return rec, nil
}

// Save stores a screening and its result in one transaction. A record ID
// that is already stored yields domain.ErrAlreadyClassified.
func (s *SQLiteStore) Save(ctx context.Context, record *domain.ScreeningRecord) error {
	if record == nil {
		return domain.NewValidationError("screening", "is required", nil)
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid screening record: %w", err)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	symptoms, err := json.Marshal(record.Symptoms)
	if err != nil {
		return fmt.Errorf("failed to encode symptoms: %w", err)
	}
	reasons, err := json.Marshal(record.Result.Reasons)
	if err != nil {
		return fmt.Errorf("failed to encode reasons: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO symptom_records (id, user_id, request_id, symptoms, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, record.ID, record.UserID, record.RequestID, string(symptoms), record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert symptom record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("screening %s: %w", record.ID, domain.ErrAlreadyClassified)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO classification_results (
			symptom_record_id, phenotype, confidence, reasons, data_quality_score,
			rule_version, differential_diagnosis, branch, criteria_met, narrative
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		string(record.Result.Phenotype),
		record.Result.Confidence,
		string(reasons),
		record.Result.DataQualityScore,
		record.Result.RuleVersion,
		record.Result.DifferentialDiagnosis,
		string(record.Result.Branch),
		record.Result.CriteriaMet,
		record.Narrative,
	)
	if err != nil {
		return fmt.Errorf("failed to insert classification result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit screening: %w", err)
	}
	return nil
}

// Get retrieves a screening by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.ScreeningRecord, error) {
	row := s.db.QueryRowContext(ctx, selectScreening+" WHERE s.id = ?", id)

	rec, err := scanScreening(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("screening %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// List returns screenings newest first. An empty userID lists every user.
func (s *SQLiteStore) List(ctx context.Context, userID string, limit, offset int) ([]*domain.ScreeningRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectScreening+`
		WHERE (? = '' OR s.user_id = ?)
		ORDER BY s.created_at DESC, s.id
		LIMIT ? OFFSET ?
	`, userID, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*domain.ScreeningRecord
	for rows.Next() {
		rec, err := scanScreening(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the number of screenings. An empty userID counts every user.
func (s *SQLiteStore) Count(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM symptom_records WHERE (? = '' OR user_id = ?)", userID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count screenings: %w", err)
	}
	return count, nil
}

// Delete removes a screening and its result.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM classification_results WHERE symptom_record_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete result: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM symptom_records WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete symptom record: %w", err)
	}
	return tx.Commit()
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all screenings to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, "", maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list screenings: %w", err)
	}

	export := &Export{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Screenings: all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports screenings from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for i, rec := range export.Screenings {
		if rec == nil {
			return imported, skipped, domain.NewValidationError(fmt.Sprintf("screenings[%d]", i), "must not be null", nil)
		}
		err := s.Save(ctx, rec)
		if errors.Is(err, domain.ErrAlreadyClassified) {
			skipped++
			continue
		}
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
