// Package repository persists screening records in PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pcos-screening-server/internal/domain"
)

// ScreeningRepository handles screening data persistence
type ScreeningRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewScreeningRepository creates a new screening repository
func NewScreeningRepository(db *pgxpool.Pool, logger *logrus.Logger) *ScreeningRepository {
	return &ScreeningRepository{
		db:  db,
		log: logger,
	}
}

const selectScreening = `
	SELECT s.id, s.user_id, s.request_id, s.symptoms, s.created_at,
		   r.phenotype, r.confidence, r.reasons, r.data_quality_score, r.rule_version,
		   r.differential_diagnosis, r.branch, r.criteria_met, r.narrative
	FROM symptom_records s
	JOIN classification_results r ON r.symptom_record_id = s.id`

// Save inserts a symptom record and its result in one transaction. A record
// whose ID is already stored is rejected with domain.ErrAlreadyClassified.
func (r *ScreeningRepository) Save(ctx context.Context, record *domain.ScreeningRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validating screening: %w", err)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	symptomsJSON, err := json.Marshal(record.Symptoms)
	if err != nil {
		return fmt.Errorf("marshaling symptoms: %w", err)
	}
	reasonsJSON, err := json.Marshal(record.Result.Reasons)
	if err != nil {
		return fmt.Errorf("marshaling reasons: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO symptom_records (id, user_id, request_id, symptoms, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		record.ID, record.UserID, record.RequestID, symptomsJSON, record.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"screening_id": record.ID,
			"error":        err,
		}).Error("Failed to insert symptom record")
		return fmt.Errorf("inserting symptom record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("screening %s: %w", record.ID, domain.ErrAlreadyClassified)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO classification_results (
			symptom_record_id, phenotype, confidence, reasons, data_quality_score,
			rule_version, differential_diagnosis, branch, criteria_met, narrative
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`,
		record.ID,
		string(record.Result.Phenotype),
		record.Result.Confidence,
		reasonsJSON,
		record.Result.DataQualityScore,
		record.Result.RuleVersion,
		record.Result.DifferentialDiagnosis,
		string(record.Result.Branch),
		record.Result.CriteriaMet,
		record.Narrative,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"screening_id": record.ID,
			"phenotype":    record.Result.Phenotype,
			"error":        err,
		}).Error("Failed to insert classification result")
		return fmt.Errorf("inserting classification result: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing screening: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"screening_id": record.ID,
		"phenotype":    record.Result.Phenotype,
		"rule_version": record.Result.RuleVersion,
	}).Debug("Screening saved")

	return nil
}

// Get retrieves a screening by its ID
func (r *ScreeningRepository) Get(ctx context.Context, id string) (*domain.ScreeningRecord, error) {
	rec, err := scanScreening(r.db.QueryRow(ctx, selectScreening+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("screening %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"screening_id": id,
			"error":        err,
		}).Error("Failed to get screening by ID")
		return nil, fmt.Errorf("getting screening by ID: %w", err)
	}
	return rec, nil
}

// List retrieves screenings newest first. An empty userID lists every user.
func (r *ScreeningRepository) List(ctx context.Context, userID string, limit, offset int) ([]*domain.ScreeningRecord, error) {
	query := selectScreening + `
		WHERE ($1 = '' OR s.user_id = $1)
		ORDER BY s.created_at DESC, s.id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"has_user": userID != "",
			"error":    err,
		}).Error("Failed to list screenings")
		return nil, fmt.Errorf("listing screenings: %w", err)
	}
	defer rows.Close()

	var screenings []*domain.ScreeningRecord
	for rows.Next() {
		rec, err := scanScreening(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning screening row: %w", err)
		}
		screenings = append(screenings, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating screening rows: %w", err)
	}

	return screenings, nil
}

// Count returns the number of screenings. An empty userID counts every user.
func (r *ScreeningRepository) Count(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM symptom_records WHERE ($1 = '' OR user_id = $1)`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting screenings: %w", err)
	}
	return count, nil
}

// Delete removes a screening; its result is removed by the cascade.
func (r *ScreeningRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM symptom_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting screening: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("screening %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanScreening(row pgx.Row) (*domain.ScreeningRecord, error) {
	var rec domain.ScreeningRecord
	var symptomsJSON, reasonsJSON []byte
	var phenotype, branch string

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.RequestID,
		&symptomsJSON,
		&rec.CreatedAt,
		&phenotype,
		&rec.Result.Confidence,
		&reasonsJSON,
		&rec.Result.DataQualityScore,
		&rec.Result.RuleVersion,
		&rec.Result.DifferentialDiagnosis,
		&branch,
		&rec.Result.CriteriaMet,
		&rec.Narrative,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(symptomsJSON, &rec.Symptoms); err != nil {
		return nil, fmt.Errorf("unmarshaling symptoms: %w", err)
	}
	if err := json.Unmarshal(reasonsJSON, &rec.Result.Reasons); err != nil {
		return nil, fmt.Errorf("unmarshaling reasons: %w", err)
	}
	rec.Result.Phenotype = domain.Phenotype(phenotype)
	rec.Result.Branch = domain.Branch(branch)
	rec.CreatedAt = rec.CreatedAt.UTC()

	return &rec, nil
}
