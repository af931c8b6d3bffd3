package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pcos-screening-server/internal/cache"
	"github.com/pcos-screening-server/internal/domain"
)

// History page bounds.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// ScreenRequest is one screening submission.
type ScreenRequest struct {
	Symptoms         map[string]any
	UserID           string
	RequestID        string
	IncludeNarrative bool
}

// ClassifierService runs the screening engine and surrounds it with caching,
// persistence and the optional narrative. Cache, repository and narrator may
// be nil; a nil repository means results are returned but not stored.
type ClassifierService struct {
	logger   *logrus.Logger
	engine   *ScreeningEngine
	repo     domain.ScreeningRepository
	cache    domain.ResultCache
	narrator domain.NarrativeGenerator

	newID func() string
	now   func() time.Time
}

// NewClassifierService creates a new classifier service
func NewClassifierService(
	logger *logrus.Logger,
	repo domain.ScreeningRepository,
	resultCache domain.ResultCache,
	narrator domain.NarrativeGenerator,
) *ClassifierService {
	return &ClassifierService{
		logger:   logger,
		engine:   NewScreeningEngine(),
		repo:     repo,
		cache:    resultCache,
		narrator: narrator,
		newID:    func() string { return uuid.New().String() },
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Screen classifies one submission and stores it when a repository is set.
// A narrative failure is logged and leaves the narrative empty.
func (c *ClassifierService) Screen(ctx context.Context, req ScreenRequest) (*domain.ScreeningRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	startTime := time.Now()

	symptoms := Normalize(req.Symptoms)
	result, cached := c.classify(ctx, symptoms)

	record := &domain.ScreeningRecord{
		ID:        c.newID(),
		UserID:    req.UserID,
		RequestID: req.RequestID,
		Symptoms:  symptoms,
		Result:    result,
		CreatedAt: c.now(),
	}

	if req.IncludeNarrative && c.narrator != nil {
		text, err := c.narrator.Explain(ctx, domain.NarrativeInputFrom(result))
		if err != nil {
			c.logger.WithError(err).WithField("screening_id", record.ID).Warn("Narrative generation failed")
		} else {
			record.Narrative = text
		}
	}

	if c.repo != nil {
		if err := c.repo.Save(ctx, record); err != nil {
			return nil, fmt.Errorf("saving screening: %w", err)
		}
	}

	fields := logrus.Fields(record.LogFields())
	fields["cached"] = cached
	fields["persisted"] = c.repo != nil
	fields["duration_ms"] = time.Since(startTime).Milliseconds()
	c.logger.WithFields(fields).Info("Screening completed")

	return record, nil
}

// classify returns the engine result, consulting the cache first. Cache
// errors degrade to a direct classification.
func (c *ClassifierService) classify(ctx context.Context, symptoms domain.SymptomRecord) (domain.ClassificationResult, bool) {
	if c.cache == nil {
		return c.engine.ClassifyRecord(symptoms), false
	}

	key, err := cache.Key(symptoms, RuleVersion)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to build cache key")
		return c.engine.ClassifyRecord(symptoms), false
	}

	result, found, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).Warn("Result cache lookup failed")
	}
	if found && result.RuleVersion == RuleVersion {
		return result.Clone(), true
	}

	result = c.engine.ClassifyRecord(symptoms)
	if err := c.cache.Set(ctx, key, result); err != nil {
		c.logger.WithError(err).Warn("Result cache store failed")
	}
	return result, false
}

// Get returns a stored screening.
func (c *ClassifierService) Get(ctx context.Context, id string) (*domain.ScreeningRecord, error) {
	if id == "" {
		return nil, domain.NewValidationError("id", "is required", nil)
	}
	if c.repo == nil {
		return nil, fmt.Errorf("screening %s: %w", id, domain.ErrNotFound)
	}
	return c.repo.Get(ctx, id)
}

// History returns a page of screenings, newest first. A zero limit selects
// DefaultHistoryLimit; larger limits are capped at MaxHistoryLimit.
func (c *ClassifierService) History(ctx context.Context, userID string, limit, offset int) (*domain.HistoryPage, error) {
	if limit < 0 {
		return nil, domain.NewValidationError("limit", "must not be negative", limit)
	}
	if offset < 0 {
		return nil, domain.NewValidationError("offset", "must not be negative", offset)
	}
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	page := &domain.HistoryPage{Items: []*domain.ScreeningRecord{}, Limit: limit, Offset: offset}
	if c.repo == nil {
		return page, nil
	}

	items, err := c.repo.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing screenings: %w", err)
	}
	total, err := c.repo.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting screenings: %w", err)
	}
	if items != nil {
		page.Items = items
	}
	page.Total = total
	return page, nil
}

// Rules describes the rule set the service classifies with.
func (c *ClassifierService) Rules() RuleSetDescription {
	return DescribeRuleSet()
}
