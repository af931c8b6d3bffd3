package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pcos-screening-server/internal/domain"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, record *domain.ScreeningRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id string) (*domain.ScreeningRecord, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*domain.ScreeningRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, userID string, limit, offset int) ([]*domain.ScreeningRecord, error) {
	args := m.Called(ctx, userID, limit, offset)
	if recs, ok := args.Get(0).([]*domain.ScreeningRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (domain.ClassificationResult, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.ClassificationResult), args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, key string, result domain.ClassificationResult) error {
	args := m.Called(ctx, key, result)
	return args.Error(0)
}

type MockNarrator struct {
	mock.Mock
}

func (m *MockNarrator) Explain(ctx context.Context, input domain.NarrativeInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(repo domain.ScreeningRepository, c domain.ResultCache, n domain.NarrativeGenerator) *ClassifierService {
	svc := NewClassifierService(silentLogger(), repo, c, n)
	svc.newID = func() string { return "screening-1" }
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

var positiveSymptoms = map[string]any{
	"cycle_gap_days": 90, "dark_patches": true, "bmi": 32, "acne": true, "sugar_cravings": true,
}

func TestClassifierService_Screen(t *testing.T) {
	ctx := context.Background()

	t.Run("stateless without collaborators", func(t *testing.T) {
		svc := newTestService(nil, nil, nil)

		rec, err := svc.Screen(ctx, ScreenRequest{Symptoms: positiveSymptoms, UserID: "u1", RequestID: "r1"})
		require.NoError(t, err)
		assert.Equal(t, "screening-1", rec.ID)
		assert.Equal(t, "u1", rec.UserID)
		assert.Equal(t, "r1", rec.RequestID)
		assert.Equal(t, domain.PhenotypeInsulinResistant, rec.Result.Phenotype)
		assert.True(t, rec.Symptoms.DarkPatches.IsTrue())
		assert.Empty(t, rec.Narrative)
	})

	t.Run("nil symptoms screen as an empty record", func(t *testing.T) {
		svc := newTestService(nil, nil, nil)

		rec, err := svc.Screen(ctx, ScreenRequest{})
		require.NoError(t, err)
		assert.Equal(t, domain.PhenotypeLowLikelihood, rec.Result.Phenotype)
		assert.Equal(t, 0, rec.Result.DataQualityScore)
	})

	t.Run("persists through the repository", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Save", ctx, mock.MatchedBy(func(r *domain.ScreeningRecord) bool {
			return r.ID == "screening-1" && r.Result.Branch == domain.BranchPCOSPositive
		})).Return(nil).Once()

		svc := newTestService(repo, nil, nil)
		_, err := svc.Screen(ctx, ScreenRequest{Symptoms: positiveSymptoms})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("repository conflict is returned", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Save", ctx, mock.Anything).Return(domain.ErrAlreadyClassified)

		svc := newTestService(repo, nil, nil)
		_, err := svc.Screen(ctx, ScreenRequest{Symptoms: positiveSymptoms})
		assert.ErrorIs(t, err, domain.ErrAlreadyClassified)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		svc := newTestService(nil, nil, nil)
		_, err := svc.Screen(cctx, ScreenRequest{Symptoms: positiveSymptoms})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClassifierService_Narrative(t *testing.T) {
	ctx := context.Background()

	t.Run("included on request", func(t *testing.T) {
		narrator := new(MockNarrator)
		narrator.On("Explain", ctx, mock.MatchedBy(func(in domain.NarrativeInput) bool {
			return in.Phenotype == domain.PhenotypeInsulinResistant && len(in.Reasons) > 0
		})).Return("Your answers suggest an insulin-resistant pattern.", nil).Once()

		svc := newTestService(nil, nil, narrator)
		rec, err := svc.Screen(ctx, ScreenRequest{Symptoms: positiveSymptoms, IncludeNarrative: true})
		require.NoError(t, err)
		assert.Equal(t, "Your answers suggest an insulin-resistant pattern.", rec.Narrative)
		narrator.AssertExpectations(t)
	})

	t.Run("not requested", func(t *testing.T) {
		narrator := new(MockNarrator)
		svc := newTestService(nil, nil, narrator)
		_, err := svc.Screen(ctx, ScreenRequest{Symptoms: positiveSymptoms})
		require.NoError(t, err)
		narrator.AssertNotCalled(t, "Explain", mock.Anything, mock.Anything)
	})

	t.Run("failure does not fail the screening", func(t *testing.T) {
		narrator := new(MockNarrator)
		narrator.On("Explain", ctx, mock.Anything).Return("", domain.ErrNarrativeUnavailable)

		svc := newTestService(nil, nil, narrator)
		rec, err := svc.Screen(ctx, ScreenRequest{Symptoms: positiveSymptoms, IncludeNarrative: true})
		require.NoError(t, err)
		assert.Empty(t, rec.Narrative)
		assert.Equal(t, domain.PhenotypeInsulinResistant, rec.Result.Phenotype)
	})
}

func TestClassifierService_Cache(t *testing.T) {
	ctx := context.Background()
	want := NewScreeningEngine().Classify(positiveSymptoms)

	t.Run("miss classifies and stores", func(t *testing.T) {
		c := new(MockCache)
		c.On("Get", ctx, mock.AnythingOfType("string")).Return(domain.ClassificationResult{}, false, nil)
		c.On("Set", ctx, mock.AnythingOfType("string"), want).Return(nil).Once()

		svc := newTestService(nil, c, nil)
		rec, err := svc.Screen(ctx, ScreenRequest{Symptoms: positiveSymptoms})
		require.NoError(t, err)
		assert.Equal(t, want, rec.Result)
		c.AssertExpectations(t)
	})

	t.Run("hit skips the engine", func(t *testing.T) {
		cachedResult := want.Clone()
		cachedResult.Reasons = append(cachedResult.Reasons, "from cache")

		c := new(MockCache)
		c.On("Get", ctx, mock.AnythingOfType("string")).Return(cachedResult, true, nil)

		svc := newTestService(nil, c, nil)
		rec, err := svc.Screen(ctx, ScreenRequest{Symptoms: positiveSymptoms})
		require.NoError(t, err)
		assert.Contains(t, rec.Result.Reasons, "from cache")
		c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stale rule version is recomputed", func(t *testing.T) {
		stale := want.Clone()
		stale.RuleVersion = "2.0.0"

		c := new(MockCache)
		c.On("Get", ctx, mock.AnythingOfType("string")).Return(stale, true, nil)
		c.On("Set", ctx, mock.AnythingOfType("string"), want).Return(nil)

		svc := newTestService(nil, c, nil)
		rec, err := svc.Screen(ctx, ScreenRequest{Symptoms: positiveSymptoms})
		require.NoError(t, err)
		assert.Equal(t, RuleVersion, rec.Result.RuleVersion)
	})

	t.Run("cache errors degrade gracefully", func(t *testing.T) {
		c := new(MockCache)
		c.On("Get", ctx, mock.AnythingOfType("string")).Return(domain.ClassificationResult{}, false, errors.New("redis down"))
		c.On("Set", ctx, mock.AnythingOfType("string"), mock.Anything).Return(errors.New("redis down"))

		svc := newTestService(nil, c, nil)
		rec, err := svc.Screen(ctx, ScreenRequest{Symptoms: positiveSymptoms})
		require.NoError(t, err)
		assert.Equal(t, want, rec.Result)
	})
}

func TestClassifierService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an id", func(t *testing.T) {
		_, err := newTestService(new(MockRepository), nil, nil).Get(ctx, "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("without repository", func(t *testing.T) {
		_, err := newTestService(nil, nil, nil).Get(ctx, "abc")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delegates to repository", func(t *testing.T) {
		stored := &domain.ScreeningRecord{ID: "abc"}
		repo := new(MockRepository)
		repo.On("Get", ctx, "abc").Return(stored, nil)

		got, err := newTestService(repo, nil, nil).Get(ctx, "abc")
		require.NoError(t, err)
		assert.Same(t, stored, got)
	})
}

func TestClassifierService_History(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		limit     int
		offset    int
		wantLimit int
		wantErr   bool
	}{
		{name: "default limit", limit: 0, wantLimit: DefaultHistoryLimit},
		{name: "explicit limit", limit: 5, offset: 10, wantLimit: 5},
		{name: "capped limit", limit: 1000, wantLimit: MaxHistoryLimit},
		{name: "negative limit", limit: -1, wantErr: true},
		{name: "negative offset", offset: -3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			items := []*domain.ScreeningRecord{{ID: "a"}, {ID: "b"}}
			repo.On("List", ctx, "alice", tt.wantLimit, tt.offset).Return(items, nil)
			repo.On("Count", ctx, "alice").Return(int64(12), nil)

			page, err := newTestService(repo, nil, nil).History(ctx, "alice", tt.limit, tt.offset)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, page.Limit)
			assert.Equal(t, tt.offset, page.Offset)
			assert.Equal(t, int64(12), page.Total)
			assert.Len(t, page.Items, 2)
		})
	}

	t.Run("list error", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("List", ctx, "", DefaultHistoryLimit, 0).Return(nil, errors.New("db down"))

		_, err := newTestService(repo, nil, nil).History(ctx, "", 0, 0)
		assert.Error(t, err)
	})

	t.Run("without repository", func(t *testing.T) {
		page, err := newTestService(nil, nil, nil).History(ctx, "", 0, 0)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.NotNil(t, page.Items)
	})
}
