package cache

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

func sampleResult() domain.ClassificationResult {
	return domain.ClassificationResult{
		Phenotype:        domain.PhenotypeLowLikelihood,
		Confidence:       90,
		Reasons:          []string{"No PCOS criteria met.", domain.Disclaimer},
		DataQualityScore: 44,
		RuleVersion:      "3.0.0",
		Branch:           domain.BranchLowLikelihood,
	}
}

func TestKey(t *testing.T) {
	a := domain.SymptomRecord{Acne: domain.No()}
	b := domain.SymptomRecord{}
	c := domain.SymptomRecord{Acne: domain.No()}

	keyA, err := Key(a, "3.0.0")
	require.NoError(t, err)
	keyB, err := Key(b, "3.0.0")
	require.NoError(t, err)
	keyC, err := Key(c, "3.0.0")
	require.NoError(t, err)
	keyOther, err := Key(a, "3.1.0")
	require.NoError(t, err)

	assert.Equal(t, keyA, keyC)
	assert.NotEqual(t, keyA, keyB, "reported false must differ from unknown")
	assert.NotEqual(t, keyA, keyOther, "rule version is part of the key")
	assert.Contains(t, keyA, "pcos:result:3.0.0:")
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(2, time.Minute)

	_, found, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "a", sampleResult()))
	got, found, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sampleResult(), got)

	got.Reasons[0] = "mutated"
	again, _, _ := cache.Get(ctx, "a")
	assert.Equal(t, "No PCOS criteria met.", again.Reasons[0])

	require.NoError(t, cache.Set(ctx, "b", sampleResult()))
	require.NoError(t, cache.Set(ctx, "c", sampleResult()))
	assert.Equal(t, 2, cache.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10, 20*time.Millisecond)
	require.NoError(t, cache.Set(ctx, "a", sampleResult()))

	assert.Eventually(t, func() bool {
		_, found, _ := cache.Get(ctx, "a")
		return !found
	}, time.Second, 10*time.Millisecond)
}

type MockResultCache struct {
	mock.Mock
}

func (m *MockResultCache) Get(ctx context.Context, key string) (domain.ClassificationResult, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.ClassificationResult), args.Bool(1), args.Error(2)
}

func (m *MockResultCache) Set(ctx context.Context, key string, result domain.ClassificationResult) error {
	args := m.Called(ctx, key, result)
	return args.Error(0)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestTieredCache(t *testing.T) {
	ctx := context.Background()

	t.Run("remote hit back-fills local", func(t *testing.T) {
		local := NewMemoryCache(10, time.Minute)
		remote := new(MockResultCache)
		remote.On("Get", ctx, "k").Return(sampleResult(), true, nil).Once()

		cache := NewTieredCache(local, remote, quietLogger())
		got, found, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, sampleResult(), got)

		// Second lookup is served locally.
		_, found, err = cache.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		remote.AssertExpectations(t)
	})

	t.Run("remote error is a miss", func(t *testing.T) {
		remote := new(MockResultCache)
		remote.On("Get", ctx, "k").Return(domain.ClassificationResult{}, false, errors.New("connection refused"))

		cache := NewTieredCache(NewMemoryCache(10, time.Minute), remote, quietLogger())
		_, found, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("set writes both tiers and tolerates remote failure", func(t *testing.T) {
		local := NewMemoryCache(10, time.Minute)
		remote := new(MockResultCache)
		remote.On("Set", ctx, "k", sampleResult()).Return(errors.New("read only replica"))

		cache := NewTieredCache(local, remote, quietLogger())
		require.NoError(t, cache.Set(ctx, "k", sampleResult()))
		assert.Equal(t, 1, local.Len())
		remote.AssertExpectations(t)
	})

	t.Run("no remote tier", func(t *testing.T) {
		cache := NewTieredCache(NewMemoryCache(10, time.Minute), nil, quietLogger())
		_, found, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, found)
	})
}
