package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pcos-screening-server/internal/domain"
	"github.com/pcos-screening-server/internal/service"
	"github.com/pcos-screening-server/internal/store"
)

type staticConfig struct {
	cfg *domain.Config
}

func (s *staticConfig) GetConfig() *domain.Config { return s.cfg }
func (s *staticConfig) Reload() error { return nil }
func (s *staticConfig) Validate() error { return nil }
func (s *staticConfig) GetDatabaseConnectionString() string { return "" }
func (s *staticConfig) IsProduction() bool { return false }

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Screen(ctx context.Context, req service.ScreenRequest) (*domain.ScreeningRecord, error) {
	args := m.Called(ctx, req)
	if rec, ok := args.Get(0).(*domain.ScreeningRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClassifier) Get(ctx context.Context, id string) (*domain.ScreeningRecord, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*domain.ScreeningRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClassifier) History(ctx context.Context, userID string, limit, offset int) (*domain.HistoryPage, error) {
	args := m.Called(ctx, userID, limit, offset)
	if page, ok := args.Get(0).(*domain.HistoryPage); ok {
		return page, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClassifier) Rules() service.RuleSetDescription {
	return service.DescribeRuleSet()
}

func testConfig() *staticConfig {
	return &staticConfig{cfg: &domain.Config{
		Server:  domain.ServerConfig{Host: "127.0.0.1", Port: 0},
		Logging: domain.LoggingConfig{Level: "error"},
	}}
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newIntegrationServer wires the real service to a temporary SQLite store.
func newIntegrationServer(t *testing.T) *Server {
	t.Helper()
	dir, err := os.MkdirTemp("", "api-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	st, err := store.NewSQLiteStore(filepath.Join(dir, "screenings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := silentLogger()
	svc := service.NewClassifierService(logger, st, nil, nil)
	return NewServer(testConfig(), svc, logger, WithVersion("test"))
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			payload, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := NewServer(testConfig(), new(MockClassifier), silentLogger(), WithVersion("1.2.3"),
			WithHealthCheck("database", func(context.Context) error { return nil }))

		w := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "1.2.3", body["version"])
		assert.Equal(t, service.RuleVersion, body["rule_version"])
	})

	t.Run("degraded dependency", func(t *testing.T) {
		srv := NewServer(testConfig(), new(MockClassifier), silentLogger(),
			WithHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") }))

		w := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"redis":"unhealthy"`)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestServer_ClassifyRoundTrip(t *testing.T) {
	srv := newIntegrationServer(t)
	h := srv.Handler()

	w := doJSON(t, h, http.MethodPost, "/api/v1/classify", map[string]any{
		"symptoms": map[string]any{
			"cycle_gap_days": 90, "dark_patches": true, "bmi": 32, "acne": true, "sugar_cravings": true,
		},
		"user_id": "alice",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created domain.ScreeningRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.UserID)
	assert.Equal(t, domain.PhenotypeInsulinResistant, created.Result.Phenotype)
	assert.InDelta(t, 73.6, created.Result.Confidence, 1e-9)
	assert.Equal(t, w.Header().Get("X-Correlation-ID"), created.RequestID)

	w = doJSON(t, h, http.MethodGet, "/api/v1/screenings/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched domain.ScreeningRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created.Result, fetched.Result)

	w = doJSON(t, h, http.MethodGet, "/api/v1/history?limit=5", nil, map[string]string{"X-User-ID": "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	var page domain.HistoryPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 5, page.Limit)
	require.Len(t, page.Items, 1)
	assert.Equal(t, created.ID, page.Items[0].ID)

	w = doJSON(t, h, http.MethodGet, "/api/v1/history?user_id=bob", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)
}

func TestServer_ClassifySafetyEscalation(t *testing.T) {
	srv := newIntegrationServer(t)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/classify", map[string]any{
		"symptoms": map[string]any{"heavy_bleeding": true, "cycle_gap_days": 120, "acne": true},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rec domain.ScreeningRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, domain.PhenotypeMedicalAttention, rec.Result.Phenotype)
	assert.Equal(t, 100.0, rec.Result.Confidence)
	assert.Equal(t, "Urgent Medical Review", rec.Result.DifferentialDiagnosis)
}

func TestServer_ClassifyBadRequests(t *testing.T) {
	srv := newIntegrationServer(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "not json", body: "{broken"},
		{name: "missing symptoms", body: map[string]any{"user_id": "x"}},
		{name: "symptoms not an object", body: map[string]any{"symptoms": []int{1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/classify", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), domain.CodeValidation)
		})
	}
}

func TestServer_WrongTypesAreUnknown(t *testing.T) {
	srv := newIntegrationServer(t)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/classify", map[string]any{
		"symptoms": map[string]any{"acne": "yes", "bmi": "thirty", "cycle_gap_days": nil},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rec domain.ScreeningRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, 0, rec.Result.DataQualityScore)
	assert.Equal(t, domain.PhenotypeLowLikelihood, rec.Result.Phenotype)
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound, domain.CodeNotFound},
		{"conflict", domain.ErrAlreadyClassified, http.StatusConflict, domain.CodeConflict},
		{"validation", domain.NewValidationError("id", "is required", nil), http.StatusBadRequest, domain.CodeValidation},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, domain.CodeInternalServer},
		{"internal", errors.New("pq: connection reset"), http.StatusInternalServerError, domain.CodeInternalServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := new(MockClassifier)
			classifier.On("Get", mock.Anything, "abc").Return(nil, tt.err)
			srv := NewServer(testConfig(), classifier, silentLogger())

			w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/screenings/abc", nil, nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			var apiErr domain.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.NotEmpty(t, apiErr.RequestID)
			assert.NotContains(t, apiErr.Message, "pq:")
		})
	}
}

func TestServer_HistoryQueryValidation(t *testing.T) {
	classifier := new(MockClassifier)
	srv := NewServer(testConfig(), classifier, silentLogger())

	for _, q := range []string{"limit=abc", "offset=1.5"} {
		w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/history?user_id=alice&"+q, nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
	classifier.AssertNotCalled(t, "History", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestServer_HistoryRequiresUser(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		headers    map[string]string
		wantStatus int
		wantUser   string
	}{
		{"no user", "", nil, http.StatusBadRequest, ""},
		{"blank query and header", "?user_id=%20", map[string]string{"X-User-ID": " "}, http.StatusBadRequest, ""},
		{"query parameter", "?user_id=alice", nil, http.StatusOK, "alice"},
		{"header", "", map[string]string{"X-User-ID": "bob"}, http.StatusOK, "bob"},
		{"query wins over header", "?user_id=alice", map[string]string{"X-User-ID": "bob"}, http.StatusOK, "alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := new(MockClassifier)
			if tt.wantUser != "" {
				classifier.On("History", mock.Anything, tt.wantUser, 0, 0).
					Return(&domain.HistoryPage{Limit: 20}, nil)
			}
			srv := NewServer(testConfig(), classifier, silentLogger())

			w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/history"+tt.query, nil, tt.headers)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantUser == "" {
				var apiErr domain.APIError
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
				assert.Equal(t, domain.CodeValidation, apiErr.Code)
				assert.Contains(t, apiErr.Message, "user_id")
				classifier.AssertNotCalled(t, "History", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
			classifier.AssertExpectations(t)
		})
	}
}

func TestServer_Rules(t *testing.T) {
	srv := NewServer(testConfig(), new(MockClassifier), silentLogger())

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/rules", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var desc service.RuleSetDescription
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &desc))
	assert.Equal(t, service.RuleVersion, desc.RuleVersion)
	require.NotEmpty(t, desc.Branches)
	assert.Equal(t, domain.BranchSafetyEscalation, desc.Branches[0].Branch)
}

func TestServer_RateLimitEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.cfg.RateLimit = domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	srv := NewServer(cfg, new(MockClassifier), silentLogger())

	assert.Equal(t, http.StatusOK, doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/rules", nil, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/rules", nil, nil).Code)
}

func init() {
	gin.SetMode(gin.TestMode)
}
