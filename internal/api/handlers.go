package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pcos-screening-server/internal/domain"
	"github.com/pcos-screening-server/internal/middleware"
	"github.com/pcos-screening-server/internal/service"
)

// userIDHeader identifies the caller when the body carries no user_id.
const userIDHeader = "X-User-ID"

// ClassifyRequest is the body of POST /api/v1/classify.
type ClassifyRequest struct {
	Symptoms         map[string]any `json:"symptoms" binding:"required"`
	UserID           string         `json:"user_id"`
	IncludeNarrative bool           `json:"include_narrative"`
}

// handleHealth reports liveness and the state of each registered dependency.
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(c.Request.Context()); err != nil {
			deps[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			s.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			continue
		}
		deps[name] = "healthy"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":       overall,
		"timestamp":    time.Now().UTC(),
		"version":      s.version,
		"rule_version": service.RuleVersion,
		"dependencies": deps,
	})
}

// handleClassify screens one symptom record.
func (s *Server) handleClassify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, domain.NewValidationError("symptoms", "request body must be a JSON object with a symptoms object", nil))
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = c.GetHeader(userIDHeader)
	}

	record, err := s.classifier.Screen(c.Request.Context(), service.ScreenRequest{
		Symptoms:         req.Symptoms,
		UserID:           userID,
		RequestID:        c.GetString(middleware.CorrelationIDKey),
		IncludeNarrative: req.IncludeNarrative,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// handleGetScreening returns one stored screening.
func (s *Server) handleGetScreening(c *gin.Context) {
	record, err := s.classifier.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// handleHistory lists one user's screenings newest first.
func (s *Server) handleHistory(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		s.writeError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		s.writeError(c, err)
		return
	}

	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		userID = strings.TrimSpace(c.GetHeader(userIDHeader))
	}
	if userID == "" {
		s.writeError(c, domain.NewValidationError("user_id", "is required (query parameter or "+userIDHeader+" header)", nil))
		return
	}

	page, err := s.classifier.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// handleRules describes the frozen rule set.
func (s *Server) handleRules(c *gin.Context) {
	c.JSON(http.StatusOK, s.classifier.Rules())
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer", raw)
	}
	return v, nil
}

// writeError maps an error to a status and a stable error code. Internal
// details are logged, never returned.
func (s *Server) writeError(c *gin.Context, err error) {
	code := domain.ErrorCode(err)
	status := statusFor(code)
	correlationID := c.GetString(middleware.CorrelationIDKey)

	message := http.StatusText(status)
	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		message = "request timed out"
	case errors.As(err, &validationErr):
		message = validationErr.Error()
	case status < http.StatusInternalServerError:
		message = err.Error()
	default:
		s.logger.WithError(err).WithField("correlation_id", correlationID).Error("Request failed")
	}

	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, "", correlationID))
}

func statusFor(code string) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeValidation, domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
