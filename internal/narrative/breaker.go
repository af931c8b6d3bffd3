package narrative

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pcos-screening-server/internal/domain"
)

// BreakerConfig represents circuit breaker configuration
type BreakerConfig struct {
	Name        string        `json:"name"`
	MaxRequests uint32        `json:"max_requests"`
	Interval    time.Duration `json:"interval"`
	Timeout     time.Duration `json:"timeout"`
}

// BreakerGenerator wraps a remote generator with a circuit breaker and
// answers from a fallback generator while the remote one is failing.
type BreakerGenerator struct {
	primary  domain.NarrativeGenerator
	fallback domain.NarrativeGenerator
	breaker  *gobreaker.CircuitBreaker
	logger   *logrus.Logger
}

// NewBreakerGenerator creates a circuit-breaking generator. A nil fallback
// makes failures visible to the caller.
func NewBreakerGenerator(primary, fallback domain.NarrativeGenerator, config BreakerConfig, logger *logrus.Logger) *BreakerGenerator {
	if config.Name == "" {
		config.Name = "narrative"
	}
	if config.MaxRequests == 0 {
		config.MaxRequests = 1
	}
	if config.Interval == 0 {
		config.Interval = time.Minute
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	g := &BreakerGenerator{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Narrative circuit breaker state changed")
			}
		},
	})
	return g
}

// Explain implements domain.NarrativeGenerator.
func (g *BreakerGenerator) Explain(ctx context.Context, input domain.NarrativeInput) (string, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.primary.Explain(ctx, input)
	})
	if err == nil {
		return out.(string), nil
	}

	if g.logger != nil {
		g.logger.WithError(err).WithField("open", errors.Is(err, gobreaker.ErrOpenState)).
			Warn("Narrative generator failed, using fallback")
	}
	if g.fallback == nil {
		return "", errors.Join(domain.ErrNarrativeUnavailable, err)
	}
	return g.fallback.Explain(ctx, input)
}

// State reports the breaker state for health checks.
func (g *BreakerGenerator) State() gobreaker.State {
	return g.breaker.State()
}
