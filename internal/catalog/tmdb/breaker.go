package tmdb

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"cinespin/internal/logging"
	"cinespin/internal/metrics"
	"cinespin/internal/services"
)

// BreakerSettings tunes the TMDB circuit breaker.
type BreakerSettings struct {
	Name         string
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
	Logger       *slog.Logger
}

// Breaker wraps TMDB calls with a circuit breaker so a failing catalog is not
// hammered by every validator batch. Not-found answers and cancelled
// requests count as successes; only upstream failures trip it.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker[[]byte]
	name   string
	logger *slog.Logger
}

// NewBreaker creates a breaker. It opens once at least MinRequests calls were
// seen in the current interval and the failure ratio reaches FailureRatio.
func NewBreaker(settings BreakerSettings) *Breaker {
	name := settings.Name
	if name == "" {
		name = "tmdb-api"
	}
	logger := logging.NewComponentLogger(settings.Logger, "tmdb-breaker")
	minRequests := max(settings.MinRequests, 1)
	ratio := settings.FailureRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.6
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	b := &Breaker{name: name, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= ratio {
				logging.WarnWithContext(logger, "opening tmdb circuit", "circuit_open",
					logging.Int("failures", int(counts.TotalFailures)),
					logging.Float64("failure_ratio", failureRatio),
					logging.String(logging.FieldErrorHint, "check TMDB status and network connectivity"),
					logging.String(logging.FieldImpact, "catalog lookups fail fast until the breaker half-opens"),
				)
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("tmdb circuit state changed",
				logging.String("from", stateToString(from)),
				logging.String("to", stateToString(to)),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, services.ErrNotFound) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
	})
	return b
}

// Execute runs fn under the breaker. A nil Breaker runs fn directly.
func (b *Breaker) Execute(fn func() ([]byte, error)) ([]byte, error) {
	if b == nil {
		return fn()
	}
	body, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		return body, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, services.Wrap(services.ErrUpstream, "tmdb", "breaker", "request rejected", err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return nil, err
	}
}

// State returns the breaker state as "closed", "half-open" or "open".
func (b *Breaker) State() string {
	if b == nil {
		return stateToString(gobreaker.StateClosed)
	}
	return stateToString(b.cb.State())
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
