package engine

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/reconscan/internal/worker"
)

// Default engine settings.
const (
	DefaultMaxConcurrency = 10
	DefaultTimeout        = 60 * time.Second
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxConcurrency sets the number of invocations that may run at once
// across all workers. Non-positive values are ignored.
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// WithIntensityLimit caps the number of concurrent invocations of workers of
// the given tier. The global bound still applies. Non-positive values remove
// the cap.
func WithIntensityLimit(tier worker.Intensity, n int) Option {
	return func(e *Engine) {
		if n <= 0 {
			delete(e.intensityLimits, tier)
			return
		}
		e.intensityLimits[tier] = n
	}
}

// WithRateLimit limits how many invocations of the given tier may start per
// second. Non-positive values remove the limit.
func WithRateLimit(tier worker.Intensity, perSecond float64) Option {
	return func(e *Engine) {
		if perSecond <= 0 {
			delete(e.rateLimits, tier)
			return
		}
		e.rateLimits[tier] = rate.Limit(perSecond)
	}
}

// WithMaxIntensity excludes workers above tier from routing.
func WithMaxIntensity(tier worker.Intensity) Option {
	return func(e *Engine) {
		e.maxIntensity = tier
	}
}

// WithTimeout sets the per-invocation timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.timeout = d
		}
	}
}

// WithMaxDepth stops dispatching values discovered at the given depth; they
// are still emitted. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth >= 0 {
			e.maxDepth = depth
		}
	}
}

// WithObserver registers a function called once for every finished
// invocation. It may be called concurrently.
func WithObserver(fn func(worker.Invocation)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}
