// Package thresholds supplies the four risk and matching tunables consumed
// by the scorer and matcher.
//
// Values are read from a settings store through a bounded-staleness cache.
// When the store or cache is unavailable the provider serves the documented
// default for the key and logs a degraded-mode warning; a threshold lookup
// never fails an assessment.
package thresholds

import (
	"context"
	"errors"
	"log/slog"

	"benefid/pkg/platform/sentinel"
)

// Keys for the configurable thresholds.
const (
	KeyRiskLookbackDays       = "risk.lookback_days"
	KeySameTypeWindowDays     = "risk.same_type_window_days"
	KeyHighFrequencyThreshold = "risk.high_frequency_threshold"
	KeyEditDistanceThreshold  = "match.edit_distance_threshold"
)

// Documented defaults, used when the settings store is unavailable or a key
// has never been set.
var defaults = map[string]int{
	KeyRiskLookbackDays:       90,
	KeySameTypeWindowDays:     30,
	KeyHighFrequencyThreshold: 3,
	KeyEditDistanceThreshold:  3,
}

// Default returns the documented default for a key, or 0 for unknown keys.
func Default(key string) int {
	return defaults[key]
}

// Keys returns the known threshold keys in a stable order.
func Keys() []string {
	return []string{
		KeyRiskLookbackDays,
		KeySameTypeWindowDays,
		KeyHighFrequencyThreshold,
		KeyEditDistanceThreshold,
	}
}

// Store is the typed settings lookup backing the provider. Implementations
// return sentinel.ErrNotFound for unset keys and sentinel.ErrUnavailable
// (possibly wrapped) for infrastructure failures.
type Store interface {
	GetInt(ctx context.Context, key string) (int, error)
	SetInt(ctx context.Context, key string, value int) error
}

// Provider answers threshold lookups. Callers read through it on every
// assessment so an admin's change takes effect without redeploying.
type Provider struct {
	store  Store
	logger *slog.Logger
}

// Option configures the Provider.
type Option func(*Provider)

// WithLogger sets a logger for degraded-mode warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// New constructs a Provider. A nil store serves defaults only.
func New(store Store, opts ...Option) *Provider {
	p := &Provider{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetInt returns the current value for key, falling back to the documented
// default when the key is unset or the store is unavailable. Unknown keys
// return 0.
func (p *Provider) GetInt(ctx context.Context, key string) int {
	fallback, known := defaults[key]
	if !known {
		if p.logger != nil {
			p.logger.WarnContext(ctx, "unknown threshold key requested", "key", key)
		}
		return 0
	}
	if p.store == nil {
		return fallback
	}

	value, err := p.store.GetInt(ctx, key)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) && p.logger != nil {
			p.logger.WarnContext(ctx, "threshold lookup degraded, serving default",
				"key", key, "default", fallback, "error", err)
		}
		return fallback
	}
	return value
}
