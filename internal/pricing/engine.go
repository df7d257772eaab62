package pricing

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Config holds the process-wide pricing parameters.
type Config struct {
	// Margin is the fractional markup applied to every projection (0.20 = 20%).
	Margin          float64
	MinVolume       float64
	MaxVolume       float64
	StandardVolumes []float64
}

// DefaultConfig returns the standard Northern Ireland configuration.
func DefaultConfig() Config {
	return Config{
		Margin:          0.20,
		MinVolume:       100,
		MaxVolume:       2000,
		StandardVolumes: []float64{300, 500, 900},
	}
}

// Validate reports whether the configuration can back an Engine.
func (c Config) Validate() error {
	if math.IsNaN(c.Margin) || math.IsInf(c.Margin, 0) || c.Margin < 0 {
		return fmt.Errorf("pricing: margin must be a non-negative finite number, got %v", c.Margin)
	}
	if !positive(c.MinVolume) || !positive(c.MaxVolume) || c.MinVolume > c.MaxVolume {
		return fmt.Errorf("pricing: volume bounds must satisfy 0 < min <= max, got [%v, %v]", c.MinVolume, c.MaxVolume)
	}
	if len(c.StandardVolumes) == 0 {
		return errors.New("pricing: at least one standard volume is required")
	}
	for i, v := range c.StandardVolumes {
		if !positive(v) {
			return fmt.Errorf("pricing: standard volume must be positive, got %v", v)
		}
		if i > 0 && v <= c.StandardVolumes[i-1] {
			return fmt.Errorf("pricing: standard volumes must be strictly ascending, got %v", c.StandardVolumes)
		}
	}
	return nil
}

// Engine projects prices and classifies volumes using an injected Config.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and constructs an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.StandardVolumes = slices.Clone(cfg.StandardVolumes)
	return &Engine{cfg: cfg}, nil
}

// Margin returns the configured margin fraction.
func (e *Engine) Margin() float64 { return e.cfg.Margin }

// VolumeBounds returns the inclusive volume range accepted by IsValidVolume.
func (e *Engine) VolumeBounds() (min, max float64) { return e.cfg.MinVolume, e.cfg.MaxVolume }

// StandardVolumes returns a copy of the standard volume set in configured order.
func (e *Engine) StandardVolumes() []float64 { return slices.Clone(e.cfg.StandardVolumes) }

// ProjectPrice estimates the price of targetVolume from a known basePrice for
// baseVolume at a constant unit rate, then applies the margin.
func (e *Engine) ProjectPrice(basePrice, baseVolume, targetVolume float64) (float64, error) {
	if !positive(basePrice) {
		return 0, &InputError{Field: "base price", Value: basePrice}
	}
	if !positive(baseVolume) {
		return 0, &InputError{Field: "base volume", Value: baseVolume}
	}
	if !positive(targetVolume) {
		return 0, &InputError{Field: "target volume", Value: targetVolume}
	}
	unitRate := basePrice / baseVolume
	return unitRate * targetVolume * (1 + e.cfg.Margin), nil
}

// IsValidVolume reports whether volume lies within the configured bounds, inclusive.
func (e *Engine) IsValidVolume(volume float64) bool {
	return volume >= e.cfg.MinVolume && volume <= e.cfg.MaxVolume
}

// ClosestStandardVolume returns the standard volume nearest to volume. On a
// tie the earlier entry wins, which for an ascending set is the smaller one.
func (e *Engine) ClosestStandardVolume(volume float64) float64 {
	best := e.cfg.StandardVolumes[0]
	for _, candidate := range e.cfg.StandardVolumes[1:] {
		if math.Abs(candidate-volume) < math.Abs(best-volume) {
			best = candidate
		}
	}
	return best
}

// CalculateSavings returns how much cheaper actualPrice is than averagePrice, never below zero.
func CalculateSavings(actualPrice, averagePrice float64) float64 {
	return math.Max(0, averagePrice-actualPrice)
}

// CalculateDiscountPercentage returns the discount from originalPrice to
// discountedPrice as a percentage clamped into [0, 100].
func CalculateDiscountPercentage(originalPrice, discountedPrice float64) float64 {
	if !(originalPrice > 0) {
		return 0
	}
	pct := (originalPrice - discountedPrice) / originalPrice * 100
	if math.IsNaN(pct) {
		return 0
	}
	return math.Min(100, math.Max(0, pct))
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
