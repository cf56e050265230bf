package numbers

import (
	"context"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/jonwraymond/numbers/health"
)

// Probe names as they appear in health reports.
const (
	ConfigProbeName        = "numbers.config"
	RandomFailureProbeName = "numbers.randomFailure"
)

// ConfigProbe reports whether a generator's bounds are usable.
type ConfigProbe struct {
	generator *Generator
}

// NewConfigProbe creates a config probe for the given generator.
func NewConfigProbe(generator *Generator) *ConfigProbe {
	return &ConfigProbe{generator: generator}
}

// Name returns the name of this checker.
func (p *ConfigProbe) Name() string {
	return ConfigProbeName
}

// Check validates the generator bounds. It never fails to produce a result.
func (p *ConfigProbe) Check(_ context.Context) health.Result {
	cfg := p.generator.Config()
	data := map[string]any{
		"num_size": cfg.Size,
		"num_max":  cfg.Max,
	}

	if err := cfg.Validate(); err != nil {
		return health.Down(ConfigProbeName, err).WithData(data)
	}
	return health.Up(ConfigProbeName).WithData(data)
}

// RandomFailureProbe goes DOWN at a configured rate.
//
// The probe is UP when a draw from [0, 1) is strictly greater than the rate,
// so a rate of 0 is DOWN only on a draw of exactly 0 and a rate of 1 is
// always DOWN. The rate is not validated: anything >= 1 behaves like 1 and
// anything < 0 is always UP.
type RandomFailureProbe struct {
	rate float64
	draw func() float64
}

// RandomFailureOption configures a RandomFailureProbe.
type RandomFailureOption func(*RandomFailureProbe)

// WithFloat64 replaces the random source. fn must return a value in [0, 1).
func WithFloat64(fn func() float64) RandomFailureOption {
	return func(p *RandomFailureProbe) {
		if fn != nil {
			p.draw = fn
		}
	}
}

// NewRandomFailureProbe creates a probe failing at the given rate.
func NewRandomFailureProbe(rate float64, opts ...RandomFailureOption) *RandomFailureProbe {
	p := &RandomFailureProbe{
		rate: rate,
		draw: rand.Float64,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the name of this checker.
func (p *RandomFailureProbe) Name() string {
	return RandomFailureProbeName
}

// Rate returns the configured failure rate.
func (p *RandomFailureProbe) Rate() float64 {
	return p.rate
}

// Check draws once and is UP only when the draw is strictly greater than
// the rate. A draw of exactly 0 is DOWN even at rate 0.
func (p *RandomFailureProbe) Check(_ context.Context) health.Result {
	data := map[string]any{
		"num_failure_rate": FormatRate(p.rate),
	}

	if p.draw() > p.rate {
		return health.Up(RandomFailureProbeName).WithData(data)
	}
	return health.Down(RandomFailureProbeName, health.ErrSimulatedFailure).WithData(data)
}

// FormatRate renders a failure rate the way it appears in health data: the
// shortest single-precision decimal, always with a fractional part, so 0
// renders as "0.0" and 0.85 as "0.85".
func FormatRate(rate float64) string {
	switch {
	case math.IsNaN(rate):
		return "NaN"
	case math.IsInf(rate, 1):
		return "Infinity"
	case math.IsInf(rate, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(rate, 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

var (
	_ health.Checker = (*ConfigProbe)(nil)
	_ health.Checker = (*RandomFailureProbe)(nil)
)
