package numbers

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// MinValue is the inclusive lower bound of every generated integer.
const MinValue = 0

// Default generator settings.
const (
	DefaultSize = 3
	DefaultMax  = math.MaxInt32
)

// ErrMisconfigured indicates the generator bounds cannot produce values.
var ErrMisconfigured = errors.New("numbers: generator misconfigured")

// Config holds the generator bounds.
type Config struct {
	// Size is the number of integers produced per call (num_size).
	Size int

	// Max is the exclusive upper bound of each integer (num_max).
	Max int32
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{Size: DefaultSize, Max: DefaultMax}
}

// Validate reports whether the bounds can produce values.
func (c Config) Validate() error {
	if c.Size < 0 {
		return fmt.Errorf("%w: num_size must be >= 0, got %d", ErrMisconfigured, c.Size)
	}
	if c.Max <= MinValue {
		return fmt.Errorf("%w: num_max must be > %d, got %d", ErrMisconfigured, MinValue, c.Max)
	}
	return nil
}

// Generator produces lists of random integers.
//
// Contract:
// - Concurrency: safe for concurrent use; the default source is the
// math/rand/v2 global generator.
// - Errors: NextInts returns an error wrapping ErrMisconfigured when the
// bounds are invalid and never returns partial output.
type Generator struct {
	config Config
	intN   func(n int32) int32
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithIntN replaces the random source. fn must return a value in [0, n)
// and be safe for concurrent use if the generator is shared.
func WithIntN(fn func(n int32) int32) GeneratorOption {
	return func(g *Generator) {
		if fn != nil {
			g.intN = fn
		}
	}
}

// NewGenerator creates a generator for the given bounds.
// The bounds are not validated here; see ConfigProbe.
func NewGenerator(config Config, opts ...GeneratorOption) *Generator {
	g := &Generator{
		config: config,
		intN:   rand.Int32N,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the generator bounds.
func (g *Generator) Config() Config {
	return g.config
}

// NextInts returns Size integers, each drawn uniformly from [MinValue, Max).
func (g *Generator) NextInts() ([]int32, error) {
	if err := g.config.Validate(); err != nil {
		return nil, err
	}

	values := make([]int32, g.config.Size)
	for i := range values {
		values[i] = MinValue + g.intN(g.config.Max-MinValue)
	}
	return values, nil
}
