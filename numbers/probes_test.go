package numbers

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jonwraymond/numbers/health"
)

func TestConfigProbe_Name(t *testing.T) {
	probe := NewConfigProbe(NewGenerator(DefaultConfig()))

	if probe.Name() != "numbers.config" {
		t.Errorf("Name() = %v, want 'numbers.config'", probe.Name())
	}
}

func TestConfigProbe_Check(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want health.Status
	}{
		{"negative size", Config{Size: -1, Max: math.MaxInt32}, health.StatusDown},
		{"zero max", Config{Size: 3, Max: 0}, health.StatusDown},
		{"negative max", Config{Size: 3, Max: -1}, health.StatusDown},
		{"valid", Config{Size: 3, Max: 100}, health.StatusUp},
		{"zero size", Config{Size: 0, Max: 100}, health.StatusUp},
		{"defaults", DefaultConfig(), health.StatusUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewConfigProbe(NewGenerator(tt.cfg)).Check(context.Background())

			if result.Status != tt.want {
				t.Errorf("Status = %v, want %v", result.Status, tt.want)
			}
			if result.Name != ConfigProbeName {
				t.Errorf("Name = %v, want %v", result.Name, ConfigProbeName)
			}
			if result.Data["num_size"] != tt.cfg.Size {
				t.Errorf("Data[num_size] = %v, want %d", result.Data["num_size"], tt.cfg.Size)
			}
			if result.Data["num_max"] != tt.cfg.Max {
				t.Errorf("Data[num_max] = %v, want %d", result.Data["num_max"], tt.cfg.Max)
			}
			if tt.want == health.StatusDown && !errors.Is(result.Error, ErrMisconfigured) {
				t.Errorf("Error = %v, want ErrMisconfigured", result.Error)
			}
		})
	}
}

func TestRandomFailureProbe_Name(t *testing.T) {
	probe := NewRandomFailureProbe(0)

	if probe.Name() != "numbers.randomFailure" {
		t.Errorf("Name() = %v, want 'numbers.randomFailure'", probe.Name())
	}
}

func TestRandomFailureProbe_Data(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{0, "0.0"},
		{0.85, "0.85"},
		{1, "1.0"},
		{-0.5, "-0.5"},
		{2, "2.0"},
	}

	for _, tt := range tests {
		result := NewRandomFailureProbe(tt.rate).Check(context.Background())
		if result.Data["num_failure_rate"] != tt.want {
			t.Errorf("rate %v: Data[num_failure_rate] = %v, want %q", tt.rate, result.Data["num_failure_rate"], tt.want)
		}
	}
}

func TestRandomFailureProbe_StrictComparison(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		draw float64
		want health.Status
	}{
		{"zero draw at zero rate is down", 0, 0, health.StatusDown},
		{"small draw at zero rate is up", 0, 1e-9, health.StatusUp},
		{"draw equal to rate is down", 0.5, 0.5, health.StatusDown},
		{"draw above rate is up", 0.5, 0.51, health.StatusUp},
		{"draw below rate is down", 0.5, 0.49, health.StatusDown},
		{"rate one is down", 1, 0.999999, health.StatusDown},
		{"negative rate is up", -1, 0, health.StatusUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := NewRandomFailureProbe(tt.rate, WithFloat64(func() float64 { return tt.draw }))
			result := probe.Check(context.Background())

			if result.Status != tt.want {
				t.Errorf("Status = %v, want %v", result.Status, tt.want)
			}
			if result.Status == health.StatusDown && !errors.Is(result.Error, health.ErrSimulatedFailure) {
				t.Errorf("Error = %v, want ErrSimulatedFailure", result.Error)
			}
		})
	}
}

func TestRandomFailureProbe_Statistical(t *testing.T) {
	const trials = 10000

	count := func(rate float64) (down int) {
		probe := NewRandomFailureProbe(rate)
		for i := 0; i < trials; i++ {
			if probe.Check(context.Background()).Status == health.StatusDown {
				down++
			}
		}
		return down
	}

	if down := count(0); down > 1 {
		t.Errorf("rate 0: %d/%d down, want ~0", down, trials)
	}
	if down := count(1); down != trials {
		t.Errorf("rate 1: %d/%d down, want all", down, trials)
	}
	if down := count(0.5); down < trials*4/10 || down > trials*6/10 {
		t.Errorf("rate 0.5: %d/%d down, want ~half", down, trials)
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{0, "0.0"},
		{0.1, "0.1"},
		{0.25, "0.25"},
		{1, "1.0"},
		{-1, "-1.0"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
	}

	for _, tt := range tests {
		if got := FormatRate(tt.rate); got != tt.want {
			t.Errorf("FormatRate(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}
