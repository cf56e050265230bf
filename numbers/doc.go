// Package numbers generates lists of random integers and reports on the
// health of that generation.
//
// A Generator draws Size integers from the half-open range [MinValue, Max).
// Two health checkers accompany it:
//
//   - ConfigProbe ("numbers.config") reports whether the generator bounds are
//     usable, so operators see a bad num_size or num_max on the health
//     endpoint before the data endpoint starts failing.
//   - RandomFailureProbe ("numbers.randomFailure") goes DOWN at a configured
//     rate. It is unrelated to real health and exists to exercise
//     orchestration and monitoring.
//
// # Basic Usage
//
//	gen := numbers.NewGenerator(numbers.Config{Size: 5, Max: 10})
//	values, err := gen.NextInts()
//
//	agg := health.NewAggregator()
//	agg.Register(numbers.ConfigProbeName, numbers.NewConfigProbe(gen))
//	agg.Register(numbers.RandomFailureProbeName, numbers.NewRandomFailureProbe(0.1))
package numbers
