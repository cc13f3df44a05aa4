// Package forecast produces mocked e-bike availability predictions.
package forecast

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"bicing-dashboard/internal/modules/bicing/types"
)

const (
	DefaultHorizon = 20
	DefaultHistory = 30
	DefaultDelay   = 3 * time.Second

	// noiseStdDev is the spread of samples around the last observation.
	noiseStdDev = 0.8
)

// ErrEmptyInput is returned when there is no observation to predict from.
var ErrEmptyInput = errors.New("forecast needs at least one observation")

// Model samples Normal(last, 0.8) for each future step. It stands in for a
// real model, including its latency.
type Model struct {
	horizon int
	history int
	delay   time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Model)

// WithDelay sets the simulated inference latency. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(m *Model) { m.delay = max(d, 0) }
}

// WithRand sets the random source, for reproducible output.
func WithRand(r *rand.Rand) Option {
	return func(m *Model) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithHorizon sets the number of predicted steps.
func WithHorizon(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.horizon = n
		}
	}
}

// WithHistory sets how many trailing observations Run keeps.
func WithHistory(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.history = n
		}
	}
}

func New(opts ...Option) *Model {
	m := &Model{
		horizon: DefaultHorizon,
		history: DefaultHistory,
		delay:   DefaultDelay,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Predict returns horizon non-negative values within the int8 range.
// Consecutive calls with the same input are not expected to agree.
func (m *Model) Predict(ctx context.Context, recent []int64) ([]int64, error) {
	if len(recent) == 0 {
		return nil, ErrEmptyInput
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	last := float64(recent[len(recent)-1])
	out := make([]int64, m.horizon)

	m.mu.Lock()
	for i := range out {
		out[i] = clip(last + m.rng.NormFloat64()*noiseStdDev)
	}
	m.mu.Unlock()
	return out, nil
}

// Run forecasts from the trailing history of ebike, oldest first.
func (m *Model) Run(ctx context.Context, ebike []int64) (types.Forecast, error) {
	if len(ebike) == 0 {
		return types.Forecast{}, ErrEmptyInput
	}
	history := ebike[max(len(ebike)-m.history, 0):]

	predicted, err := m.Predict(ctx, history)
	if err != nil {
		return types.Forecast{}, err
	}

	series := make([]int64, 0, len(predicted)+1)
	series = append(series, history[len(history)-1])
	series = append(series, predicted...)

	return types.Forecast{
		History:   append([]int64(nil), history...),
		Predicted: predicted,
		Series:    series,
		Offset:    len(history) - 1,
	}, nil
}

func (m *Model) wait(ctx context.Context) error {
	if m.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// clip truncates toward zero into the int8 range and floors negatives at zero.
func clip(v float64) int64 {
	v = math.Trunc(v)
	v = math.Max(v, 0)
	v = math.Min(v, math.MaxInt8)
	return int64(v)
}
