package testkit

import (
	"fmt"
	"math"

	"gopairs/domain/core"
	"gopairs/domain/pricetable"
)

// Noise returns a deterministic pseudo-random value in [-0.5, 0.5) for step i.
// It is a pure function of (i, seed), so fixtures are identical on every run
// and independent of math/rand's stream.
func Noise(i, seed int) float64 {
	v := math.Sin(float64(i)*12.9898+float64(seed)*78.233) * 43758.5453
	return v - math.Floor(v) - 0.5
}

// RandomWalk returns start + cumulative Noise, an I(1) series
func RandomWalk(n int, start float64, seed int) []float64 {
	out := make([]float64, n)
	x := start
	for i := 0; i < n; i++ {
		x += Noise(i, seed)
		out[i] = x
	}
	return out
}

// AR1 returns u_t = phi·u_{t-1} + scale·Noise(t), stationary for |phi| < 1
func AR1(n int, phi float64, seed int, scale float64) []float64 {
	out := make([]float64, n)
	u := 0.0
	for i := 0; i < n; i++ {
		u = phi*u + scale*Noise(i, seed)
		out[i] = u
	}
	return out
}

// PairConfig describes y = Alpha + Beta·x + AR(1) spread, x a random walk
type PairConfig struct {
	N     int
	Start float64
	Alpha float64
	Beta  float64
	Phi   float64
	Scale float64
	Seed  int
}

// DefaultPairConfig is a 100-step pair with a nonzero offset and a persistent spread
func DefaultPairConfig() PairConfig {
	return PairConfig{N: 100, Start: 50, Alpha: 10, Beta: 0.8, Phi: 0.8, Scale: 1, Seed: 1}
}

// CointegratedPair generates (y, x) per cfg
func CointegratedPair(cfg PairConfig) (y, x []float64) {
	x = RandomWalk(cfg.N, cfg.Start, cfg.Seed)
	spread := AR1(cfg.N, cfg.Phi, cfg.Seed+1, cfg.Scale)
	y = make([]float64, cfg.N)
	for i := range y {
		y[i] = cfg.Alpha + cfg.Beta*x[i] + spread[i]
	}
	return y, x
}

// Constant returns n copies of v
func Constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Affine returns a·x + b elementwise
func Affine(x []float64, a, b float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = a*v + b
	}
	return out
}

// MustTable builds a table and panics on error
func MustTable(series ...pricetable.Series) *pricetable.Table {
	t, err := pricetable.New(series...)
	if err != nil {
		panic(fmt.Sprintf("testkit: %v", err))
	}
	return t
}

// Universe returns a table of n independent random walks named S00, S01, ...
func Universe(n, length int, seed int) *pricetable.Table {
	series := make([]pricetable.Series, n)
	for i := range series {
		series[i] = pricetable.Series{
			ID:     core.InstrumentID(fmt.Sprintf("S%02d", i)),
			Values: RandomWalk(length, 100, seed+i*7),
		}
	}
	return MustTable(series...)
}

// ABC is the three-instrument fixture: B = 2·A exactly, C unrelated
func ABC() *pricetable.Table {
	return MustTable(
		pricetable.Series{ID: "A", Values: []float64{1, 2, 3, 4, 5}},
		pricetable.Series{ID: "B", Values: []float64{2, 4, 6, 8, 10}},
		pricetable.Series{ID: "C", Values: []float64{5, 3, 1, 6, 2}},
	)
}
