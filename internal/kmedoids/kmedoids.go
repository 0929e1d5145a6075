package kmedoids

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/banshee-data/geokmedoids/internal/monitoring"
)

// Distances is a symmetric pairwise distance table with a zero diagonal.
// distance.Matrix satisfies it.
type Distances interface {
	Len() int
	At(i, j int) float64
}

// Result is the outcome of a fit.
type Result struct {
	// Medoids holds K distinct indices into the input points; Medoids[l]
	// is the medoid of label l.
	Medoids []int
	// Labels assigns each point to a label in [0, K).
	Labels []int
	// Cost is the sum of distances from every point to its medoid.
	Cost float64
	// CostHistory starts with the cost after initialisation and gains
	// one entry per refinement iteration. It never increases.
	CostHistory []float64
	// Iterations is the number of refinement iterations run.
	Iterations int
	// CapReached is set when refinement stopped at MaxIter without
	// converging.
	CapReached bool
	// Elapsed is the wall-clock fit time.
	Elapsed time.Duration

	// Config is the effective configuration, defaults applied.
	Config Config
}

// Sizes returns the number of points carrying each label.
func (r *Result) Sizes() []int {
	sizes := make([]int, len(r.Medoids))
	for _, l := range r.Labels {
		sizes[l]++
	}
	return sizes
}

// Fit clusters the points described by d.
func Fit(ctx context.Context, d Distances, cfg Config) (*Result, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil distance table", ErrConfiguration)
	}
	n := d.Len()
	cfg, err := cfg.withDefaults(n)
	if err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	start := cfg.Clock.Now()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	var medoids []int
	switch cfg.Init {
	case InitRandom:
		medoids = initRandom(n, cfg.K, rng)
	case InitHeuristic:
		medoids = initHeuristic(d, cfg.K, rng)
	case InitKMedoidsPP:
		medoids = initKMedoidsPP(d, cfg.K, rng)
	case InitBuild:
		medoids = initBuild(d, cfg.K)
	}
	monitoring.Debugf("kmedoids: %s init picked %d medoids over %d points", cfg.Init, cfg.K, n)

	f := &fit{d: d, n: n, cfg: cfg, medoids: medoids}
	f.assign()
	f.history = append(f.history, f.cost)

	switch cfg.Method {
	case MethodAlternate:
		err = f.alternate(ctx)
	case MethodPAM:
		err = f.pam(ctx)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		Medoids:     f.medoids,
		Labels:      f.labels,
		Cost:        f.cost,
		CostHistory: f.history,
		Iterations:  f.iterations,
		CapReached:  f.capReached,
		Elapsed:     cfg.Clock.Since(start),
		Config:      cfg,
	}
	if res.CapReached {
		monitoring.Logf("kmedoids: %s stopped after %d iterations without converging (cost %.3f)",
			cfg.Method, res.Iterations, res.Cost)
	}
	return res, nil
}

// fit carries the mutable state of one run.
type fit struct {
	d       Distances
	n       int
	cfg     Config
	medoids []int

	labels     []int
	cost       float64
	history    []float64
	iterations int
	capReached bool
}

// assign labels every point with its nearest medoid, preferring the lowest
// label on ties, and recomputes the total cost.
func (f *fit) assign() {
	if f.labels == nil {
		f.labels = make([]int, f.n)
	}
	f.cost = 0
	for i := 0; i < f.n; i++ {
		best, bestD := 0, math.Inf(1)
		for l, m := range f.medoids {
			if dd := f.d.At(i, m); dd < bestD {
				best, bestD = l, dd
			}
		}
		f.labels[i] = best
		f.cost += bestD
	}
}

func (f *fit) isMedoid() []bool {
	out := make([]bool, f.n)
	for _, m := range f.medoids {
		out[m] = true
	}
	return out
}
