package distance

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/banshee-data/geokmedoids/internal/geo"
	"github.com/banshee-data/geokmedoids/internal/timeutil"
)

// Metric names.
const (
	Planar    = "planar"
	Haversine = "haversine"
	Geodesic  = "geodesic"
)

// ValidMetrics lists the canonical metric names.
var ValidMetrics = []string{Planar, Haversine, Geodesic}

// Metric computes distances in metres between geographic positions.
type Metric interface {
	// Name returns the canonical metric name.
	Name() string

	// Distance returns the non-negative distance between a and b.
	Distance(a, b geo.Position) float64

	// PairwiseMatrix returns the symmetric N×N distance matrix of points.
	PairwiseMatrix(ctx context.Context, points []geo.Position) (*Matrix, error)
}

// Parse maps a metric name, including the long-form aliases used in
// configuration files, to its canonical name.
func Parse(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Planar, "euclidean", "projected", "utm":
		return Planar, nil
	case Haversine, "spherical", "spherical-approximate":
		return Haversine, nil
	case Geodesic, "ellipsoidal", "ellipsoidal-exact":
		return Geodesic, nil
	}
	return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnknownMetric, name, strings.Join(ValidMetrics, ", "))
}

// New returns the metric registered under name.
func New(name string, opts ...Option) (Metric, error) {
	canonical, err := Parse(name)
	if err != nil {
		return nil, err
	}
	b := newBuilder(opts)
	switch canonical {
	case Planar:
		return &PlanarMetric{builder: b}, nil
	case Haversine:
		return &HaversineMetric{builder: b}, nil
	default:
		return &GeodesicMetric{builder: b}, nil
	}
}

// Option configures matrix construction.
type Option func(*builder)

// WithWorkers bounds the number of rows computed concurrently. Values
// below one fall back to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(b *builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithBudget sets a wall-clock budget for matrix construction. Exceeding
// it is logged and flagged on the Matrix; computation is never cut short.
func WithBudget(d time.Duration) Option {
	return func(b *builder) { b.budget = d }
}

// WithClock overrides the clock used to time matrix construction.
func WithClock(c timeutil.Clock) Option {
	return func(b *builder) {
		if c != nil {
			b.clock = c
		}
	}
}

func newBuilder(opts []Option) builder {
	b := builder{
		workers: runtime.GOMAXPROCS(0),
		clock:   timeutil.RealClock{},
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}
