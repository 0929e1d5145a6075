package distance

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/geokmedoids/internal/geo"
	"github.com/banshee-data/geokmedoids/internal/monitoring"
	"github.com/banshee-data/geokmedoids/internal/timeutil"
)

// Anomalies aggregates soft numeric failures seen while building a matrix.
type Anomalies struct {
	// NonFinite counts cells whose metric value was NaN, infinite or
	// negative. Those cells hold the haversine distance instead.
	NonFinite int
	// CrossZone counts positions projected into a UTM zone other than
	// their own (planar metric only).
	CrossZone int
	// Unprojectable counts positions outside UTM coverage (planar only).
	Unprojectable int
}

// Total returns the number of recorded anomalies.
func (a Anomalies) Total() int {
	return a.NonFinite + a.CrossZone + a.Unprojectable
}

// Err returns nil when no anomaly was recorded, or an ErrNumeric wrapped
// summary otherwise.
func (a Anomalies) Err() error {
	if a.Total() == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d non-finite cells, %d cross-zone positions, %d unprojectable positions",
		ErrNumeric, a.NonFinite, a.CrossZone, a.Unprojectable)
}

// Matrix is a symmetric pairwise distance matrix with a zero diagonal.
type Matrix struct {
	sym    *mat.SymDense
	n      int
	stride int
	data   []float64

	// Metric is the name of the metric that produced the matrix.
	Metric string
	// Anomalies records soft failures during construction.
	Anomalies Anomalies
	// Elapsed is the wall-clock construction time.
	Elapsed time.Duration
	// OverBudget is set when Elapsed exceeded the configured budget.
	OverBudget bool
	// Projection is the shared UTM projection (planar metric only).
	Projection *geo.Projection
}

func newMatrix(n int) *Matrix {
	m := &Matrix{n: n}
	if n == 0 {
		return m
	}
	m.sym = mat.NewSymDense(n, nil)
	raw := m.sym.RawSymmetric()
	m.stride = raw.Stride
	m.data = raw.Data
	return m
}

// Len returns the matrix dimension.
func (m *Matrix) Len() int {
	return m.n
}

// At returns the distance between points i and j.
func (m *Matrix) At(i, j int) float64 {
	if i > j {
		i, j = j, i
	}
	return m.data[i*m.stride+j]
}

// set writes the upper triangle cell (i, j) with i < j.
func (m *Matrix) set(i, j int, v float64) {
	m.data[i*m.stride+j] = v
}

// Symmetric exposes the matrix as a gonum Symmetric for callers that want
// gonum's linear algebra. It returns nil for an empty matrix.
func (m *Matrix) Symmetric() mat.Symmetric {
	if m.sym == nil {
		return nil
	}
	return m.sym
}

// UpperTriangle returns the cells above the diagonal in row-major order.
func (m *Matrix) UpperTriangle() []float64 {
	if m.n < 2 {
		return nil
	}
	out := make([]float64, 0, m.n*(m.n-1)/2)
	for i := 0; i < m.n; i++ {
		out = append(out, m.data[i*m.stride+i+1:i*m.stride+m.n]...)
	}
	return out
}

// FromRows builds a Matrix from a precomputed dense distance table.
func FromRows(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	m := newMatrix(n)
	m.Metric = "precomputed"
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, i, len(row), n)
		}
		if row[i] != 0 {
			return nil, fmt.Errorf("%w: diagonal cell %d is %v", ErrInvalidMatrix, i, row[i])
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := rows[i][j]
			if !validDistance(v) {
				return nil, fmt.Errorf("%w: cell (%d,%d) is %v", ErrInvalidMatrix, i, j, v)
			}
			if v != rows[j][i] {
				return nil, fmt.Errorf("%w: cells (%d,%d) and (%d,%d) differ", ErrInvalidMatrix, i, j, j, i)
			}
			m.set(i, j, v)
		}
	}
	return m, nil
}

func validDistance(d float64) bool {
	return d >= 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}

// builder fills matrices concurrently, one task per row.
type builder struct {
	workers int
	budget  time.Duration
	clock   timeutil.Clock
}

// build computes cell(i, j) for every i < j. Invalid values are replaced
// by the haversine distance and counted; each row keeps its own count so
// workers share no mutable state beyond their own matrix cells.
func (b builder) build(ctx context.Context, name string, points []geo.Position, cell func(i, j int) float64) (*Matrix, error) {
	n := len(points)
	m := newMatrix(n)
	m.Metric = name

	start := b.clock.Now()
	rowBad := make([]int, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := i + 1; j < n; j++ {
				d := cell(i, j)
				if !validDistance(d) {
					rowBad[i]++
					d = haversine(points[i], points[j])
				}
				m.set(i, j, d)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build %s matrix: %w", name, err)
	}

	for _, c := range rowBad {
		m.Anomalies.NonFinite += c
	}
	m.Elapsed = b.clock.Since(start)
	if b.budget > 0 && m.Elapsed > b.budget {
		m.OverBudget = true
		monitoring.Logf("%s matrix for %d points took %v, over the %v budget", name, n, m.Elapsed, b.budget)
	}
	monitoring.Debugf("%s matrix: n=%d elapsed=%v anomalies=%d", name, n, m.Elapsed, m.Anomalies.NonFinite)
	return m, nil
}
