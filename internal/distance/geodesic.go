package distance

import (
	"context"

	"github.com/tidwall/geodesic"

	"github.com/banshee-data/geokmedoids/internal/geo"
)

// GeodesicMetric is the ellipsoidal-exact metric on WGS84. Every pair is
// an independent inverse-problem solve, so the matrix build is the
// slowest of the three and benefits most from the row workers.
type GeodesicMetric struct {
	builder
}

// Name implements Metric.
func (*GeodesicMetric) Name() string { return Geodesic }

// Distance implements Metric.
func (*GeodesicMetric) Distance(a, b geo.Position) float64 {
	return ellipsoidal(a, b)
}

// PairwiseMatrix implements Metric.
func (g *GeodesicMetric) PairwiseMatrix(ctx context.Context, points []geo.Position) (*Matrix, error) {
	return g.build(ctx, Geodesic, points, func(i, j int) float64 {
		return ellipsoidal(points[i], points[j])
	})
}

func ellipsoidal(a, b geo.Position) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &s12, nil, nil)
	return s12
}
