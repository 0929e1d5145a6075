package distance

import (
	"context"
	"math"

	"github.com/banshee-data/geokmedoids/internal/geo"
	"github.com/banshee-data/geokmedoids/internal/monitoring"
)

// PlanarMetric projects positions into a single UTM zone and measures the
// Euclidean distance between projected points.
type PlanarMetric struct {
	builder
}

// Name implements Metric.
func (*PlanarMetric) Name() string { return Planar }

// Distance projects both positions into the natural zone of whichever of
// the two sorts first by (Lat, Lon), so the result does not depend on
// argument order. If either cannot be projected the haversine distance is
// returned.
func (*PlanarMetric) Distance(a, b geo.Position) float64 {
	ref := a
	if b.Lat < a.Lat || (b.Lat == a.Lat && b.Lon < a.Lon) {
		ref = b
	}
	zone, err := geo.ZoneOf(ref.Lat, ref.Lon)
	if err != nil {
		return haversine(a, b)
	}
	pa, errA := geo.Project(a.Lat, a.Lon, zone)
	pb, errB := geo.Project(b.Lat, b.Lon, zone)
	if errA != nil || errB != nil {
		return haversine(a, b)
	}
	return math.Hypot(pb.Easting-pa.Easting, pb.Northing-pa.Northing)
}

// PairwiseMatrix implements Metric. The returned matrix carries the shared
// projection so cluster centres can be mapped back to lat/lon.
func (p *PlanarMetric) PairwiseMatrix(ctx context.Context, points []geo.Position) (*Matrix, error) {
	if len(points) == 0 {
		return p.build(ctx, Planar, points, nil)
	}
	proj, err := geo.ProjectAll(points)
	if err != nil {
		// Nothing projectable: every cell falls back to haversine.
		monitoring.Logf("planar metric: %v; using haversine distances", err)
		m, err := p.build(ctx, Planar, points, func(int, int) float64 { return math.NaN() })
		if err != nil {
			return nil, err
		}
		m.Anomalies.Unprojectable = len(points)
		return m, nil
	}

	failed := make([]bool, len(points))
	for _, i := range proj.Failed {
		failed[i] = true
	}

	m, err := p.build(ctx, Planar, points, func(i, j int) float64 {
		if failed[i] || failed[j] {
			return math.NaN()
		}
		a, b := proj.Points[i], proj.Points[j]
		return math.Hypot(b.Easting-a.Easting, b.Northing-a.Northing)
	})
	if err != nil {
		return nil, err
	}
	m.Projection = proj
	m.Anomalies.CrossZone = proj.CrossZone
	m.Anomalies.Unprojectable = len(proj.Failed)
	if proj.CrossZone > 0 {
		monitoring.Logf("planar metric: %d of %d positions lie outside UTM zone %v; distances across zones lose accuracy",
			proj.CrossZone, len(points), proj.Zone)
	}
	return m, nil
}
