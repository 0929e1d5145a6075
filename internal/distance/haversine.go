package distance

import (
	"context"
	"math"

	"github.com/banshee-data/geokmedoids/internal/geo"
)

// EarthRadius is the mean Earth radius in metres used by the haversine metric.
const EarthRadius = 6371000.0

// HaversineMetric is the spherical-approximate metric.
type HaversineMetric struct {
	builder
}

// Name implements Metric.
func (*HaversineMetric) Name() string { return Haversine }

// Distance implements Metric.
func (*HaversineMetric) Distance(a, b geo.Position) float64 {
	return haversine(a, b)
}

// PairwiseMatrix implements Metric.
func (h *HaversineMetric) PairwiseMatrix(ctx context.Context, points []geo.Position) (*Matrix, error) {
	rad := make([][2]float64, len(points))
	for i, p := range points {
		rad[i][0], rad[i][1] = p.Radians()
	}
	return h.build(ctx, Haversine, points, func(i, j int) float64 {
		return haversineRad(rad[i][0], rad[i][1], rad[j][0], rad[j][1])
	})
}

func haversine(a, b geo.Position) float64 {
	lat1, lon1 := a.Radians()
	lat2, lon2 := b.Radians()
	return haversineRad(lat1, lon1, lat2, lon2)
}

// haversineRad is exactly symmetric: swapping the arguments only negates
// the deltas, and both are squared after math.Sin, which is odd.
func haversineRad(lat1, lon1, lat2, lon2 float64) float64 {
	sLat := math.Sin((lat2 - lat1) / 2)
	sLon := math.Sin((lon2 - lon1) / 2)
	h := sLat*sLat + math.Cos(lat1)*math.Cos(lat2)*sLon*sLon
	if h > 1 {
		h = 1
	}
	return 2 * math.Asin(math.Sqrt(h)) * EarthRadius
}
