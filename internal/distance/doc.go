// Package distance provides the interchangeable geographic distance metrics
// used by the clustering engine.
//
// Three metrics are available:
//
//   - planar: positions are projected into one UTM zone (the zone of the
//     first position) and compared with the Euclidean norm. Fastest, and
//     the most accurate of the approximations while positions stay inside
//     that zone. Positions in other zones are still projected into the
//     shared zone; the count is reported in Anomalies.CrossZone.
//   - haversine: great-circle distance on a sphere of radius 6,371,000 m.
//   - geodesic: geodesic distance on the WGS84 ellipsoid (Karney's
//     algorithm). Ground truth, and by far the slowest.
//
// Every metric builds a symmetric pairwise matrix with a zero diagonal.
// Rows of the matrix are filled concurrently; each worker owns the upper
// triangle cells of its row, so no locking is involved.
package distance
