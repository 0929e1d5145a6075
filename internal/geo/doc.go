// Package geo holds the geographic position model and the UTM coordinate
// projector used by the planar distance metric.
//
// Projection follows the Krüger series as used by the common UTM
// converters: accuracy is sub-millimetre inside a zone and degrades
// gracefully a few degrees outside it, which is what ForceZone relies on
// when a whole data set is projected into the zone of its first point.
package geo
