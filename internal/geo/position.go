package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned for coordinates outside the valid
// latitude/longitude ranges.
var ErrOutOfRange = errors.New("coordinate out of range")

// Position is one observed geographic location. ID is not required to be
// unique: the same identity may be recorded at several places.
type Position struct {
	ID  string
	Lat float64 // degrees, [-90, 90]
	Lon float64 // degrees, [-180, 180]
}

// Validate checks the coordinate ranges.
func (p Position) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v", ErrOutOfRange, p.Lat)
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v", ErrOutOfRange, p.Lon)
	}
	return nil
}

// Radians returns latitude and longitude in radians.
func (p Position) Radians() (lat, lon float64) {
	return p.Lat * math.Pi / 180, p.Lon * math.Pi / 180
}
