package geo

import (
	"fmt"
	"math"
)

// WGS84 ellipsoid and UTM constants.
const (
	EquatorialRadius = 6378137.0
	eccSquared       = 0.00669438
	scaleFactor      = 0.9996
	falseEasting     = 500000.0
	falseNorthing    = 10000000.0

	// MinUTMLatitude and MaxUTMLatitude bound the UTM system; polar
	// regions use UPS, which is not supported here.
	MinUTMLatitude = -80.0
	MaxUTMLatitude = 84.0
)

var (
	e2     = eccSquared * eccSquared
	e3     = e2 * eccSquared
	ePrime = eccSquared / (1 - eccSquared)

	sqrtE = math.Sqrt(1 - eccSquared)
	n1    = (1 - sqrtE) / (1 + sqrtE)
	n2    = n1 * n1
	n3    = n2 * n1
	n4    = n3 * n1
	n5    = n4 * n1

	m1 = 1 - eccSquared/4 - 3*e2/64 - 5*e3/256
	m2 = 3*eccSquared/8 + 3*e2/32 + 45*e3/1024
	m3 = 15*e2/256 + 45*e3/1024
	m4 = 35 * e3 / 3072

	p2 = 3.0/2*n1 - 27.0/32*n3 + 269.0/512*n5
	p3 = 21.0/16*n2 - 55.0/32*n4
	p4 = 151.0/96*n3 - 417.0/128*n5
	p5 = 1097.0 / 512 * n4
)

// Zone identifies a UTM zone and hemisphere. North selects the northern
// false northing; it is a hemisphere flag, not a latitude band.
type Zone struct {
	Number int
	North  bool
}

func (z Zone) String() string {
	if z.North {
		return fmt.Sprintf("%dN", z.Number)
	}
	return fmt.Sprintf("%dS", z.Number)
}

// CentralMeridian returns the zone's central longitude in degrees.
func (z Zone) CentralMeridian() float64 {
	return float64((z.Number-1)*6 - 180 + 3)
}

// XY is a projected coordinate in metres.
type XY struct {
	Easting  float64
	Northing float64
}

// ZoneOf returns the natural UTM zone for a coordinate, including the
// Norway and Svalbard exceptions.
func ZoneOf(lat, lon float64) (Zone, error) {
	if lat < MinUTMLatitude || lat > MaxUTMLatitude || math.IsNaN(lat) {
		return Zone{}, fmt.Errorf("%w: latitude %v outside UTM coverage", ErrOutOfRange, lat)
	}
	if lon < -180 || lon > 180 || math.IsNaN(lon) {
		return Zone{}, fmt.Errorf("%w: longitude %v", ErrOutOfRange, lon)
	}
	return Zone{Number: zoneNumber(lat, lon), North: lat >= 0}, nil
}

func zoneNumber(lat, lon float64) int {
	// normalise to [-180, 180)
	lon = math.Mod(math.Mod(lon, 360)+540, 360) - 180

	if lat >= 56 && lat < 64 && lon >= 3 && lon < 12 {
		return 32
	}
	if lat >= 72 && lat <= 84 && lon >= 0 {
		switch {
		case lon < 9:
			return 31
		case lon < 21:
			return 33
		case lon < 33:
			return 35
		case lon < 42:
			return 37
		}
	}
	return int((lon+180)/6) + 1
}

// ZoneLetter returns the latitude band letter (C..X) for lat.
func ZoneLetter(lat float64) (byte, error) {
	const bands = "CDEFGHJKLMNPQRSTUVWXX"
	if lat < MinUTMLatitude || lat > MaxUTMLatitude {
		return 0, fmt.Errorf("%w: latitude %v outside UTM coverage", ErrOutOfRange, lat)
	}
	return bands[int(lat+80)>>3], nil
}

// modAngle wraps an angle in radians to [-pi, pi).
func modAngle(v float64) float64 {
	return math.Mod(math.Mod(v+math.Pi, 2*math.Pi)+2*math.Pi, 2*math.Pi) - math.Pi
}

// Project converts lat/lon to easting/northing in the given zone. The zone
// may differ from the coordinate's natural zone; accuracy then degrades
// with distance from the zone's central meridian.
func Project(lat, lon float64, zone Zone) (XY, error) {
	if lat < MinUTMLatitude || lat > MaxUTMLatitude || math.IsNaN(lat) {
		return XY{}, fmt.Errorf("%w: latitude %v outside UTM coverage", ErrOutOfRange, lat)
	}
	if lon < -180 || lon > 180 || math.IsNaN(lon) {
		return XY{}, fmt.Errorf("%w: longitude %v", ErrOutOfRange, lon)
	}

	latRad := lat * math.Pi / 180
	latSin := math.Sin(latRad)
	latCos := math.Cos(latRad)
	latTan := latSin / latCos
	latTan2 := latTan * latTan
	latTan4 := latTan2 * latTan2

	lonRad := lon * math.Pi / 180
	centralRad := zone.CentralMeridian() * math.Pi / 180

	n := EquatorialRadius / math.Sqrt(1-eccSquared*latSin*latSin)
	c := ePrime * latCos * latCos

	a := latCos * modAngle(lonRad-centralRad)
	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	m := EquatorialRadius * (m1*latRad -
		m2*math.Sin(2*latRad) +
		m3*math.Sin(4*latRad) -
		m4*math.Sin(6*latRad))

	easting := scaleFactor*n*(a+
		a3/6*(1-latTan2+c)+
		a5/120*(5-18*latTan2+latTan4+72*c-58*ePrime)) + falseEasting

	northing := scaleFactor * (m + n*latTan*(a2/2+
		a4/24*(5-latTan2+9*c+4*c*c)+
		a6/720*(61-58*latTan2+latTan4+600*c-330*ePrime)))

	if !zone.North {
		northing += falseNorthing
	}
	return XY{Easting: easting, Northing: northing}, nil
}

// Unproject converts a zone-tagged easting/northing back to lat/lon degrees.
func Unproject(xy XY, zone Zone) (lat, lon float64, err error) {
	if zone.Number < 1 || zone.Number > 60 {
		return 0, 0, fmt.Errorf("%w: zone number %d", ErrOutOfRange, zone.Number)
	}
	if math.IsNaN(xy.Easting) || math.IsNaN(xy.Northing) || math.IsInf(xy.Easting, 0) || math.IsInf(xy.Northing, 0) {
		return 0, 0, fmt.Errorf("%w: non-finite projected coordinate", ErrOutOfRange)
	}

	x := xy.Easting - falseEasting
	y := xy.Northing
	if !zone.North {
		y -= falseNorthing
	}

	mu := y / scaleFactor / (EquatorialRadius * m1)

	pRad := mu +
		p2*math.Sin(2*mu) +
		p3*math.Sin(4*mu) +
		p4*math.Sin(6*mu) +
		p5*math.Sin(8*mu)

	pSin := math.Sin(pRad)
	pSin2 := pSin * pSin
	pCos := math.Cos(pRad)
	pTan := pSin / pCos
	pTan2 := pTan * pTan
	pTan4 := pTan2 * pTan2

	epSin := 1 - eccSquared*pSin2
	epSinSqrt := math.Sqrt(epSin)

	n := EquatorialRadius / epSinSqrt
	r := (1 - eccSquared) / epSin

	c := ePrime * pCos * pCos
	c2 := c * c

	d := x / (n * scaleFactor)
	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	latRad := pRad - (pTan/r)*
		(d2/2-
			d4/24*(5+3*pTan2+10*c-4*c2-9*ePrime)) +
		d6/720*(61+90*pTan2+298*c+45*pTan4-252*ePrime-3*c2)

	lonRad := (d -
		d3/6*(1+2*pTan2+c) +
		d5/120*(5-2*c+28*pTan2-3*c2+8*ePrime+24*pTan4)) / pCos

	lonRad = modAngle(lonRad + zone.CentralMeridian()*math.Pi/180)

	return latRad * 180 / math.Pi, lonRad * 180 / math.Pi, nil
}

// Projection is a data set projected into a single shared zone.
type Projection struct {
	Zone Zone
	// Band is the latitude band letter of the position the zone was taken
	// from.
	Band   byte
	Points []XY
	// CrossZone counts points whose natural zone differs from Zone.
	CrossZone int
	// Failed lists indices that could not be projected (polar latitudes).
	// Their Points entries are zero.
	Failed []int
}

// ProjectAll projects every position into the zone of the first position
// that UTM can represent, so all planar coordinates share one plane.
func ProjectAll(positions []Position) (*Projection, error) {
	proj := &Projection{Points: make([]XY, len(positions))}

	found := false
	for _, p := range positions {
		if z, err := ZoneOf(p.Lat, p.Lon); err == nil {
			proj.Zone = z
			proj.Band, _ = ZoneLetter(p.Lat)
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: no position inside UTM coverage", ErrOutOfRange)
	}

	for i, p := range positions {
		natural, err := ZoneOf(p.Lat, p.Lon)
		if err != nil {
			proj.Failed = append(proj.Failed, i)
			continue
		}
		if natural.Number != proj.Zone.Number {
			proj.CrossZone++
		}
		xy, err := Project(p.Lat, p.Lon, proj.Zone)
		if err != nil {
			proj.Failed = append(proj.Failed, i)
			continue
		}
		proj.Points[i] = xy
	}
	return proj, nil
}

// Designator renders the zone with its latitude band, e.g. "32T".
func (p *Projection) Designator() string {
	if p.Band == 0 {
		return p.Zone.String()
	}
	return fmt.Sprintf("%d%c", p.Zone.Number, p.Band)
}

// Unproject maps a projected point of this projection back to lat/lon.
func (p *Projection) Unproject(i int) (lat, lon float64, err error) {
	return Unproject(p.Points[i], p.Zone)
}
