// Package labeler turns dense cluster labels into opaque group identifiers
// and reconstructs each group's geographic center.
package labeler

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/geokmedoids/internal/geo"
	"github.com/banshee-data/geokmedoids/internal/kmedoids"
	"github.com/banshee-data/geokmedoids/internal/monitoring"
)

// ErrMismatch is returned when a clustering result does not describe the
// given positions.
var ErrMismatch = errors.New("labeler: result does not match positions")

// LabeledPosition is an input position tagged with its group identifier.
type LabeledPosition struct {
	ID      string
	GroupID string
	Lat     float64
	Lon     float64
}

// Position drops the group identifier.
func (p LabeledPosition) Position() geo.Position {
	return geo.Position{ID: p.ID, Lat: p.Lat, Lon: p.Lon}
}

// Group describes one cluster.
type Group struct {
	ID     string
	Label  int
	Medoid int
	Lat    float64
	Lon    float64
	Size   int
}

// Output is a labeled clustering, in input order for positions and label
// order for groups.
type Output struct {
	Positions []LabeledPosition
	Groups    []Group
}

// Labeler assigns group identifiers. The zero value uses random UUIDs.
type Labeler struct {
	// NewID generates a group identifier; nil selects uuid.NewString.
	NewID func() string
}

// New returns a Labeler that names groups with random UUIDs.
func New() *Labeler {
	return &Labeler{NewID: uuid.NewString}
}

// Label maps the result's labels to fresh group identifiers. When proj is
// the projection the distances were computed in, centers are recovered by
// inverting the medoid's projected coordinates; otherwise the medoid's own
// latitude and longitude are used.
func (l *Labeler) Label(points []geo.Position, res *kmedoids.Result, proj *geo.Projection) (*Output, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: nil result", ErrMismatch)
	}
	if len(res.Labels) != len(points) {
		return nil, fmt.Errorf("%w: %d labels for %d positions", ErrMismatch, len(res.Labels), len(points))
	}
	if proj != nil && len(proj.Points) != len(points) {
		return nil, fmt.Errorf("%w: projection covers %d positions, want %d", ErrMismatch, len(proj.Points), len(points))
	}
	newID := l.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	failed := map[int]bool{}
	if proj != nil {
		for _, i := range proj.Failed {
			failed[i] = true
		}
	}

	out := &Output{
		Positions: make([]LabeledPosition, len(points)),
		Groups:    make([]Group, len(res.Medoids)),
	}
	for label, m := range res.Medoids {
		if m < 0 || m >= len(points) {
			return nil, fmt.Errorf("%w: medoid %d out of range", ErrMismatch, m)
		}
		g := Group{ID: newID(), Label: label, Medoid: m, Lat: points[m].Lat, Lon: points[m].Lon}
		if proj != nil && !failed[m] {
			lat, lon, err := proj.Unproject(m)
			if err != nil {
				monitoring.Logf("labeler: cannot unproject medoid %d, using its input coordinates: %v", m, err)
			} else {
				g.Lat, g.Lon = lat, lon
			}
		}
		out.Groups[label] = g
	}
	for i, p := range points {
		label := res.Labels[i]
		if label < 0 || label >= len(out.Groups) {
			return nil, fmt.Errorf("%w: label %d of position %d out of range", ErrMismatch, label, i)
		}
		out.Groups[label].Size++
		out.Positions[i] = LabeledPosition{ID: p.ID, GroupID: out.Groups[label].ID, Lat: p.Lat, Lon: p.Lon}
	}
	return out, nil
}
