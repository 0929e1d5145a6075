// Package collate merges repeated per-identity group observations into one
// majority group per identity, with the roster of identities sharing it.
package collate

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrFinalized is returned when a Collator is used after Finalize.
	ErrFinalized = errors.New("collate: collator already finalized")
	// ErrInvalidObservation is returned for observations missing an
	// identity or group.
	ErrInvalidObservation = errors.New("collate: invalid observation")
	// ErrUnknownGroup is returned when a majority group has no center.
	ErrUnknownGroup = errors.New("collate: group has no center")
)

// Observation is one labeled sighting of an identity.
type Observation struct {
	Identity string
	Group    string
	Lat      float64
	Lon      float64
}

// Center is a group's geographic center.
type Center struct {
	Lat float64
	Lon float64
}

// Record is the collated outcome for one identity.
type Record struct {
	Identity string
	Group    string
	Lat      float64
	Lon      float64
	// CoMembers lists the other identities whose majority group is Group,
	// in first-seen order.
	CoMembers []string
}

// Collator accumulates observations. It is not safe for concurrent use.
type Collator struct {
	order     []string
	counts    map[string]map[string]int
	finalized bool
}

// New returns an empty Collator.
func New() *Collator {
	return &Collator{counts: make(map[string]map[string]int)}
}

// Add counts one observation.
func (c *Collator) Add(o Observation) error {
	if c.finalized {
		return ErrFinalized
	}
	if o.Identity == "" || o.Group == "" {
		return fmt.Errorf("%w: identity %q group %q", ErrInvalidObservation, o.Identity, o.Group)
	}
	groups, ok := c.counts[o.Identity]
	if !ok {
		groups = make(map[string]int)
		c.counts[o.Identity] = groups
		c.order = append(c.order, o.Identity)
	}
	groups[o.Group]++
	return nil
}

// AddAll counts every observation in order, stopping at the first error.
func (c *Collator) AddAll(obs []Observation) error {
	for i, o := range obs {
		if err := c.Add(o); err != nil {
			return fmt.Errorf("observation %d: %w", i, err)
		}
	}
	return nil
}

// Identities returns the number of distinct identities seen so far.
func (c *Collator) Identities() int {
	return len(c.order)
}

// Majority returns the group with the highest count. Ties go to the
// lexicographically smallest group identifier. It returns "" for an empty
// map.
func Majority(counts map[string]int) string {
	best, bestN := "", 0
	for g, n := range counts {
		if n > bestN || (n == bestN && g < best) {
			best, bestN = g, n
		}
	}
	return best
}

// Finalize computes each identity's majority group and the group rosters.
// It may be called once; the Collator rejects further use afterwards.
func (c *Collator) Finalize(centers map[string]Center) (*Result, error) {
	if c.finalized {
		return nil, ErrFinalized
	}
	c.finalized = true

	r := &Result{
		majority: make(map[string]string, len(c.order)),
		rosters:  make(map[string][]string),
		centers:  centers,
	}
	for _, id := range c.order {
		g := Majority(c.counts[id])
		if _, ok := centers[g]; !ok {
			return nil, fmt.Errorf("%w: identity %q majority group %q", ErrUnknownGroup, id, g)
		}
		r.majority[id] = g
		r.rosters[g] = append(r.rosters[g], id)
	}
	r.order = c.order
	c.counts = nil
	return r, nil
}

// Result is an immutable collation.
type Result struct {
	order    []string
	majority map[string]string
	rosters  map[string][]string
	centers  map[string]Center
}

// Records returns one record per identity in first-seen order.
func (r *Result) Records() []Record {
	out := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		g := r.majority[id]
		c := r.centers[g]
		out = append(out, Record{
			Identity:  id,
			Group:     g,
			Lat:       c.Lat,
			Lon:       c.Lon,
			CoMembers: r.CoMembers(id),
		})
	}
	return out
}

// Group returns the majority group of identity.
func (r *Result) Group(identity string) (string, bool) {
	g, ok := r.majority[identity]
	return g, ok
}

// CoMembers returns the identities sharing identity's majority group,
// excluding identity itself. It returns nil for an unknown identity.
func (r *Result) CoMembers(identity string) []string {
	g, ok := r.majority[identity]
	if !ok {
		return nil
	}
	roster := r.rosters[g]
	out := make([]string, 0, len(roster)-1)
	for _, id := range roster {
		if id != identity {
			out = append(out, id)
		}
	}
	return out
}

// Roster returns every identity whose majority group is group, in
// first-seen order.
func (r *Result) Roster(group string) []string {
	return append([]string(nil), r.rosters[group]...)
}

// Groups returns the groups that have at least one member, sorted.
func (r *Result) Groups() []string {
	out := make([]string, 0, len(r.rosters))
	for g := range r.rosters {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
