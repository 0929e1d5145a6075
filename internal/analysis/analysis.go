// Package analysis measures how tight a labeled clustering is: the distance
// from every position to its group center and the size of every group.
package analysis

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/banshee-data/geokmedoids/internal/csvio"
	"github.com/banshee-data/geokmedoids/internal/distance"
	"github.com/banshee-data/geokmedoids/internal/labeler"
	"github.com/banshee-data/geokmedoids/internal/stats"
)

var (
	// ErrNoData is returned when there are no positions to analyze.
	ErrNoData = errors.New("analysis: no positions")
	// ErrUnknownGroup is returned when a position names a group that has no
	// center.
	ErrUnknownGroup = errors.New("analysis: unknown group")
)

// GroupSize is the member count of one group.
type GroupSize struct {
	ID   string
	Size int
}

// Analysis is the outcome of Analyze.
type Analysis struct {
	Metric string
	// Distances holds, in position order, the distance in meters from each
	// position to its group center.
	Distances []float64
	// Sizes lists every group in center order, including empty ones.
	Sizes        []GroupSize
	DistanceStat stats.Summary
	SizeStat     stats.Summary
}

// Analyze measures positions against their group centers with m.
func Analyze(positions []labeler.LabeledPosition, centers []csvio.GroupCenter, m distance.Metric) (*Analysis, error) {
	if len(positions) == 0 {
		return nil, ErrNoData
	}

	index := make(map[string]int, len(centers))
	sizes := make([]GroupSize, len(centers))
	for i, c := range centers {
		index[c.ID] = i
		sizes[i] = GroupSize{ID: c.ID}
	}

	dists := make([]float64, len(positions))
	for i, p := range positions {
		gi, ok := index[p.GroupID]
		if !ok {
			return nil, fmt.Errorf("%w %q for position %d (%s)", ErrUnknownGroup, p.GroupID, i, p.ID)
		}
		dists[i] = m.Distance(p.Position(), centers[gi].Position())
		sizes[gi].Size++
	}

	counts := make([]int, len(sizes))
	for i, s := range sizes {
		counts[i] = s.Size
	}
	return &Analysis{
		Metric:       m.Name(),
		Distances:    dists,
		Sizes:        sizes,
		DistanceStat: stats.Summarize(dists),
		SizeStat:     stats.SummarizeInts(counts),
	}, nil
}

// SortedDistances returns the distances in ascending order.
func (a *Analysis) SortedDistances() []float64 {
	out := append([]float64(nil), a.Distances...)
	sort.Float64s(out)
	return out
}

// SortedSizes returns the group sizes in ascending order.
func (a *Analysis) SortedSizes() []float64 {
	out := make([]float64, len(a.Sizes))
	for i, s := range a.Sizes {
		out[i] = float64(s.Size)
	}
	sort.Float64s(out)
	return out
}

// Write prints the distance and size summaries.
func (a *Analysis) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Distance metric: %s\n", a.Metric)
	fmt.Fprintf(bw, "Average distance: %s\n", a.DistanceStat)
	fmt.Fprintf(bw, "Average label size: %s\n", a.SizeStat)
	return bw.Flush()
}
