package kmedoids

import (
	"context"
	"fmt"

	"github.com/banshee-data/geokmedoids/internal/monitoring"
)

// alternate recentres each cluster on the member with the smallest total
// distance to the other members, then reassigns, until no medoid moves.
func (f *fit) alternate(ctx context.Context) error {
	k := len(f.medoids)
	members := make([][]int, k)

	for f.iterations < f.cfg.MaxIter {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("alternate iteration %d: %w", f.iterations+1, err)
		}
		f.iterations++

		for l := range members {
			members[l] = members[l][:0]
		}
		for i, l := range f.labels {
			members[l] = append(members[l], i)
		}

		medoid := f.isMedoid()
		moved := 0
		for l, ms := range members {
			if len(ms) == 0 {
				monitoring.Debugf("kmedoids: cluster %d is empty, keeping medoid %d", l, f.medoids[l])
				continue
			}
			cur := f.medoids[l]
			best, bestCost := cur, inClusterCost(f.d, cur, ms)
			for _, c := range ms {
				if c == cur || medoid[c] {
					continue
				}
				if cost := inClusterCost(f.d, c, ms); cost < bestCost {
					best, bestCost = c, cost
				}
			}
			if best != cur {
				medoid[cur], medoid[best] = false, true
				f.medoids[l] = best
				moved++
			}
		}

		f.assign()
		f.history = append(f.history, f.cost)
		monitoring.Debugf("kmedoids: alternate iteration %d moved %d medoids, cost %.3f", f.iterations, moved, f.cost)
		if moved == 0 {
			return nil
		}
	}
	f.capReached = true
	return nil
}

func inClusterCost(d Distances, c int, members []int) float64 {
	total := 0.0
	for _, j := range members {
		total += d.At(c, j)
	}
	return total
}
