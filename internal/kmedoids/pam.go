package kmedoids

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/geokmedoids/internal/monitoring"
)

// swap is a candidate exchange of the medoid in slot for a non-medoid.
type swap struct {
	candidate int
	slot      int
	delta     float64
}

// better orders swaps by delta, then candidate, then slot.
func (s swap) better(o swap) bool {
	if s.delta != o.delta {
		return s.delta < o.delta
	}
	if s.candidate != o.candidate {
		return s.candidate < o.candidate
	}
	return s.slot < o.slot
}

// pam repeatedly applies the swap with the largest cost reduction until
// none reduces the cost.
func (f *fit) pam(ctx context.Context) error {
	k := len(f.medoids)
	near := make([]int, f.n)
	dNear := make([]float64, f.n)
	dSecond := make([]float64, f.n)

	for f.iterations < f.cfg.MaxIter {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pam iteration %d: %w", f.iterations+1, err)
		}
		f.iterations++

		f.nearestTwo(near, dNear, dSecond)
		best, err := f.bestSwap(ctx, k, near, dNear, dSecond)
		if err != nil {
			return fmt.Errorf("pam iteration %d: %w", f.iterations, err)
		}

		tol := 1e-12 * (1 + math.Abs(f.cost))
		if best.candidate < 0 || best.delta >= -tol {
			f.history = append(f.history, f.cost)
			monitoring.Debugf("kmedoids: pam converged after %d iterations, cost %.3f", f.iterations, f.cost)
			return nil
		}

		old := f.medoids[best.slot]
		f.medoids[best.slot] = best.candidate
		prev := f.cost
		f.assign()
		if f.cost > prev {
			// Rounding made the swap a loss; undo it and stop.
			f.medoids[best.slot] = old
			f.assign()
			f.history = append(f.history, f.cost)
			return nil
		}
		f.history = append(f.history, f.cost)
		monitoring.Debugf("kmedoids: pam iteration %d swapped %d for %d, cost %.3f",
			f.iterations, old, best.candidate, f.cost)
	}
	f.capReached = true
	return nil
}

// nearestTwo records each point's nearest medoid slot and the distances to
// its nearest and second nearest medoids.
func (f *fit) nearestTwo(near []int, dNear, dSecond []float64) {
	for j := 0; j < f.n; j++ {
		n1, d1, d2 := -1, math.Inf(1), math.Inf(1)
		for l, m := range f.medoids {
			v := f.d.At(j, m)
			switch {
			case v < d1:
				d2 = d1
				n1, d1 = l, v
			case v < d2:
				d2 = v
			}
		}
		near[j], dNear[j], dSecond[j] = n1, d1, d2
	}
}

// bestSwap evaluates every (non-medoid, slot) pair. Candidates are split
// into contiguous ranges searched concurrently; the per-range winners are
// reduced in range order.
func (f *fit) bestSwap(ctx context.Context, k int, near []int, dNear, dSecond []float64) (swap, error) {
	medoid := f.isMedoid()
	workers := f.cfg.Workers
	if workers > f.n {
		workers = f.n
	}
	chunk := (f.n + workers - 1) / workers
	partial := make([]swap, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, min((w+1)*chunk, f.n)
		g.Go(func() error {
			best := swap{candidate: -1, delta: math.Inf(1)}
			perSlot := make([]float64, k)
			for h := lo; h < hi; h++ {
				if medoid[h] {
					continue
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				// Removing slot l and adding h changes point j's cost by
				// min(dhj, second) - nearest when l is j's nearest medoid,
				// and by min(dhj - nearest, 0) otherwise.
				shared := 0.0
				clear(perSlot)
				for j := 0; j < f.n; j++ {
					dhj := f.d.At(h, j)
					gain := math.Min(dhj-dNear[j], 0)
					shared += gain
					perSlot[near[j]] += math.Min(dhj, dSecond[j]) - dNear[j] - gain
				}
				for l := 0; l < k; l++ {
					s := swap{candidate: h, slot: l, delta: shared + perSlot[l]}
					if s.better(best) {
						best = s
					}
				}
			}
			partial[w] = best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return swap{}, err
	}

	best := swap{candidate: -1, delta: math.Inf(1)}
	for _, s := range partial {
		if s.candidate >= 0 && s.better(best) {
			best = s
		}
	}
	return best, nil
}
