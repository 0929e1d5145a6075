package kmedoids

import (
	"math"
	"math/rand/v2"
	"sort"
)

// initRandom draws k distinct indices uniformly with a partial
// Fisher-Yates shuffle.
func initRandom(n, k int, rng *rand.Rand) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return append([]int(nil), perm[:k]...)
}

// heuristicSampleSize caps the reference points the heuristic init scores
// against.
const heuristicSampleSize = 2000

// initHeuristic picks the k points with the smallest total distance to all
// others, or to a seeded sample of reference points when N exceeds
// heuristicSampleSize. Ties keep index order.
func initHeuristic(d Distances, k int, rng *rand.Rand) []int {
	return lowestScores(heuristicScores(d, heuristicSampleSize, rng), k)
}

// heuristicScores returns each point's summed distance to every point, or
// to the same sample of reference points drawn from rng when there are more
// than sample points.
func heuristicScores(d Distances, sample int, rng *rand.Rand) []float64 {
	n := d.Len()
	if n <= sample {
		return rowSums(d)
	}
	ref := initRandom(n, sample, rng)
	sums := make([]float64, n)
	for i := 0; i < n; i++ {
		for _, j := range ref {
			sums[i] += d.At(i, j)
		}
	}
	return sums
}

func lowestScores(sums []float64, k int) []int {
	n := len(sums)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return sums[idx[a]] < sums[idx[b]] })
	return append([]int(nil), idx[:k]...)
}

func rowSums(d Distances) []float64 {
	n := d.Len()
	sums := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := d.At(i, j)
			sums[i] += v
			sums[j] += v
		}
	}
	return sums
}

// initKMedoidsPP seeds medoids with probability proportional to the squared
// distance to the nearest medoid already chosen, keeping the best of a few
// local trials per step.
func initKMedoidsPP(d Distances, k int, rng *rand.Rand) []int {
	n := d.Len()
	trials := 2 + int(math.Log(float64(k)))
	chosen := make([]bool, n)
	medoids := make([]int, 0, k)

	first := rng.IntN(n)
	medoids = append(medoids, first)
	chosen[first] = true

	closest := make([]float64, n)
	potential := 0.0
	for j := 0; j < n; j++ {
		v := d.At(first, j)
		closest[j] = v * v
		potential += closest[j]
	}

	cum := make([]float64, n)
	cand := make([]float64, n)
	best := make([]float64, n)
	for len(medoids) < k {
		// Draw every trial up front so the sequence of random values does
		// not depend on the data.
		draws := make([]float64, trials)
		for t := range draws {
			draws[t] = rng.Float64()
		}
		fallback := rng.IntN(n)

		bestID, bestPot := -1, math.Inf(1)
		if potential > 0 {
			acc := 0.0
			for j, v := range closest {
				acc += v
				cum[j] = acc
			}
			for _, r := range draws {
				id := searchWeighted(cum, closest, r*acc)
				if chosen[id] {
					continue
				}
				pot := 0.0
				for j := 0; j < n; j++ {
					v := d.At(id, j)
					cand[j] = math.Min(closest[j], v*v)
					pot += cand[j]
				}
				if pot < bestPot {
					bestID, bestPot = id, pot
					copy(best, cand)
				}
			}
		}
		if bestID < 0 {
			// Every remaining point coincides with a medoid.
			bestID = nextUnchosen(chosen, fallback)
			bestPot = 0
			for j := 0; j < n; j++ {
				v := d.At(bestID, j)
				best[j] = math.Min(closest[j], v*v)
				bestPot += best[j]
			}
		}
		medoids = append(medoids, bestID)
		chosen[bestID] = true
		potential = bestPot
		copy(closest, best)
	}
	return medoids
}

// searchWeighted returns the first index whose cumulative weight exceeds r.
// Only positive-weight entries can be returned, so chosen medoids (weight
// zero) are never picked.
func searchWeighted(cum, weights []float64, r float64) int {
	i := sort.Search(len(cum), func(i int) bool { return cum[i] > r })
	if i == len(cum) {
		i--
	}
	for i > 0 && weights[i] == 0 {
		i--
	}
	return i
}

// nextUnchosen returns the first unchosen index at or after start,
// wrapping around.
func nextUnchosen(chosen []bool, start int) int {
	n := len(chosen)
	for off := 0; off < n; off++ {
		if i := (start + off) % n; !chosen[i] {
			return i
		}
	}
	return -1
}

// initBuild is the greedy BUILD phase of PAM: the first medoid minimises
// the total distance, each further one maximises the cost reduction.
func initBuild(d Distances, k int) []int {
	n := d.Len()
	sums := rowSums(d)
	first := 0
	for i := 1; i < n; i++ {
		if sums[i] < sums[first] {
			first = i
		}
	}

	chosen := make([]bool, n)
	chosen[first] = true
	medoids := []int{first}
	nearest := make([]float64, n)
	for j := 0; j < n; j++ {
		nearest[j] = d.At(first, j)
	}

	for len(medoids) < k {
		bestID, bestGain := -1, -1.0
		for c := 0; c < n; c++ {
			if chosen[c] {
				continue
			}
			gain := 0.0
			for j := 0; j < n; j++ {
				if v := nearest[j] - d.At(c, j); v > 0 {
					gain += v
				}
			}
			if gain > bestGain {
				bestID, bestGain = c, gain
			}
		}
		medoids = append(medoids, bestID)
		chosen[bestID] = true
		for j := 0; j < n; j++ {
			if v := d.At(bestID, j); v < nearest[j] {
				nearest[j] = v
			}
		}
	}
	return medoids
}
