package kmedoids

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/geokmedoids/internal/timeutil"
)

// plane is a Distances over 2D points with Euclidean distance.
type plane [][2]float64

func (p plane) Len() int { return len(p) }

func (p plane) At(i, j int) float64 {
	return math.Hypot(p[i][0]-p[j][0], p[i][1]-p[j][1])
}

// blobs returns n points around each of the given centres.
func blobs(seed uint64, n int, centres ...[2]float64) plane {
	rng := rand.New(rand.NewPCG(seed, 1))
	var out plane
	for _, c := range centres {
		for i := 0; i < n; i++ {
			out = append(out, [2]float64{c[0] + rng.NormFloat64(), c[1] + rng.NormFloat64()})
		}
	}
	return out
}

func TestParseInitAndMethod(t *testing.T) {
	inits := map[string]Init{
		"random":                InitRandom,
		"Heuristic":             InitHeuristic,
		"k-medoids++":           InitKMedoidsPP,
		"probabilistic-seeding": InitKMedoidsPP,
		"build":                 InitBuild,
		"greedy-build":          InitBuild,
	}
	for in, want := range inits {
		got, err := ParseInit(in)
		if err != nil || got != want {
			t.Errorf("ParseInit(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	methods := map[string]Method{"alternate": MethodAlternate, "PAM": MethodPAM, "full-swap": MethodPAM}
	for in, want := range methods {
		got, err := ParseMethod(in)
		if err != nil || got != want {
			t.Errorf("ParseMethod(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseInit("kmeans"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("ParseInit(kmeans) err = %v", err)
	}
	if _, err := ParseMethod("clara"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("ParseMethod(clara) err = %v", err)
	}
}

func TestFit_ConfigurationErrors(t *testing.T) {
	pts := plane{{0, 0}, {1, 0}, {2, 0}}
	tests := []struct {
		name string
		d    Distances
		cfg  Config
	}{
		{"nil table", nil, Config{K: 1}},
		{"no points", plane{}, Config{K: 1}},
		{"zero K", pts, Config{K: 0}},
		{"negative K", pts, Config{K: -2}},
		{"K above N", pts, Config{K: 4}},
		{"negative max iter", pts, Config{K: 1, MaxIter: -1}},
		{"unknown init", pts, Config{K: 1, Init: "kmeans++"}},
		{"unknown method", pts, Config{K: 1, Method: "clarans"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(context.Background(), tt.d, tt.cfg)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Fit error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func checkResult(t *testing.T, d Distances, k int, res *Result) {
	t.Helper()
	n := d.Len()
	require.Len(t, res.Medoids, k)
	require.Len(t, res.Labels, n)

	seen := map[int]bool{}
	for _, m := range res.Medoids {
		require.True(t, m >= 0 && m < n, "medoid %d out of range", m)
		require.False(t, seen[m], "duplicate medoid %d", m)
		seen[m] = true
	}

	cost := 0.0
	for i, l := range res.Labels {
		require.True(t, l >= 0 && l < k, "label %d out of range", l)
		cost += d.At(i, res.Medoids[l])
		// Every point sits with a nearest medoid.
		for _, m := range res.Medoids {
			require.LessOrEqual(t, d.At(i, res.Medoids[l]), d.At(i, m))
		}
	}
	assert.InDelta(t, cost, res.Cost, 1e-9*(1+cost))

	require.NotEmpty(t, res.CostHistory)
	for i := 1; i < len(res.CostHistory); i++ {
		assert.LessOrEqual(t, res.CostHistory[i], res.CostHistory[i-1]+1e-9, "cost increased at %d", i)
	}
	assert.Equal(t, res.Cost, res.CostHistory[len(res.CostHistory)-1])
	assert.Len(t, res.CostHistory, res.Iterations+1)

	total := 0
	for _, s := range res.Sizes() {
		total += s
	}
	assert.Equal(t, n, total)
}

func TestFit_AllCombinations(t *testing.T) {
	d := blobs(42, 15, [2]float64{0, 0}, [2]float64{20, 0}, [2]float64{0, 20}, [2]float64{20, 20})
	for _, init := range ValidInits {
		for _, method := range ValidMethods {
			t.Run(string(init)+"/"+string(method), func(t *testing.T) {
				cfg := Config{K: 4, Init: init, Method: method, Seed: 7}
				res, err := Fit(context.Background(), d, cfg)
				require.NoError(t, err)
				checkResult(t, d, 4, res)
				assert.False(t, res.CapReached)

				// Same seed, same answer.
				again, err := Fit(context.Background(), d, cfg)
				require.NoError(t, err)
				if diff := cmp.Diff(res.Medoids, again.Medoids); diff != "" {
					t.Errorf("medoids differ between runs (-first +second):\n%s", diff)
				}
				assert.Equal(t, res.Labels, again.Labels)

				// PAM escapes a bad start and puts one medoid in each of
				// the four well separated blobs.
				if method == MethodPAM {
					for l, s := range res.Sizes() {
						assert.Equal(t, 15, s, "cluster %d", l)
					}
				}
			})
		}
	}
}

func TestFit_TwoPairs(t *testing.T) {
	d := plane{{0, 0}, {0, 1}, {100, 0}, {100, 1}}
	res, err := Fit(context.Background(), d, Config{K: 2, Init: InitBuild, Method: MethodPAM})
	require.NoError(t, err)
	checkResult(t, d, 2, res)

	pair := func(i int) int { return i / 2 }
	assert.NotEqual(t, pair(res.Medoids[0]), pair(res.Medoids[1]))
	assert.Equal(t, []int{2, 2}, res.Sizes())
	assert.Equal(t, res.Labels[0], res.Labels[1])
	assert.Equal(t, res.Labels[2], res.Labels[3])
	assert.Equal(t, 2.0, res.Cost)
}

func TestFit_CoincidentPoints(t *testing.T) {
	d := plane{{5, 5}, {5, 5}, {5, 5}, {5, 5}, {5, 5}}
	for _, init := range ValidInits {
		for _, method := range ValidMethods {
			res, err := Fit(context.Background(), d, Config{K: 3, Init: init, Method: method, Seed: 3})
			require.NoError(t, err, "%s/%s", init, method)
			checkResult(t, d, 3, res)
			assert.Zero(t, res.Cost)
		}
	}
}

func TestFit_KEqualsN(t *testing.T) {
	d := blobs(1, 6, [2]float64{0, 0})
	for _, method := range ValidMethods {
		res, err := Fit(context.Background(), d, Config{K: 6, Init: InitRandom, Method: method, Seed: 9})
		require.NoError(t, err)
		checkResult(t, d, 6, res)
		assert.Zero(t, res.Cost)
	}
}

func TestFit_CapReached(t *testing.T) {
	// Heuristic init picks the inner end of each blob (indices 3 and 4);
	// the first alternate iteration moves both, so one iteration cannot
	// converge.
	d := plane{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {10, 0}, {11, 0}, {12, 0}, {13, 0}}

	capped, err := Fit(context.Background(), d, Config{K: 2, Init: InitHeuristic, Method: MethodAlternate, MaxIter: 1})
	require.NoError(t, err)
	assert.True(t, capped.CapReached)
	assert.Equal(t, 1, capped.Iterations)
	assert.Equal(t, []float64{12, 8}, capped.CostHistory)

	full, err := Fit(context.Background(), d, Config{K: 2, Init: InitHeuristic, Method: MethodAlternate})
	require.NoError(t, err)
	assert.False(t, full.CapReached)
	assert.Equal(t, 2, full.Iterations)
	assert.Equal(t, []int{1, 5}, full.Medoids)
	assert.Equal(t, 8.0, full.Cost)
	assert.Equal(t, DefaultMaxIter, full.Config.MaxIter)
	assert.Equal(t, InitHeuristic, full.Config.Init)
}

func TestFit_DefaultsApplied(t *testing.T) {
	d := blobs(2, 5, [2]float64{0, 0}, [2]float64{30, 30})
	res, err := Fit(context.Background(), d, Config{K: 2})
	require.NoError(t, err)
	assert.Equal(t, DefaultInit, res.Config.Init)
	assert.Equal(t, DefaultMethod, res.Config.Method)
	assert.Equal(t, DefaultMaxIter, res.Config.MaxIter)
}

func TestFit_PAMWorkerCountDoesNotChangeResult(t *testing.T) {
	d := blobs(5, 20, [2]float64{0, 0}, [2]float64{6, 0}, [2]float64{3, 5})
	var first *Result
	for _, w := range []int{1, 2, 3, 8, 100} {
		res, err := Fit(context.Background(), d, Config{K: 5, Init: InitRandom, Method: MethodPAM, Seed: 11, Workers: w})
		require.NoError(t, err)
		if first == nil {
			first = res
			continue
		}
		assert.Equal(t, first.Medoids, res.Medoids, "workers=%d", w)
		assert.Equal(t, first.CostHistory, res.CostHistory, "workers=%d", w)
	}
}

func TestBestSwapMatchesNaiveDelta(t *testing.T) {
	d := blobs(8, 6, [2]float64{0, 0}, [2]float64{4, 1}, [2]float64{1, 5})
	f := &fit{d: d, n: d.Len(), cfg: Config{Workers: 3}, medoids: []int{0, 1, 2}}
	f.assign()

	near := make([]int, f.n)
	dNear := make([]float64, f.n)
	dSecond := make([]float64, f.n)
	f.nearestTwo(near, dNear, dSecond)
	got, err := f.bestSwap(context.Background(), 3, near, dNear, dSecond)
	require.NoError(t, err)

	base := f.cost
	want := swap{candidate: -1, delta: math.Inf(1)}
	medoid := f.isMedoid()
	for h := 0; h < f.n; h++ {
		if medoid[h] {
			continue
		}
		for l := range f.medoids {
			trial := append([]int(nil), f.medoids...)
			trial[l] = h
			g := &fit{d: d, n: f.n, medoids: trial}
			g.assign()
			if s := (swap{candidate: h, slot: l, delta: g.cost - base}); s.delta < want.delta-1e-9 {
				want = s
			}
		}
	}
	assert.Equal(t, want.candidate, got.candidate)
	assert.Equal(t, want.slot, got.slot)
	assert.InDelta(t, want.delta, got.delta, 1e-9)
}

func TestFit_SeedChangesRandomInit(t *testing.T) {
	d := blobs(3, 40, [2]float64{0, 0})
	a, err := initRandomFor(d, 1)
	require.NoError(t, err)
	b, err := initRandomFor(d, 2)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func initRandomFor(d Distances, seed uint64) ([]int, error) {
	res, err := Fit(context.Background(), d, Config{K: 5, Init: InitRandom, Method: MethodAlternate, MaxIter: 1, Seed: seed})
	if err != nil {
		return nil, err
	}
	return res.Medoids, nil
}

func TestFit_Elapsed(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(100, 0))
	clock.AutoStep(250 * time.Millisecond)
	d := plane{{0, 0}, {1, 1}}
	res, err := Fit(context.Background(), d, Config{K: 1, Clock: clock})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, res.Elapsed)
}

func TestFit_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := blobs(4, 10, [2]float64{0, 0})
	for _, method := range ValidMethods {
		_, err := Fit(ctx, d, Config{K: 2, Method: method})
		assert.ErrorIs(t, err, context.Canceled)
	}
}
