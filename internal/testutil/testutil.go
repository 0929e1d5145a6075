// Package testutil provides shared test helpers and position fixtures.
package testutil

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/banshee-data/geokmedoids/internal/geo"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertRelErr fails the test if got differs from want by more than tol,
// relative to want.
func AssertRelErr(t *testing.T, got, want, tol float64) {
	t.Helper()
	if want == 0 {
		if got != 0 {
			t.Errorf("got %v, want 0", got)
		}
		return
	}
	if rel := math.Abs(got-want) / math.Abs(want); rel > tol {
		t.Errorf("got %v, want %v (relative error %.3g > %.3g)", got, want, rel, tol)
	}
}

// metresPerDegree is the approximate length of one degree of latitude.
const metresPerDegree = 111320.0

// Scatter returns n positions uniformly spread within radius metres of
// (lat, lon), named prefix0, prefix1 and so on. The same seed yields the
// same positions.
func Scatter(prefix string, lat, lon, radius float64, n int, seed uint64) []geo.Position {
	rng := rand.New(rand.NewPCG(seed, 0x5ca77e4))
	out := make([]geo.Position, n)
	for i := range out {
		r := radius * math.Sqrt(rng.Float64())
		theta := 2 * math.Pi * rng.Float64()
		dLat := r * math.Sin(theta) / metresPerDegree
		dLon := r * math.Cos(theta) / (metresPerDegree * math.Cos(lat*math.Pi/180))
		out[i] = geo.Position{ID: fmt.Sprintf("%s%d", prefix, i), Lat: lat + dLat, Lon: lon + dLon}
	}
	return out
}

// TwoPairs returns four positions forming two tight pairs about 11 km
// apart: indices 0 and 1 in one pair, 2 and 3 in the other.
func TwoPairs() []geo.Position {
	return []geo.Position{
		{ID: "a1", Lat: 45.4600, Lon: 9.1800},
		{ID: "a2", Lat: 45.4605, Lon: 9.1806},
		{ID: "b1", Lat: 45.5600, Lon: 9.1800},
		{ID: "b2", Lat: 45.5604, Lon: 9.1807},
	}
}
