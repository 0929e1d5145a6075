package collate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var centers = map[string]Center{
	"g1": {Lat: 45.0, Lon: 9.0},
	"g2": {Lat: 46.0, Lon: 10.0},
	"g3": {Lat: 47.0, Lon: 11.0},
}

func observe(t *testing.T, c *Collator, pairs ...string) {
	t.Helper()
	for i := 0; i+1 < len(pairs); i += 2 {
		require.NoError(t, c.Add(Observation{Identity: pairs[i], Group: pairs[i+1]}))
	}
}

func TestMajority(t *testing.T) {
	tests := []struct {
		name   string
		counts map[string]int
		want   string
	}{
		{"empty", nil, ""},
		{"single", map[string]int{"g2": 1}, "g2"},
		{"three versus two", map[string]int{"g1": 3, "g2": 2}, "g1"},
		{"two versus three", map[string]int{"g1": 2, "g2": 3}, "g2"},
		{"tie goes to smallest id", map[string]int{"g3": 2, "g1": 2, "g2": 1}, "g1"},
		{"tie is lexicographic", map[string]int{"b": 4, "a10": 4, "a9": 4}, "a10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Map iteration order varies; repeat to catch order dependence.
			for i := 0; i < 20; i++ {
				if got := Majority(tt.counts); got != tt.want {
					t.Fatalf("Majority(%v) = %q, want %q", tt.counts, got, tt.want)
				}
			}
		})
	}
}

func TestCollator_SingleObservation(t *testing.T) {
	c := New()
	observe(t, c, "alice", "g2")
	res, err := c.Finalize(centers)
	require.NoError(t, err)

	g, ok := res.Group("alice")
	assert.True(t, ok)
	assert.Equal(t, "g2", g)
	assert.Empty(t, res.CoMembers("alice"))
}

func TestCollator_ThreeVersusTwo(t *testing.T) {
	c := New()
	observe(t, c,
		"A", "g1", "A", "g2", "A", "g1", "A", "g2", "A", "g1",
	)
	res, err := c.Finalize(centers)
	require.NoError(t, err)
	g, _ := res.Group("A")
	assert.Equal(t, "g1", g)
}

func TestCollator_Records(t *testing.T) {
	c := New()
	observe(t, c,
		"carol", "g2",
		"alice", "g1",
		"bob", "g1",
		"alice", "g1",
		"dave", "g2",
		"bob", "g3",
		"bob", "g3",
		"erin", "g1",
	)
	assert.Equal(t, 5, c.Identities())

	res, err := c.Finalize(centers)
	require.NoError(t, err)

	want := []Record{
		{Identity: "carol", Group: "g2", Lat: 46, Lon: 10, CoMembers: []string{"dave"}},
		{Identity: "alice", Group: "g1", Lat: 45, Lon: 9, CoMembers: []string{"erin"}},
		{Identity: "bob", Group: "g3", Lat: 47, Lon: 11, CoMembers: []string{}},
		{Identity: "dave", Group: "g2", Lat: 46, Lon: 10, CoMembers: []string{"carol"}},
		{Identity: "erin", Group: "g1", Lat: 45, Lon: 9, CoMembers: []string{"alice"}},
	}
	if diff := cmp.Diff(want, res.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"alice", "erin"}, res.Roster("g1"))
	assert.Equal(t, []string{"g1", "g2", "g3"}, res.Groups())
	assert.Nil(t, res.CoMembers("zed"))
}

func TestCollator_FinalizeOnce(t *testing.T) {
	c := New()
	observe(t, c, "a", "g1")
	_, err := c.Finalize(centers)
	require.NoError(t, err)

	_, err = c.Finalize(centers)
	assert.ErrorIs(t, err, ErrFinalized)
	assert.ErrorIs(t, c.Add(Observation{Identity: "b", Group: "g1"}), ErrFinalized)
}

func TestCollator_Errors(t *testing.T) {
	c := New()
	err := c.Add(Observation{Identity: "", Group: "g1"})
	assert.True(t, errors.Is(err, ErrInvalidObservation))
	err = c.AddAll([]Observation{{Identity: "a", Group: "g1"}, {Identity: "b"}})
	assert.ErrorIs(t, err, ErrInvalidObservation)
	assert.Contains(t, err.Error(), "observation 1")

	c = New()
	observe(t, c, "a", "missing")
	_, err = c.Finalize(centers)
	assert.ErrorIs(t, err, ErrUnknownGroup)
}
