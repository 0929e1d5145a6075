package csvio

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/geokmedoids/internal/collate"
	"github.com/banshee-data/geokmedoids/internal/geo"
	"github.com/banshee-data/geokmedoids/internal/labeler"
)

func TestLoadPositions(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"short names", "id,lat,lon\na,45.5,9.2\nb,-33.9,151.2\na,0,0\n"},
		{"long names", "uid,latitude,longitude\na,45.5,9.2\nb,-33.9,151.2\na,0,0\n"},
		{"reordered with extra column", "lon,note,lat,id\n9.2,x,45.5,a\n151.2,y,-33.9,b\n0,z,0,a\n"},
	}
	want := []geo.Position{
		{ID: "a", Lat: 45.5, Lon: 9.2},
		{ID: "b", Lat: -33.9, Lon: 151.2},
		{ID: "a", Lat: 0, Lon: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadPositions(strings.NewReader(tt.in))
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("positions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadPositions_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line int
	}{
		{"empty", "", 0},
		{"missing column", "id,lat\na,1\n", 1},
		{"bad number", "id,lat,lon\na,1,2\nb,north,2\n", 3},
		{"missing value", "id,lat,lon\na,,2\n", 2},
		{"missing id", "id,lat,lon\n,1,2\n", 2},
		{"latitude out of range", "id,lat,lon\na,91,2\n", 2},
		{"longitude out of range", "id,lat,lon\na,1,-180.5\n", 2},
		{"ragged row", "id,lat,lon\na,1,2\nb,1\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPositions(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInput), "error %v does not wrap ErrInput", err)
			var ie *InputError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tt.line, ie.Line)
		})
	}

	_, err := LoadPositions(strings.NewReader("id,lat,lon\na,91,2\n"))
	assert.ErrorIs(t, err, geo.ErrOutOfRange)
}

func TestLabeledPositionsRoundTrip(t *testing.T) {
	rows := []labeler.LabeledPosition{
		{ID: "u1", GroupID: "g-1", Lat: 45.4642, Lon: 9.19},
		{ID: "u2", GroupID: "g-2", Lat: -1.5, Lon: 0.25},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteLabeledPositions(&buf, rows))
	assert.Equal(t, "uid,gid,latitude,longitude\nu1,g-1,45.4642,9.19\nu2,g-2,-1.5,0.25\n", buf.String())

	got, err := LoadLabeledPositions(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	obs := Observations(got)
	assert.Equal(t, collate.Observation{Identity: "u2", Group: "g-2", Lat: -1.5, Lon: 0.25}, obs[1])
}

func TestLoadLabeledPositions_MissingGroup(t *testing.T) {
	_, err := LoadLabeledPositions(strings.NewReader("uid,gid,latitude,longitude\nu1,,1,2\n"))
	var ie *InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "gid", ie.Field)
	assert.Equal(t, 2, ie.Line)
}

func TestGroupCenters(t *testing.T) {
	groups := []labeler.Group{
		{ID: "g-b", Lat: 46, Lon: 10},
		{ID: "g-a", Lat: 45.5, Lon: 9.25},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteGroupCenters(&buf, groups))
	assert.Equal(t, "gid,latitude,longitude\ng-b,46,10\ng-a,45.5,9.25\n", buf.String())

	centers, err := LoadGroupCenters(&buf)
	require.NoError(t, err)
	assert.Equal(t, []GroupCenter{{ID: "g-b", Lat: 46, Lon: 10}, {ID: "g-a", Lat: 45.5, Lon: 9.25}}, centers)
	assert.Equal(t, map[string]collate.Center{"g-b": {Lat: 46, Lon: 10}, "g-a": {Lat: 45.5, Lon: 9.25}}, CenterMap(centers))
	assert.Equal(t, geo.Position{ID: "g-a", Lat: 45.5, Lon: 9.25}, centers[1].Position())
}

func TestLoadGroupCenters_Duplicate(t *testing.T) {
	_, err := LoadGroupCenters(strings.NewReader("gid,latitude,longitude\ng,1,2\nh,1,2\ng,3,4\n"))
	var ie *InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 4, ie.Line)
	assert.Contains(t, err.Error(), "first on line 2")
}

func TestWriteCollatedIdentities(t *testing.T) {
	records := []collate.Record{
		{Identity: "alice", Group: "g1", Lat: 45, Lon: 9, CoMembers: []string{"bob", "carol"}},
		{Identity: "dave", Group: "g2", Lat: 46.5, Lon: 10, CoMembers: []string{}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCollatedIdentities(&buf, records))
	want := "user_id,start_point_id,start_point_latitude,start_point_longitude,potential_group_members\n" +
		"alice,g1,45,9,\"bob,carol\"\n" +
		"dave,g2,46.5,10,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGroupCenters(&buf, nil))
	assert.Equal(t, "gid,latitude,longitude\n", buf.String())
}
