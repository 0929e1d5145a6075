package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/geokmedoids/internal/collate"
	"github.com/banshee-data/geokmedoids/internal/config"
	"github.com/banshee-data/geokmedoids/internal/csvio"
	"github.com/banshee-data/geokmedoids/internal/distance"
	"github.com/banshee-data/geokmedoids/internal/fsutil"
	"github.com/banshee-data/geokmedoids/internal/kmedoids"
	"github.com/banshee-data/geokmedoids/internal/labeler"
	"github.com/banshee-data/geokmedoids/internal/monitoring"
	"github.com/banshee-data/geokmedoids/internal/runstore"
	"github.com/banshee-data/geokmedoids/internal/testutil"
	"github.com/banshee-data/geokmedoids/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func sequentialIDs() *labeler.Labeler {
	n := 0
	return &labeler.Labeler{NewID: func() string {
		n++
		return fmt.Sprintf("g%d", n)
	}}
}

func twoPairsFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,lat,lon\n")
	for _, p := range testutil.TwoPairs() {
		fmt.Fprintf(&b, "%s,%v,%v\n", p.ID, p.Lat, p.Lon)
	}
	fs := fsutil.NewMemoryFileSystem()
	fs.WriteFile("in/positions.csv", []byte(b.String()))
	return fs
}

func twoPairsConfig() *config.ClusterConfig {
	k := 2
	initName := string(kmedoids.InitBuild)
	method := string(kmedoids.MethodPAM)
	metric := distance.Planar
	return &config.ClusterConfig{KClusters: &k, Init: &initName, Method: &method, DistanceMetric: &metric}
}

func TestCluster_TwoPairs(t *testing.T) {
	fs := twoPairsFS(t)
	clock := timeutil.NewMockClock(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	run, err := Cluster(context.Background(), ClusterOptions{
		Input:       "in/positions.csv",
		Config:      twoPairsConfig(),
		Prefix:      "out/run",
		FS:          fs,
		Clock:       clock,
		Labeler:     sequentialIDs(),
		CommandLine: []string{"geokmedoids", "-c", "in/positions.csv", "-k", "2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "out/run_20240102-030405_positions.csv", run.Outputs.Positions)
	assert.Equal(t, "out/run_20240102-030405_centers.csv", run.Outputs.Centers)
	assert.Equal(t, "out/run_20240102-030405_runinfo.txt", run.Outputs.RunInfo)

	// One medoid from each pair and a 2/2 split.
	res := run.Result
	require.Len(t, res.Medoids, 2)
	assert.NotEqual(t, res.Medoids[0]/2, res.Medoids[1]/2, "medoids %v share a pair", res.Medoids)
	assert.Equal(t, res.Labels[0], res.Labels[1])
	assert.Equal(t, res.Labels[2], res.Labels[3])
	assert.NotEqual(t, res.Labels[0], res.Labels[2])
	assert.Equal(t, []int{2, 2}, res.Sizes())

	data, err := fs.ReadFile(run.Outputs.Positions)
	require.NoError(t, err)
	rows, err := csvio.LoadLabeledPositions(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, rows[0].GroupID, rows[1].GroupID)
	assert.Equal(t, rows[2].GroupID, rows[3].GroupID)
	assert.NotEqual(t, rows[0].GroupID, rows[2].GroupID)
	assert.True(t, strings.HasPrefix(string(data), "uid,gid,latitude,longitude\n"))

	data, err = fs.ReadFile(run.Outputs.Centers)
	require.NoError(t, err)
	centers, err := csvio.LoadGroupCenters(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, centers, 2)
	points := testutil.TwoPairs()
	for i, c := range centers {
		assert.Equal(t, fmt.Sprintf("g%d", i+1), c.ID)
		m := points[res.Medoids[i]]
		assert.InDelta(t, m.Lat, c.Lat, 1e-7)
		assert.InDelta(t, m.Lon, c.Lon, 1e-7)
	}

	data, err = fs.ReadFile(run.Outputs.RunInfo)
	require.NoError(t, err)
	info := string(data)
	for _, want := range []string{
		"geokmedoids -c in/positions.csv -k 2\n",
		"input: in/positions.csv\n",
		"kmedoids_n_clusters: 2\n",
		"kmedoids_init: build\n",
		"kmedoids_method: pam\n",
		"kmedoids_metric: planar\n",
		"UTM zone: 32T (0 positions outside the zone)\n",
		"Run id: " + run.RunID + "\n",
		"geokmedoids started at 20240102-030405\n",
	} {
		assert.Contains(t, info, want)
	}
}

func TestCluster_Errors(t *testing.T) {
	fs := twoPairsFS(t)

	_, err := Cluster(context.Background(), ClusterOptions{Input: "in/missing.csv", Config: twoPairsConfig(), FS: fs})
	assert.Error(t, err)

	k := 5
	cfg := twoPairsConfig()
	cfg.KClusters = &k
	_, err = Cluster(context.Background(), ClusterOptions{Input: "in/positions.csv", Config: cfg, FS: fs})
	if !errors.Is(err, kmedoids.ErrConfiguration) {
		t.Errorf("K > N: got %v, want ErrConfiguration", err)
	}

	fs.WriteFile("in/bad.csv", []byte("id,lat,lon\na,91,0\n"))
	_, err = Cluster(context.Background(), ClusterOptions{Input: "in/bad.csv", Config: twoPairsConfig(), FS: fs})
	if !errors.Is(err, csvio.ErrInput) {
		t.Errorf("out of range latitude: got %v, want ErrInput", err)
	}
}

func TestCluster_RecordsRun(t *testing.T) {
	store, err := runstore.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	run, err := Cluster(context.Background(), ClusterOptions{
		Input:  "in/positions.csv",
		Config: twoPairsConfig(),
		Prefix: "run",
		FS:     twoPairsFS(t),
		Clock:  timeutil.NewMockClock(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
		Store:  store,
	})
	require.NoError(t, err)

	runs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, 4, got.Points)
	assert.Equal(t, 2, got.K)
	assert.Equal(t, distance.Planar, got.Metric)
	assert.Equal(t, "pam", got.Method)
	assert.Equal(t, "run", got.OutputPrefix)
	assert.Contains(t, string(got.ConfigJSON), `"k_clusters":2`)
}

func collateFS() *fsutil.MemoryFileSystem {
	fs := fsutil.NewMemoryFileSystem()
	fs.WriteFile("run1_positions.csv", []byte(
		"uid,gid,latitude,longitude\n"+
			"u1,gA,45.1,9.1\n"+
			"u2,gA,45.1,9.1\n"+
			"u3,gB,45.2,9.2\n"))
	fs.WriteFile("run2_positions.csv", []byte(
		"uid,gid,latitude,longitude\n"+
			"u1,gA,45.1,9.1\n"+
			"u3,gA,45.1,9.1\n"+
			"u3,gB,45.2,9.2\n"+
			"u4,gB,45.2,9.2\n"))
	fs.WriteFile("centers.csv", []byte(
		"gid,latitude,longitude\n"+
			"gA,45.1,9.1\n"+
			"gB,45.2,9.2\n"+
			"gC,45.3,9.3\n"))
	return fs
}

func TestCollate(t *testing.T) {
	fs := collateFS()
	res, err := Collate(CollateOptions{
		Positions: []string{"run1_positions.csv", "run2_positions.csv"},
		Centers:   []string{"centers.csv"},
		Output:    "collated.csv",
		FS:        fs,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"gA", "gB"}, res.Groups())

	data, err := fs.ReadFile("collated.csv")
	require.NoError(t, err)
	want := "user_id,start_point_id,start_point_latitude,start_point_longitude,potential_group_members\n" +
		"u1,gA,45.1,9.1,u2\n" +
		"u2,gA,45.1,9.1,u1\n" +
		"u3,gB,45.2,9.2,u4\n" +
		"u4,gB,45.2,9.2,u3\n"
	assert.Equal(t, want, string(data))
}

func TestCollate_Errors(t *testing.T) {
	fs := collateFS()
	fs.WriteFile("more_centers.csv", []byte("gid,latitude,longitude\ngB,1,1\n"))
	_, err := Collate(CollateOptions{
		Positions: []string{"run1_positions.csv"},
		Centers:   []string{"centers.csv", "more_centers.csv"},
		FS:        fs,
	})
	if !errors.Is(err, csvio.ErrInput) {
		t.Errorf("duplicate group: got %v, want ErrInput", err)
	}

	fs.WriteFile("few_centers.csv", []byte("gid,latitude,longitude\ngA,45.1,9.1\n"))
	_, err = Collate(CollateOptions{
		Positions: []string{"run1_positions.csv"},
		Centers:   []string{"few_centers.csv"},
		FS:        fs,
	})
	if !errors.Is(err, collate.ErrUnknownGroup) {
		t.Errorf("missing center: got %v, want ErrUnknownGroup", err)
	}
	assert.False(t, fs.Exists(DefaultCollatedOutput), "no output after a failed collation")

	_, err = Collate(CollateOptions{Centers: []string{"centers.csv"}, FS: fs})
	assert.Error(t, err)
}

func TestAnalyze_ClusterOutputs(t *testing.T) {
	fs := twoPairsFS(t)
	run, err := Cluster(context.Background(), ClusterOptions{
		Input:   "in/positions.csv",
		Config:  twoPairsConfig(),
		Prefix:  "out/run",
		FS:      fs,
		Clock:   timeutil.NewMockClock(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
		Labeler: sequentialIDs(),
	})
	require.NoError(t, err)

	a, err := Analyze(AnalyzeOptions{
		Positions:   run.Outputs.Positions,
		Centers:     run.Outputs.Centers,
		Metric:      distance.Haversine,
		ChartPrefix: "out/charts",
		FS:          fs,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, a.DistanceStat.N)
	assert.InDelta(t, 0.0, a.DistanceStat.Min, 0.01, "each medoid sits on its own center")
	assert.Less(t, a.DistanceStat.Max, 200.0)
	assert.Equal(t, []float64{2, 2}, a.SortedSizes())

	for _, name := range []string{"out/charts_distances.png", "out/charts_sizes.png", "out/charts_charts.html"} {
		assert.True(t, fs.Exists(name), name)
	}

	_, err = Analyze(AnalyzeOptions{Positions: run.Outputs.Positions, Centers: run.Outputs.Centers, Metric: "manhattan", FS: fs})
	if !errors.Is(err, distance.ErrUnknownMetric) {
		t.Errorf("unknown metric: got %v, want ErrUnknownMetric", err)
	}
}
