package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/geokmedoids/internal/monitoring"
	"github.com/banshee-data/geokmedoids/internal/runstore"
)

func seed(t *testing.T) string {
	t.Helper()
	monitoring.SetLogger(nil)

	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := runstore.Open(path)
	require.NoError(t, err)
	defer store.Close()
	for i, id := range []string{"older", "newer"} {
		require.NoError(t, store.Insert(context.Background(), &runstore.Run{
			RunID:     id,
			CreatedAt: time.Date(2024, 5, 1, 12, i, 0, 0, time.UTC),
			Metric:    "planar",
			K:         3,
			Points:    10 + i,
			Cost:      1.5,
		}))
	}
	return path
}

func TestRun_List(t *testing.T) {
	path := seed(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), path, []string{"list", "-n", "1"}, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "RUN ID"))
	assert.True(t, strings.HasPrefix(lines[1], "newer"), lines[1])
}

func TestRun_Show(t *testing.T) {
	path := seed(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), path, []string{"show", "older"}, &out))
	assert.Contains(t, out.String(), "points:")
	assert.Contains(t, out.String(), "10\n")

	err := run(context.Background(), path, []string{"show", "missing"}, &out)
	assert.True(t, errors.Is(err, runstore.ErrNotFound), "got %v", err)
}

func TestRun_Migrate(t *testing.T) {
	path := seed(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), path, []string{"migrate", "status"}, &out))
	assert.Contains(t, out.String(), "Current version: 2\n")
	assert.Contains(t, out.String(), "Dirty: false\n")
}

func TestRun_Usage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	for _, args := range [][]string{nil, {"frobnicate"}, {"show"}, {"migrate", "sideways"}} {
		err := run(context.Background(), path, args, &bytes.Buffer{})
		assert.True(t, errors.Is(err, errUsage), "args %q: got %v", args, err)
	}
}
