package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := openTemp(t)
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.BeginRun("run-1", "salt-heat-stress", started))
	require.NoError(t, s.CompleteRun("run-1", started.Add(time.Minute)))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, StatusCompleted, runs[0].Status)
	assert.Equal(t, started, runs[0].StartedAt)
	assert.Equal(t, started.Add(time.Minute), runs[0].FinishedAt)
}

func TestFailRunKeepsStageAndInput(t *testing.T) {
	s := openTemp(t)
	now := time.Now()

	require.NoError(t, s.BeginRun("run-2", "study", now))
	require.NoError(t, s.FailRun("run-2", "render", "deg_heatmap", "render error: shape mismatch", now.Add(time.Second)))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "render", runs[0].FailedStage)
	assert.Equal(t, "deg_heatmap", runs[0].FailedInput)
	assert.Contains(t, runs[0].Error, "shape mismatch")
}

func TestArtifacts(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.BeginRun("run-3", "study", time.Now()))

	require.NoError(t, s.AddArtifact(Artifact{
		RunID: "run-3", Name: "salt_significant", Kind: "dataset",
		Stage: "transform", Path: "out/transform_salt_significant.csv",
	}))
	require.NoError(t, s.AddArtifact(Artifact{
		RunID: "run-3", Name: "sig_venn", Kind: "figure",
		Stage: "render", Path: "out/render_sig_venn.png",
	}))

	artifacts, err := s.Artifacts("run-3")
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "salt_significant", artifacts[0].Name)
	assert.Equal(t, "figure", artifacts[1].Kind)
	assert.False(t, artifacts[0].CreatedAt.IsZero())

	t.Run("unknown run has no artifacts", func(t *testing.T) {
		artifacts, err := s.Artifacts("missing")
		require.NoError(t, err)
		assert.Empty(t, artifacts)
	})
}

func TestListRunsOrder(t *testing.T) {
	s := openTemp(t)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.BeginRun("old", "study", base))
	require.NoError(t, s.BeginRun("new", "study", base.Add(time.Hour)))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)

	runs, err = s.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}
