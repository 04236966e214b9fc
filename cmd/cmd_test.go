package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heatsim/model"
	"heatsim/store"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSolveSummary(t *testing.T) {
	out, err := run(t, "solve", "--preset", "coarse", "--process", "gtaw", "--heat-input", "1", "--compare")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary), out)
	assert.Greater(t, summary["center_peak_temperature"], 800.0)
	assert.Contains(t, summary, "haz")
	assert.Contains(t, summary, "comparison_with_rosenthal")
	info := summary["solver_info"].(map[string]any)
	assert.Equal(t, 1200.0, info["n_steps"])
}

func TestSolveRejectsBadInput(t *testing.T) {
	_, err := run(t, "solve", "--preset", "coarse", "--process", "plasma")
	assert.Error(t, err)

	_, err = run(t, "solve", "--preset", "huge")
	assert.Error(t, err)
}

func TestSweep(t *testing.T) {
	db := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	// 保持共享内存库存活
	s, err := store.Open(db)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	job := &model.Job{Kind: model.KindSimulation, Status: model.StatusRunning}
	require.NoError(t, s.CreateJob(context.Background(), job))

	out, err := run(t, "--db", db, "sweep")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "failed 1 orphaned job(s)"), out)

	got, err := s.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
}
