package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coarse(t *testing.T) SolverConfig {
	t.Helper()
	cfg, err := Preset("coarse")
	require.NoError(t, err)
	return cfg
}

func solve(t *testing.T, p GoldakParams, cfg SolverConfig) *GoldakResult {
	t.Helper()
	s, err := NewGoldakSolver(p, cfg)
	require.NoError(t, err)
	res, err := s.Solve(context.Background(), nil, nil)
	require.NoError(t, err)
	return res
}

func TestZeroSourceStaysAtT0(t *testing.T) {
	p := DefaultGoldakParams()
	p.Q = 0
	res := solve(t, p, coarse(t))

	for _, row := range res.FinalField() {
		for _, v := range row {
			assert.InDelta(t, p.T0, v, 1)
		}
	}
	assert.Equal(t, 0.0, res.FusionZoneAreaMM2)
	assert.Empty(t, res.WeldPoolBoundary.YMM)
	assert.Nil(t, res.CenterT85())
}

func TestSolveCoarse(t *testing.T) {
	p := DefaultGoldakParams()
	cfg := coarse(t)
	res := solve(t, p, cfg)

	// 1200 步，每 20 步一个快照，加 t = 0
	assert.Equal(t, 1200, res.SolverInfo.NSteps)
	assert.Len(t, res.TemperatureField, 61)
	assert.Len(t, res.Times, 61)
	assert.Equal(t, 0.0, res.Times[0])
	assert.InDelta(t, 120, res.Times[len(res.Times)-1], 1e-9)

	center := res.ProbeThermalCycles["center"]
	assert.Len(t, center.Times, 241)
	assert.Len(t, res.ProbeThermalCycles, 5)

	peak := res.CenterPeak()
	assert.Greater(t, peak, 800.0)
	assert.LessOrEqual(t, res.PeakTemperatureMap.Max(), p.Solidus)
	assert.GreaterOrEqual(t, res.FusionZoneAreaMM2, 0.0)

	t85 := res.CenterT85()
	require.NotNil(t, t85)
	assert.Greater(t, *t85, 0.0)

	// 峰值温度关于焊缝中心对称，且随距离单调不增
	mid := len(res.YCoords) / 2
	surface := res.PeakTemperatureMap[0]
	for i := 1; i <= mid; i++ {
		assert.InDelta(t, surface[mid+i], surface[mid-i], 1e-6)
		assert.LessOrEqual(t, surface[mid+i], surface[mid+i-1]+1e-9)
	}

	// 峰值 < 500 ℃ 处 t8/5 无定义
	for k, row := range res.PeakTemperatureMap {
		for j, v := range row {
			if v < 500 {
				assert.True(t, math.IsNaN(res.T85Map[k][j]))
			}
		}
	}
}

func TestSolveOddGrid(t *testing.T) {
	cfg := NewSolverConfig(20, 11, 0.1, 10, 10)
	assert.Equal(t, 21, cfg.Ny)

	s, err := NewGoldakSolver(DefaultGoldakParams(), cfg)
	require.NoError(t, err)
	y, _ := s.Coords()
	assert.Equal(t, 0.0, y[len(y)/2])
	assert.InDelta(t, -y[0], y[len(y)-1], 1e-15)
}

func TestDivergence(t *testing.T) {
	cfg := coarse(t)
	cfg.Dt = 10
	s, err := NewGoldakSolver(DefaultGoldakParams(), cfg)
	require.NoError(t, err)
	assert.Greater(t, cfg.Dt, s.StableTimeStep())

	res, err := s.Solve(context.Background(), nil, nil)
	assert.Nil(t, res)
	require.True(t, errors.Is(err, ErrNumericalDivergence))

	var de *DivergenceError
	require.True(t, errors.As(err, &de))
	assert.Greater(t, de.Step, 0)
	assert.Equal(t, Failed, s.State())
}

func TestCancelled(t *testing.T) {
	s, err := NewGoldakSolver(DefaultGoldakParams(), coarse(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Solve(ctx, nil, nil)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.False(t, errors.Is(err, ErrNumericalDivergence))
}

func TestSolveOnce(t *testing.T) {
	cfg := coarse(t)
	cfg.TotalTime = 1
	s, err := NewGoldakSolver(DefaultGoldakParams(), cfg)
	require.NoError(t, err)
	assert.Equal(t, Constructed, s.State())

	_, err = s.Solve(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Solved, s.State())

	_, err = s.Solve(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrAlreadySolved)
}

func TestInitialFieldShape(t *testing.T) {
	s, err := NewGoldakSolver(DefaultGoldakParams(), coarse(t))
	require.NoError(t, err)
	_, err = s.Solve(context.Background(), newField(3, 3, 20), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInitialFieldNotModified(t *testing.T) {
	cfg := coarse(t)
	cfg.TotalTime = 30
	s, err := NewGoldakSolver(DefaultGoldakParams(), cfg)
	require.NoError(t, err)

	initial := newField(cfg.Nz, cfg.Ny, 100)
	_, err = s.Solve(context.Background(), initial, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, initial.Max())
}

func TestStopCondition(t *testing.T) {
	s, err := NewGoldakSolver(DefaultGoldakParams(), coarse(t), WithStopCondition(func(float64, Field) bool {
		return true
	}))
	require.NoError(t, err)
	res, err := s.Solve(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SolverInfo.NSteps)
	// t = 0 以及提前结束时的快照
	assert.Len(t, res.TemperatureField, 2)
}

func TestProgress(t *testing.T) {
	cfg := coarse(t)
	cfg.TotalTime = 10
	s, err := NewGoldakSolver(DefaultGoldakParams(), cfg)
	require.NoError(t, err)

	var got []float64
	_, err = s.Solve(context.Background(), nil, func(f float64) {
		got = append(got, f)
	})
	require.NoError(t, err)
	// 100 步，每 50 步一次，最后再报一次 1
	assert.Equal(t, []float64{0.5, 1, 1}, got)
}

func TestInvalidParams(t *testing.T) {
	p := DefaultGoldakParams()
	p.Ar = p.Af
	_, err := NewGoldakSolver(p, coarse(t))
	assert.ErrorIs(t, err, ErrValidation)

	p = DefaultGoldakParams()
	p.Ff = 1
	_, err = NewGoldakSolver(p, coarse(t))
	assert.ErrorIs(t, err, ErrValidation)

	// 和为 2 但后半部分为负
	p = DefaultGoldakParams()
	p.Ff, p.Fr = 2.5, -0.5
	assert.ErrorIs(t, p.Validate(), ErrValidation)
	p.Ff, p.Fr = 2, 0
	assert.ErrorIs(t, p.Validate(), ErrValidation)

	cfg := coarse(t)
	cfg.Dt = 0
	_, err = NewGoldakSolver(DefaultGoldakParams(), cfg)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStableTimeStep(t *testing.T) {
	p := DefaultGoldakParams()
	s, err := NewGoldakSolver(p, coarse(t))
	require.NoError(t, err)

	dy, dz := 0.003, 0.002
	h := p.HEff(p.Solidus)
	want := 1 / (2*p.Alpha()*(1/(dy*dy)+1/(dz*dz)) + 2*h/(p.Rho*p.Cp*dz))
	assert.InDelta(t, want, s.StableTimeStep(), 1e-9)
	assert.Less(t, coarse(t).Dt, s.StableTimeStep())
}

func TestToDataJSON(t *testing.T) {
	res := solve(t, DefaultGoldakParams(), coarse(t))
	data := res.ToData()

	b, err := json.Marshal(data)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(b, &back))
	for _, key := range []string{"y_coords", "t8_5_map", "weld_pool_boundary", "goldak_params", "solver_info"} {
		assert.Contains(t, back, key)
	}
	assert.InDelta(t, 30, data.YCoords[len(data.YCoords)-1], 1e-9)
	assert.Equal(t, 3000.0, data.GoldakParams.QW)
}

func TestFusionArea(t *testing.T) {
	peak := newField(3, 3, 20)
	assert.Equal(t, 0.0, fusionArea(peak, 1500, 0.001, 0.001))
	peak[0][1], peak[1][1] = 1500, 1600
	assert.InDelta(t, 2.0, fusionArea(peak, 1500, 0.001, 0.001), 1e-12)
}
