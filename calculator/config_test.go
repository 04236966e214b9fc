package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func TestPreset(t *testing.T) {
	for _, name := range []string{"coarse", "medium", "fine"} {
		cfg, err := Preset(name)
		require.NoError(t, err, name)
		assert.Equal(t, 1, cfg.Ny%2, name)
		assert.Equal(t, 120.0, cfg.TotalTime, name)

		// 预设在默认参数下满足稳定性条件
		s, err := NewGoldakSolver(DefaultGoldakParams(), cfg)
		require.NoError(t, err, name)
		assert.LessOrEqual(t, cfg.Dt, s.StableTimeStep(), name)
	}

	_, err := Preset("ultra")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestNormalize(t *testing.T) {
	cfg := SolverConfig{Ny: 10, Nz: 5, Dt: 0.1, TotalTime: 1, OutputInterval: 2}.normalize()
	assert.Equal(t, 11, cfg.Ny)
	assert.Equal(t, 1, cfg.ProbeInterval)
	assert.Equal(t, 50, cfg.ProgressInterval)
	assert.Equal(t, 0.15, cfg.TorchOffset)
	assert.Equal(t, 10, cfg.Steps())
}

func TestLoadCfg(t *testing.T) {
	saved := calCfg
	defer func() { calCfg = saved }()

	file, err := ini.Load([]byte("[calculator]\nDefaultPreset = coarse\nProgressInterval = 10\n"))
	require.NoError(t, err)
	LoadCfg(file)

	assert.Equal(t, "coarse", DefaultPreset())
	assert.Equal(t, 0.15, calCfg.TorchOffset)
	cfg := SolverConfig{Ny: 11, Nz: 5, Dt: 0.1, TotalTime: 1}.normalize()
	assert.Equal(t, 10, cfg.ProgressInterval)
}
