package weld_process

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatePoolParams_MigMag(t *testing.T) {
	pool, err := EstimatePoolParams(1.5, MIGMAG)
	require.NoError(t, err)
	assert.Greater(t, pool.B, 0.002)
	assert.Less(t, pool.B, 0.010)
	assert.Greater(t, pool.Ar, pool.Af)
	assert.InDelta(t, pool.B*1000, pool.BMM, 1e-12)
}

func TestEstimatePoolParams_Monotonic(t *testing.T) {
	prev := 0.0
	for _, hi := range []float64{0.5, 0.8, 1.2, 2.0, 3.5} {
		pool, err := EstimatePoolParams(hi, SAW)
		require.NoError(t, err)
		assert.Greater(t, pool.B, prev)
		prev = pool.B
	}
}

func TestEstimatePoolParams_PenetrationOrder(t *testing.T) {
	depth := map[Process]float64{}
	for _, p := range Processes() {
		pool, err := EstimatePoolParams(1.2, p)
		require.NoError(t, err)
		assert.Greater(t, pool.Ar, pool.Af)
		depth[p] = pool.C
	}
	assert.Less(t, depth[GTAW], depth[SMAW])
	assert.Less(t, depth[SMAW], depth[MIGMAG])
	assert.Less(t, depth[MIGMAG], depth[SAW])
}

func TestEstimatePoolParams_UnknownProcess(t *testing.T) {
	_, err := EstimatePoolParams(1.0, Process("laser"))
	var upe *UnknownProcessError
	require.True(t, errors.As(err, &upe))
	assert.Equal(t, "laser", upe.Process)

	_, err = ParseProcess("Plasma")
	assert.True(t, errors.As(err, &upe))
}

func TestParseProcess(t *testing.T) {
	p, err := ParseProcess(" MIG_MAG ")
	require.NoError(t, err)
	assert.Equal(t, MIGMAG, p)

	eta, err := ArcEfficiency(p)
	require.NoError(t, err)
	assert.Equal(t, 0.80, eta)
	assert.InDelta(t, 0.8*1.5*5*1000, NetPower(eta, 1.5, 5), 1e-9)
}
