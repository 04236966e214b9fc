package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heatsim/steel_type"
	"heatsim/weld_process"
)

func TestNewWeldParams(t *testing.T) {
	for _, process := range weld_process.Processes() {
		for _, hi := range []float64{0.5, 1.5, 3.0} {
			p, err := NewWeldParams(process, hi, 5, 100)
			require.NoError(t, err, process)
			assert.InDelta(t, 2.0, p.Ff+p.Fr, 1e-12, process)
			assert.Greater(t, p.Ar, p.Af, process)
			assert.InDelta(t, 0.005, p.V, 1e-12)
			assert.Equal(t, 100.0, p.T0)
			assert.NoError(t, p.Validate())
		}
	}

	_, err := NewWeldParams(weld_process.GTAW, 1, 0, 20)
	assert.ErrorIs(t, err, ErrValidation)

	var upe *weld_process.UnknownProcessError
	_, err = NewWeldParams("laser", 1, 5, 20)
	assert.ErrorAs(t, err, &upe)
}

func TestNetPowerFromHeatInput(t *testing.T) {
	p, err := NewWeldParams(weld_process.MIGMAG, 1.5, 5, 20)
	require.NoError(t, err)
	// Q = eta * HI[J/mm] * v[mm/s]
	assert.InDelta(t, 0.8*1500*5, p.Q, 1e-6)
}

func TestApplyMaterial(t *testing.T) {
	p := DefaultGoldakParams()
	m := steel_type.DefaultParameter()
	m.Lambda, m.SolidPhaseTemperature = 25, 1450
	p.ApplyMaterial(&m)
	assert.Equal(t, 25.0, p.K)
	assert.Equal(t, 1450.0, p.Solidus)
	assert.InDelta(t, 25/(m.Density*m.C), p.Alpha(), 1e-18)
}

func TestHEffIncreasesWithTemperature(t *testing.T) {
	p := DefaultGoldakParams()
	assert.InDelta(t, p.HConv+p.Emissivity*StefanBoltzmann*2*293.15*293.15*2*293.15, p.HEff(20), 1e-9)
	assert.Greater(t, p.HEff(1500), p.HEff(800))
	assert.Greater(t, p.HEff(800), p.HEff(20))
}
