package queue

import (
	"fmt"

	"heatsim/calculator"
	"heatsim/model"
	"heatsim/steel_type"
	"heatsim/weld_process"
)

// 材料物性和相变温度；给出成分时由 CCT 预测补全未知的相变温度
func material(spec *model.MaterialSpec) (*steel_type.Parameter, steel_type.TransformationTemps, error) {
	parameter := steel_type.DefaultParameter()
	if spec == nil {
		return &parameter, steel_type.TransformationTemps{}, nil
	}

	comp := spec.Composition
	if spec.Steel != "" {
		steel, err := steel_type.NewSteel(spec.Steel)
		if err != nil {
			return nil, steel_type.TransformationTemps{}, fmt.Errorf("%w: %v", calculator.ErrValidation, err)
		}
		parameter = *steel.Parameter
		if len(comp) == 0 {
			comp = steel.Composition
		}
	}
	if spec.Conductivity != nil {
		parameter.Lambda = *spec.Conductivity
	}
	if spec.Density != nil {
		parameter.Density = *spec.Density
	}
	if spec.SpecificHeat != nil {
		parameter.C = *spec.SpecificHeat
	}
	if spec.Solidus != nil {
		parameter.SolidPhaseTemperature = *spec.Solidus
	}
	if err := parameter.Validate(); err != nil {
		return nil, steel_type.TransformationTemps{}, fmt.Errorf("%w: %v", calculator.ErrValidation, err)
	}

	tt := spec.TransformationTemps
	if comp.Get("C") > 0 {
		tt = steel_type.NewCCTPredictor(comp, tt).TransformationTemps()
	}
	return &parameter, tt, nil
}

func gridConfig(preset string, grid *model.GridSpec) (calculator.SolverConfig, error) {
	if grid != nil {
		return calculator.NewSolverConfig(grid.Ny, grid.Nz, grid.Dt, grid.TotalTime, grid.OutputInterval), nil
	}
	if preset == "" {
		preset = calculator.DefaultPreset()
	}
	return calculator.Preset(preset)
}

// SimulationInputs resolves a simulation config into solver inputs.
func SimulationInputs(c *model.SimulationConfig) (calculator.GoldakParams, calculator.SolverConfig, error) {
	var (
		params calculator.GoldakParams
		cfg    calculator.SolverConfig
	)
	process, err := weld_process.ParseProcess(c.Process)
	if err != nil {
		return params, cfg, err
	}
	params, err = calculator.NewWeldParams(process, c.HeatInput, c.TravelSpeed, c.Preheat)
	if err != nil {
		return params, cfg, err
	}
	parameter, tt, err := material(c.Material)
	if err != nil {
		return params, cfg, err
	}
	params.ApplyMaterial(parameter)
	params.TransformationTemps = tt

	if pool := c.Pool; pool != nil {
		mm := func(dst *float64, v *float64) {
			if v != nil {
				*dst = *v / 1000
			}
		}
		mm(&params.Af, pool.AfMM)
		mm(&params.Ar, pool.ArMM)
		mm(&params.B, pool.BMM)
		mm(&params.C, pool.CMM)
		if pool.Ff != nil {
			params.Ff, params.Fr = *pool.Ff, 2-*pool.Ff
		}
	}
	if err := params.Validate(); err != nil {
		return params, cfg, err
	}
	cfg, err = gridConfig(c.GridResolution, c.Grid)
	return params, cfg, err
}

func multiPassInputs(job *model.Job) (calculator.MultiPassSpec, calculator.SolverConfig, error) {
	var (
		spec calculator.MultiPassSpec
		cfg  calculator.SolverConfig
	)
	project := job.Config.MultiPass
	process, err := weld_process.ParseProcess(project.Process)
	if err != nil {
		return spec, cfg, err
	}
	parameter, tt, err := material(project.Material)
	if err != nil {
		return spec, cfg, err
	}
	spec = calculator.MultiPassSpec{
		Process:              process,
		Preheat:              project.Preheat,
		InterpassTemperature: project.InterpassTemperature,
		Material:             parameter,
		TransformationTemps:  tt,
		CompareMethods:       project.CompareMethods,
	}
	for i := range job.Strings {
		s := &job.Strings[i]
		mode, err := calculator.ParseInitialTempMode(s.InitialTempMode)
		if err != nil {
			return spec, cfg, fmt.Errorf("string %d: %w", s.StringNumber, err)
		}
		ps := calculator.PassSpec{
			StringNumber:       s.StringNumber,
			Layer:              s.Layer,
			PositionInLayer:    s.PositionInLayer,
			HeatInput:          s.EffectiveHeatInput(project),
			TravelSpeed:        s.EffectiveTravelSpeed(project),
			InterpassTime:      s.EffectiveInterpassTime(project),
			InitialTempMode:    mode,
			InitialTemperature: s.InitialTemperature,
			SolidificationTemp: s.SolidificationTemp,
		}
		if s.SimulationDuration != nil {
			ps.SimulationDuration = *s.SimulationDuration
		}
		spec.Passes = append(spec.Passes, ps)
	}
	cfg, err = gridConfig(project.GridResolution, nil)
	return spec, cfg, err
}

// Validate checks the inputs of a complete job without running it.
// Incomplete jobs pass: they stay in draft until configured.
func Validate(job *model.Job) error {
	if job.Complete() != nil {
		return nil
	}
	switch job.Kind {
	case model.KindSimulation:
		params, cfg, err := SimulationInputs(job.Config.Simulation)
		if err != nil {
			return err
		}
		_, err = calculator.NewGoldakSolver(params, cfg)
		return err
	case model.KindWeld:
		spec, cfg, err := multiPassInputs(job)
		if err != nil {
			return err
		}
		_, err = calculator.NewMultiPass(spec, cfg)
		return err
	}
	return nil
}
