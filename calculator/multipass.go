package calculator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"

	"heatsim/steel_type"
	"heatsim/weld_process"
)

var ErrNoStrings = errors.New("no weld strings configured")

const (
	DefaultInterpassTemp = 250.0 // ℃
	DefaultInterpassTime = 600.0 // s
	DefaultSolidifyTemp  = 1500.0
	CoolingAmbient       = 20.0
	maxCoolingDt         = 0.5
)

// 每道焊的初始温度
type InitialTempMode string

const (
	TempModeCalculated     InitialTempMode = "calculated"     // 继承上一道冷却后的温度场
	TempModeManual         InitialTempMode = "manual"         // 均匀的 InitialTemperature，未给定时取预热温度
	TempModeSolidification InitialTempMode = "solidification" // 同 calculated，汇总中记录凝固温度
)

func ParseInitialTempMode(s string) (InitialTempMode, error) {
	switch m := InitialTempMode(s); m {
	case TempModeCalculated, TempModeManual, TempModeSolidification:
		return m, nil
	case "":
		return TempModeSolidification, nil
	}
	return "", fmt.Errorf("%w: unknown initial temperature mode %q", ErrValidation, s)
}

type PassSpec struct {
	StringNumber       int
	Layer              int
	PositionInLayer    int
	HeatInput          float64 // kJ/mm
	TravelSpeed        float64 // mm/s
	InterpassTime      float64 // 本道之后的层间时间 s，0 取默认
	InitialTempMode    InitialTempMode
	InitialTemperature *float64
	SolidificationTemp *float64
	SimulationDuration float64 // 0 取网格预设的 TotalTime
}

type MultiPassSpec struct {
	Process              weld_process.Process
	Preheat              float64
	InterpassTemperature float64 // 层间温度目标，0 取默认
	Material             *steel_type.Parameter
	TransformationTemps  steel_type.TransformationTemps
	CompareMethods       bool
	Passes               []PassSpec
}

type PassSummary struct {
	PassNumber           int      `json:"pass_number"`
	StringNumber         int      `json:"string_number"`
	Layer                int      `json:"layer"`
	PositionInLayer      int      `json:"position_in_layer"`
	HeatInput            float64  `json:"heat_input_kj_mm"`
	TravelSpeed          float64  `json:"travel_speed_mm_s"`
	InitialTempMode      string   `json:"initial_temp_mode"`
	SolidificationTemp   *float64 `json:"solidification_temp,omitempty"`
	PeakTemperature      float64  `json:"peak_temperature"`
	T85                  *float64 `json:"t8_5"`
	InterpassTempBefore  float64  `json:"interpass_temp_before"`
	InterpassCoolingTime float64  `json:"interpass_cooling_time"`
	FusionAreaMM2        float64  `json:"fusion_area_mm2"`
	SolverWallTime       float64  `json:"solver_wall_time"`
}

type MultiPassResult struct {
	PassResults            []*GoldakResult
	CumulativePeakTempMap  Field
	CumulativeThermalCycle map[string]ThermalCycle
	FinalTemperatureField  Field
	PassSummary            []PassSummary
	Comparison             []Comparison // 未开启对比时为 nil
	YCoords                []float64
	ZCoords                []float64

	solidus float64
}

func (r *MultiPassResult) HAZ(tt steel_type.TransformationTemps) HAZProfile {
	return ExtractHAZFromField(r.CumulativePeakTempMap, r.YCoords, NewHAZThresholds(r.solidus, tt))
}

type MultiPassData struct {
	PassResults             []ResultData            `json:"pass_results"`
	CumulativePeakTempMap   [][]float64             `json:"cumulative_peak_temp_map"`
	CumulativeThermalCycles map[string]ThermalCycle `json:"cumulative_thermal_cycles"`
	FinalTemperatureField   [][]float64             `json:"final_temperature_field"`
	PassSummary             []PassSummary           `json:"pass_summary"`
	Comparison              []Comparison            `json:"comparison_with_rosenthal"`
	YCoordsMM               []float64               `json:"y_coords_mm"`
	ZCoordsMM               []float64               `json:"z_coords_mm"`
	NPasses                 int                     `json:"n_passes"`
}

func (r *MultiPassResult) ToData() MultiPassData {
	passes := make([]ResultData, len(r.PassResults))
	for i, p := range r.PassResults {
		passes[i] = p.ToData()
	}
	cycles := make(map[string]ThermalCycle, len(r.CumulativeThermalCycle))
	for name, c := range r.CumulativeThermalCycle {
		cycles[name] = ThermalCycle{Times: sanitize(c.Times), Temps: sanitize(c.Temps)}
	}
	return MultiPassData{
		PassResults:             passes,
		CumulativePeakTempMap:   sanitizeField(r.CumulativePeakTempMap),
		CumulativeThermalCycles: cycles,
		FinalTemperatureField:   sanitizeField(r.FinalTemperatureField),
		PassSummary:             r.PassSummary,
		Comparison:              r.Comparison,
		YCoordsMM:               scale(r.YCoords, 1000),
		ZCoordsMM:               scale(r.ZCoords, 1000),
		NPasses:                 len(r.PassResults),
	}
}

type MultiPass struct {
	spec MultiPassSpec
	cfg  SolverConfig
}

func NewMultiPass(spec MultiPassSpec, cfg SolverConfig) (*MultiPass, error) {
	if len(spec.Passes) == 0 {
		return nil, ErrNoStrings
	}
	if _, err := weld_process.ArcEfficiency(spec.Process); err != nil {
		return nil, err
	}
	passes := append([]PassSpec(nil), spec.Passes...)
	sort.SliceStable(passes, func(i, j int) bool {
		return passes[i].StringNumber < passes[j].StringNumber
	})
	spec.Passes = passes
	return &MultiPass{spec: spec, cfg: cfg.normalize()}, nil
}

func (m *MultiPass) passParams(ps PassSpec) (GoldakParams, error) {
	p, err := NewWeldParams(m.spec.Process, ps.HeatInput, ps.TravelSpeed, m.spec.Preheat)
	if err != nil {
		return p, fmt.Errorf("string %d: %w", ps.StringNumber, err)
	}
	if m.spec.Material != nil {
		p.ApplyMaterial(m.spec.Material)
	}
	p.TransformationTemps = m.spec.TransformationTemps
	return p, nil
}

func (m *MultiPass) passConfig(ps PassSpec) SolverConfig {
	cfg := m.cfg
	if ps.SimulationDuration > 0 {
		cfg.TotalTime = ps.SimulationDuration
	}
	return cfg
}

// Run solves every pass in string order. progress receives the overall fraction.
func (m *MultiPass) Run(ctx context.Context, progress ProgressFunc) (*MultiPassResult, error) {
	n := len(m.spec.Passes)
	res := &MultiPassResult{
		CumulativeThermalCycle: make(map[string]ThermalCycle),
	}
	if m.spec.CompareMethods {
		res.Comparison = make([]Comparison, 0, n)
	}
	target := m.spec.InterpassTemperature
	if target <= 0 {
		target = DefaultInterpassTemp
	}

	var (
		current        Field
		cumulativeTime float64
	)
	for idx, ps := range m.spec.Passes {
		params, err := m.passParams(ps)
		if err != nil {
			return nil, err
		}
		solver, err := NewGoldakSolver(params, m.passConfig(ps))
		if err != nil {
			return nil, fmt.Errorf("string %d: %w", ps.StringNumber, err)
		}

		interpassBefore := m.spec.Preheat
		if ps.InitialTempMode == TempModeManual {
			t0 := m.spec.Preheat
			if ps.InitialTemperature != nil {
				t0 = *ps.InitialTemperature
			}
			current = newField(solver.nz, solver.ny, t0)
		}
		if current != nil {
			interpassBefore = current.Max()
		}

		log.WithFields(log.Fields{
			"pass":   idx + 1,
			"total":  n,
			"string": ps.StringNumber,
			"mode":   ps.InitialTempMode,
		}).Info("开始计算焊道")

		done := float64(idx)
		result, err := solver.Solve(ctx, current, func(f float64) {
			if progress != nil {
				progress((done + f) / float64(n))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("string %d: %w", ps.StringNumber, err)
		}
		res.PassResults = append(res.PassResults, result)
		if res.CumulativePeakTempMap == nil {
			res.CumulativePeakTempMap = result.PeakTemperatureMap.Copy()
			res.YCoords, res.ZCoords = result.YCoords, result.ZCoords
			res.solidus = params.Solidus
		} else {
			res.CumulativePeakTempMap.MaxWith(result.PeakTemperatureMap)
		}
		for name, c := range result.ProbeThermalCycles {
			acc := res.CumulativeThermalCycle[name]
			for i, t := range c.Times {
				acc.append(t+cumulativeTime, c.Temps[i])
			}
			res.CumulativeThermalCycle[name] = acc
		}
		cumulativeTime += solver.cfg.TotalTime
		current = result.FinalField()

		coolingTime := 0.0
		if idx < n-1 {
			interpassTime := ps.InterpassTime
			if interpassTime <= 0 {
				interpassTime = DefaultInterpassTime
			}
			current, coolingTime, err = interpassCooling(ctx, params, current, target, interpassTime)
			if err != nil {
				return nil, fmt.Errorf("interpass cooling after string %d: %w", ps.StringNumber, err)
			}
			cumulativeTime += coolingTime
			rec := newRecorder(solver, current)
			for name, c := range rec.probeCycles() {
				acc := res.CumulativeThermalCycle[name]
				acc.append(cumulativeTime, c.Temps[0])
				res.CumulativeThermalCycle[name] = acc
			}
		}

		var solidify *float64
		if ps.InitialTempMode == TempModeSolidification {
			v := DefaultSolidifyTemp
			if ps.SolidificationTemp != nil {
				v = *ps.SolidificationTemp
			}
			solidify = &v
		}
		res.PassSummary = append(res.PassSummary, PassSummary{
			PassNumber:           idx + 1,
			StringNumber:         ps.StringNumber,
			Layer:                ps.Layer,
			PositionInLayer:      ps.PositionInLayer,
			HeatInput:            ps.HeatInput,
			TravelSpeed:          ps.TravelSpeed,
			InitialTempMode:      string(ps.InitialTempMode),
			SolidificationTemp:   solidify,
			PeakTemperature:      result.CenterPeak(),
			T85:                  result.CenterT85(),
			InterpassTempBefore:  math.Round(interpassBefore*10) / 10,
			InterpassCoolingTime: math.Round(coolingTime*10) / 10,
			FusionAreaMM2:        result.FusionZoneAreaMM2,
			SolverWallTime:       result.SolverInfo.WallTimeSec,
		})
		if m.spec.CompareMethods {
			res.Comparison = append(res.Comparison, Compare(&params, result))
		}
	}
	res.FinalTemperatureField = current
	if progress != nil {
		progress(1)
	}
	return res, nil
}

// 层间冷却：无热源求解，最高温度降到 target 以下或达到 maxTime 时停止
// 返回冷却后的温度场和冷却时间
func interpassCooling(ctx context.Context, params GoldakParams, field Field, target, maxTime float64) (Field, float64, error) {
	if field.Max() <= target {
		return field, 0, nil
	}
	nz, ny := len(field), len(field[0])
	params.Q = 0
	params.TAmb = CoolingAmbient

	dt := math.Min(maxCoolingDt, 0.9*stableTimeStep(&params, ny, nz))
	steps := int(math.Ceil(maxTime / dt))
	cfg := SolverConfig{
		Ny:             ny,
		Nz:             nz,
		Dt:             dt,
		TotalTime:      float64(steps) * dt,
		OutputInterval: steps,
	}
	solver, err := NewGoldakSolver(params, cfg, WithStopCondition(func(t float64, f Field) bool {
		return f.Max() <= target
	}))
	if err != nil {
		return nil, 0, err
	}
	res, err := solver.Solve(ctx, field, nil)
	if err != nil {
		return nil, 0, err
	}
	return res.FinalField(), float64(res.SolverInfo.NSteps) * dt, nil
}
