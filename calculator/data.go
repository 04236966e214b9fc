package calculator

import (
	"math"

	"heatsim/steel_type"
)

// GoldakResult is the output of one solve. Coordinates are in meters,
// T85Map holds NaN where t8/5 is undefined.
type GoldakResult struct {
	YCoords            []float64
	ZCoords            []float64
	Times              []float64
	TemperatureField   []Field
	PeakTemperatureMap Field
	T85Map             Field
	ProbeThermalCycles map[string]ThermalCycle
	WeldPoolBoundary   PoolBoundary
	FusionZoneAreaMM2  float64
	GoldakParams       ParamsEcho
	SolverInfo         SolverInfo

	final   Field
	solidus float64
}

// 最后时刻的温度场，多道焊时作为下一道的初始场
func (r *GoldakResult) FinalField() Field {
	return r.final.Copy()
}

// 表面 z = 0 的峰值温度分布，距离 mm
func (r *GoldakResult) SurfacePeakProfile() ([]float64, []float64) {
	d := make([]float64, len(r.YCoords))
	for i, y := range r.YCoords {
		d[i] = y * 1000
	}
	return d, append([]float64(nil), r.PeakTemperatureMap[0]...)
}

// 焊缝中心表面的 t8/5，未定义时为 nil
func (r *GoldakResult) CenterT85() *float64 {
	return finiteOrNil(r.T85Map[0][len(r.YCoords)/2])
}

func (r *GoldakResult) CenterPeak() float64 {
	return r.PeakTemperatureMap[0][len(r.YCoords)/2]
}

func (r *GoldakResult) HAZ(tt steel_type.TransformationTemps) HAZProfile {
	return ExtractHAZFromField(r.PeakTemperatureMap, r.YCoords, NewHAZThresholds(r.solidus, tt))
}

// 可直接 JSON 序列化，不含 NaN/Inf
type ResultData struct {
	YCoords            []float64               `json:"y_coords"`
	ZCoords            []float64               `json:"z_coords"`
	Times              []float64               `json:"times"`
	TemperatureField   [][][]float64           `json:"temperature_field"`
	PeakTemperatureMap [][]float64             `json:"peak_temperature_map"`
	T85Map             [][]*float64            `json:"t8_5_map"`
	ProbeThermalCycles map[string]ThermalCycle `json:"probe_thermal_cycles"`
	WeldPoolBoundary   PoolBoundary            `json:"weld_pool_boundary"`
	FusionZoneAreaMM2  float64                 `json:"fusion_zone_area_mm2"`
	GoldakParams       ParamsEcho              `json:"goldak_params"`
	SolverInfo         SolverInfo              `json:"solver_info"`
	SurfacePeakTemps   []float64               `json:"surface_peak_temps"`
	SurfaceDistancesMM []float64               `json:"surface_distances_mm"`
}

func (r *GoldakResult) ToData() ResultData {
	snapshots := make([][][]float64, len(r.TemperatureField))
	for i, f := range r.TemperatureField {
		snapshots[i] = sanitizeField(f)
	}
	cycles := make(map[string]ThermalCycle, len(r.ProbeThermalCycles))
	for name, c := range r.ProbeThermalCycles {
		cycles[name] = ThermalCycle{Times: sanitize(c.Times), Temps: sanitize(c.Temps)}
	}
	t85 := make([][]*float64, len(r.T85Map))
	for k, row := range r.T85Map {
		t85[k] = make([]*float64, len(row))
		for j, v := range row {
			t85[k][j] = finiteOrNil(v)
		}
	}
	distances, surface := r.SurfacePeakProfile()
	return ResultData{
		YCoords:            scale(r.YCoords, 1000),
		ZCoords:            scale(r.ZCoords, 1000),
		Times:              sanitize(r.Times),
		TemperatureField:   snapshots,
		PeakTemperatureMap: sanitizeField(r.PeakTemperatureMap),
		T85Map:             t85,
		ProbeThermalCycles: cycles,
		WeldPoolBoundary: PoolBoundary{
			YMM: sanitize(r.WeldPoolBoundary.YMM),
			ZMM: sanitize(r.WeldPoolBoundary.ZMM),
		},
		FusionZoneAreaMM2:  math.Max(0, finiteOrZero(r.FusionZoneAreaMM2)),
		GoldakParams:       r.GoldakParams,
		SolverInfo:         r.SolverInfo,
		SurfacePeakTemps:   sanitize(surface),
		SurfaceDistancesMM: distances,
	}
}

func scale(v []float64, f float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * f
	}
	return out
}

func sanitize(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = finiteOrZero(x)
	}
	return out
}

func sanitizeField(f Field) [][]float64 {
	out := make([][]float64, len(f))
	for k, row := range f {
		out[k] = sanitize(row)
	}
	return out
}
