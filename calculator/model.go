package calculator

// 温度场，[z][y]，z = 0 为焊接表面
type Field [][]float64

func newField(nz, ny int, initial float64) Field {
	f := make(Field, nz)
	for k := range f {
		row := make([]float64, ny)
		for j := range row {
			row[j] = initial
		}
		f[k] = row
	}
	return f
}

func (f Field) Copy() Field {
	c := make(Field, len(f))
	for k, row := range f {
		c[k] = append([]float64(nil), row...)
	}
	return c
}

func (f Field) Max() float64 {
	max := f[0][0]
	for _, row := range f {
		for _, t := range row {
			if t > max {
				max = t
			}
		}
	}
	return max
}

// 逐点取大
func (f Field) MaxWith(other Field) {
	for k, row := range f {
		for j := range row {
			if other[k][j] > row[j] {
				row[j] = other[k][j]
			}
		}
	}
}

func (f Field) sameShape(nz, ny int) bool {
	if len(f) != nz {
		return false
	}
	for _, row := range f {
		if len(row) != ny {
			return false
		}
	}
	return true
}

// 监测点，坐标 m
type Probe struct {
	Name string
	Y    float64
	Z    float64
}

// 默认监测点，板厚中点随板厚变化
func defaultProbes(thickness float64) []Probe {
	return []Probe{
		{Name: "center", Y: 0, Z: 0},
		{Name: "surface_2mm", Y: 0.002, Z: 0},
		{Name: "surface_5mm", Y: 0.005, Z: 0},
		{Name: "surface_10mm", Y: 0.010, Z: 0},
		{Name: "mid_depth_center", Y: 0, Z: thickness / 2},
	}
}

type ThermalCycle struct {
	Times []float64 `json:"times"`
	Temps []float64 `json:"temps"`
}

func (c *ThermalCycle) append(t, temp float64) {
	c.Times = append(c.Times, t)
	c.Temps = append(c.Temps, temp)
}

type PoolBoundary struct {
	YMM []float64 `json:"y_mm"`
	ZMM []float64 `json:"z_mm"`
}

type SolverInfo struct {
	Ny          int     `json:"ny"`
	Nz          int     `json:"nz"`
	Dt          float64 `json:"dt"`
	StableDt    float64 `json:"stable_dt"`
	TotalTime   float64 `json:"total_time"`
	NSteps      int     `json:"n_steps"`
	NSnapshots  int     `json:"n_snapshots"`
	WallTimeSec float64 `json:"wall_time_s"`
}
