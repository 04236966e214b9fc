package calculator

import "math"

// Rosenthal 厚板移动点热源解析解，用于与 Goldak 结果对比
//
//	T = T0 + Q/(2πk) · 1/R · exp(-v(R+ξ)/(2α))
//
// ξ 为随焊枪移动的坐标，焊枪后方为负
type Rosenthal struct {
	q, v, k, alpha, t0, solidus float64
}

func NewRosenthal(p *GoldakParams) *Rosenthal {
	return &Rosenthal{
		q:       p.Q,
		v:       p.V,
		k:       p.K,
		alpha:   p.Alpha(),
		t0:      p.T0,
		solidus: p.Solidus,
	}
}

func (r *Rosenthal) Temperature(xi, y, z float64) float64 {
	R := math.Sqrt(xi*xi + y*y + z*z)
	if R < 1e-6 {
		// 奇点
		return math.Min(r.t0+r.q/(2*math.Pi*r.k*1e-6), r.solidus)
	}
	exponent := math.Max(-r.v*(R+xi)/(2*r.alpha), -500)
	return r.t0 + r.q/(2*math.Pi*r.k)/R*math.Exp(exponent)
}

const rosenthalScanPoints = 500

// 沿 ξ 扫描取最大值
func (r *Rosenthal) PeakAt(y, z float64) float64 {
	if math.Abs(y) < 1e-6 && z < 1e-6 {
		return r.solidus
	}
	lo := -math.Max(0.05, 5*math.Abs(y))
	hi := math.Max(0.001, math.Abs(y))
	peak := math.Inf(-1)
	for i := 0; i < rosenthalScanPoints; i++ {
		xi := lo + (hi-lo)*float64(i)/float64(rosenthalScanPoints-1)
		if t := r.Temperature(xi, y, z); t > peak {
			peak = t
		}
	}
	return peak
}

// 峰值温度等于 target 的横向距离 m，0.5 mm 处都达不到时为 0，上限 0.2 m
func (r *Rosenthal) BoundaryDistance(target float64) float64 {
	const yClose, yCap = 0.0005, 0.2
	if r.PeakAt(yClose, 0) < target {
		return 0
	}
	yMax := 0.001
	for yMax < yCap && r.PeakAt(yMax, 0) >= target {
		yMax *= 2
	}
	if yMax >= yCap {
		return yCap
	}
	lo, hi := yClose, yMax
	for i := 0; i < 60 && hi-lo > 1e-7; i++ {
		m := (lo + hi) / 2
		if r.PeakAt(m, 0) >= target {
			lo = m
		} else {
			hi = m
		}
	}
	return (lo + hi) / 2
}

// 厚板 t8/5，与位置无关
func (r *Rosenthal) T85() *float64 {
	if r.t0 >= 500 || r.q <= 0 {
		return nil
	}
	t := (r.q / r.v) / (2 * math.Pi * r.k) * (1/(500-r.t0) - 1/(800-r.t0))
	return &t
}

// Comparison puts the analytical and numerical estimates of one pass side by side.
type Comparison struct {
	RosenthalT85        *float64 `json:"rosenthal_t8_5"`
	GoldakT85           *float64 `json:"goldak_t8_5"`
	RosenthalFusionMM   float64  `json:"rosenthal_fusion_width_mm"`
	GoldakFusionMM      float64  `json:"goldak_fusion_width_mm"`
	RosenthalHAZWidthMM float64  `json:"rosenthal_haz_width_mm"`
	GoldakHAZWidthMM    float64  `json:"goldak_haz_width_mm"`

	// 表面 y >= 0 的峰值温度分布
	DistancesMM        []float64 `json:"distances_mm"`
	RosenthalPeakTemps []float64 `json:"rosenthal_peak_temps"`
	GoldakPeakTemps    []float64 `json:"goldak_peak_temps"`
}

func Compare(p *GoldakParams, res *GoldakResult) Comparison {
	r := NewRosenthal(p)
	fusion := r.BoundaryDistance(p.Solidus) * 1000
	ac1 := r.BoundaryDistance(p.Ac1()) * 1000
	haz := res.HAZ(p.TransformationTemps)
	analytic := make([]float64, len(haz.DistancesMM))
	for i, d := range haz.DistancesMM {
		analytic[i] = math.Min(r.PeakAt(d/1000, 0), p.Solidus)
	}
	return Comparison{
		RosenthalT85:        r.T85(),
		GoldakT85:           res.CenterT85(),
		RosenthalFusionMM:   fusion,
		GoldakFusionMM:      haz.FusionZoneWidth,
		RosenthalHAZWidthMM: math.Max(0, ac1-fusion),
		GoldakHAZWidthMM:    haz.TotalHAZWidth,
		DistancesMM:         haz.DistancesMM,
		RosenthalPeakTemps:  analytic,
		GoldakPeakTemps:     haz.PeakTemperatures,
	}
}
