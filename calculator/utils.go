package calculator

import "math"

// 关于 0 对称的横向坐标，n 为奇数
func symmetricCoords(halfWidth float64, n int) ([]float64, float64) {
	mid := n / 2
	step := halfWidth / float64(mid)
	y := make([]float64, n)
	for i := 0; i <= mid; i++ {
		y[mid+i] = float64(i) * step
		y[mid-i] = -float64(i) * step
	}
	return y, step
}

// [0, length] 等分
func linspace(length float64, n int) ([]float64, float64) {
	step := length / float64(n-1)
	z := make([]float64, n)
	for i := range z {
		z[i] = float64(i) * step
	}
	z[n-1] = length
	return z, step
}

func nearestIndex(coords []float64, v float64) int {
	best := 0
	for i, c := range coords {
		if math.Abs(c-v) < math.Abs(coords[best]-v) {
			best = i
		}
	}
	return best
}

// 显式格式稳定性极限
// dt <= 1 / (2α(1/dy² + 1/dz²) + 2h/(ρ Cp dz))
func calculateTimeStep(p *GoldakParams, dy, dz, hMax float64) float64 {
	alpha := p.Alpha()
	denominator := 2*alpha*(1/(dy*dy)+1/(dz*dz)) + 2*hMax/(p.Rho*p.Cp*dz)
	return 1 / denominator
}

// ny x nz 网格上的稳定极限，表面换热系数在固相线处最大
func stableTimeStep(p *GoldakParams, ny, nz int) float64 {
	_, dy := symmetricCoords(p.PlateHalfWidth, ny)
	_, dz := linspace(p.PlateThickness, nz)
	return calculateTimeStep(p, dy, dz, p.HEff(p.Solidus))
}

// 上一步 prev、本步 cur 之间线性插值穿越 level 的时刻
func crossingTime(t0, t1, prev, cur, level float64) float64 {
	if prev == cur {
		return t1
	}
	return t0 + (t1-t0)*(prev-level)/(prev-cur)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// JSON 不支持 NaN/Inf
func finiteOrNil(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return &v
}

func finiteOrZero(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}
