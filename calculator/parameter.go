package calculator

import (
	"errors"
	"fmt"
	"math"

	"heatsim/steel_type"
	"heatsim/weld_process"
)

const (
	StefanBoltzmann = 5.67e-8 // W/(m²·K⁴)
	AbsoluteZero    = -273.15
)

var ErrValidation = errors.New("invalid parameters")

// Goldak 双椭球热源 + 材料 + 边界条件参数，SI 单位
type GoldakParams struct {
	Q float64 // 有效功率 W
	V float64 // 焊接速度 m/s

	// 双椭球半轴 m
	Af float64
	Ar float64
	B  float64
	C  float64

	// 前后椭球能量分配，Ff + Fr = 2
	Ff float64
	Fr float64

	K   float64 // 导热系数
	Rho float64 // 密度
	Cp  float64 // 比热容

	T0   float64 // 初始/预热温度 ℃
	TAmb float64 // 环境温度 ℃
	Eta  float64 // 电弧效率，仅记录

	PlateThickness float64 // z 方向计算域
	PlateHalfWidth float64 // y 方向半宽

	Emissivity float64
	HConv      float64 // 对流换热系数 W/(m²·K)
	Solidus    float64

	TransformationTemps steel_type.TransformationTemps
}

func DefaultGoldakParams() GoldakParams {
	p := steel_type.DefaultParameter()
	return GoldakParams{
		Q:              3000,
		V:              0.005,
		Af:             0.004,
		Ar:             0.008,
		B:              0.004,
		C:              0.003,
		Ff:             0.6,
		Fr:             1.4,
		K:              p.Lambda,
		Rho:            p.Density,
		Cp:             p.C,
		T0:             20,
		TAmb:           20,
		Eta:            0.8,
		PlateThickness: 0.020,
		PlateHalfWidth: 0.030,
		Emissivity:     p.Emissivity,
		HConv:          15,
		Solidus:        p.SolidPhaseTemperature,
	}
}

// 由线能量和工艺生成参数，熔池尺寸为估算值
// heatInput kJ/mm, travelSpeed mm/s
func NewWeldParams(process weld_process.Process, heatInput, travelSpeed, preheat float64) (GoldakParams, error) {
	eta, err := weld_process.ArcEfficiency(process)
	if err != nil {
		return GoldakParams{}, err
	}
	pool, err := weld_process.EstimatePoolParams(heatInput, process)
	if err != nil {
		return GoldakParams{}, err
	}
	if travelSpeed <= 0 {
		return GoldakParams{}, fmt.Errorf("%w: travel speed must be positive, got %g", ErrValidation, travelSpeed)
	}
	p := DefaultGoldakParams()
	p.Eta = eta
	p.Q = weld_process.NetPower(eta, heatInput, travelSpeed)
	p.V = travelSpeed / 1000
	p.Af, p.Ar, p.B, p.C = pool.Af, pool.Ar, pool.B, pool.C
	p.T0 = preheat
	return p, nil
}

// 使用钢种物性
func (p *GoldakParams) ApplyMaterial(m *steel_type.Parameter) {
	p.K = m.Lambda
	p.Rho = m.Density
	p.Cp = m.C
	p.Emissivity = m.Emissivity
	p.Solidus = m.SolidPhaseTemperature
}

// 热扩散系数
func (p *GoldakParams) Alpha() float64 {
	return p.K / (p.Rho * p.Cp)
}

func (p *GoldakParams) Validate() error {
	switch {
	case p.Q < 0:
		return fmt.Errorf("%w: Q must be non-negative, got %g", ErrValidation, p.Q)
	case p.V <= 0:
		return fmt.Errorf("%w: v must be positive, got %g", ErrValidation, p.V)
	case p.Af <= 0 || p.Ar <= 0 || p.B <= 0 || p.C <= 0:
		return fmt.Errorf("%w: ellipsoid axes must be positive", ErrValidation)
	case p.Ar <= p.Af:
		return fmt.Errorf("%w: a_r (%g) must exceed a_f (%g)", ErrValidation, p.Ar, p.Af)
	case math.Abs(p.Ff+p.Fr-2) > 1e-9:
		return fmt.Errorf("%w: f_f + f_r must be 2, got %g", ErrValidation, p.Ff+p.Fr)
	case p.Ff <= 0 || p.Fr <= 0:
		// 任一象限为负时热源强度出现负值
		return fmt.Errorf("%w: f_f and f_r must be positive, got %g and %g", ErrValidation, p.Ff, p.Fr)
	case p.K <= 0 || p.Rho <= 0 || p.Cp <= 0:
		return fmt.Errorf("%w: material constants must be positive", ErrValidation)
	case p.PlateThickness <= 0 || p.PlateHalfWidth <= 0:
		return fmt.Errorf("%w: plate geometry must be positive", ErrValidation)
	case p.HConv < 0 || p.Emissivity < 0 || p.Emissivity > 1:
		return fmt.Errorf("%w: invalid surface heat transfer h=%g eps=%g", ErrValidation, p.HConv, p.Emissivity)
	}
	return nil
}

// 表面综合换热系数，对流 + 线性化辐射，温度 ℃
func (p *GoldakParams) HEff(ts float64) float64 {
	tsK := ts + 273.15
	taK := p.TAmb + 273.15
	return p.HConv + p.Emissivity*StefanBoltzmann*(tsK*tsK+taK*taK)*(tsK+taK)
}

func (p *GoldakParams) Ac1() float64 { return p.TransformationTemps.Ac1OrDefault() }
func (p *GoldakParams) Ac3() float64 { return p.TransformationTemps.Ac3OrDefault() }

// ParamsEcho is the engineering-unit copy of the inputs stored with a result.
type ParamsEcho struct {
	QW    float64 `json:"Q_W"`
	VMMs  float64 `json:"v_mm_s"`
	AfMM  float64 `json:"a_f_mm"`
	ArMM  float64 `json:"a_r_mm"`
	BMM   float64 `json:"b_mm"`
	CMM   float64 `json:"c_mm"`
	Ff    float64 `json:"f_f"`
	Fr    float64 `json:"f_r"`
	T0C   float64 `json:"T0_C"`
	K     float64 `json:"k"`
	Rho   float64 `json:"rho"`
	Cp    float64 `json:"Cp"`
	Eta   float64 `json:"eta"`
	Solid float64 `json:"solidus_C"`
}

func (p *GoldakParams) Echo() ParamsEcho {
	return ParamsEcho{
		QW:    p.Q,
		VMMs:  p.V * 1000,
		AfMM:  p.Af * 1000,
		ArMM:  p.Ar * 1000,
		BMM:   p.B * 1000,
		CMM:   p.C * 1000,
		Ff:    p.Ff,
		Fr:    p.Fr,
		T0C:   p.T0,
		K:     p.K,
		Rho:   p.Rho,
		Cp:    p.Cp,
		Eta:   p.Eta,
		Solid: p.Solidus,
	}
}
