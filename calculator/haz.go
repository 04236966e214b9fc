package calculator

import (
	"math"

	"heatsim/steel_type"
)

// 热影响区划分
//
//	fusion     峰值 >= 固相线
//	cghaz      峰值 >= 1100 ℃，粗晶区
//	fghaz      峰值 >= Ac3，细晶区
//	ichaz      峰值 >= Ac1，临界区
//	base_metal 其余

const CGHAZTemp = 1100.0

type Zone string

const (
	ZoneFusion Zone = "fusion"
	ZoneCGHAZ  Zone = "cghaz"
	ZoneFGHAZ  Zone = "fghaz"
	ZoneICHAZ  Zone = "ichaz"
	ZoneBase   Zone = "base_metal"
)

type HAZThresholds struct {
	Solidus float64
	CGHAZ   float64
	Ac3     float64
	Ac1     float64
}

func NewHAZThresholds(solidus float64, tt steel_type.TransformationTemps) HAZThresholds {
	return HAZThresholds{
		Solidus: solidus,
		CGHAZ:   CGHAZTemp,
		Ac3:     tt.Ac3OrDefault(),
		Ac1:     tt.Ac1OrDefault(),
	}
}

func (th HAZThresholds) zoneOf(peak float64) Zone {
	switch {
	case peak >= th.Solidus:
		return ZoneFusion
	case peak >= th.CGHAZ:
		return ZoneCGHAZ
	case peak >= th.Ac3:
		return ZoneFGHAZ
	case peak >= th.Ac1:
		return ZoneICHAZ
	}
	return ZoneBase
}

type HAZBoundaries struct {
	Fusion float64 `json:"fusion"`
	CGHAZ  float64 `json:"cghaz"`
	FGHAZ  float64 `json:"fghaz"`
	ICHAZ  float64 `json:"ichaz"`
}

type HAZProfile struct {
	DistancesMM      []float64     `json:"distances_mm"`
	PeakTemperatures []float64     `json:"peak_temperatures"`
	Zones            []Zone        `json:"zones"`
	Boundaries       HAZBoundaries `json:"zone_boundaries"`

	FusionZoneWidth float64 `json:"fusion_zone_width"`
	CGHAZWidth      float64 `json:"cghaz_width"`
	FGHAZWidth      float64 `json:"fghaz_width"`
	ICHAZWidth      float64 `json:"ichaz_width"`
	TotalHAZWidth   float64 `json:"total_haz_width"`
}

// ExtractHAZFromField classifies the surface row (z = 0) of a peak map on the
// y >= 0 half. It does not modify its inputs.
func ExtractHAZFromField(peak Field, y []float64, th HAZThresholds) HAZProfile {
	if len(y) == 0 || len(peak) == 0 || len(peak[0]) < len(y) {
		return HAZProfile{}
	}
	mid := len(y) / 2
	n := len(y) - mid
	prof := HAZProfile{
		DistancesMM:      make([]float64, n),
		PeakTemperatures: make([]float64, n),
		Zones:            make([]Zone, n),
	}
	for i := 0; i < n; i++ {
		prof.DistancesMM[i] = y[mid+i] * 1000
		prof.PeakTemperatures[i] = finiteOrZero(peak[0][mid+i])
		prof.Zones[i] = th.zoneOf(prof.PeakTemperatures[i])
	}

	d, t := prof.DistancesMM, prof.PeakTemperatures
	prof.Boundaries = HAZBoundaries{
		Fusion: boundaryDistance(d, t, th.Solidus),
		CGHAZ:  boundaryDistance(d, t, th.CGHAZ),
		FGHAZ:  boundaryDistance(d, t, th.Ac3),
		ICHAZ:  boundaryDistance(d, t, th.Ac1),
	}
	b := prof.Boundaries
	prof.FusionZoneWidth = b.Fusion
	prof.CGHAZWidth = math.Max(0, b.CGHAZ-b.Fusion)
	prof.FGHAZWidth = math.Max(0, b.FGHAZ-b.CGHAZ)
	prof.ICHAZWidth = math.Max(0, b.ICHAZ-b.FGHAZ)
	prof.TotalHAZWidth = math.Max(0, b.ICHAZ-b.Fusion)
	return prof
}

// 第一个低于 level 的点与其前一点之间线性插值
// 中心即低于 level 时为 0，整段都高于 level 时取计算域边界
func boundaryDistance(d, t []float64, level float64) float64 {
	if len(d) == 0 {
		return 0
	}
	for i, v := range t {
		if v >= level {
			continue
		}
		if i == 0 {
			return 0
		}
		frac := (level - v) / (t[i-1] - v)
		return d[i] - frac*(d[i]-d[i-1])
	}
	return d[len(d)-1]
}
