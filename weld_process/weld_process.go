package weld_process

import (
	"fmt"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"
)

// 焊接工艺: 电弧效率 + 熔池尺寸估算
//
// 参数解释
// 1. HI 线能量，kJ/mm
// 2. 焊接速度 mm/s
// 3. 熔池半轴 a_f / a_r / b / c，m

type Process string

const (
	GTAW   Process = "gtaw"
	MIGMAG Process = "mig_mag"
	SAW    Process = "saw"
	SMAW   Process = "smaw"
)

// UnknownProcessError is returned for a process tag outside the supported set.
type UnknownProcessError struct {
	Process string
}

func (e *UnknownProcessError) Error() string {
	return fmt.Sprintf("unknown welding process %q", e.Process)
}

type processCfg struct {
	efficiency  float64 // 电弧效率
	penetration float64 // 熔深系数 c = b * penetration
}

var processes = map[Process]processCfg{
	GTAW:   {efficiency: 0.65, penetration: 0.6},
	MIGMAG: {efficiency: 0.80, penetration: 0.8},
	SAW:    {efficiency: 0.90, penetration: 1.2},
	SMAW:   {efficiency: 0.75, penetration: 0.7},
}

func ParseProcess(s string) (Process, error) {
	p := Process(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := processes[p]; !ok {
		return "", &UnknownProcessError{Process: s}
	}
	return p, nil
}

func Processes() []Process {
	return []Process{GTAW, SMAW, MIGMAG, SAW}
}

func ArcEfficiency(p Process) (float64, error) {
	cfg, ok := processes[p]
	if !ok {
		return 0, &UnknownProcessError{Process: string(p)}
	}
	return cfg.efficiency, nil
}

// 有效热输入功率 W
// heatInput kJ/mm, travelSpeed mm/s
func NetPower(eta, heatInput, travelSpeed float64) float64 {
	return eta * heatInput * travelSpeed * 1000
}

type PoolParams struct {
	Af float64 `json:"a_f"`
	Ar float64 `json:"a_r"`
	B  float64 `json:"b"`
	C  float64 `json:"c"`

	AfMM float64 `json:"a_f_mm"`
	ArMM float64 `json:"a_r_mm"`
	BMM  float64 `json:"b_mm"`
	CMM  float64 `json:"c_mm"`
}

// 根据线能量估算熔池尺寸
// 熔宽随线能量单调增加，熔深 saw > mig_mag > smaw > gtaw
func EstimatePoolParams(heatInput float64, p Process) (PoolParams, error) {
	cfg, ok := processes[p]
	if !ok {
		return PoolParams{}, &UnknownProcessError{Process: string(p)}
	}
	hi := math.Max(0.5, heatInput)
	bMM := 2.0 + 2.5*math.Sqrt(hi)
	cMM := bMM * cfg.penetration
	afMM := 0.8 * bMM
	arMM := 1.6 * bMM

	pool := PoolParams{
		Af:   afMM / 1000,
		Ar:   arMM / 1000,
		B:    bMM / 1000,
		C:    cMM / 1000,
		AfMM: afMM,
		ArMM: arMM,
		BMM:  bMM,
		CMM:  cMM,
	}
	log.WithFields(log.Fields{
		"process":   p,
		"heatInput": heatInput,
		"b_mm":      bMM,
		"c_mm":      cMM,
	}).Debug("估算熔池尺寸")
	return pool, nil
}
