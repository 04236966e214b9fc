package calculator

import (
	"errors"
	"fmt"

	"gopkg.in/ini.v1"
)

var ErrUnknownPreset = errors.New("unknown grid preset")

var calCfg = Config{
	DefaultPreset:    "medium",
	TorchOffset:      0.15,
	ProgressInterval: 50,
}

type Config struct {
	DefaultPreset    string
	TorchOffset      float64 // 焊枪经过监测截面的时刻 = TorchOffset * TotalTime
	ProgressInterval int
}

// 读取 [calculator] 段
func LoadCfg(file *ini.File) {
	section := file.Section("calculator")
	calCfg = Config{
		DefaultPreset:    section.Key("DefaultPreset").MustString("medium"),
		TorchOffset:      section.Key("TorchOffset").MustFloat64(0.15),
		ProgressInterval: section.Key("ProgressInterval").MustInt(50),
	}
}

func DefaultPreset() string {
	return calCfg.DefaultPreset
}

// 网格与时间离散
type SolverConfig struct {
	Ny             int     `json:"ny"`
	Nz             int     `json:"nz"`
	Dt             float64 `json:"dt"`
	TotalTime      float64 `json:"total_time"`
	OutputInterval int     `json:"output_interval"` // 每隔多少步保存一次全场
	// 以下为 0 时取默认
	ProbeInterval    int     `json:"probe_interval,omitempty"`
	ProgressInterval int     `json:"progress_interval,omitempty"`
	TorchOffset      float64 `json:"torch_offset,omitempty"`
}

func NewSolverConfig(ny, nz int, dt, totalTime float64, outputInterval int) SolverConfig {
	return SolverConfig{
		Ny:             ny,
		Nz:             nz,
		Dt:             dt,
		TotalTime:      totalTime,
		OutputInterval: outputInterval,
	}.normalize()
}

// 预设网格，dt 均在默认板厚和材料的显式稳定极限以内
func Preset(name string) (SolverConfig, error) {
	cfg := SolverConfig{TotalTime: 120}
	switch name {
	case "coarse":
		cfg.Ny, cfg.Nz, cfg.Dt, cfg.OutputInterval = 21, 11, 0.1, 20
	case "medium":
		cfg.Ny, cfg.Nz, cfg.Dt, cfg.OutputInterval = 41, 31, 0.01, 200
	case "fine":
		cfg.Ny, cfg.Nz, cfg.Dt, cfg.OutputInterval = 61, 41, 0.005, 400
	default:
		return SolverConfig{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return cfg.normalize(), nil
}

// ny 取奇数，保证焊缝中心线上有节点
func (cfg SolverConfig) normalize() SolverConfig {
	if cfg.Ny%2 == 0 {
		cfg.Ny++
	}
	if cfg.OutputInterval <= 0 {
		cfg.OutputInterval = 1
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = cfg.OutputInterval / 4
		if cfg.ProbeInterval < 1 {
			cfg.ProbeInterval = 1
		}
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = calCfg.ProgressInterval
	}
	if cfg.TorchOffset <= 0 {
		cfg.TorchOffset = calCfg.TorchOffset
	}
	return cfg
}

func (cfg SolverConfig) Validate() error {
	switch {
	case cfg.Ny < 3 || cfg.Nz < 3:
		return fmt.Errorf("%w: grid needs at least 3x3 nodes, got %dx%d", ErrValidation, cfg.Ny, cfg.Nz)
	case cfg.Dt <= 0:
		return fmt.Errorf("%w: dt must be positive, got %g", ErrValidation, cfg.Dt)
	case cfg.TotalTime <= 0:
		return fmt.Errorf("%w: total time must be positive, got %g", ErrValidation, cfg.TotalTime)
	}
	return nil
}

// 时间步数
func (cfg SolverConfig) Steps() int {
	n := int(cfg.TotalTime/cfg.Dt + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}
