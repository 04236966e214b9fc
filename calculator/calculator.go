package calculator

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNumericalDivergence = errors.New("numerical divergence")
	ErrCancelled           = errors.New("solve cancelled")
	ErrAlreadySolved       = errors.New("solver already used")
)

// DivergenceError reports the first step whose field was not physical.
type DivergenceError struct {
	Step int
	Time float64
	Z    int
	Y    int
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("numerical divergence at step %d (t=%.3fs, node z=%d y=%d)", e.Step, e.Time, e.Z, e.Y)
}

func (e *DivergenceError) Unwrap() error { return ErrNumericalDivergence }

// 进度回调，fraction ∈ [0, 1]
type ProgressFunc func(fraction float64)

type State int

const (
	Constructed State = iota
	Solving
	Solved
	Failed
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Solving:
		return "solving"
	case Solved:
		return "solved"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type Option func(s *GoldakSolver)

// 满足条件时提前结束，用于层间冷却
func WithStopCondition(f func(t float64, field Field) bool) Option {
	return func(s *GoldakSolver) {
		s.stopWhen = f
	}
}

type GoldakSolver struct {
	params GoldakParams
	cfg    SolverConfig

	ny, nz int
	y, z   []float64
	dy, dz float64

	source *Source
	q      Field // 当前时刻热源

	thermalField  Field // 温度场容器
	thermalField1 Field
	// 每计算一个 ▲t 交换一次
	alternating bool

	// 差分系数
	ry, rz, rs, rc float64
	stableDt       float64

	stopWhen func(t float64, field Field) bool

	state State
}

func NewGoldakSolver(params GoldakParams, cfg SolverConfig, opts ...Option) (*GoldakSolver, error) {
	cfg = cfg.normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &GoldakSolver{
		params: params,
		cfg:    cfg,
		ny:     cfg.Ny,
		nz:     cfg.Nz,
	}
	s.y, s.dy = symmetricCoords(params.PlateHalfWidth, cfg.Ny)
	s.z, s.dz = linspace(params.PlateThickness, cfg.Nz)
	s.source = NewSource(&s.params, s.y, s.z, cfg.TotalTime, cfg.TorchOffset)
	s.q = newField(s.nz, s.ny, 0)

	alpha := params.Alpha()
	s.ry = alpha * cfg.Dt / (s.dy * s.dy)
	s.rz = alpha * cfg.Dt / (s.dz * s.dz)
	s.rs = cfg.Dt / (params.Rho * params.Cp)
	s.rc = 2 * cfg.Dt / (params.Rho * params.Cp * s.dz)

	s.stableDt = stableTimeStep(&s.params, cfg.Ny, cfg.Nz)
	if cfg.Dt > s.stableDt {
		log.WithFields(log.Fields{
			"dt":       cfg.Dt,
			"stableDt": s.stableDt,
			"ny":       cfg.Ny,
			"nz":       cfg.Nz,
		}).Warn("时间步长超过显式格式稳定极限")
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *GoldakSolver) State() State { return s.state }
func (s *GoldakSolver) StableTimeStep() float64 { return s.stableDt }
func (s *GoldakSolver) Coords() ([]float64, []float64) {
	return s.y, s.z
}

// Solve runs the time loop once. initial may be nil for a uniform T0 field.
func (s *GoldakSolver) Solve(ctx context.Context, initial Field, progress ProgressFunc) (*GoldakResult, error) {
	if s.state != Constructed {
		return nil, ErrAlreadySolved
	}
	if initial != nil && !initial.sameShape(s.nz, s.ny) {
		return nil, fmt.Errorf("%w: initial field must be %dx%d", ErrValidation, s.nz, s.ny)
	}
	s.state = Solving

	if initial == nil {
		s.thermalField = newField(s.nz, s.ny, s.params.T0)
	} else {
		s.thermalField = initial.Copy()
	}
	s.thermalField1 = s.thermalField.Copy()
	s.alternating = true

	cfg := s.cfg
	n := cfg.Steps()
	rec := newRecorder(s, s.thermalField)
	start := time.Now()

	var (
		cur, next = s.thermalField, s.thermalField1
		steps     int
		err       error
	)
LOOP:
	for step := 1; step <= n; step++ {
		select {
		case <-ctx.Done():
			err = ErrCancelled
			break LOOP
		default:
		}
		t := float64(step) * cfg.Dt
		if s.params.Q > 0 {
			s.source.Into(s.q, t)
		}
		s.traverse(cur, next)

		if k, j, ok := checkField(next); !ok {
			err = &DivergenceError{Step: step, Time: t, Z: k, Y: j}
			break LOOP
		}
		capField(next, s.params.Solidus)
		rec.update(t-cfg.Dt, t, cur, next)

		if step%cfg.ProbeInterval == 0 {
			rec.recordProbes(t, next)
		}
		if step%cfg.OutputInterval == 0 {
			rec.snapshot(t, next)
		}
		if progress != nil && step%cfg.ProgressInterval == 0 {
			progress(float64(step) / float64(n))
		}

		// 仅在这里交换
		if s.alternating {
			cur, next = s.thermalField1, s.thermalField
		} else {
			cur, next = s.thermalField, s.thermalField1
		}
		s.alternating = !s.alternating
		steps = step

		if s.stopWhen != nil && s.stopWhen(t, cur) {
			break LOOP
		}
	}
	if err != nil {
		s.state = Failed
		log.WithFields(log.Fields{
			"step": steps + 1,
			"err":  err,
		}).Warn("求解终止")
		return nil, err
	}

	// cur 为最后一步的结果
	endTime := float64(steps) * cfg.Dt
	if steps%cfg.OutputInterval != 0 {
		rec.snapshot(endTime, cur)
	}
	if steps%cfg.ProbeInterval != 0 {
		rec.recordProbes(endTime, cur)
	}
	if progress != nil {
		progress(1)
	}
	res := s.buildResult(rec, cur, steps, time.Since(start))
	s.state = Solved

	log.WithFields(log.Fields{
		"ny":        s.ny,
		"nz":        s.nz,
		"steps":     steps,
		"peak":      res.PeakTemperatureMap.Max(),
		"fusionMM2": res.FusionZoneAreaMM2,
		"wallTime":  res.SolverInfo.WallTimeSec,
	}).Info("求解完成")
	return res, nil
}

func (s *GoldakSolver) buildResult(rec *recorder, final Field, steps int, wall time.Duration) *GoldakResult {
	peak := rec.peak
	res := &GoldakResult{
		YCoords:            s.y,
		ZCoords:            s.z,
		Times:              rec.times,
		TemperatureField:   rec.snapshots,
		PeakTemperatureMap: peak,
		T85Map:             rec.t85Map(),
		ProbeThermalCycles: rec.probeCycles(),
		WeldPoolBoundary:   poolBoundary(s.y, s.z, peak, s.params.Solidus),
		FusionZoneAreaMM2:  fusionArea(peak, s.params.Solidus, s.dy, s.dz),
		GoldakParams:       s.params.Echo(),
		SolverInfo: SolverInfo{
			Ny:          s.ny,
			Nz:          s.nz,
			Dt:          s.cfg.Dt,
			StableDt:    s.stableDt,
			TotalTime:   s.cfg.TotalTime,
			NSteps:      steps,
			NSnapshots:  len(rec.snapshots),
			WallTimeSec: wall.Seconds(),
		},
		final:   final.Copy(),
		solidus: s.params.Solidus,
	}
	return res
}

// 熔合区面积 mm²
func fusionArea(peak Field, solidus, dy, dz float64) float64 {
	count := 0
	for _, row := range peak {
		for _, t := range row {
			if t >= solidus {
				count++
			}
		}
	}
	return float64(count) * dy * dz * 1e6
}
