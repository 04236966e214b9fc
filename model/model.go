package model

import (
	"errors"
	"fmt"
	"time"

	"heatsim/steel_type"
)

// 前后端通信消息结构
type Msg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Kind string

const (
	KindSimulation Kind = "simulation"
	KindWeld       Kind = "weld"
)

type Status string

const (
	StatusDraft      Status = "draft"
	StatusReady      Status = "ready"      // 单道模拟配置完成
	StatusConfigured Status = "configured" // 多道焊项目配置完成
	StatusQueued     Status = "queued"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type ResultType string

const (
	ResultGoldakField     ResultType = "goldak_field"
	ResultGoldakMultipass ResultType = "goldak_multipass"
	ResultHAZProfile      ResultType = "haz_profile"
)

// ResultTypes lists every result type in storage order.
func ResultTypes() []ResultType {
	return []ResultType{ResultGoldakField, ResultGoldakMultipass, ResultHAZProfile}
}

func ParseResultType(s string) (ResultType, error) {
	switch t := ResultType(s); t {
	case ResultGoldakField, ResultGoldakMultipass, ResultHAZProfile:
		return t, nil
	}
	return "", fmt.Errorf("unknown result type %q", s)
}

var ErrIncomplete = errors.New("job configuration incomplete")

// Job is one row of the jobs table. Simulations and weld projects share the
// table so that ids are globally ordered.
type Job struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Kind            Kind      `gorm:"size:16;index;not null" json:"kind"`
	Name            string    `gorm:"size:255" json:"name"`
	Status          Status    `gorm:"size:16;index;not null;default:'draft'" json:"status"`
	ProgressPercent float64   `json:"progress_percent"`
	ProgressMessage string    `gorm:"size:255" json:"progress_message"`
	ErrorMessage    string    `gorm:"type:text" json:"error_message,omitempty"`
	Config          JobConfig `gorm:"type:text;serializer:json" json:"config"`
	TotalStrings    int       `json:"total_strings"`
	CurrentString   int       `json:"current_string"`
	Version         int       `gorm:"not null;default:0" json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Strings []WeldString `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"strings,omitempty"`
}

// 取消或重新排队时恢复到的状态
func (j *Job) PreQueueStatus() Status {
	if j.Kind == KindWeld {
		return StatusConfigured
	}
	return StatusReady
}

// 可被 run 的状态
func (j *Job) Runnable() bool {
	switch j.Status {
	case StatusReady, StatusConfigured, StatusFailed:
		return true
	}
	return false
}

// Complete reports whether the job carries everything the worker needs.
func (j *Job) Complete() error {
	switch j.Kind {
	case KindSimulation:
		if j.Config.Simulation == nil {
			return fmt.Errorf("%w: simulation config missing", ErrIncomplete)
		}
		return j.Config.Simulation.Check()
	case KindWeld:
		if j.Config.MultiPass == nil {
			return fmt.Errorf("%w: weld project config missing", ErrIncomplete)
		}
		if len(j.Strings) == 0 {
			return fmt.Errorf("%w: weld project has no strings", ErrIncomplete)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown kind %q", ErrIncomplete, j.Kind)
}

// 配置完成时的初始状态，不完整为 draft
func (j *Job) ConfiguredStatus() Status {
	if j.Complete() != nil {
		return StatusDraft
	}
	return j.PreQueueStatus()
}

// JobConfig holds exactly one of its members, matching Job.Kind.
type JobConfig struct {
	Simulation *SimulationConfig `json:"simulation,omitempty"`
	MultiPass  *MultiPassConfig  `json:"multi_pass,omitempty"`
}

// 显式网格，替代预设
type GridSpec struct {
	Ny             int     `json:"ny"`
	Nz             int     `json:"nz"`
	Dt             float64 `json:"dt"`
	TotalTime      float64 `json:"total_time"`
	OutputInterval int     `json:"output_interval"`
}

// 熔池尺寸手动给定，mm
type PoolOverride struct {
	AfMM *float64 `json:"a_f_mm,omitempty"`
	ArMM *float64 `json:"a_r_mm,omitempty"`
	BMM  *float64 `json:"b_mm,omitempty"`
	CMM  *float64 `json:"c_mm,omitempty"`
	Ff   *float64 `json:"f_f,omitempty"`
}

// 材料，Steel 为内置钢种名，其余字段覆盖
type MaterialSpec struct {
	Steel               string                         `json:"steel,omitempty"`
	Conductivity        *float64                       `json:"k,omitempty"`
	Density             *float64                       `json:"rho,omitempty"`
	SpecificHeat        *float64                       `json:"cp,omitempty"`
	Solidus             *float64                       `json:"solidus,omitempty"`
	Composition         steel_type.Composition         `json:"composition,omitempty"`
	TransformationTemps steel_type.TransformationTemps `json:"transformation_temps"`
}

type SimulationConfig struct {
	Process        string        `json:"process"`
	HeatInput      float64       `json:"heat_input"`   // kJ/mm
	TravelSpeed    float64       `json:"travel_speed"` // mm/s
	Preheat        float64       `json:"preheat"`
	GridResolution string        `json:"grid_resolution,omitempty"`
	Grid           *GridSpec     `json:"grid,omitempty"`
	Pool           *PoolOverride `json:"pool,omitempty"`
	Material       *MaterialSpec `json:"material,omitempty"`
}

func (c *SimulationConfig) Check() error {
	switch {
	case c.Process == "":
		return fmt.Errorf("%w: process missing", ErrIncomplete)
	case c.HeatInput <= 0:
		return fmt.Errorf("%w: heat input missing", ErrIncomplete)
	case c.TravelSpeed <= 0:
		return fmt.Errorf("%w: travel speed missing", ErrIncomplete)
	}
	return nil
}

type MultiPassConfig struct {
	Process              string        `json:"process"`
	Preheat              float64       `json:"preheat"`
	InterpassTemperature float64       `json:"interpass_temperature"`
	HeatInput            float64       `json:"heat_input_default"`
	TravelSpeed          float64       `json:"travel_speed_default"`
	InterpassTime        float64       `json:"interpass_time_default"`
	GridResolution       string        `json:"grid_resolution,omitempty"`
	CompareMethods       bool          `json:"compare_methods"`
	Material             *MaterialSpec `json:"material,omitempty"`
}

// 项目未给定时的缺省值
const (
	DefaultHeatInput     = 1.5 // kJ/mm
	DefaultTravelSpeed   = 5.0 // mm/s
	DefaultInterpassTime = 60.0
)

// WeldString is one pass of a weld project. Nil pointers fall back to the
// project defaults.
type WeldString struct {
	ID                 uint     `gorm:"primaryKey" json:"id"`
	JobID              uint     `gorm:"index;not null" json:"job_id"`
	StringNumber       int      `gorm:"not null" json:"string_number"`
	Layer              int      `json:"layer"`
	PositionInLayer    int      `json:"position_in_layer"`
	HeatInput          *float64 `json:"heat_input,omitempty"`
	TravelSpeed        *float64 `json:"travel_speed,omitempty"`
	InterpassTime      *float64 `json:"interpass_time,omitempty"`
	InitialTempMode    string   `gorm:"size:16;default:'solidification'" json:"initial_temp_mode"`
	InitialTemperature *float64 `json:"initial_temperature,omitempty"`
	SolidificationTemp *float64 `json:"solidification_temp,omitempty"`
	SimulationDuration *float64 `json:"simulation_duration,omitempty"`
}

func or(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func orPositive(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func (s *WeldString) EffectiveHeatInput(p *MultiPassConfig) float64 {
	return or(s.HeatInput, orPositive(p.HeatInput, DefaultHeatInput))
}

func (s *WeldString) EffectiveTravelSpeed(p *MultiPassConfig) float64 {
	return or(s.TravelSpeed, orPositive(p.TravelSpeed, DefaultTravelSpeed))
}

func (s *WeldString) EffectiveInterpassTime(p *MultiPassConfig) float64 {
	return or(s.InterpassTime, orPositive(p.InterpassTime, DefaultInterpassTime))
}

// WeldResult stores one serialized result per (job, type).
type WeldResult struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	JobID      uint       `gorm:"uniqueIndex:idx_job_result;not null" json:"job_id"`
	ResultType ResultType `gorm:"uniqueIndex:idx_job_result;size:32;not null" json:"result_type"`
	Data       string     `gorm:"type:text" json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
}

// 进度查询响应
type Progress struct {
	JobID           uint    `json:"job_id"`
	Status          Status  `json:"status"`
	ProgressPercent float64 `json:"progress_percent"`
	ProgressMessage string  `json:"progress_message"`
	QueuePosition   *int    `json:"queue_position,omitempty"`
	ErrorMessage    string  `json:"error_message,omitempty"`
}

func (j *Job) Progress() Progress {
	return Progress{
		JobID:           j.ID,
		Status:          j.Status,
		ProgressPercent: j.ProgressPercent,
		ProgressMessage: j.ProgressMessage,
		ErrorMessage:    j.ErrorMessage,
	}
}
