package steel_type

import (
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// 钢种物性参数 + 化学成分
// 焊接热模型中物性取常数（室温到固相线的平均值）

const DefaultSolidus = 1500.0 // 固相线温度 ℃

type Steel struct {
	Number      int
	Name        string
	Parameter   *Parameter
	Composition Composition
}

type Parameter struct {
	Lambda                float64 // 导热系数 W/(m·K)
	Density               float64 // 密度 kg/m³
	C                     float64 // 比热容 J/(kg·K)
	Emissivity            float64 // 表面发射率
	SolidPhaseTemperature float64 // 固相线温度
}

// 热扩散系数 m²/s
func (p *Parameter) Alpha() float64 {
	return p.Lambda / (p.Density * p.C)
}

func (p *Parameter) Validate() error {
	if p.Lambda <= 0 || p.Density <= 0 || p.C <= 0 {
		return fmt.Errorf("material constants must be positive: k=%g rho=%g Cp=%g", p.Lambda, p.Density, p.C)
	}
	if p.SolidPhaseTemperature <= 0 {
		return fmt.Errorf("solidus must be positive: %g", p.SolidPhaseTemperature)
	}
	return nil
}

var defaultParameter = Parameter{
	Lambda:                40.0,
	Density:               7850.0,
	C:                     500.0,
	Emissivity:            0.7,
	SolidPhaseTemperature: DefaultSolidus,
}

func DefaultParameter() Parameter {
	return defaultParameter
}

// 读取 [material] 段，覆盖默认物性
func LoadCfg(file *ini.File) {
	section := file.Section("material")
	defaultParameter = Parameter{
		Lambda:                section.Key("Conductivity").MustFloat64(40.0),
		Density:               section.Key("Density").MustFloat64(7850.0),
		C:                     section.Key("SpecificHeat").MustFloat64(500.0),
		Emissivity:            section.Key("Emissivity").MustFloat64(0.7),
		SolidPhaseTemperature: section.Key("Solidus").MustFloat64(DefaultSolidus),
	}
}

// 内置钢种，key 统一小写
var steels = map[string]Steel{
	"carbon_steel": {
		Number:      1,
		Name:        "carbon_steel",
		Composition: Composition{"C": 0.20, "Mn": 0.50, "Si": 0.25},
	},
	"s355": {
		Number:      2,
		Name:        "S355",
		Composition: Composition{"C": 0.18, "Mn": 1.40, "Si": 0.30, "P": 0.02},
	},
	"p22": {
		Number:      3,
		Name:        "P22",
		Composition: Composition{"C": 0.12, "Mn": 0.45, "Si": 0.25, "Cr": 2.25, "Mo": 1.0},
	},
	"p91": {
		Number:      4,
		Name:        "P91",
		Composition: Composition{"C": 0.10, "Mn": 0.45, "Si": 0.35, "Cr": 9.0, "Mo": 1.0, "V": 0.22, "Ni": 0.2},
	},
}

// 根据钢种名称获取钢种信息
func NewSteel(name string) (*Steel, error) {
	s, ok := steels[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown steel %q", name)
	}
	parameter := DefaultParameter()
	comp := make(Composition, len(s.Composition))
	for k, v := range s.Composition {
		comp[k] = v
	}
	steel := &Steel{
		Number:      s.Number,
		Name:        s.Name,
		Parameter:   &parameter,
		Composition: comp,
	}
	log.WithFields(log.Fields{
		"number": steel.Number,
		"name":   steel.Name,
	}).Debug("加载钢种")
	return steel, nil
}

func SteelNames() []string {
	names := make([]string, 0, len(steels))
	for k := range steels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
