package steel_type

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
)

// CCT 曲线预测: Andrews (Ae1/Ae3/Ms), Steven-Haynes (Bs),
// 修正 Kirkaldy 模型的 C 曲线形状

var ErrNoCarbon = errors.New("composition has no carbon content")

// 化学成分，质量百分数
type Composition map[string]float64

func (c Composition) Get(element string) float64 {
	if c == nil {
		return 0
	}
	return c[element]
}

// 相变温度，nil 表示未知
type TransformationTemps struct {
	Ac1 *float64 `json:"Ac1,omitempty"`
	Ac3 *float64 `json:"Ac3,omitempty"`
	Ms  *float64 `json:"Ms,omitempty"`
	Bs  *float64 `json:"Bs,omitempty"`
}

func Temp(v float64) *float64 {
	return &v
}

// 取值，未设置或为 0 时返回 def
func pick(v *float64, def float64) float64 {
	if v == nil || *v == 0 {
		return def
	}
	return *v
}

// Ac1OrDefault and Ac3OrDefault are the HAZ boundaries used when no value is known.
func (t TransformationTemps) Ac1OrDefault() float64 { return pick(t.Ac1, 727) }
func (t TransformationTemps) Ac3OrDefault() float64 { return pick(t.Ac3, 900) }

type Phase string

const (
	Ferrite  Phase = "ferrite"
	Pearlite Phase = "pearlite"
	Bainite  Phase = "bainite"
)

// 曲线上的一个点，序列化为 [time, temperature]
type Point struct {
	Time        float64
	Temperature float64
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Time, p.Temperature})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	p.Time, p.Temperature = pair[0], pair[1]
	return nil
}

type PhaseCurves struct {
	Start  []Point `json:"start"`
	Finish []Point `json:"finish"`
}

// 鼻尖: 孕育时间最短的点
func Nose(curve []Point) (Point, bool) {
	if len(curve) == 0 {
		return Point{}, false
	}
	nose := curve[0]
	for _, p := range curve[1:] {
		if p.Time < nose.Time {
			nose = p
		}
	}
	return nose, true
}

type CCTPredictor struct {
	c, mn, si, cr, ni, mo, v, w, cu, p, b float64

	Ae3 float64
	Ae1 float64
	Bs  float64
	Ms  float64
}

func NewCCTPredictor(comp Composition, known TransformationTemps) *CCTPredictor {
	p := &CCTPredictor{
		c:  comp.Get("C"),
		mn: comp.Get("Mn"),
		si: comp.Get("Si"),
		cr: comp.Get("Cr"),
		ni: comp.Get("Ni"),
		mo: comp.Get("Mo"),
		v:  comp.Get("V"),
		w:  comp.Get("W"),
		cu: comp.Get("Cu"),
		p:  comp.Get("P"),
		b:  comp.Get("B"),
	}
	p.Ae3 = pick(known.Ac3, 910-203*math.Sqrt(math.Max(p.c, 0.001))-15.2*p.ni+44.7*p.si+
		104*p.v+31.5*p.mo+13.1*p.w-30*p.mn-11*p.cr-20*p.cu+700*p.p)
	p.Ae1 = pick(known.Ac1, 727-10.7*p.mn-16.9*p.ni+29.1*p.si+16.9*p.cr+6.38*p.w)
	p.Bs = pick(known.Bs, 830-270*p.c-90*p.mn-37*p.ni-70*p.cr-83*p.mo)
	p.Ms = pick(known.Ms, 539-423*p.c-30.4*p.mn-17.7*p.ni-12.1*p.cr-7.5*p.mo-7.5*p.si)
	return p
}

// 供 GoldakParams / HAZ 提取使用
func (p *CCTPredictor) TransformationTemps() TransformationTemps {
	return TransformationTemps{
		Ac1: Temp(p.Ae1),
		Ac3: Temp(p.Ae3),
		Ms:  Temp(p.Ms),
		Bs:  Temp(p.Bs),
	}
}

// 淬透性系数，越大 C 曲线越靠右
func (p *CCTPredictor) HardenabilityFactor() float64 {
	fB := 1.0
	if p.b > 0 {
		fB = 1 + 50*p.b
	}
	return (1 + 6*p.c) * (1 + 1.2*p.mn) * (1 + 0.6*p.cr) * (1 + 1.5*p.mo) *
		(1 + 0.3*p.ni) * (1 + 0.3*p.si) * (1 + p.v) * fB
}

func (p *CCTPredictor) Predict() map[Phase]PhaseCurves {
	hf := p.HardenabilityFactor()
	curves := make(map[Phase]PhaseCurves, 3)
	if p.c < 0.8 && p.Ae3 > p.Ae1 {
		curves[Ferrite] = p.ferrite(hf)
	}
	curves[Pearlite] = p.pearlite(hf)
	if p.Bs > p.Ms+20 {
		curves[Bainite] = p.bainite(hf)
	}
	return curves
}

func (p *CCTPredictor) ferrite(hf float64) PhaseCurves {
	undercooling := 30 + 10*p.cr + 10*p.mo + 5*p.mn
	nose := math.Max(p.Ae1-undercooling, p.Bs+30)
	base := 1.5 * hf
	above := p.Ae1 - nose
	below := math.Min(math.Max(nose-p.Bs-20, 50), 150)

	finish := base * (3 + 2*p.c + p.mn)
	return PhaseCurves{
		Start:  cCurve(nose, above, below, base, 0.9),
		Finish: cCurve(nose-15, math.Max(above-10, 10), math.Max(below-15, 10), finish, 1.0),
	}
}

func (p *CCTPredictor) pearlite(hf float64) PhaseCurves {
	nose := p.Ae1 - 70
	retard := (1 + 0.8*p.cr) * (1 + 1.2*p.mo)
	base := 3 * hf * retard / math.Max(p.c, 0.15)
	above := p.Ae1 - nose + 5
	below := nose - math.Max(p.Bs+20, 450)

	finish := base * (4 + 3*p.c)
	return PhaseCurves{
		Start:  cCurve(nose, above, math.Max(below, 10), base, 0.85),
		Finish: cCurve(nose-20, math.Max(above-15, 5), math.Max(below-20, 10), finish, 0.95),
	}
}

func (p *CCTPredictor) bainite(hf float64) PhaseCurves {
	nose := p.Ms + 0.5*(p.Bs-p.Ms)
	retard := (1 + 0.8*p.cr) * (1 + 1.5*p.mo)
	base := 0.5 * hf * retard
	above := p.Bs - nose
	below := nose - p.Ms - 10

	finish := base * (3.5 + 2.5*p.c + 1.5*p.mn)
	return PhaseCurves{
		Start:  cCurve(nose, math.Max(above, 10), math.Max(below, 10), base, 0.7),
		Finish: cCurve(nose-10, math.Max(above-10, 10), math.Max(below-15, 10), finish, 0.8),
	}
}

const cCurvePoints = 25

// 生成一条 C 曲线，按温度降序，温度保留一位小数去重
func cCurve(nose, above, below, baseTime, spread float64) []Point {
	points := make([]Point, 0, 2*cCurvePoints)
	branch := func(r, sign float64) {
		if r <= 5 {
			return
		}
		for i := 0; i < cCurvePoints; i++ {
			dT := r * float64(i) / float64(cCurvePoints-1)
			t := baseTime * (1 + spread*(dT/r)*(dT/r)*(r/50))
			points = append(points, Point{Time: t, Temperature: nose + sign*dT})
		}
	}
	branch(above, 1)
	branch(below, -1)

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Temperature > points[j].Temperature
	})
	seen := make(map[int64]struct{}, len(points))
	unique := points[:0]
	for _, pt := range points {
		key := int64(math.Round(pt.Temperature * 10))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, pt)
	}
	return unique
}

// 无碳含量时无法预测
func PredictCCTCurves(comp Composition, known TransformationTemps) (map[Phase]PhaseCurves, error) {
	if comp.Get("C") == 0 {
		return nil, ErrNoCarbon
	}
	return NewCCTPredictor(comp, known).Predict(), nil
}
