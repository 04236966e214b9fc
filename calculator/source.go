package calculator

import "math"

// Goldak 双椭球体热源在监测截面 x = 0 上的体热流密度
//
// q_f = C_f * exp(-3 dx²/a_f²) * exp(-3 y²/b² - 3 z²/c²), dx >= 0（截面在焊枪前方）
// q_r = C_r * exp(-3 dx²/a_r²) * exp(-3 y²/b² - 3 z²/c²), dx < 0
// C = 6√3 f Q / (a b c π√π)
type Source struct {
	v     float64
	af    float64
	ar    float64
	cf    float64
	cr    float64
	tPass float64 // 焊枪通过截面的时刻

	envelope Field // exp(-3y²/b² - 3z²/c²)，与时间无关
}

func NewSource(p *GoldakParams, y, z []float64, totalTime, offset float64) *Source {
	piSqrtPi := math.Pi * math.Sqrt(math.Pi)
	s := &Source{
		v:     p.V,
		af:    p.Af,
		ar:    p.Ar,
		cf:    6 * math.Sqrt(3) * p.Ff * p.Q / (p.Af * p.B * p.C * piSqrtPi),
		cr:    6 * math.Sqrt(3) * p.Fr * p.Q / (p.Ar * p.B * p.C * piSqrtPi),
		tPass: totalTime * offset,
	}
	s.envelope = make(Field, len(z))
	for k, zk := range z {
		row := make([]float64, len(y))
		for j, yj := range y {
			row[j] = math.Exp(-3*yj*yj/(p.B*p.B) - 3*zk*zk/(p.C*p.C))
		}
		s.envelope[k] = row
	}
	return s
}

// 截面处的纵向衰减系数 C * exp(-3dx²/a²)
func (s *Source) LineIntensity(t float64) float64 {
	dx := s.v * (s.tPass - t)
	if dx >= 0 {
		return s.cf * math.Exp(-3*dx*dx/(s.af*s.af))
	}
	return s.cr * math.Exp(-3*dx*dx/(s.ar*s.ar))
}

// 写入 dst，避免每步分配
func (s *Source) Into(dst Field, t float64) {
	line := s.LineIntensity(t)
	for k, row := range s.envelope {
		for j, e := range row {
			dst[k][j] = line * e
		}
	}
}

func (s *Source) At(t float64) Field {
	dst := make(Field, len(s.envelope))
	for k := range dst {
		dst[k] = make([]float64, len(s.envelope[k]))
	}
	s.Into(dst, t)
	return dst
}

func (s *Source) PassTime() float64 {
	return s.tPass
}
