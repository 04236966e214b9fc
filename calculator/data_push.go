package calculator

import "math"

// 求解过程中的记录：峰值温度、t8/5、监测点热循环、全场快照
type recorder struct {
	probes   []Probe
	probeIdx [][2]int // [k, j]
	cycles   map[string]*ThermalCycle

	peak Field
	t800 Field // 首次冷却穿越 800 ℃ 的时刻，NaN 表示未穿越
	t500 Field

	snapshots []Field
	times     []float64
}

func newRecorder(s *GoldakSolver, initial Field) *recorder {
	r := &recorder{
		probes: defaultProbes(s.params.PlateThickness),
		cycles: make(map[string]*ThermalCycle),
		peak:   initial.Copy(),
		t800:   newField(s.nz, s.ny, math.NaN()),
		t500:   newField(s.nz, s.ny, math.NaN()),
	}
	for _, p := range r.probes {
		j := nearestIndex(s.y, p.Y)
		k := nearestIndex(s.z, p.Z)
		r.probeIdx = append(r.probeIdx, [2]int{k, j})
		r.cycles[p.Name] = &ThermalCycle{}
	}
	r.recordProbes(0, initial)
	r.snapshot(0, initial)
	return r
}

func (r *recorder) recordProbes(t float64, f Field) {
	for i, p := range r.probes {
		idx := r.probeIdx[i]
		r.cycles[p.Name].append(t, f[idx[0]][idx[1]])
	}
}

func (r *recorder) snapshot(t float64, f Field) {
	r.snapshots = append(r.snapshots, f.Copy())
	r.times = append(r.times, t)
}

// 每步更新峰值和 t8/5 穿越时刻
func (r *recorder) update(t0, t1 float64, prev, cur Field) {
	for k, row := range cur {
		for j, t := range row {
			if t > r.peak[k][j] {
				r.peak[k][j] = t
			}
			p := prev[k][j]
			if p >= 800 && t < 800 && math.IsNaN(r.t800[k][j]) {
				r.t800[k][j] = crossingTime(t0, t1, p, t, 800)
			}
			if p >= 500 && t < 500 && math.IsNaN(r.t500[k][j]) {
				r.t500[k][j] = crossingTime(t0, t1, p, t, 500)
			}
		}
	}
}

// 两次穿越都发生且顺序正确时才有定义
func (r *recorder) t85Map() Field {
	m := newField(len(r.t800), len(r.t800[0]), math.NaN())
	for k, row := range m {
		for j := range row {
			a, b := r.t800[k][j], r.t500[k][j]
			if !math.IsNaN(a) && !math.IsNaN(b) && b > a {
				row[j] = b - a
			}
		}
	}
	return m
}

func (r *recorder) probeCycles() map[string]ThermalCycle {
	out := make(map[string]ThermalCycle, len(r.cycles))
	for name, c := range r.cycles {
		out[name] = *c
	}
	return out
}
