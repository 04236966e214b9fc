package calculator

// 熔池边界：峰值温度场在固相线处的等值线（marching squares），单位 mm
// 每个网格单元输出 0、1 或 2 条线段，按线段端点依次拼接
func poolBoundary(y, z []float64, peak Field, level float64) PoolBoundary {
	b := PoolBoundary{YMM: []float64{}, ZMM: []float64{}}
	for k := 0; k < len(z)-1; k++ {
		for j := 0; j < len(y)-1; j++ {
			// 四个角，逆时针：左上、右上、右下、左下
			corners := [4][3]float64{
				{y[j], z[k], peak[k][j]},
				{y[j+1], z[k], peak[k][j+1]},
				{y[j+1], z[k+1], peak[k+1][j+1]},
				{y[j], z[k+1], peak[k+1][j]},
			}
			var pts [][2]float64
			for e := 0; e < 4; e++ {
				a, c := corners[e], corners[(e+1)%4]
				inA, inC := a[2] >= level, c[2] >= level
				if inA == inC {
					continue
				}
				frac := (level - a[2]) / (c[2] - a[2])
				pts = append(pts, [2]float64{
					a[0] + frac*(c[0]-a[0]),
					a[1] + frac*(c[1]-a[1]),
				})
			}
			for _, p := range pts {
				b.YMM = append(b.YMM, p[0]*1000)
				b.ZMM = append(b.ZMM, p[1]*1000)
			}
		}
	}
	return b
}
