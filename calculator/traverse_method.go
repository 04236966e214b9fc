package calculator

// 按行遍历整个截面：先上表面，再中间各行，最后底面
func (s *GoldakSolver) traverse(cur, next Field) {
	right, bottom := s.ny-1, s.nz-1

	s.calculatePointLT(cur, next)
	for j := 1; j < right; j++ {
		s.calculatePointTA(j, cur, next)
	}
	s.calculatePointRT(cur, next)

	for k := 1; k < bottom; k++ {
		s.calculatePointLA(k, cur, next)
		for j := 1; j < right; j++ {
			s.calculatePointIN(j, k, cur, next)
		}
		s.calculatePointRA(k, cur, next)
	}

	s.calculatePointLB(cur, next)
	for j := 1; j < right; j++ {
		s.calculatePointBA(j, cur, next)
	}
	s.calculatePointRB(cur, next)
}

// 发散检查：非有限值或低于绝对零度，返回第一个坏点
func checkField(f Field) (int, int, bool) {
	for k, row := range f {
		for j, t := range row {
			if !isFinite(t) || t < AbsoluteZero {
				return k, j, false
			}
		}
	}
	return 0, 0, true
}

// 不考虑潜热，温度上限为固相线
func capField(f Field, solidus float64) {
	for _, row := range f {
		for j, t := range row {
			if t > solidus {
				row[j] = solidus
			}
		}
	}
}
