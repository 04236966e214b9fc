package calculator

// 二维显式差分，9 种节点
//
//	LT ---- TA ---- RT    z = 0，对流 + 辐射
//	|                |
//	LA      IN      RA    两侧绝热（镜像）
//	|                |
//	LB ---- BA ---- RB    底面绝热
//
// cur 为上一时刻温度场，结果写入 next

// 内部节点
func (s *GoldakSolver) calculatePointIN(j, k int, cur, next Field) {
	t := cur[k][j]
	next[k][j] = t +
		s.ry*(cur[k][j-1]-2*t+cur[k][j+1]) +
		s.rz*(cur[k-1][j]-2*t+cur[k+1][j]) +
		s.rs*s.q[k][j]
}

// 表面散热量，半个网格
func (s *GoldakSolver) surfaceLoss(t float64) float64 {
	return s.rc * s.params.HEff(t) * (t - s.params.TAmb)
}

// 上表面
func (s *GoldakSolver) calculatePointTA(j int, cur, next Field) {
	t := cur[0][j]
	next[0][j] = t +
		s.ry*(cur[0][j-1]-2*t+cur[0][j+1]) +
		2*s.rz*(cur[1][j]-t) +
		s.rs*s.q[0][j] -
		s.surfaceLoss(t)
}

// 左上角
func (s *GoldakSolver) calculatePointLT(cur, next Field) {
	t := cur[0][0]
	next[0][0] = t +
		2*s.ry*(cur[0][1]-t) +
		2*s.rz*(cur[1][0]-t) +
		s.rs*s.q[0][0] -
		s.surfaceLoss(t)
}

// 右上角
func (s *GoldakSolver) calculatePointRT(cur, next Field) {
	j := s.ny - 1
	t := cur[0][j]
	next[0][j] = t +
		2*s.ry*(cur[0][j-1]-t) +
		2*s.rz*(cur[1][j]-t) +
		s.rs*s.q[0][j] -
		s.surfaceLoss(t)
}

// 左侧面
func (s *GoldakSolver) calculatePointLA(k int, cur, next Field) {
	t := cur[k][0]
	next[k][0] = t +
		2*s.ry*(cur[k][1]-t) +
		s.rz*(cur[k-1][0]-2*t+cur[k+1][0]) +
		s.rs*s.q[k][0]
}

// 右侧面
func (s *GoldakSolver) calculatePointRA(k int, cur, next Field) {
	j := s.ny - 1
	t := cur[k][j]
	next[k][j] = t +
		2*s.ry*(cur[k][j-1]-t) +
		s.rz*(cur[k-1][j]-2*t+cur[k+1][j]) +
		s.rs*s.q[k][j]
}

// 底面
func (s *GoldakSolver) calculatePointBA(j int, cur, next Field) {
	k := s.nz - 1
	t := cur[k][j]
	next[k][j] = t +
		s.ry*(cur[k][j-1]-2*t+cur[k][j+1]) +
		2*s.rz*(cur[k-1][j]-t) +
		s.rs*s.q[k][j]
}

// 左下角
func (s *GoldakSolver) calculatePointLB(cur, next Field) {
	k := s.nz - 1
	t := cur[k][0]
	next[k][0] = t +
		2*s.ry*(cur[k][1]-t) +
		2*s.rz*(cur[k-1][0]-t) +
		s.rs*s.q[k][0]
}

// 右下角
func (s *GoldakSolver) calculatePointRB(cur, next Field) {
	k, j := s.nz-1, s.ny-1
	t := cur[k][j]
	next[k][j] = t +
		2*s.ry*(cur[k][j-1]-t) +
		2*s.rz*(cur[k-1][j]-t) +
		s.rs*s.q[k][j]
}
