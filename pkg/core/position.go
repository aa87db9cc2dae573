package core

import "math"

// Position 实体位置与朝向（弧度）
type Position struct {
	X, Y      float32
	Direction float32
}

// NewPosition 创建位置
func NewPosition(x, y, direction float32) Position {
	return Position{X: x, Y: y, Direction: direction}
}

// Add 逐分量相加，朝向结果归一化
func (p Position) Add(o Position) Position {
	return Position{
		X:         p.X + o.X,
		Y:         p.Y + o.Y,
		Direction: NormalizeAngle(p.Direction + o.Direction),
	}
}

// Sub 逐分量相减，朝向取最短角差
func (p Position) Sub(o Position) Position {
	return Position{
		X:         p.X - o.X,
		Y:         p.Y - o.Y,
		Direction: NormalizeAngle(p.Direction - o.Direction),
	}
}

// Scale 缩放
func (p Position) Scale(k float32) Position {
	return Position{X: p.X * k, Y: p.Y * k, Direction: p.Direction * k}
}

// Lerp 从 p 到 o 线性插值，alpha=0 返回 p，alpha=1 返回 o
func (p Position) Lerp(o Position, alpha float64) Position {
	a := float32(alpha)
	return Position{
		X:         p.X + (o.X-p.X)*a,
		Y:         p.Y + (o.Y-p.Y)*a,
		Direction: NormalizeAngle(p.Direction + NormalizeAngle(o.Direction-p.Direction)*a),
	}
}

// DistanceTo 平面距离（忽略朝向）
func (p Position) DistanceTo(o Position) float32 {
	dx := float64(p.X - o.X)
	dy := float64(p.Y - o.Y)
	return float32(math.Hypot(dx, dy))
}

// IsCloserThan 两点距离是否小于 limit
func (p Position) IsCloserThan(o Position, limit float32) bool {
	dx := p.X - o.X
	dy := p.Y - o.Y
	return dx*dx+dy*dy < limit*limit
}

// NormalizeAngle 将角度归一化到 (-π, π]
func NormalizeAngle(a float32) float32 {
	r := math.Remainder(float64(a), 2*math.Pi)
	if r <= -math.Pi {
		r += 2 * math.Pi
	}
	return float32(r)
}
