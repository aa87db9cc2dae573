package core

import "time"

// Interpolation 实体的纠正偏移。
// 收到权威位置时，实体的逻辑位置直接跳到目标，渲染位置保留一段偏移并随时间衰减到零，
// 从而避免画面上的瞬移。
type Interpolation struct {
	offset   Position
	start    time.Duration
	duration time.Duration
}

// NewInterpolation 创建插值状态
func NewInterpolation() *Interpolation {
	return &Interpolation{duration: InterpolationDuration}
}

// Next 开始新的一段混合：rendered 为当前显示位置，target 为新的权威位置。
// 调用方随后应把实体逻辑位置设为 target。
func (i *Interpolation) Next(target, rendered Position, now time.Duration) {
	i.offset = rendered.Sub(target)
	i.start = now
}

// Offset 返回 now 时刻剩余的偏移
func (i *Interpolation) Offset(now time.Duration) Position {
	if i.duration <= 0 {
		return Position{}
	}
	elapsed := now - i.start
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := 1 - float64(elapsed)/float64(i.duration)
	if remaining <= 0 {
		return Position{}
	}
	return i.offset.Scale(float32(remaining))
}

// Apply 返回 base 叠加剩余偏移后的显示位置
func (i *Interpolation) Apply(base Position, now time.Duration) Position {
	return base.Add(i.Offset(now))
}

// Active 偏移是否尚未衰减完
func (i *Interpolation) Active(now time.Duration) bool {
	return i.offset != (Position{}) && now-i.start < i.duration
}

// ShouldCorrect 本地预测位置与权威位置的偏差是否值得纠正，小偏差直接忽略以免抖动
func ShouldCorrect(predicted, authoritative Position) bool {
	return !predicted.IsCloserThan(authoritative, MaxPlayerOffset)
}
