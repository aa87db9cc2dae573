package core

import "time"

// positionRecord 一条位置采样
type positionRecord struct {
	time     time.Duration
	position Position
}

// PositionLog 实体位置历史，用于查询过去某一时刻的位置（延迟补偿）。
// 超出容量的旧样本直接被覆盖，不需要显式清理。
type PositionLog struct {
	records *RingBuffer[positionRecord]
}

// NewPositionLog 按默认保留窗口创建位置历史
func NewPositionLog() *PositionLog {
	return NewPositionLogWithCapacity(PositionLogCapacity)
}

// NewPositionLogWithCapacity 创建指定容量的位置历史
func NewPositionLogWithCapacity(capacity int) *PositionLog {
	return &PositionLog{records: NewRingBuffer[positionRecord](capacity)}
}

// Store 记录 t 时刻的位置
func (l *PositionLog) Store(position Position, t time.Duration) {
	l.records.Push(positionRecord{time: t, position: position})
}

// Shift 把全部样本平移 delta（只平移坐标）。
// 本地角色被纠正后调用，使历史与纠正后的预测处于同一参照系。
func (l *PositionLog) Shift(delta Position) {
	l.records.Update(func(r positionRecord) positionRecord {
		r.position.X += delta.X
		r.position.Y += delta.Y
		return r
	})
}

// Len 当前样本数
func (l *PositionLog) Len() int {
	return l.records.Len()
}

// Cap 最大样本数
func (l *PositionLog) Cap() int {
	return l.records.Cap()
}

// Find 估算 target 时刻的位置。
// now/current 作为隐含的最新样本参与查找，查询接近当前时刻时退化为实时位置。
// 两侧都有样本时按时间距离线性插值，只有一侧时取该侧样本，不做外推。
func (l *PositionLog) Find(target, now time.Duration, current Position) Position {
	var before, after positionRecord
	var hasBefore, hasAfter bool

	consider := func(r positionRecord) {
		if r.time < target {
			if !hasBefore || r.time > before.time {
				before = r
				hasBefore = true
			}
		} else if !hasAfter || r.time < after.time {
			after = r
			hasAfter = true
		}
	}

	for r := range l.records.All() {
		consider(r)
	}
	consider(positionRecord{time: now, position: current})

	switch {
	case hasAfter && after.time == target:
		return after.position
	case hasBefore && hasAfter:
		gapBefore := float64(target - before.time)
		total := float64(after.time - before.time)
		return before.position.Lerp(after.position, gapBefore/total)
	case hasAfter:
		return after.position
	default:
		return before.position
	}
}
