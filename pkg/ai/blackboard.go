package ai

import (
	"math/rand/v2"
	"time"

	"shooter/pkg/core"
)

// Blackboard 一次思考中各节点共享的数据
type Blackboard struct {
	Self   core.Position // 自己的显示位置
	Others []core.Position
	RNG    *rand.Rand
	Config *Config
	Now    time.Duration

	Target *core.Position

	NextActions   core.Actions
	NextDirection float32

	// 游荡目标点，跨思考保留直到到达
	Waypoint    core.Position
	HasWaypoint bool
}

// ResetFrame 开始一次新的思考
func (bb *Blackboard) ResetFrame(self core.Position, others []core.Position, now time.Duration) {
	bb.Self = self
	bb.Others = others
	bb.Now = now
	bb.Target = nil
	bb.NextActions = 0
	bb.NextDirection = self.Direction
	// 注意：Waypoint 不在这里清空，保持游荡的连续性
}
