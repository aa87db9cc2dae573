package ai

import (
	"math"

	"shooter/pkg/ai/bt"
	"shooter/pkg/core"
)

const (
	// 离边界小于该距离时回到场地中央
	edgeMargin = 2.0

	// 到达游荡目标点的判定距离
	waypointReached = 0.5

	// 轴向移动的死区，避免在目标附近来回抖动
	moveDeadZone = 0.2
)

// condEnemyInRange 选出射程内最近的角色作为目标
func condEnemyInRange(bb *Blackboard) bool {
	best := float32(-1)
	for i := range bb.Others {
		d := bb.Self.DistanceTo(bb.Others[i])
		if d > bb.Config.AttackRange {
			continue
		}
		if best < 0 || d < best {
			best = d
			bb.Target = &bb.Others[i]
		}
	}
	return bb.Target != nil
}

// actAim 朝目标瞄准，带随机偏差
func actAim(bb *Blackboard) bt.Status {
	if bb.Target == nil {
		return bt.StatusFailure
	}
	direction := math.Atan2(float64(bb.Target.Y-bb.Self.Y), float64(bb.Target.X-bb.Self.X))
	if bb.Config.AimError > 0 {
		direction += bb.Config.AimError * (2*bb.RNG.Float64() - 1)
	}
	bb.NextDirection = core.NormalizeAngle(float32(direction))
	return bt.StatusSuccess
}

// actAttack 开火并停下
func actAttack(bb *Blackboard) bt.Status {
	bb.NextActions = bb.NextActions.With(core.ActionAttack)
	return bt.StatusRunning
}

func condNearEdge(bb *Blackboard) bool {
	return bb.Self.X < edgeMargin || bb.Self.X > core.WorldWidth-edgeMargin ||
		bb.Self.Y < edgeMargin || bb.Self.Y > core.WorldHeight-edgeMargin
}

// actReturnToCenter 把游荡目标点设为场地中央
func actReturnToCenter(bb *Blackboard) bt.Status {
	bb.Waypoint = core.NewPosition(core.WorldWidth/2, core.WorldHeight/2, 0)
	bb.HasWaypoint = true
	return moveTo(bb, bb.Waypoint)
}

// actWander 在场地内随机选点游荡
func actWander(bb *Blackboard) bt.Status {
	if bb.RNG == nil {
		return bt.StatusFailure
	}

	if !bb.HasWaypoint || bb.Self.IsCloserThan(bb.Waypoint, waypointReached) {
		x := edgeMargin + bb.RNG.Float64()*(core.WorldWidth-2*edgeMargin)
		y := edgeMargin + bb.RNG.Float64()*(core.WorldHeight-2*edgeMargin)
		bb.Waypoint = core.NewPosition(float32(x), float32(y), 0)
		bb.HasWaypoint = true
	}

	return moveTo(bb, bb.Waypoint)
}

func moveTo(bb *Blackboard, dest core.Position) bt.Status {
	bb.NextActions = bb.NextActions.With(moveToward(bb.Self, dest))
	if bb.NextActions.IsMoving() {
		bb.NextDirection = float32(math.Atan2(float64(dest.Y-bb.Self.Y), float64(dest.X-bb.Self.X)))
	}
	return bt.StatusRunning
}

// moveToward 朝目标点移动所需的方向键
func moveToward(from, to core.Position) core.Actions {
	var actions core.Actions
	dx := to.X - from.X
	dy := to.Y - from.Y

	switch {
	case dx > moveDeadZone:
		actions = actions.With(core.ActionMoveRight)
	case dx < -moveDeadZone:
		actions = actions.With(core.ActionMoveLeft)
	}
	switch {
	case dy > moveDeadZone:
		actions = actions.With(core.ActionMoveDown)
	case dy < -moveDeadZone:
		actions = actions.With(core.ActionMoveUp)
	}
	return actions
}
