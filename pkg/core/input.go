package core

import (
	"math"
	"strings"
)

// Actions 一帧内角色的动作集合（位标志）
type Actions uint8

const (
	ActionMoveUp Actions = 1 << iota
	ActionMoveDown
	ActionMoveLeft
	ActionMoveRight
	ActionAttack

	actionsAll = ActionMoveUp | ActionMoveDown | ActionMoveLeft | ActionMoveRight | ActionAttack
)

// ActionsFromBits 从线上字节解析，未知位被丢弃
func ActionsFromBits(bits uint8) Actions {
	return Actions(bits) & actionsAll
}

// Bits 线上表示
func (a Actions) Bits() uint8 {
	return uint8(a)
}

// Has 是否包含全部给定动作
func (a Actions) Has(flags Actions) bool {
	return a&flags == flags
}

// With 返回加上 flags 的集合
func (a Actions) With(flags Actions) Actions {
	return a | flags
}

// Without 返回去掉 flags 的集合
func (a Actions) Without(flags Actions) Actions {
	return a &^ flags
}

func (a Actions) MoveUp() bool    { return a.Has(ActionMoveUp) }
func (a Actions) MoveDown() bool  { return a.Has(ActionMoveDown) }
func (a Actions) MoveLeft() bool  { return a.Has(ActionMoveLeft) }
func (a Actions) MoveRight() bool { return a.Has(ActionMoveRight) }
func (a Actions) Attack() bool    { return a.Has(ActionAttack) }

// IsMoving 是否有任意移动动作
func (a Actions) IsMoving() bool {
	return a&(ActionMoveUp|ActionMoveDown|ActionMoveLeft|ActionMoveRight) != 0
}

func (a Actions) String() string {
	if a == 0 {
		return "none"
	}
	names := make([]string, 0, 5)
	if a.MoveUp() {
		names = append(names, "up")
	}
	if a.MoveDown() {
		names = append(names, "down")
	}
	if a.MoveLeft() {
		names = append(names, "left")
	}
	if a.MoveRight() {
		names = append(names, "right")
	}
	if a.Attack() {
		names = append(names, "attack")
	}
	return strings.Join(names, "|")
}

// ApplyActions 按动作推进角色位置，dt 单位为秒。
// 服务器权威模拟与客户端本地预测共用这一步，保证两端结果一致。
func ApplyActions(actor *Actor, dt float64) {
	if actor == nil {
		return
	}

	moveX := 0.0
	moveY := 0.0

	if actor.Actions.MoveUp() {
		moveY -= 1
	}
	if actor.Actions.MoveDown() {
		moveY += 1
	}
	if actor.Actions.MoveLeft() {
		moveX -= 1
	}
	if actor.Actions.MoveRight() {
		moveX += 1
	}

	// 斜向移动时归一化，避免速度变快
	if moveX != 0 && moveY != 0 {
		moveX *= math.Sqrt2 / 2
		moveY *= math.Sqrt2 / 2
	}

	step := ActorSpeed * dt
	actor.Position.X = clamp(actor.Position.X+float32(moveX*step), ActorRadius, WorldWidth-ActorRadius)
	actor.Position.Y = clamp(actor.Position.Y+float32(moveY*step), ActorRadius, WorldHeight-ActorRadius)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
