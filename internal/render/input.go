package render

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"shooter/pkg/core"
)

// ControlScheme 按键方案
type ControlScheme int

const (
	ControlWASD  ControlScheme = iota // WASD + 空格/鼠标左键
	ControlArrow                      // 方向键 + 回车
)

func (c ControlScheme) String() string {
	switch c {
	case ControlWASD:
		return "WASD+空格"
	case ControlArrow:
		return "方向键+回车"
	}
	return "未知"
}

// hint 画面上的操作提示
func (c ControlScheme) hint() string {
	if c == ControlArrow {
		return "arrows: move  enter: fire"
	}
	return "WASD: move  mouse: aim  space/click: fire"
}

// readActions 读取当前按键对应的动作集合
func readActions(scheme ControlScheme) core.Actions {
	var actions core.Actions

	pressed := func(flag core.Actions, keys ...ebiten.Key) {
		for _, k := range keys {
			if ebiten.IsKeyPressed(k) {
				actions = actions.With(flag)
				return
			}
		}
	}

	if scheme == ControlWASD {
		pressed(core.ActionMoveUp, ebiten.KeyW)
		pressed(core.ActionMoveDown, ebiten.KeyS)
		pressed(core.ActionMoveLeft, ebiten.KeyA)
		pressed(core.ActionMoveRight, ebiten.KeyD)
		pressed(core.ActionAttack, ebiten.KeySpace)
		if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
			actions = actions.With(core.ActionAttack)
		}
	} else {
		pressed(core.ActionMoveUp, ebiten.KeyArrowUp)
		pressed(core.ActionMoveDown, ebiten.KeyArrowDown)
		pressed(core.ActionMoveLeft, ebiten.KeyArrowLeft)
		pressed(core.ActionMoveRight, ebiten.KeyArrowRight)
		pressed(core.ActionAttack, ebiten.KeyEnter)
	}

	return actions
}

// aimDirection 从角色显示位置指向鼠标的朝向；方向键方案沿用移动方向
func aimDirection(scheme ControlScheme, from core.Position, actions core.Actions) float32 {
	if scheme == ControlWASD {
		mx, my := ebiten.CursorPosition()
		dx := float64(mx)/PixelsPerUnit - float64(from.X)
		dy := float64(my)/PixelsPerUnit - float64(from.Y)
		if dx != 0 || dy != 0 {
			return float32(math.Atan2(dy, dx))
		}
		return from.Direction
	}

	return movementDirection(actions, from.Direction)
}

// movementDirection 移动方向对应的朝向，静止时保持原朝向
func movementDirection(actions core.Actions, current float32) float32 {
	dx, dy := 0.0, 0.0
	if actions.MoveUp() {
		dy--
	}
	if actions.MoveDown() {
		dy++
	}
	if actions.MoveLeft() {
		dx--
	}
	if actions.MoveRight() {
		dx++
	}
	if dx == 0 && dy == 0 {
		return current
	}
	return float32(math.Atan2(dy, dx))
}
