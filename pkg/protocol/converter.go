package protocol

import (
	"time"

	"shooter/pkg/core"
)

// ========== 服务器消息构造 ==========

// NewActorSpawn 构造角色生成消息
func NewActorSpawn(actor *core.Actor) *ActorSpawn {
	return &ActorSpawn{
		PublicID:  uint16(actor.PublicID),
		X:         actor.Position.X,
		Y:         actor.Position.Y,
		Direction: actor.Position.Direction,
	}
}

// NewActorGrant 构造控制权授予消息
func NewActorGrant(actor *core.Actor) *ActorGrant {
	return &ActorGrant{PublicID: uint16(actor.PublicID)}
}

// NewPositionUpdate 构造位置同步消息
func NewPositionUpdate(actor *core.Actor) *PositionUpdate {
	return &PositionUpdate{
		PublicID:  uint16(actor.PublicID),
		X:         actor.Position.X,
		Y:         actor.Position.Y,
		Direction: actor.Position.Direction,
	}
}

// NewProjectileSpawn 构造投射物生成消息
func NewProjectileSpawn(p core.Projectile) *ProjectileSpawn {
	return &ProjectileSpawn{
		X:                  p.X,
		Y:                  p.Y,
		VelocityX:          p.VelocityX,
		VelocityY:          p.VelocityY,
		AccelerationFactor: p.Acceleration,
		ShooterID:          uint16(p.ShooterID),
	}
}

// ========== 客户端消息构造 ==========

// NewClientInput 构造输入消息
func NewClientInput(actions core.Actions, direction float32) *ClientInput {
	return &ClientInput{Actions: actions.Bits(), Direction: direction}
}

// NewClientInputDirection 构造朝向消息
func NewClientInputDirection(direction float32) *ClientInputDirection {
	return &ClientInputDirection{Direction: direction}
}

// ========== 转换为 core 类型 ==========

// Position 生成消息中的位置
func (m *ActorSpawn) Position() core.Position {
	return core.NewPosition(m.X, m.Y, m.Direction)
}

// Position 同步消息中的位置
func (m *PositionUpdate) Position() core.Position {
	return core.NewPosition(m.X, m.Y, m.Direction)
}

// Projectile 转换为 core.Projectile，spawned 为本地收到的时刻
func (m *ProjectileSpawn) Projectile(spawned time.Duration) core.Projectile {
	return core.Projectile{
		ShooterID:    core.PublicID(m.ShooterID),
		X:            m.X,
		Y:            m.Y,
		VelocityX:    m.VelocityX,
		VelocityY:    m.VelocityY,
		Acceleration: m.AccelerationFactor,
		Spawned:      spawned,
	}
}

// ActionSet 输入消息中的动作集合
func (m *ClientInput) ActionSet() core.Actions {
	return core.ActionsFromBits(m.Actions)
}
