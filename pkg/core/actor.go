package core

import (
	"fmt"
	"time"
)

// Handle 实体在本进程内的稳定句柄
type Handle uint32

// PublicID 实体在网络上的公开 ID，由服务器分配
type PublicID uint16

// Actor 可移动角色（纯逻辑，不包含渲染）
type Actor struct {
	Handle   Handle
	PublicID PublicID

	Position Position // 逻辑位置：服务器为权威位置，客户端为最新权威或本地预测位置
	Actions  Actions

	// 本地玩家控制的角色（客户端预测）
	IsLocal bool

	Log           *PositionLog
	Interpolation *Interpolation
}

// NewActor 创建角色，位置历史与插值状态随角色一起创建和销毁
func NewActor(handle Handle, publicID PublicID, position Position) *Actor {
	return &Actor{
		Handle:        handle,
		PublicID:      publicID,
		Position:      position,
		Log:           NewPositionLog(),
		Interpolation: NewInterpolation(),
	}
}

// Rendered 返回 now 时刻的显示位置
func (a *Actor) Rendered(now time.Duration) Position {
	return a.Interpolation.Apply(a.Position, now)
}

// SamplePosition 记录当前位置到历史
func (a *Actor) SamplePosition(now time.Duration) {
	a.Log.Store(a.sampled(now), now)
}

// PositionAt 查询 t 时刻的历史位置
func (a *Actor) PositionAt(t, now time.Duration) Position {
	return a.Log.Find(t, now, a.sampled(now))
}

// sampled 写入历史的位置：本地角色记录预测位置（与服务器位置比较），其余角色记录显示位置
func (a *Actor) sampled(now time.Duration) Position {
	if a.IsLocal {
		return a.Position
	}
	return a.Rendered(now)
}

func (a *Actor) String() string {
	return fmt.Sprintf("Actor{%d, public=%d, (%.2f, %.2f)}", a.Handle, a.PublicID, a.Position.X, a.Position.Y)
}
