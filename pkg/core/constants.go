package core

import "time"

// 世界配置（世界单位，非像素）
const (
	WorldWidth  = 40.0
	WorldHeight = 30.0
	ActorRadius = 0.5
)

// 模拟帧率
const (
	TPS            = 60
	FixedDeltaTime = 1.0 / TPS
)

// 角色配置
const (
	ActorSpeed = 6.0 // 单位/秒

	// 本地预测与权威位置的最大允许偏差，超过才纠正
	MaxPlayerOffset = 0.25
)

// 位置历史配置
const (
	// 典型往返延迟
	TypicalPing = 200 * time.Millisecond

	// 历史保留窗口：约两个往返
	PositionLogRetention = 2 * TypicalPing

	// 采样间隔（25 Hz）
	PositionLogInterval = time.Second / 25

	// 环形缓冲区容量，多留一个样本覆盖窗口边界
	PositionLogCapacity = int(PositionLogRetention/PositionLogInterval) + 1
)

// 插值配置
const (
	// 一段纠正偏移衰减到零所需时间
	InterpolationDuration = 200 * time.Millisecond
)

// 武器配置
const (
	WeaponCooldown           = 250 * time.Millisecond
	ProjectileSpeed          = 20.0 // 单位/秒
	ProjectileAcceleration   = 0.98 // 每秒速度保留比例
	ProjectileLifetime       = 2 * time.Second
	WeaponVelocityDeviation  = 0.1
	WeaponDirectionDeviation = 0.02
)
