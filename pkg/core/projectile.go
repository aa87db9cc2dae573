package core

import (
	"math"
	"math/rand/v2"
	"time"
)

// Projectile 投射物：只在生成时同步一次，之后两端各自按同一公式推算
type Projectile struct {
	ShooterID    PublicID
	X, Y         float32
	VelocityX    float32
	VelocityY    float32
	Acceleration float32 // 每秒速度保留比例
	Spawned      time.Duration
}

// NewProjectile 从射手当前位置发射，速度与方向带少量随机偏差
func NewProjectile(shooter *Actor, rng *rand.Rand, now time.Duration) Projectile {
	velocity := ProjectileSpeed * (1 + WeaponVelocityDeviation*(2*rng.Float64()-1))
	direction := float64(shooter.Position.Direction) + WeaponDirectionDeviation*(2*rng.Float64()-1)
	sin, cos := math.Sincos(direction)

	return Projectile{
		ShooterID:    shooter.PublicID,
		X:            shooter.Position.X,
		Y:            shooter.Position.Y,
		VelocityX:    float32(cos * velocity),
		VelocityY:    float32(sin * velocity),
		Acceleration: ProjectileAcceleration,
		Spawned:      now,
	}
}

// PositionAt 推算 now 时刻的位置
func (p Projectile) PositionAt(now time.Duration) (x, y float32) {
	t := (now - p.Spawned).Seconds()
	if t <= 0 {
		return p.X, p.Y
	}

	// 速度按 a^t 衰减，位移为其积分
	travel := t
	a := float64(p.Acceleration)
	if a > 0 && a != 1 {
		travel = (math.Pow(a, t) - 1) / math.Log(a)
	}

	return p.X + p.VelocityX*float32(travel), p.Y + p.VelocityY*float32(travel)
}

// Expired 是否超出存活时间
func (p Projectile) Expired(now time.Duration) bool {
	return now-p.Spawned > ProjectileLifetime
}
