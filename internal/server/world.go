package server

import (
	"log"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"shooter/internal/transport"
	"shooter/pkg/core"
	"shooter/pkg/protocol"
)

// World 权威世界：连接表与角色注册表，只在帧循环中访问
type World struct {
	table    *transport.ConnectionTable
	registry *core.Registry

	start time.Time
	dt    float64

	// 位置同步节奏与上次同步的位置，没有变化的角色不重复发送
	sync   *rate.Limiter
	synced map[core.Handle]core.Position

	// 每个角色一把武器冷却
	weapons map[core.Handle]*rate.Limiter

	rng *rand.Rand
}

// NewWorld 创建世界，start 为游戏时间零点
func NewWorld(conn transport.PacketConn, cfg Config, start time.Time) *World {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(start.UnixNano())
	}

	return &World{
		table:    transport.NewConnectionTable(conn),
		registry: core.NewRegistry(),
		start:    start,
		dt:       1.0 / float64(cfg.TPS),
		sync:     rate.NewLimiter(rate.Every(cfg.SyncInterval), 1),
		synced:   make(map[core.Handle]core.Position),
		weapons:  make(map[core.Handle]*rate.Limiter),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Table 连接表
func (w *World) Table() *transport.ConnectionTable {
	return w.table
}

// Registry 角色注册表
func (w *World) Registry() *core.Registry {
	return w.registry
}

// Tick 推进一帧：接收 → 模拟 → 开火 → 同步 → 重发 → 清理
func (w *World) Tick(now time.Time) {
	gameTime := now.Sub(w.start)

	w.table.Receive(w.handleMessage)

	for actor := range w.registry.All() {
		core.ApplyActions(actor, w.dt)
	}

	w.fireWeapons(now, gameTime)

	if w.sync.AllowN(now, 1) {
		w.syncPositions()
	}

	w.table.ResendUnacknowledged(now)
	w.prune()
}

func (w *World) handleMessage(conn *transport.Connection, msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Greeting:
		w.greet(conn)

	case *protocol.ClientInput:
		actor, ok := w.actorOf(conn)
		if !ok {
			return
		}
		actor.Actions = m.ActionSet()
		actor.Position.Direction = core.NormalizeAngle(m.Direction)

	case *protocol.ClientInputDirection:
		actor, ok := w.actorOf(conn)
		if !ok {
			return
		}
		actor.Position.Direction = core.NormalizeAngle(m.Direction)

	default:
		log.Printf("忽略来自 %s 的 %s", conn.Addr(), msg.Kind())
	}
}

// greet 为新对端生成角色：通知所有人，补发已有角色，最后移交控制权
func (w *World) greet(conn *transport.Connection) {
	if id, ok := conn.Actor(); ok {
		log.Printf("%s 重复握手，已控制角色 %d", conn.Addr(), id)
		return
	}

	actor, err := w.registry.Spawn(w.spawnPosition())
	if err != nil {
		log.Printf("%s 握手失败: %v", conn.Addr(), err)
		conn.Disconnect(err.Error())
		return
	}

	w.weapons[actor.Handle] = rate.NewLimiter(rate.Every(core.WeaponCooldown), 1)
	w.synced[actor.Handle] = actor.Position

	w.table.SendTo(protocol.Every(), protocol.NewActorSpawn(actor))

	for other := range w.registry.All() {
		if other.Handle == actor.Handle {
			continue
		}
		w.send(conn, protocol.NewActorSpawn(other))
	}

	w.send(conn, protocol.NewActorGrant(actor))
	conn.AttachActor(actor.PublicID)

	log.Printf("%s 加入，角色 %d 出生于 (%.1f, %.1f)，当前角色数: %d",
		conn.Addr(), actor.PublicID, actor.Position.X, actor.Position.Y, w.registry.Len())
}

func (w *World) spawnPosition() core.Position {
	x := core.ActorRadius + w.rng.Float64()*(core.WorldWidth-2*core.ActorRadius)
	y := core.ActorRadius + w.rng.Float64()*(core.WorldHeight-2*core.ActorRadius)
	return core.NewPosition(float32(x), float32(y), 0)
}

func (w *World) actorOf(conn *transport.Connection) (*core.Actor, bool) {
	id, ok := conn.Actor()
	if !ok {
		log.Printf("%s 尚未握手，忽略输入", conn.Addr())
		return nil, false
	}
	return w.registry.ByPublicID(id)
}

func (w *World) fireWeapons(now time.Time, gameTime time.Duration) {
	for actor := range w.registry.All() {
		if !actor.Actions.Attack() {
			continue
		}
		weapon, ok := w.weapons[actor.Handle]
		if !ok || !weapon.AllowN(now, 1) {
			continue
		}

		projectile := core.NewProjectile(actor, w.rng, gameTime)
		w.table.SendTo(protocol.Every(), protocol.NewProjectileSpawn(projectile))
	}
}

func (w *World) syncPositions() {
	for actor := range w.registry.All() {
		if last, ok := w.synced[actor.Handle]; ok && last == actor.Position {
			continue
		}
		w.synced[actor.Handle] = actor.Position
		w.table.SendTo(protocol.Every(), protocol.NewPositionUpdate(actor))
	}
}

// prune 移除已断开的连接并销毁其角色
func (w *World) prune() {
	for _, conn := range w.table.Prune() {
		id, ok := conn.Actor()
		if !ok {
			continue
		}
		actor, ok := w.registry.ByPublicID(id)
		if !ok {
			continue
		}

		w.registry.Remove(actor.Handle)
		delete(w.weapons, actor.Handle)
		delete(w.synced, actor.Handle)

		log.Printf("%s 离开，角色 %d 已移除，当前角色数: %d", conn.Addr(), id, w.registry.Len())
	}
}

func (w *World) send(conn *transport.Connection, msg protocol.Message) {
	if err := conn.Send(msg); err != nil {
		log.Printf("发送 %s 到 %s 失败: %v", msg.Kind(), conn.Addr(), err)
	}
}
